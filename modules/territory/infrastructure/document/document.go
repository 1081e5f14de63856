// Package document reads tabular source documents into plain cell grids.
// Merged cells are expanded so every grid column carries the visible text.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

var ErrFormat = errors.New("document format error")

// FormatError reports a document that cannot be opened or has no tables.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("document %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

func NewFormatError(path, reason string, err error) *FormatError {
	return &FormatError{Path: path, Reason: reason, Err: err}
}

// Table is one table of the document; Rows[0] is normally the column header row.
type Table struct {
	Rows [][]string
}

type Document struct {
	Name   string
	Tables []Table
}

type Format string

const (
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// DetectFormat maps a file extension to a supported format.
func DetectFormat(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return FormatDOCX, true
	case ".xlsx", ".xlsm":
		return FormatXLSX, true
	case ".html", ".htm":
		return FormatHTML, true
	default:
		return "", false
	}
}

// Open reads and parses the file at path.
func Open(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, NewFormatError(path, "cannot open", err)
	}
	return Parse(path, data)
}

// Parse decodes data according to the extension of name. A document
// without any table is a FormatError.
func Parse(name string, data []byte) (Document, error) {
	format, ok := DetectFormat(name)
	if !ok {
		return Document{}, NewFormatError(name, fmt.Sprintf("unsupported extension %q", filepath.Ext(name)), nil)
	}

	var (
		tables []Table
		err    error
	)
	switch format {
	case FormatDOCX:
		tables, err = readDOCX(data)
	case FormatXLSX:
		tables, err = readXLSX(data)
	case FormatHTML:
		tables, err = readHTML(data)
	}
	if err != nil {
		return Document{}, NewFormatError(name, "cannot read "+string(format), err)
	}
	if len(tables) == 0 {
		return Document{}, NewFormatError(name, "no tables found", nil)
	}
	return Document{Name: filepath.Base(name), Tables: tables}, nil
}

func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}
