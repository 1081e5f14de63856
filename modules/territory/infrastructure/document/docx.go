package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

const wordDocumentPart = "word/document.xml"

func readDOCX(data []byte) ([]Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "open zip")
	}
	for _, f := range zr.File {
		if f.Name != wordDocumentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, "open "+wordDocumentPart)
		}
		defer rc.Close()
		return parseWordTables(rc)
	}
	return nil, errors.Errorf("missing %s", wordDocumentPart)
}

type vMergeState int

const (
	vMergeNone vMergeState = iota
	vMergeRestart
	vMergeContinue
)

// wordTable accumulates one top-level w:tbl. Cells spanning several grid
// columns (w:gridSpan) are repeated; vertically merged continuation cells
// (w:vMerge) take the text of the cell that started the merge.
type wordTable struct {
	rows   [][]string
	row    []string
	merged map[int]string
	cell   strings.Builder
	inCell bool
	paras  int
	span   int
	vMerge vMergeState
}

func newWordTable() *wordTable {
	return &wordTable{merged: map[int]string{}}
}

func (w *wordTable) startRow() {
	w.row = nil
}

func (w *wordTable) endRow() {
	w.rows = append(w.rows, w.row)
	w.row = nil
}

func (w *wordTable) startCell() {
	w.cell.Reset()
	w.inCell = true
	w.paras = 0
	w.span = 1
	w.vMerge = vMergeNone
}

func (w *wordTable) endCell() {
	text := cleanCell(w.cell.String())
	col := len(w.row)
	for i := 0; i < w.span; i++ {
		switch w.vMerge {
		case vMergeRestart:
			w.merged[col+i] = text
		case vMergeContinue:
			text = w.merged[col+i]
		default:
			delete(w.merged, col+i)
		}
		w.row = append(w.row, text)
	}
	w.inCell = false
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func parseWordTables(r io.Reader) ([]Table, error) {
	dec := xml.NewDecoder(r)
	var (
		tables []Table
		cur    *wordTable
		depth  int
		inText bool
	)
	active := func() bool { return depth == 1 && cur != nil && cur.inCell }

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "decode document xml")
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tbl":
				depth++
				if depth == 1 {
					cur = newWordTable()
				}
			case "tr":
				if depth == 1 {
					cur.startRow()
				}
			case "tc":
				if depth == 1 {
					cur.startCell()
				}
			case "gridSpan":
				if active() {
					if n, err := strconv.Atoi(attrValue(el, "val")); err == nil && n > 1 {
						cur.span = n
					}
				}
			case "vMerge":
				if active() {
					if attrValue(el, "val") == "restart" {
						cur.vMerge = vMergeRestart
					} else {
						cur.vMerge = vMergeContinue
					}
				}
			case "p":
				if active() {
					if cur.paras > 0 {
						cur.cell.WriteByte('\n')
					}
					cur.paras++
				}
			case "t":
				inText = active()
			case "tab":
				if active() {
					cur.cell.WriteByte('\t')
				}
			case "br", "cr":
				if active() {
					cur.cell.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "tbl":
				if depth == 1 {
					tables = append(tables, Table{Rows: cur.rows})
					cur = nil
				}
				depth--
			case "tr":
				if depth == 1 {
					cur.endRow()
				}
			case "tc":
				if depth == 1 {
					cur.endCell()
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.cell.Write(el)
			}
		}
	}
	return tables, nil
}
