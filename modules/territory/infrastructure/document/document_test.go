package document

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func wc(text string) string {
	return `<w:tc><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:tc>`
}

func wr(cells ...string) string {
	return `<w:tr>` + strings.Join(cells, "") + `</w:tr>`
}

func TestParse_DOCX(t *testing.T) {
	body := `<w:p><w:r><w:t>Перелік</w:t></w:r></w:p>` +
		`<w:tbl>` +
		wr(wc("Код"), wc("Найменування"), wc("Дата початку"), wc("Дата завершення")) +
		wr(`<w:tc><w:tcPr><w:gridSpan w:val="4"/></w:tcPr><w:p><w:r><w:t>1. KYIV REGION</w:t></w:r></w:p></w:tc>`) +
		wr(wc("UA80000000000012345"), wc("Sample Settlement"),
			`<w:tc><w:p><w:r><w:t>01.03.2022</w:t></w:r></w:p><w:p><w:r><w:t>05.03.2022</w:t></w:r></w:p></w:tc>`,
			wc("")) +
		`</w:tbl>` +
		`<w:tbl>` + wr(wc("a"), wc("b")) + `</w:tbl>`

	doc, err := Parse("perelik.docx", buildDOCX(t, body))
	require.NoError(t, err)
	require.Equal(t, "perelik.docx", doc.Name)
	require.Len(t, doc.Tables, 2)

	rows := doc.Tables[0].Rows
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Код", "Найменування", "Дата початку", "Дата завершення"}, rows[0])
	require.Equal(t, []string{"1. KYIV REGION", "1. KYIV REGION", "1. KYIV REGION", "1. KYIV REGION"}, rows[1])
	require.Equal(t, "UA80000000000012345", rows[2][0])
	require.Equal(t, "01.03.2022\n05.03.2022", rows[2][2])
	require.Equal(t, "", rows[2][3])
}

func TestParse_DOCX_VerticalMergeAndNestedTables(t *testing.T) {
	body := `<w:tbl>` +
		wr(`<w:tc><w:tcPr><w:vMerge w:val="restart"/></w:tcPr><w:p><w:r><w:t>Район</w:t></w:r></w:p></w:tc>`,
			`<w:tc><w:tbl>`+wr(wc("inner"))+`</w:tbl><w:p><w:r><w:t>outer</w:t></w:r></w:p></w:tc>`) +
		wr(`<w:tc><w:tcPr><w:vMerge/></w:tcPr><w:p/></w:tc>`, wc("x")) +
		`</w:tbl>`

	doc, err := Parse("d.docx", buildDOCX(t, body))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	require.Equal(t, [][]string{{"Район", "outer"}, {"Район", "x"}}, doc.Tables[0].Rows)
}

func TestParse_DOCX_ContentControls(t *testing.T) {
	body := `<w:sdt><w:sdtContent><w:tbl>` +
		wr(wc("Код"), wc("Найменування")) +
		`<w:sdt><w:sdtContent>` +
		wr(wc("UA80000000000012345"),
			`<w:tc><w:p><w:sdt><w:sdtContent><w:r><w:t>Sample</w:t></w:r></w:sdtContent></w:sdt>`+
				`<w:ins><w:r><w:t xml:space="preserve"> Settlement</w:t></w:r></w:ins></w:p></w:tc>`) +
		`</w:sdtContent></w:sdt>` +
		`</w:tbl></w:sdtContent></w:sdt>`

	doc, err := Parse("sdt.docx", buildDOCX(t, body))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	require.Equal(t, [][]string{{"Код", "Найменування"}, {"UA80000000000012345", "Sample Settlement"}}, doc.Tables[0].Rows)
}

func TestParse_DOCX_NoTables(t *testing.T) {
	_, err := Parse("empty.docx", buildDOCX(t, `<w:p><w:r><w:t>text only</w:t></w:r></w:p>`))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFormat)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "no tables found", fe.Reason)
}

func TestParse_DOCX_Corrupt(t *testing.T) {
	_, err := Parse("broken.docx", []byte("not a zip"))
	require.ErrorIs(t, err, ErrFormat)
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse("list.pdf", []byte("%PDF"))
	require.ErrorIs(t, err, ErrFormat)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.docx"))
	require.ErrorIs(t, err, ErrFormat)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Код", "Найменування", "Дата початку", "Дата завершення"}))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "2. ДОНЕЦЬКА ОБЛАСТЬ"))
	require.NoError(t, f.MergeCell("Sheet1", "A2", "D2"))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"UA14000000000000000", "Донецька", "24.02.2022", ""}))
	_, err := f.NewSheet("Sheet2")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	doc, err := Parse("perelik.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Tables, 2)
	rows := doc.Tables[0].Rows
	require.Len(t, rows, 3)
	require.Equal(t, []string{"2. ДОНЕЦЬКА ОБЛАСТЬ", "2. ДОНЕЦЬКА ОБЛАСТЬ", "2. ДОНЕЦЬКА ОБЛАСТЬ", "2. ДОНЕЦЬКА ОБЛАСТЬ"}, rows[1])
	require.Equal(t, "UA14000000000000000", rows[2][0])
	require.Empty(t, doc.Tables[1].Rows)
}

func TestParse_HTML(t *testing.T) {
	page := `<html><body>
<table>
  <tr><th>Код</th><th>Найменування</th><th>Дата початку</th><th>Дата завершення</th></tr>
  <tr><td colspan="4">1. KYIV REGION</td></tr>
  <tr><td>UA80000000000012345</td><td rowspan="2">Sample&nbsp;Settlement</td><td>01.03.2022<br>02.03.2022</td><td></td></tr>
  <tr><td>UA80000000000054321</td><td>02.03.2022</td><td><table><tr><td>nested</td></tr></table></td></tr>
</table>
</body></html>`

	doc, err := Parse("page.html", []byte(page))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)

	rows := doc.Tables[0].Rows
	require.Len(t, rows, 4)
	require.Equal(t, []string{"1. KYIV REGION", "1. KYIV REGION", "1. KYIV REGION", "1. KYIV REGION"}, rows[1])
	require.Equal(t, "Sample Settlement", rows[2][1])
	require.Equal(t, "01.03.2022\n02.03.2022", rows[2][2])
	require.Equal(t, "Sample Settlement", rows[3][1])
	require.Equal(t, "02.03.2022", rows[3][2])
}

func TestDetectFormat(t *testing.T) {
	f, ok := DetectFormat("A.DOCX")
	require.True(t, ok)
	require.Equal(t, FormatDOCX, f)
	_, ok = DetectFormat("a.doc")
	require.False(t, ok)
}
