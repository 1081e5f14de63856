package document

import (
	"bytes"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
)

type spanCarry struct {
	text string
	rows int
}

// readHTML reads top-level <table> elements; nested tables are skipped.
func readHTML(data []byte) ([]Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	var tables []Table
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		if tbl.ParentsFiltered("table").Length() > 0 {
			return
		}
		tables = append(tables, Table{Rows: htmlRows(tbl)})
	})
	return tables, nil
}

func htmlRows(tbl *goquery.Selection) [][]string {
	var rows [][]string
	carry := map[int]spanCarry{}

	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(tbl) {
			return
		}
		var row []string
		col := 0
		fill := func() {
			for {
				c, ok := carry[col]
				if !ok {
					return
				}
				row = append(row, c.text)
				c.rows--
				if c.rows <= 0 {
					delete(carry, col)
				} else {
					carry[col] = c
				}
				col++
			}
		}

		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			fill()
			cell.Find("br").ReplaceWithHtml("\n")
			text := cleanCell(cell.Text())
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			for i := 0; i < colspan; i++ {
				row = append(row, text)
				if rowspan > 1 {
					carry[col] = spanCarry{text: text, rows: rowspan - 1}
				}
				col++
			}
		})
		fill()
		rows = append(rows, row)
	})
	return rows
}

func spanAttr(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
