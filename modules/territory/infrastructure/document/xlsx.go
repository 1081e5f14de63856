package document

import (
	"bytes"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

// readXLSX treats every worksheet as one table.
func readXLSX(data []byte) ([]Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()

	var tables []Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, errors.Wrapf(err, "read sheet %s", sheet)
		}
		merged, err := f.GetMergeCells(sheet)
		if err != nil {
			return nil, errors.Wrapf(err, "read merged cells of %s", sheet)
		}
		for _, mc := range merged {
			startCol, startRow, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
			if err != nil {
				return nil, errors.Wrapf(err, "merged range %s", mc.GetStartAxis())
			}
			endCol, endRow, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
			if err != nil {
				return nil, errors.Wrapf(err, "merged range %s", mc.GetEndAxis())
			}
			value := mc.GetCellValue()
			for r := startRow; r <= endRow; r++ {
				for c := startCol; c <= endCol; c++ {
					rows = setCell(rows, r-1, c-1, value)
				}
			}
		}
		for i := range rows {
			for j := range rows[i] {
				rows[i][j] = cleanCell(rows[i][j])
			}
		}
		tables = append(tables, Table{Rows: rows})
	}
	return tables, nil
}

func setCell(rows [][]string, r, c int, value string) [][]string {
	for len(rows) <= r {
		rows = append(rows, nil)
	}
	for len(rows[r]) <= c {
		rows[r] = append(rows[r], "")
	}
	rows[r][c] = value
	return rows
}
