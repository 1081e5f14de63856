package services

import (
	"regexp"
	"strings"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
	"github.com/iota-uz/territory-status/modules/territory/infrastructure/document"
)

// TableLayout binds a table ordinal to its status and date-column matchers.
type TableLayout struct {
	Ordinal     int
	Status      territory.Status
	StartColumn string
	EndColumn   string
}

const (
	codeColumn         = 0
	nameColumn         = 1
	defaultStartColumn = 2
	defaultEndColumn   = 3
)

// tableLayouts is the positional contract with the source document.
var tableLayouts = map[int]TableLayout{
	1: {Ordinal: 1, Status: territory.StatusPossibleCombat,
		StartColumn: "Дата виникнення можливості бойових дій", EndColumn: "Дата припинення можливості бойових дій"},
	2: {Ordinal: 2, Status: territory.StatusActiveCombat,
		StartColumn: "Дата початку бойових дій", EndColumn: "Дата завершення бойових дій"},
	3: {Ordinal: 3, Status: territory.StatusActiveCombatWithResources,
		StartColumn: "Дата початку бойових дій", EndColumn: "Дата завершення бойових дій"},
	4: {Ordinal: 4, Status: territory.StatusTemporarilyOccupied,
		StartColumn: "Дата початку тимчасової окупації", EndColumn: "Дата завершення тимчасової окупації"},
	5: {Ordinal: 5, Status: territory.StatusTemporarilyOccupied,
		StartColumn: "Дата початку тимчасової окупації", EndColumn: "Дата завершення тимчасової окупації"},
}

const maxMappedTables = 5

func LayoutForTable(ordinal int) (TableLayout, bool) {
	l, ok := tableLayouts[ordinal]
	return l, ok
}

type RowKind int

const (
	RowNoise RowKind = iota
	RowHeader
	RowData
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowData:
		return "data"
	default:
		return "noise"
	}
}

const nameChars = `[\p{L}\s'’ʼ-]+`

var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d+\.\d*\.\s*` + nameChars + `(ОБЛАСТЬ|REGION|OBLAST)$`),
	regexp.MustCompile(`(?i)^\d+\.\s*` + nameChars + `(ОБЛАСТЬ|REGION|OBLAST)$`),
	regexp.MustCompile(`(?i)^\d+\.\s*АВТОНОМНА\s+РЕСПУБЛІКА\s+КРИМ$`),
	regexp.MustCompile(`(?i)^\d+\.\s*(М|M)\.\s*` + nameChars + `$`),
	regexp.MustCompile(`(?i)^` + nameChars + `(район|district)$`),
	regexp.MustCompile(`(?i)^Найменування$`),
	regexp.MustCompile(`(?i)^Код$`),
	regexp.MustCompile(`(?i)^Дата\s+`),
}

// ClassifyRow applies the header rules first, then accepts a data row only
// when the leading cell is a valid territory code.
func ClassifyRow(cells []string) RowKind {
	if len(cells) < 2 {
		return RowHeader
	}
	lead := strings.TrimSpace(cells[0])
	for _, p := range headerPatterns {
		if p.MatchString(lead) {
			return RowHeader
		}
	}
	if lead == strings.TrimSpace(cells[1]) {
		return RowHeader
	}
	if IsValidTerritoryCode(lead) {
		return RowData
	}
	return RowNoise
}

type ExtractedRow struct {
	Line  int
	Cells []string
}

func (r ExtractedRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

type ExtractedTable struct {
	Ordinal int
	Layout  TableLayout
	Headers []string
	Rows    []ExtractedRow

	StartColumn int
	EndColumn   int

	HeaderRows    int
	DiscardedRows int
}

// Code, name and dates of one accepted row, addressed through the table's columns.
func (t ExtractedTable) Code(r ExtractedRow) string  { return r.Cell(codeColumn) }
func (t ExtractedTable) Name(r ExtractedRow) string  { return r.Cell(nameColumn) }
func (t ExtractedTable) Start(r ExtractedRow) string { return r.Cell(t.StartColumn) }

func (t ExtractedTable) End(r ExtractedRow) string {
	if t.EndColumn < 0 {
		return ""
	}
	return r.Cell(t.EndColumn)
}

// ExtractTables classifies the rows of the first five tables of doc.
// Row 0 of each table supplies the column headers and is classified like
// any other row.
func ExtractTables(doc document.Document) ([]ExtractedTable, error) {
	if len(doc.Tables) == 0 {
		return nil, document.NewFormatError(doc.Name, "no tables found", nil)
	}

	var out []ExtractedTable
	for i, tbl := range doc.Tables {
		ordinal := i + 1
		layout, ok := LayoutForTable(ordinal)
		if !ok || ordinal > maxMappedTables {
			break
		}
		et := ExtractedTable{
			Ordinal:     ordinal,
			Layout:      layout,
			StartColumn: defaultStartColumn,
			EndColumn:   defaultEndColumn,
		}
		if len(tbl.Rows) == 0 {
			out = append(out, et)
			continue
		}

		et.Headers = tbl.Rows[0]
		et.StartColumn, et.EndColumn = locateDateColumns(et.Headers, layout)
		for j, cells := range tbl.Rows {
			switch ClassifyRow(cells) {
			case RowHeader:
				et.HeaderRows++
			case RowData:
				et.Rows = append(et.Rows, ExtractedRow{Line: j + 1, Cells: cells})
			default:
				et.DiscardedRows++
			}
		}
		out = append(out, et)
	}
	return out, nil
}

func locateDateColumns(headers []string, layout TableLayout) (int, int) {
	start := findColumn(headers, layout.StartColumn, -1)
	end := findColumn(headers, layout.EndColumn, -1)
	if start < 0 {
		start = defaultStartColumn
	}
	if end < 0 || end == start {
		end = defaultEndColumn
		if end == start {
			end = -1
		}
	}
	return start, end
}

func findColumn(headers []string, matcher string, fallback int) int {
	if matcher == "" {
		return fallback
	}
	m := strings.ToLower(matcher)
	for i, h := range headers {
		if strings.Contains(strings.ToLower(NormalizeName(h)), m) {
			return i
		}
	}
	return fallback
}
