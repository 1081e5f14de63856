package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
	"github.com/iota-uz/territory-status/modules/territory/infrastructure/document"
)

func TestClassifyRow(t *testing.T) {
	cases := []struct {
		cells []string
		want  RowKind
	}{
		{[]string{codeBakhmut, "Бахмут", "24.02.2022"}, RowData},
		{[]string{"1. KYIV REGION", "", ""}, RowHeader},
		{[]string{"5. ДОНЕЦЬКА ОБЛАСТЬ", "5. ДОНЕЦЬКА ОБЛАСТЬ"}, RowHeader},
		{[]string{"1.2. Запорізька область", ""}, RowHeader},
		{[]string{"1. Автономна Республіка Крим", ""}, RowHeader},
		{[]string{"3. м. Севастополь", ""}, RowHeader},
		{[]string{"Бахмутський район", ""}, RowHeader},
		{[]string{"Код", "Найменування"}, RowHeader},
		{[]string{"Дата початку", "x"}, RowHeader},
		{[]string{"Примітка", "Примітка"}, RowHeader},
		{[]string{codeBakhmut}, RowHeader},
		{[]string{"примітка", "текст"}, RowNoise},
		{[]string{"UA1402", "Бахмут"}, RowNoise},
		{[]string{"", "Бахмут"}, RowNoise},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ClassifyRow(tc.cells), "%q", tc.cells)
	}
}

func TestExtractTables_FirstFiveTablesOnly(t *testing.T) {
	tables, err := ExtractTables(orderDocument())
	require.NoError(t, err)
	require.Len(t, tables, 5)

	for i, tbl := range tables {
		require.Equal(t, i+1, tbl.Ordinal)
	}
	require.Equal(t, territory.StatusPossibleCombat, tables[0].Layout.Status)
	require.Equal(t, territory.StatusActiveCombat, tables[1].Layout.Status)
	require.Equal(t, territory.StatusActiveCombatWithResources, tables[2].Layout.Status)
	require.Equal(t, territory.StatusTemporarilyOccupied, tables[3].Layout.Status)
	require.Equal(t, territory.StatusTemporarilyOccupied, tables[4].Layout.Status)

	require.Len(t, tables[1].Rows, 1)
	require.Equal(t, 2, tables[1].HeaderRows)
	require.Empty(t, tables[2].Rows)
}

func TestExtractTables_RegionHeaderInOccupationTable(t *testing.T) {
	tables, err := ExtractTables(orderDocument())
	require.NoError(t, err)

	occupied := tables[3]
	require.Equal(t, 4, occupied.Ordinal)
	require.Equal(t, 2, occupied.HeaderRows)
	require.Len(t, occupied.Rows, 2)

	row := occupied.Rows[0]
	require.Equal(t, 3, row.Line)
	require.Equal(t, codeUnknown, occupied.Code(row))
	require.Equal(t, "Бахмутське", occupied.Name(row))
	require.Equal(t, "20.05.2023", occupied.Start(row))
	require.Empty(t, occupied.End(row))
}

func TestExtractTables_LocatesDateColumnsByHeader(t *testing.T) {
	doc := document.Document{Name: "reordered.xlsx", Tables: []document.Table{
		{Rows: [][]string{
			{"Код", "Найменування", "Дата припинення можливості бойових дій", "Примітка", "Дата виникнення можливості бойових дій"},
			{codeBakhmut, "Бахмут", "", "-", "24.02.2022"},
			{"примітка", "не стосується"},
		}},
	}}
	tables, err := ExtractTables(doc)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	tbl := tables[0]
	require.Equal(t, 4, tbl.StartColumn)
	require.Equal(t, 2, tbl.EndColumn)
	require.Equal(t, 1, tbl.DiscardedRows)
	require.Equal(t, "24.02.2022", tbl.Start(tbl.Rows[0]))
	require.Empty(t, tbl.End(tbl.Rows[0]))
}

func TestExtractTables_DataRowAtRowZero(t *testing.T) {
	doc := document.Document{Name: "headless.html", Tables: []document.Table{
		{Rows: [][]string{
			{codeBakhmut, "Бахмут", "24.02.2022", ""},
			{codeMyrne, "Мирне", "01.03.2022", "10.11.2022"},
		}},
	}}
	tables, err := ExtractTables(doc)
	require.NoError(t, err)
	tbl := tables[0]
	require.Zero(t, tbl.HeaderRows)
	require.Len(t, tbl.Rows, 2)
	require.Equal(t, 1, tbl.Rows[0].Line)
	require.Equal(t, codeBakhmut, tbl.Code(tbl.Rows[0]))
	require.Equal(t, 2, tbl.Rows[1].Line)
	require.Equal(t, "10.11.2022", tbl.End(tbl.Rows[1]))
}

func TestExtractTables_DefaultColumns(t *testing.T) {
	doc := document.Document{Name: "bare.html", Tables: []document.Table{
		{Rows: [][]string{
			{"", "", "", ""},
			{codeBakhmut, "Бахмут", "24.02.2022", "01.03.2022"},
		}},
	}}
	tables, err := ExtractTables(doc)
	require.NoError(t, err)
	tbl := tables[0]
	require.Equal(t, defaultStartColumn, tbl.StartColumn)
	require.Equal(t, defaultEndColumn, tbl.EndColumn)
	require.Equal(t, "01.03.2022", tbl.End(tbl.Rows[0]))
}

func TestExtractTables_NoTables(t *testing.T) {
	_, err := ExtractTables(document.Document{Name: "empty.docx"})
	require.ErrorIs(t, err, document.ErrFormat)
}
