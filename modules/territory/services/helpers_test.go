package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
	"github.com/iota-uz/territory-status/modules/territory/infrastructure/document"
	"github.com/iota-uz/territory-status/modules/territory/infrastructure/persistence"
)

const (
	codeDonetsk    = "UA14000000000087325"
	codeBakhmutRn  = "UA14020000000045714"
	codeBakhmutHr  = "UA14020010000040960"
	codeBakhmut    = "UA14020010010044574"
	codeBakhmutske = "UA14020010020093761"
	codeMyrneHr    = "UA14020030000012345"
	codeMyrne      = "UA14020030010054321"
	codeUnknown    = "UA99999999999999999"
)

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSeededRegistry(t *testing.T) *persistence.MemoryRegistry {
	t.Helper()
	reg := persistence.NewMemoryRegistry()
	for _, tr := range []territory.Territory{
		{Code: codeDonetsk, Name: "Донецька", Category: territory.CategoryRegion},
		{Code: codeBakhmutRn, Name: "Бахмутський", Category: territory.CategoryDistrict, ParentCode: codeDonetsk},
		{Code: codeBakhmutHr, Name: "Бахмутська", Category: territory.CategoryCommunity, ParentCode: codeBakhmutRn},
		{Code: codeBakhmut, Name: "Бахмут", Category: territory.CategoryCity, ParentCode: codeBakhmutHr},
		{Code: codeBakhmutske, Name: "Бахмутське", Category: territory.CategoryVillage, ParentCode: codeBakhmutHr},
		{Code: codeMyrneHr, Name: "Мирне", Category: territory.CategoryCommunity, ParentCode: codeBakhmutRn},
		{Code: codeMyrne, Name: "Мирне", Category: territory.CategoryUrbanSettlement, ParentCode: codeMyrneHr},
	} {
		require.NoError(t, reg.Upsert(context.Background(), tr))
	}
	return reg
}

var tableHeaders = map[int][]string{
	1: {"Код", "Найменування", "Дата виникнення можливості бойових дій", "Дата припинення можливості бойових дій"},
	2: {"Код", "Найменування", "Дата початку бойових дій", "Дата завершення бойових дій"},
	3: {"Код", "Найменування", "Дата початку бойових дій", "Дата завершення бойових дій"},
	4: {"Код", "Найменування", "Дата початку тимчасової окупації", "Дата завершення тимчасової окупації"},
	5: {"Код", "Найменування", "Дата початку тимчасової окупації", "Дата завершення тимчасової окупації"},
}

// buildDocument prepends the standard header row to each table's rows.
func buildDocument(name string, tables ...[][]string) document.Document {
	doc := document.Document{Name: name}
	for i, rows := range tables {
		header := tableHeaders[i+1]
		if header == nil {
			header = []string{"Код", "Найменування"}
		}
		doc.Tables = append(doc.Tables, document.Table{Rows: append([][]string{header}, rows...)})
	}
	return doc
}

// orderDocument is the fixture used by the pipeline tests: six rows across
// tables 1-5 plus an ignored sixth table.
func orderDocument() document.Document {
	return buildDocument("order-309.docx",
		[][]string{
			{codeBakhmutRn, "Бахмутський", "24.02.2022", ""},
		},
		[][]string{
			{"1. ДОНЕЦЬКА ОБЛАСТЬ", "1. ДОНЕЦЬКА ОБЛАСТЬ", "", ""},
			{codeBakhmut, "Бахмут", "24.02.2022", "20.05.2023"},
		},
		nil,
		[][]string{
			{"1. KYIV REGION", "", "", ""},
			{codeUnknown, "Бахмутське", "20.05.2023", ""},
			{codeUnknown, "Невідоме село", "20.05.2023", ""},
		},
		[][]string{
			{codeDonetsk, "Донецька", "", ""},
			{codeDonetsk, "Донецька", "01.03.2014", "не визначено"},
		},
		[][]string{
			{codeMyrne, "Мирне", "01.01.2023", ""},
		},
	)
}
