package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/territory-status/modules/territory/domain/importsession"
	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

const (
	codeRegion      = "UA14000000000087325"
	codeDistrict    = "UA14020000000045714"
	codeBakhmut     = "UA14020010010044574"
	codeBakhmutske  = "UA14020010020093761"
	codeUnknownCity = "UA99999999999999999"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedRegistry(t *testing.T, reg territory.Registry) {
	t.Helper()
	ctx := context.Background()
	for _, tr := range []territory.Territory{
		{Code: codeRegion, Name: "Донецька", Category: territory.CategoryRegion},
		{Code: codeDistrict, Name: "Бахмутський", Category: territory.CategoryDistrict, ParentCode: codeRegion},
		{Code: codeBakhmutske, Name: "Бахмутське", Category: territory.CategoryVillage, ParentCode: codeDistrict},
		{Code: codeBakhmut, Name: "Бахмут", Category: territory.CategoryCity, ParentCode: codeDistrict},
	} {
		require.NoError(t, reg.Upsert(ctx, tr))
	}
}

func runRegistryContract(t *testing.T, reg territory.Registry) {
	t.Helper()
	ctx := context.Background()
	seedRegistry(t, reg)

	got, err := reg.GetByCode(ctx, codeDistrict)
	require.NoError(t, err)
	require.Equal(t, territory.PartitionDistricts, got.Partition())
	require.Equal(t, codeRegion, got.ParentCode)

	_, err = reg.GetByCode(ctx, codeUnknownCity)
	require.ErrorIs(t, err, territory.ErrNotFound)

	byName, err := reg.FindByName(ctx, territory.PartitionSettlements, "Бахмут")
	require.NoError(t, err)
	require.Equal(t, codeBakhmut, byName.Code)

	_, err = reg.FindByName(ctx, territory.PartitionRegions, "Бахмут")
	require.ErrorIs(t, err, territory.ErrNotFound)

	folded, err := reg.FindByNameFold(ctx, territory.PartitionSettlements, "ахмут")
	require.NoError(t, err)
	require.Equal(t, codeBakhmut, folded.Code, "first match in code order")

	n, err := reg.Count(ctx, territory.PartitionSettlements)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = reg.CountWithStatus(ctx, territory.PartitionSettlements)
	require.NoError(t, err)
	require.Zero(t, n)

	updatedAt := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	period := territory.StatusPeriod{
		Status:         territory.StatusTemporarilyOccupied,
		StartDate:      day(2023, time.May, 20),
		SourceDocument: "Наказ №309",
		ImportID:       "imp-1",
		TerritoryCode:  codeBakhmut,
		TableSource:    5,
		UpdatedAt:      updatedAt,
	}
	start := period.StartDate
	require.NoError(t, reg.UpdateStatus(ctx, codeBakhmut, territory.StatusUpdate{
		Bucket:           territory.BucketOccupation,
		History:          []territory.StatusPeriod{period},
		CurrentStatus:    period.Status,
		StatusStartDate:  &start,
		LastStatusUpdate: updatedAt,
		LastImportID:     "imp-1",
	}))

	got, err = reg.GetByCode(ctx, codeBakhmut)
	require.NoError(t, err)
	require.Len(t, got.OccupationHistory, 1)
	require.Nil(t, got.CombatHistory)
	require.Equal(t, territory.StatusTemporarilyOccupied, got.CurrentStatus)
	require.True(t, got.OccupationHistory[0].StartDate.Equal(start))
	require.Nil(t, got.OccupationHistory[0].EndDate)
	require.Equal(t, 5, got.OccupationHistory[0].TableSource)
	require.NotNil(t, got.StatusStartDate)
	require.True(t, got.StatusStartDate.Equal(start))
	require.Nil(t, got.StatusEndDate)
	require.NotNil(t, got.LastStatusUpdate)
	require.True(t, got.LastStatusUpdate.Equal(updatedAt))
	require.Equal(t, "imp-1", got.LastImportID)

	err = reg.UpdateStatus(ctx, codeUnknownCity, territory.StatusUpdate{Bucket: territory.BucketCombat})
	require.ErrorIs(t, err, territory.ErrNotFound)

	listed, err := reg.ListWithStatus(ctx, territory.PartitionSettlements, territory.StatusFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, codeBakhmut, listed[0].Code)

	listed, err = reg.ListWithStatus(ctx, territory.PartitionSettlements, territory.StatusFilter{Status: territory.StatusActiveCombat})
	require.NoError(t, err)
	require.Empty(t, listed)

	listed, err = reg.ListWithStatus(ctx, territory.PartitionSettlements, territory.StatusFilter{Status: territory.StatusTemporarilyOccupied})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	n, err = reg.CountWithStatus(ctx, territory.PartitionSettlements)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// A registry reload rewrites identity but keeps histories.
	require.NoError(t, reg.Upsert(ctx, territory.Territory{
		Code: codeBakhmut, Name: "Бахмут (Артемівськ)", Category: territory.CategoryCity, ParentCode: codeDistrict,
	}))
	got, err = reg.GetByCode(ctx, codeBakhmut)
	require.NoError(t, err)
	require.Equal(t, "Бахмут (Артемівськ)", got.Name)
	require.Len(t, got.OccupationHistory, 1)

	got.OccupationHistory[0].DocumentDateISO = "2023-05-20"
	require.NoError(t, reg.ReplaceHistories(ctx, got))
	got, err = reg.GetByCode(ctx, codeBakhmut)
	require.NoError(t, err)
	require.Equal(t, "2023-05-20", got.OccupationHistory[0].DocumentDateISO)

	names, err := reg.Names(ctx, territory.PartitionSettlements)
	require.NoError(t, err)
	require.Equal(t, []territory.NameRef{
		{Code: codeBakhmut, Name: "Бахмут (Артемівськ)", Partition: territory.PartitionSettlements},
		{Code: codeBakhmutske, Name: "Бахмутське", Partition: territory.PartitionSettlements},
	}, names)

	cleared, err := reg.ClearStatus(ctx, territory.PartitionSettlements)
	require.NoError(t, err)
	require.Equal(t, 1, cleared)

	got, err = reg.GetByCode(ctx, codeBakhmut)
	require.NoError(t, err)
	require.False(t, got.HasStatus())
	require.Equal(t, "Бахмут (Артемівськ)", got.Name)

	cleared, err = reg.ClearStatus(ctx, territory.PartitionSettlements)
	require.NoError(t, err)
	require.Zero(t, cleared)

	require.ErrorIs(t, reg.Upsert(ctx, territory.Territory{Code: codeUnknownCity, Category: "Z"}), ErrUnknownCategory)
}

func runSessionContract(t *testing.T, repo importsession.Repository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)

	older := importsession.New("run-1", "imp-1", base)
	older.DocumentName = "Наказ №309"
	require.NoError(t, repo.Create(ctx, older))

	newer := importsession.New("run-2", "imp-1", base.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, newer))

	older.TotalRows = 10
	older.TotalImported = 8
	older.Unresolved = []importsession.UnresolvedRow{{Table: 1, Line: 4, Name: "Невідоме", Reason: "territory not found"}}
	require.NoError(t, older.Finalize(importsession.StateCompleted, base.Add(time.Minute), ""))
	require.NoError(t, repo.Save(ctx, older))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, importsession.StateCompleted, got.State)
	require.Equal(t, 8, got.TotalImported)
	require.Len(t, got.Unresolved, 1)
	require.NotNil(t, got.FinishedAt)
	require.Equal(t, time.Minute, got.Duration())

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "run-2", list[0].ID)

	list, err = repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, importsession.ErrNotFound)
	require.ErrorIs(t, repo.Save(ctx, importsession.New("missing", "x", base)), importsession.ErrNotFound)
}
