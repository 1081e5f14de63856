package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

func TestCollectStatistics(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t, nil)
	_, err := f.service.ImportDocument(ctx, orderDocument(), nil, orderRequest(true))
	require.NoError(t, err)

	stats, err := CollectStatistics(ctx, f.registry)
	require.NoError(t, err)
	require.Equal(t, 7, stats.Territories)
	require.Equal(t, 4, stats.WithHistory)
	require.Len(t, stats.Partitions, len(territory.Partitions()))
	require.Equal(t, 2, stats.StatusCounts[string(territory.StatusTemporarilyOccupied)])
	require.Equal(t, 1, stats.StatusCounts[string(territory.StatusActiveCombat)])
	require.Equal(t, 1, stats.StatusCounts[string(territory.StatusPossibleCombat)])
	require.Equal(t, []string{"22.12.2022"}, stats.DocumentDates)
}

func TestBackfillProvenance(t *testing.T) {
	ctx := context.Background()
	reg := seedQueryRegistry(t)

	_, err := newTestMerger(reg).Append(ctx, MergeInput{
		TerritoryCode: codeMyrne,
		Status:        territory.StatusActiveCombat,
		Start:         day(2022, 3, 1),
		Provenance:    Provenance{ImportID: "imp-1", SourceDocument: "Наказ №75", DocumentDate: "25.04.2022"},
	})
	require.NoError(t, err)

	profile := ImportProfile{DocumentName: "Наказ №309", DocumentDate: "22.12.2022"}
	rep, err := BackfillProvenance(ctx, reg, profile, nil)
	require.NoError(t, err)
	require.Equal(t, 4, rep.Territories)
	require.Equal(t, 5, rep.Periods)
	require.Zero(t, rep.Errors)

	city, err := reg.GetByCode(ctx, codeBakhmut)
	require.NoError(t, err)
	for _, p := range append(city.OccupationHistory, city.CombatHistory...) {
		require.Equal(t, "Наказ №309", p.SourceDocument)
		require.Equal(t, "22.12.2022", p.DocumentDate)
		require.Equal(t, "2022-12-22", p.DocumentDateISO)
	}

	myrne, err := reg.GetByCode(ctx, codeMyrne)
	require.NoError(t, err)
	require.Equal(t, "Наказ №75", myrne.CombatHistory[0].SourceDocument)
	require.Equal(t, "25.04.2022", myrne.CombatHistory[0].DocumentDate)
	require.Equal(t, "2022-04-25", myrne.CombatHistory[0].DocumentDateISO)

	rep, err = BackfillProvenance(ctx, reg, profile, nil)
	require.NoError(t, err)
	require.Zero(t, rep.Territories)

	_, err = BackfillProvenance(ctx, reg, ImportProfile{}, nil)
	require.Error(t, err)
}
