package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsValidTerritoryCode(t *testing.T) {
	require.True(t, IsValidTerritoryCode(codeDonetsk))
	require.True(t, IsValidTerritoryCode("  "+codeDonetsk+" "))
	require.False(t, IsValidTerritoryCode("UA1400000000008732"))
	require.False(t, IsValidTerritoryCode("UA140000000000873250"))
	require.False(t, IsValidTerritoryCode("ua14000000000087325"))
	require.False(t, IsValidTerritoryCode("Код"))
	require.False(t, IsValidTerritoryCode(""))
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"24.02.2022", day(2022, time.February, 24)},
		{"24/02/2022", day(2022, time.February, 24)},
		{"24.02.22", day(2022, time.February, 24)},
		{"1.3.2022", day(2022, time.March, 1)},
		{"24.02.2022 р.", day(2022, time.February, 24)},
		{" 24.02.2022\n(уточнено 01.03.2022)", day(2022, time.February, 24)},
		{"2022-03-01", day(2022, time.March, 1)},
		{"01-03-2022", day(2022, time.March, 1)},
		{"29.02.2024", day(2024, time.February, 29)},
		{"2022.03.01", day(2022, time.March, 1)},
		{"01.03.69", day(1969, time.March, 1)},
		{"01.03.68", day(2068, time.March, 1)},
		{"March 1, 2022", day(2022, time.March, 1)},
		{"2022-03-01T10:00", day(2022, time.March, 1)},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		require.True(t, ok, tc.in)
		require.True(t, tc.want.Equal(got), "%q: got %s", tc.in, got)
	}

	for _, bad := range []string{"", "   ", "не визначено", "31.02.2022", "29.02.2023", "13.13.2022", "24.02"} {
		_, ok := ParseDate(bad)
		require.False(t, ok, bad)
	}
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "Бахмутський район", NormalizeName("  Бахмутський  \t район "))
	require.Equal(t, "Бахмут", NormalizeName("Бахмут\u00a0"))
	// Decomposed "й" (и + combining breve) composes to one rune.
	require.Equal(t, "Мирн\u0438\u0439", NormalizeName("Мирн\u0438\u0438\u0306"))
	require.Empty(t, NormalizeName(" \n "))
}

func TestNormalizePeriod(t *testing.T) {
	p, ok := NormalizePeriod("24.02.2022", "")
	require.True(t, ok)
	require.True(t, p.Start.Equal(day(2022, time.February, 24)))
	require.Nil(t, p.End)
	require.Empty(t, p.Warnings)

	p, ok = NormalizePeriod("24.02.2022", "11.11.2022")
	require.True(t, ok)
	require.NotNil(t, p.End)
	require.True(t, p.End.Equal(day(2022, time.November, 11)))

	p, ok = NormalizePeriod("24.02.2022", "не визначено")
	require.True(t, ok)
	require.Nil(t, p.End)
	require.Len(t, p.Warnings, 1)

	p, ok = NormalizePeriod("24.02.2022", "01.01.2022")
	require.True(t, ok)
	require.Nil(t, p.End)
	require.Len(t, p.Warnings, 1)

	p, ok = NormalizePeriod("24.02.2022", "24.02.2022")
	require.True(t, ok)
	require.NotNil(t, p.End, "single-day period")

	_, ok = NormalizePeriod("", "01.01.2022")
	require.False(t, ok)
	_, ok = NormalizePeriod("з початку війни", "")
	require.False(t, ok)
}
