package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

var territoryCodePattern = regexp.MustCompile(`^UA\d{17}$`)

// IsValidTerritoryCode reports whether code is "UA" followed by exactly 17 digits.
func IsValidTerritoryCode(code string) bool {
	return territoryCodePattern.MatchString(strings.TrimSpace(code))
}

var (
	dateNoise = regexp.MustCompile(`[^\d./]`)

	// Day-first layouts. "2" and "1" accept one or two digits; "06" maps
	// 69-99 to 19xx and 00-68 to 20xx.
	dayFirstLayouts = []string{
		"2.1.2006",
		"2/1/2006",
		"2-1-2006",
		"2.1.06",
		"2/1/06",
		"2-1-06",
		"2006.1.2",
		"2006-1-2",
	}
)

const minPlausibleYear = 1900

// ParseDate parses day-first date text. Only the first line of a multi-line
// cell is considered. ok is false when no date can be recovered; callers treat
// that as "unspecified".
func ParseDate(raw string) (time.Time, bool) {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return time.Time{}, false
	}
	cleaned := strings.Trim(dateNoise.ReplaceAllString(line, ""), "./")
	for _, candidate := range []string{cleaned, strings.TrimRight(line, "./ ")} {
		if candidate == "" {
			continue
		}
		for _, layout := range dayFirstLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return parseAnyDayFirst(line)
}

// parseAnyDayFirst is the permissive fallback for textual months, ISO
// timestamps and other shapes the fixed layouts miss.
func parseAnyDayFirst(s string) (time.Time, bool) {
	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(false), dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil || t.Year() < minPlausibleYear {
		return time.Time{}, false
	}
	return territory.DateOnly(t), true
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeName prepares a territory name for lookup: NFC form, trimmed,
// internal whitespace collapsed.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
}

// NormalizedPeriod is the outcome of normalizing one data row's dates.
type NormalizedPeriod struct {
	Start    time.Time
	End      *time.Time
	Warnings []string
}

// NormalizePeriod parses the start and end cells of a row. A missing start
// is reported via ok=false. A bad or inverted end date is dropped with a
// warning so the row still produces an open-ended period.
func NormalizePeriod(startRaw, endRaw string) (NormalizedPeriod, bool) {
	var out NormalizedPeriod
	start, ok := ParseDate(startRaw)
	if !ok {
		return out, false
	}
	out.Start = territory.DateOnly(start)

	if strings.TrimSpace(endRaw) == "" {
		return out, true
	}
	end, ok := ParseDate(endRaw)
	switch {
	case !ok:
		out.Warnings = append(out.Warnings, "unparseable end date dropped: "+strings.TrimSpace(endRaw))
	case territory.DateOnly(end).Before(out.Start):
		out.Warnings = append(out.Warnings, "end date before start date dropped: "+strings.TrimSpace(endRaw))
	default:
		e := territory.DateOnly(end)
		out.End = &e
	}
	return out, true
}
