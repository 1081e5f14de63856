package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

type QueryOptions struct {
	// Status restricts both the territories and the reported periods.
	Status     territory.Status
	Buckets    []territory.HistoryBucket
	Partitions []territory.Partition
}

// ActiveTerritory is one territory with the periods active on the query date.
type ActiveTerritory struct {
	Code          string                   `json:"code"`
	Name          string                   `json:"name"`
	Category      territory.Category       `json:"category"`
	Partition     territory.Partition      `json:"partition"`
	ParentCode    string                   `json:"parent_code,omitempty"`
	ActivePeriods []territory.StatusPeriod `json:"active_periods"`
}

type QueryEngine struct {
	registry territory.Registry
}

func NewQueryEngine(registry territory.Registry) *QueryEngine {
	return &QueryEngine{registry: registry}
}

// ActiveOn returns every territory holding an active period on date.
// Results are ordered by partition priority, then code.
func (q *QueryEngine) ActiveOn(ctx context.Context, date time.Time, opts QueryOptions) ([]ActiveTerritory, error) {
	partitions := opts.Partitions
	if len(partitions) == 0 {
		partitions = territory.Partitions()
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = territory.Buckets()
	}

	var out []ActiveTerritory
	for _, p := range partitions {
		items, err := q.registry.ListWithStatus(ctx, p, territory.StatusFilter{Status: opts.Status})
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", p)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })

		for _, t := range items {
			var active []territory.StatusPeriod
			for _, b := range buckets {
				for _, period := range t.History(b) {
					if opts.Status != "" && period.Status != opts.Status {
						continue
					}
					if period.ActiveOn(date) {
						active = append(active, period)
					}
				}
			}
			if len(active) == 0 {
				continue
			}
			out = append(out, ActiveTerritory{
				Code:          t.Code,
				Name:          t.Name,
				Category:      t.Category,
				Partition:     p,
				ParentCode:    t.ParentCode,
				ActivePeriods: active,
			})
		}
	}
	return out, nil
}

// ParseQueryDate accepts ISO YYYY-MM-DD or any day-first form the
// normalizer understands.
func ParseQueryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, ok := ParseDate(s); ok {
		return t, nil
	}
	return time.Time{}, errors.Errorf("invalid date %q (expected DD.MM.YYYY or YYYY-MM-DD)", s)
}
