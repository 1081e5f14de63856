package services

import (
	"context"
	"sort"

	"github.com/go-faster/errors"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

type PartitionStats struct {
	Partition   territory.Partition `json:"partition"`
	Territories int                 `json:"territories"`
	WithHistory int                 `json:"with_history"`
}

type Statistics struct {
	Partitions    []PartitionStats `json:"partitions"`
	Territories   int              `json:"territories"`
	WithHistory   int              `json:"with_history"`
	StatusCounts  map[string]int   `json:"status_counts"`
	DocumentDates []string         `json:"document_dates"`
}

// CollectStatistics summarizes the registry and the stored status periods.
func CollectStatistics(ctx context.Context, registry territory.Registry) (Statistics, error) {
	stats := Statistics{StatusCounts: map[string]int{}}
	dates := map[string]struct{}{}

	for _, p := range territory.Partitions() {
		total, err := registry.Count(ctx, p)
		if err != nil {
			return stats, errors.Wrapf(err, "count %s", p)
		}
		items, err := registry.ListWithStatus(ctx, p, territory.StatusFilter{})
		if err != nil {
			return stats, errors.Wrapf(err, "list %s", p)
		}
		stats.Partitions = append(stats.Partitions, PartitionStats{Partition: p, Territories: total, WithHistory: len(items)})
		stats.Territories += total
		stats.WithHistory += len(items)

		for _, t := range items {
			for _, b := range territory.Buckets() {
				for _, period := range t.History(b) {
					stats.StatusCounts[string(period.Status)]++
					if period.DocumentDate != "" {
						dates[period.DocumentDate] = struct{}{}
					}
				}
			}
		}
	}

	for d := range dates {
		stats.DocumentDates = append(stats.DocumentDates, d)
	}
	sort.Strings(stats.DocumentDates)
	return stats, nil
}
