package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
	"github.com/iota-uz/territory-status/modules/territory/services"
)

type queryOptions struct {
	date       string
	status     string
	buckets    []string
	partitions []string
}

type queryResult struct {
	Date        string                     `json:"date"`
	Status      territory.Status           `json:"status,omitempty"`
	Count       int                        `json:"count"`
	Territories []services.ActiveTerritory `json:"territories"`
}

func newQueryCmd(g *globalOptions) *cobra.Command {
	var opts queryOptions
	var qopts services.QueryOptions

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List territories with a status period active on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := services.ParseQueryDate(opts.date)
			if err != nil {
				return withCode(exitValidation, err)
			}
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				items, err := services.NewQueryEngine(a.store.Registry).ActiveOn(ctx, date, qopts)
				if err != nil {
					return withCode(exitDB, err)
				}
				if items == nil {
					items = []services.ActiveTerritory{}
				}
				return writeJSONLine(cmd.OutOrStdout(), queryResult{
					Date:        date.Format("2006-01-02"),
					Status:      qopts.Status,
					Count:       len(items),
					Territories: items,
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "Query date, YYYY-MM-DD or DD.MM.YYYY (required)")
	cmd.Flags().StringVar(&opts.status, "status", "", "Restrict to one status (slug or full label)")
	cmd.Flags().StringSliceVar(&opts.buckets, "bucket", nil, "Restrict to history buckets")
	cmd.Flags().StringSliceVar(&opts.partitions, "partition", nil, "Restrict to partitions")
	_ = cmd.MarkFlagRequired("date")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.status != "" {
			st, err := territory.ParseStatus(opts.status)
			if err != nil {
				return withCode(exitUsage, err)
			}
			qopts.Status = st
		}
		for _, b := range opts.buckets {
			hb := territory.HistoryBucket(b)
			if !slices.Contains(territory.Buckets(), hb) {
				return withCode(exitUsage, fmt.Errorf("unknown bucket %q", b))
			}
			qopts.Buckets = append(qopts.Buckets, hb)
		}
		for _, p := range opts.partitions {
			tp := territory.Partition(p)
			if !slices.Contains(territory.Partitions(), tp) {
				return withCode(exitUsage, fmt.Errorf("unknown partition %q", p))
			}
			qopts.Partitions = append(qopts.Partitions, tp)
		}
		return nil
	}

	return cmd
}
