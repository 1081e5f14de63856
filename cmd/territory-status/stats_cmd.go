package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/services"
)

func newStatsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the registry and stored status periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				stats, err := services.CollectStatistics(ctx, a.store.Registry)
				if err != nil {
					return withCode(exitDB, err)
				}
				return writeJSONLine(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func newBackfillCmd(g *globalOptions) *cobra.Command {
	var profilePath string
	var flags services.ImportProfile

	cmd := &cobra.Command{
		Use:   "backfill-provenance",
		Short: "Fill missing source document fields on stored periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := flags
			if profilePath != "" {
				p, err := services.LoadProfile(profilePath)
				if err != nil {
					return withCode(exitUsage, err)
				}
				profile = mergeProfile(p, flags)
			}
			if err := profile.ValidationError(); err != nil {
				return withCode(exitValidation, err)
			}
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				report, err := services.BackfillProvenance(ctx, a.store.Registry, profile, a.logger)
				if err != nil {
					return withCode(exitDBWrite, err)
				}
				return writeJSONLine(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&profilePath, "profile", "", "YAML import profile")
	cmd.Flags().StringVar(&flags.DocumentName, "document-name", "", "Source document name")
	cmd.Flags().StringVar(&flags.DocumentDate, "document-date", "", "Document date, DD.MM.YYYY")
	cmd.Flags().StringVar(&flags.DocumentDateISO, "document-date-iso", "", "Document date, YYYY-MM-DD")
	return cmd
}
