package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/domain/importsession"
)

func newSessionsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect import sessions",
	}
	cmd.AddCommand(newSessionsListCmd(g))
	cmd.AddCommand(newSessionsShowCmd(g))
	return cmd
}

type sessionLine struct {
	ID           string              `json:"id"`
	ImportID     string              `json:"import_id"`
	DocumentName string              `json:"document_name"`
	State        importsession.State `json:"state"`
	StartedAt    string              `json:"started_at"`
	DurationMS   int64               `json:"duration_ms"`
	Imported     int                 `json:"imported"`
	Duplicates   int                 `json:"duplicates"`
	Errors       int                 `json:"errors"`
}

func newSessionsListCmd(g *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first (one JSON line each)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				items, err := a.store.Sessions.List(ctx, limit)
				if err != nil {
					return withCode(exitDB, err)
				}
				for _, s := range items {
					line := sessionLine{
						ID:           s.ID,
						ImportID:     s.ImportID,
						DocumentName: s.DocumentName,
						State:        s.State,
						StartedAt:    s.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
						DurationMS:   s.Duration().Milliseconds(),
						Imported:     s.TotalImported,
						Duplicates:   s.TotalDuplicates,
						Errors:       s.TotalErrors,
					}
					if err := writeJSONLine(cmd.OutOrStdout(), line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list (0 for all)")
	return cmd
}

func newSessionsShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print one session with its unresolved rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				s, err := a.store.Sessions.Get(ctx, args[0])
				if is(err, importsession.ErrNotFound) {
					return withCode(exitValidation, fmt.Errorf("session %s not found", args[0]))
				}
				if err != nil {
					return withCode(exitDB, err)
				}
				return writeJSONLine(cmd.OutOrStdout(), s)
			})
		},
	}
}
