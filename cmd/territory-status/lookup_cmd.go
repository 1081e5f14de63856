package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
	"github.com/iota-uz/territory-status/modules/territory/services"
)

type lookupResult struct {
	Found       bool                   `json:"found"`
	Method      services.ResolveMethod `json:"method,omitempty"`
	Partition   territory.Partition    `json:"partition,omitempty"`
	Territory   *territory.Territory   `json:"territory,omitempty"`
	Suggestions []string               `json:"suggestions,omitempty"`
}

func newLookupCmd(g *globalOptions) *cobra.Command {
	var code, name string
	var codeOnly bool

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve a territory by code or name",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if code == "" && name == "" {
				return withCode(exitUsage, fmt.Errorf("one of --code or --name is required"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				r := services.NewResolver(a.store.Registry, services.ResolverOptions{CodeOnly: codeOnly})
				res, err := r.Resolve(ctx, code, name)
				switch {
				case err == nil:
					t := res.Territory
					return writeJSONLine(cmd.OutOrStdout(), lookupResult{
						Found:     true,
						Method:    res.Method,
						Partition: res.Partition,
						Territory: &t,
					})
				case !is(err, services.ErrTerritoryNotFound):
					return withCode(exitDB, err)
				}

				out := lookupResult{}
				if !codeOnly {
					if out.Suggestions, err = r.Suggest(ctx, name, 5); err != nil {
						return withCode(exitDB, err)
					}
				}
				if err := writeJSONLine(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				return withCode(exitValidation, fmt.Errorf("territory not found (code=%q name=%q)", code, name))
			})
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Kodifikator code")
	cmd.Flags().StringVar(&name, "name", "", "Territory name")
	cmd.Flags().BoolVar(&codeOnly, "code-only", false, "Disable name fallbacks")
	return cmd
}
