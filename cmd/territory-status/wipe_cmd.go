package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/services"
)

func newWipeCmd(g *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Remove every stored status period (irreversible)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return withCode(exitSafetyNet, services.ErrWipeNotConfirmed)
			}
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				a.pushOnClose = true
				report, err := services.WipeStatuses(ctx, a.store.Registry, yes, a.logger)
				if err != nil {
					return withCode(exitDBWrite, err)
				}
				return writeJSONLine(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the wipe")
	return cmd
}
