package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/services"
)

func newRegistryCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Maintain the territory registry",
	}
	cmd.AddCommand(newRegistryLoadCmd(g))
	return cmd
}

func newRegistryLoadCmd(g *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Upsert territories from a ';'-separated kodifikator export",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("open %s: %w", file, err))
			}
			defer f.Close()

			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				report, err := services.LoadRegistry(ctx, a.store.Registry, f, a.logger)
				if err != nil {
					return withCode(exitDBWrite, err)
				}
				return writeJSONLine(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Kodifikator CSV (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
