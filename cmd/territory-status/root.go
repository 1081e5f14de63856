package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	envFiles []string
	storage  string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "territory-status",
		Short:         "Import and query territory status periods from official orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", nil, "Env files to load (default: .env, .env.local)")
	cmd.PersistentFlags().StringVar(&g.storage, "storage", "", "Override STORAGE_DRIVER: memory|postgres|mongo")

	cmd.AddCommand(newImportCmd(g))
	cmd.AddCommand(newQueryCmd(g))
	cmd.AddCommand(newLookupCmd(g))
	cmd.AddCommand(newWipeCmd(g))
	cmd.AddCommand(newSessionsCmd(g))
	cmd.AddCommand(newRegistryCmd(g))
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newBackfillCmd(g))
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
