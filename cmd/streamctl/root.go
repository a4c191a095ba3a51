package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "streamctl",
		Short:         "Stream and fetch directory users and projects",
		Long:          "streamctl connects to a dirstream server. It receives users and projects record by record over the stream hub, or in one response through the fetch tools.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log connection events to stderr")

	rootCmd.AddCommand(
		newStreamCmd(opts),
		newFetchCmd(),
	)

	return rootCmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}
