package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hydroscan/hydroscan/internal/config"
	"github.com/hydroscan/hydroscan/internal/daemon"
	"github.com/hydroscan/hydroscan/internal/store"
)

func newDaemonCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Gather consumption data on an interval and append it to the history store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := resolveCredentials(&cfg); err != nil {
				return err
			}

			st, err := store.Open(cfg.HistoryDBPath)
			if err != nil {
				return exitWith(exitFailure, err)
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d := daemon.New(cfg, config.ConfigPath(), logger, st)
			if err := d.Run(ctx); err != nil && ctx.Err() == nil {
				return exitWith(exitFailure, err)
			}
			return nil
		},
	}
}
