package main

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hydroscan/hydroscan/internal/config"
	"github.com/hydroscan/hydroscan/internal/report"
	"github.com/hydroscan/hydroscan/internal/store"
	"github.com/hydroscan/hydroscan/internal/tui"
)

func newDashboardCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive terminal dashboard over fetched data and stored history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := resolveCredentials(&cfg); err != nil {
				return err
			}

			st, err := store.Open(cfg.HistoryDBPath)
			if err != nil {
				return exitWith(exitFailure, err)
			}
			defer st.Close()

			refresh := func(ctx context.Context) (report.Report, error) {
				return fetchReport(ctx, cfg, logger, fetchOptions{contract: cfg.Contract})
			}

			rep, err := refresh(cmd.Context())
			if err != nil {
				return err
			}

			model := tui.NewModel(rep, st, refresh)
			program := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return exitWith(exitFailure, err)
			}
			return nil
		},
	}
}
