package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hydroscan/hydroscan/internal/appupdate"
	"github.com/hydroscan/hydroscan/internal/version"
)

func newUpdateCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check whether a newer release is available",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := appupdate.Check(cmd.Context(), appupdate.CheckOptions{
				CurrentVersion: version.Version,
			})
			if err != nil {
				logger.Debug("release check failed", "error", err)
				return exitWith(exitFailure, err)
			}

			out := cmd.OutOrStdout()
			if result.CurrentVersion == "" {
				fmt.Fprintln(out, "Development build, release checks skipped.")
				return nil
			}
			if !result.UpdateAvailable {
				fmt.Fprintf(out, "Up to date (%s).\n", result.CurrentVersion)
				return nil
			}
			fmt.Fprintf(out, "Update available: %s -> %s\n", result.CurrentVersion, result.LatestVersion)
			fmt.Fprintf(out, "Upgrade with: %s\n", result.UpgradeHint)
			return nil
		},
	}
}
