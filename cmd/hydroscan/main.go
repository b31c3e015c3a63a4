package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hydroscan/hydroscan/internal/config"
	"github.com/hydroscan/hydroscan/internal/portal"
	"github.com/hydroscan/hydroscan/internal/version"
)

// Exit codes, scripted against by callers.
const (
	exitFailure  = 1 // login or network failure
	exitNoData   = 2 // provider returned nothing usable
	exitBadInput = 3 // bad flags or missing credentials
)

// exitError carries a process exit code through cobra's error path.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(exitBadInput)
	}

	logger := newLogger(cfg)

	root := cobra.Command{
		Use:           "hydroscan",
		Short:         "Hydroscan fetches electricity consumption data from the Hydro-Québec customer portal.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newFetchCommand(cfg, logger))
	root.AddCommand(newContractsCommand(cfg, logger))
	root.AddCommand(newDaemonCommand(cfg, logger))
	root.AddCommand(newDashboardCommand(cfg, logger))
	root.AddCommand(newUpdateCommand(logger))
	root.AddCommand(newCredentialsCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitFailure)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// resolveCredentials backfills the config from the encrypted credentials file
// when neither the environment nor the settings file carries a password.
func resolveCredentials(cfg *config.Config) error {
	if cfg.Username != "" && cfg.Password != "" {
		return nil
	}
	passphrase := os.Getenv("HYDROSCAN_CREDENTIALS_KEY")
	if passphrase == "" {
		return exitWith(exitBadInput, errors.New("no credentials: set HYDROSCAN_USER and HYDROSCAN_PASSWORD, or seal a credentials file"))
	}
	username, password, err := config.LoadCredentials(config.CredentialsPath(), passphrase)
	if err != nil {
		return exitWith(exitBadInput, err)
	}
	if cfg.Username == "" {
		cfg.Username = username
	}
	cfg.Password = password
	return nil
}

func newPortalClient(ctx context.Context, cfg config.Config, logger *slog.Logger) *portal.Client {
	client := portal.NewClient(cfg.Username, cfg.Password,
		time.Duration(cfg.TimeoutSeconds)*time.Second, logger)
	if cfg.BrowserCookies {
		client.SeedBrowserCookies(ctx)
	}
	return client
}
