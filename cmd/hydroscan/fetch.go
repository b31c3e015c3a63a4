package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hydroscan/hydroscan/internal/config"
	"github.com/hydroscan/hydroscan/internal/portal"
	"github.com/hydroscan/hydroscan/internal/report"
)

func newFetchCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var (
		asJSON     bool
		withHourly bool
		startDate  string
		endDate    string
		contract   string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Log in and print consumption data for every contract",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := resolveCredentials(&cfg); err != nil {
				return err
			}
			for _, date := range []string{startDate, endDate} {
				if date == "" {
					continue
				}
				if _, err := time.Parse("2006-01-02", date); err != nil {
					return exitWith(exitBadInput, fmt.Errorf("date %q does not match YYYY-MM-DD", date))
				}
			}
			if contract == "" {
				contract = cfg.Contract
			}

			rep, err := fetchReport(cmd.Context(), cfg, logger, fetchOptions{
				contract:   contract,
				startDate:  startDate,
				endDate:    endDate,
				withHourly: withHourly,
			})
			if err != nil {
				return err
			}
			if len(rep.Contracts) == 0 {
				return exitWith(exitNoData, errors.New("no contracts matched"))
			}

			if asJSON {
				out, err := report.RenderJSON(rep)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderText(rep, withHourly))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")
	cmd.Flags().BoolVar(&withHourly, "hourly", false, "include hourly consumption detail")
	cmd.Flags().StringVar(&startDate, "start", "", "daily range start (YYYY-MM-DD, default yesterday)")
	cmd.Flags().StringVar(&endDate, "end", "", "daily range end (YYYY-MM-DD, provider default when omitted)")
	cmd.Flags().StringVar(&contract, "contract", "", "fetch a single contract id")
	return cmd
}

type fetchOptions struct {
	contract   string
	startDate  string
	endDate    string
	withHourly bool
}

// fetchReport runs the full pipeline: login, contract walk, every fetcher,
// snapshot. Per-fetcher failures degrade to log lines so one flaky resource
// does not sink the whole run.
func fetchReport(ctx context.Context, cfg config.Config, logger *slog.Logger, opts fetchOptions) (report.Report, error) {
	client := newPortalClient(ctx, cfg, logger)
	defer client.CloseSession()

	if err := client.Login(ctx); err != nil {
		return report.Report{}, exitWith(exitFailure, err)
	}

	start := portal.DateInput{}
	if opts.startDate != "" {
		start = portal.DateString(opts.startDate)
	}
	end := portal.DateInput{}
	if opts.endDate != "" {
		end = portal.DateString(opts.endDate)
	}

	var selected []*portal.Customer
	for _, cust := range client.Customers() {
		if opts.contract != "" && cust.ContractID() != opts.contract {
			continue
		}
		if err := fetchCustomer(ctx, client, cust, start, end, opts.withHourly, logger); err != nil {
			return report.Report{}, err
		}
		selected = append(selected, cust)
	}

	return report.New(cfg.Username, selected), nil
}

func fetchCustomer(ctx context.Context, client *portal.Client, cust *portal.Customer, start, end portal.DateInput, withHourly bool, logger *slog.Logger) error {
	log := logger.With("contract", cust.ContractID())

	if err := client.SelectCustomer(ctx, cust.AccountID(), cust.CustomerID(), false); err != nil {
		return exitWith(exitFailure, err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"current period", func() error { return cust.FetchCurrentPeriod(ctx) }},
		{"annual", func() error { return cust.FetchAnnual(ctx) }},
		{"monthly", func() error { return cust.FetchMonthly(ctx) }},
		{"daily", func() error { return cust.FetchDaily(ctx, start, end) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			log.Error("fetch failed", "step", step.name, "error", err)
		}
	}

	if withHourly {
		if err := cust.FetchHourly(ctx, start); err != nil {
			log.Error("fetch failed", "step", "hourly", "error", err)
		}
	}
	return nil
}
