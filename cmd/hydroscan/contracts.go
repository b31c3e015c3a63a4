package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hydroscan/hydroscan/internal/config"
)

func newContractsCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "contracts",
		Short: "Log in and list the contracts reachable from this account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := resolveCredentials(&cfg); err != nil {
				return err
			}

			client := newPortalClient(cmd.Context(), cfg, logger)
			defer client.CloseSession()

			if err := client.Login(cmd.Context()); err != nil {
				return exitWith(exitFailure, err)
			}

			customers := client.Customers()
			if len(customers) == 0 {
				return exitWith(exitNoData, errors.New("account has no contracts"))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %-12s %-14s %s\n", "ACCOUNT", "CUSTOMER", "CONTRACT", "BALANCE")
			for _, cust := range customers {
				fmt.Fprintf(out, "%-12s %-12s %-14s %.2f $\n",
					cust.AccountID(), cust.CustomerID(), cust.ContractID(), cust.Balance())
			}
			return nil
		},
	}
}
