package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hydroscan/hydroscan/internal/config"
)

func newCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the encrypted portal credentials file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "seal",
		Short: "Encrypt HYDROSCAN_USER and HYDROSCAN_PASSWORD into the credentials file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			username := os.Getenv("HYDROSCAN_USER")
			password := os.Getenv("HYDROSCAN_PASSWORD")
			passphrase := os.Getenv("HYDROSCAN_CREDENTIALS_KEY")
			if username == "" || password == "" || passphrase == "" {
				return exitWith(exitBadInput,
					errors.New("set HYDROSCAN_USER, HYDROSCAN_PASSWORD and HYDROSCAN_CREDENTIALS_KEY before sealing"))
			}

			path := config.CredentialsPath()
			if err := config.SaveCredentials(path, username, password, passphrase); err != nil {
				return exitWith(exitFailure, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials sealed to %s\n", path)
			return nil
		},
	})

	return cmd
}
