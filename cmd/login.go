package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate at least one pool account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.Login(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Pool is authenticated.")
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "out",
		Short: "Deauthenticate every cached session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.service.Logout(cmd.Context())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "All sessions closed.")
			return nil
		},
	})

	return cmd
}
