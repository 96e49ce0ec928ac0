package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LiamVDB1/twitter-api/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage pooled accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(app),
		newAccountListCmd(app),
		newAccountRemoveCmd(app),
		newAccountEnableCmd(app),
		newAccountDisableCmd(app),
	)

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var (
		password string
		email    string
		priority int
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add an account to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account := domain.Account{
				Username: args[0],
				Password: password,
				Email:    email,
				Priority: priority,
				Tags:     tags,
			}
			if err := app.service.AddAccount(cmd.Context(), account); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added account @%s (priority %d)\n", account.Username, account.Priority)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&email, "email", "", "Recovery email")
	cmd.Flags().IntVar(&priority, "priority", 1, "Selection priority (lower is preferred)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Free-form classification tags")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pooled accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts := app.pool.Snapshot()
			if len(accounts) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured.")
				return nil
			}
			for _, account := range accounts {
				state := "enabled"
				if account.Disabled {
					state = "disabled"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "@%s\tpriority=%d\t%s\tok=%d failed=%d\n",
					account.Username, account.Priority, state,
					account.Health.SuccessCount, account.Health.FailureCount)
			}
			return nil
		},
	}
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <username>",
		Short: "Remove an account from the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.service.RemoveAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed account @%s\n", args[0])
			return nil
		},
	}
}

func newAccountEnableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <username>",
		Short: "Re-enable a disabled account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.service.EnableAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enabled account @%s\n", args[0])
			return nil
		},
	}
}

func newAccountDisableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <username>",
		Short: "Take an account out of rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.service.DisableAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Disabled account @%s\n", args[0])
			return nil
		},
	}
}
