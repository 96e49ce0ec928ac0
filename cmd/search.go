package cmd

import (
	"github.com/spf13/cobra"

	"github.com/LiamVDB1/twitter-api/internal/ports"
)

func newSearchCmd(app *app) *cobra.Command {
	var (
		max  int
		mode string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tweets through the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tweets, err := app.service.Search(cmd.Context(), args[0], max, ports.SearchMode(mode))
			if err != nil {
				return err
			}
			return printJSON(cmd, tweets)
		},
	}

	cmd.Flags().IntVar(&max, "max", 20, "Maximum results")
	cmd.Flags().StringVar(&mode, "mode", string(ports.SearchTop), "Search mode: top, latest, photos, videos, users")

	return cmd
}
