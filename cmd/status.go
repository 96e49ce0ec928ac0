package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	renderstatus "github.com/LiamVDB1/twitter-api/internal/adapters/render/status"
	"github.com/LiamVDB1/twitter-api/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pool health and rate limits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := app.service.PoolStatus()
			view := app.statusRenderer(statuses, renderstatus.RenderOptions{Now: app.now()})
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), view)

			for _, category := range []domain.EndpointCategory{
				domain.CategoryTweets, domain.CategoryProfiles, domain.CategorySearch,
			} {
				if wait := app.service.WaitTime(category); wait > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s calls blocked for %s\n",
						category, time.Duration(wait*float64(time.Second)).Round(time.Second))
				}
			}
			return nil
		},
	}
}
