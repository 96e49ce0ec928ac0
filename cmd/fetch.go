package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch tweets, profiles and threads through the pool",
	}

	cmd.AddCommand(
		newFetchTweetCmd(app),
		newFetchProfileCmd(app),
		newFetchTimelineCmd(app),
		newFetchLatestCmd(app),
		newFetchThreadCmd(app),
	)

	return cmd
}

func newFetchTweetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tweet <id>",
		Short: "Fetch a single tweet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tweet, err := app.service.GetTweet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, tweet)
		},
	}
}

func newFetchProfileCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <handle>",
		Short: "Fetch a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := app.service.GetProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, profile)
		},
	}
}

func newFetchTimelineCmd(app *app) *cobra.Command {
	var (
		max     int
		sinceID string
	)

	cmd := &cobra.Command{
		Use:   "timeline <handle>",
		Short: "Fetch a user's tweets, reconciled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tweets, err := app.service.GetTweetsByUser(cmd.Context(), args[0], max, sinceID)
			if err != nil {
				return err
			}
			return printJSON(cmd, tweets)
		},
	}

	cmd.Flags().IntVar(&max, "max", 20, "Maximum tweets to fetch")
	cmd.Flags().StringVar(&sinceID, "since-id", "", "Stop at this tweet id (exclusive)")

	return cmd
}

func newFetchLatestCmd(app *app) *cobra.Command {
	var includeRetweets bool

	cmd := &cobra.Command{
		Use:   "latest <handle>",
		Short: "Fetch a user's newest tweet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tweet, err := app.service.GetLatestTweet(cmd.Context(), args[0], includeRetweets)
			if err != nil {
				return err
			}
			return printJSON(cmd, tweet)
		},
	}

	cmd.Flags().BoolVar(&includeRetweets, "include-retweets", false, "Consider retweets")

	return cmd
}

func newFetchThreadCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thread <id>",
		Short: "Fetch the full conversation a tweet belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, err := app.service.GetThread(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, thread)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
