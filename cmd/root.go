package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "twitterpool",
		Short:         "Pooled twitter fetcher: rotate accounts, repair batches, follow threads",
		Long:          "twitterpool serves tweet/profile lookups through a pool of interchangeable accounts, failing over between them and reconciling truncated or threaded content before returning it.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newLoginCmd(app),
		newFetchCmd(app),
		newSearchCmd(app),
		newStatusCmd(app),
	)

	return rootCmd
}
