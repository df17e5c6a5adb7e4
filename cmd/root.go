package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "landchain",
		Short:         "Land registry client: wallet session and ledger transactions",
		Long:          "landchain connects a signing wallet to the land registry contract, lists and searches land records, submits registrations and verifications, and follows each transaction to confirmation.",
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

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.closeLog.Close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newWalletCmd(app),
		newNetworkCmd(app),
		newLandCmd(app),
		newLangCmd(app),
		newWatchCmd(app),
	)

	return rootCmd
}
