package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNetworkCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Inspect and enforce the required network",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Ask the wallet to switch to (or add) the required network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withRuntime(cmd, func(rt *runtime, _ *toastPrinter) error {
				if err := rt.guard.EnsureNetwork(cmd.Context()); err != nil {
					return err
				}

				required := rt.guard.Required()
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "on %s (%d)\n", required.Name, required.ChainID)
				return err
			})
		},
	})

	return cmd
}
