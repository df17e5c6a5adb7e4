package cmd

import (
	"fmt"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newLangCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lang",
		Short: "Show or change the display language (en, bn)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang, err := app.preferences.Language(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), lang)
			return err
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <en|bn>",
			Short: "Set the display language",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				lang, err := domain.ParseLanguage(args[0])
				if err != nil {
					return err
				}
				if err := app.preferences.SetLanguage(cmd.Context(), lang); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), lang)
				return err
			},
		},
		&cobra.Command{
			Use:   "toggle",
			Short: "Switch between English and Bangla",
			RunE: func(cmd *cobra.Command, _ []string) error {
				lang, err := app.preferences.ToggleLanguage(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), lang)
				return err
			},
		},
	)

	return cmd
}
