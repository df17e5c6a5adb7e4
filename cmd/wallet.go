package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bdlandchain/landchain-cli/internal/adapters/agent/keystore"
	"github.com/bdlandchain/landchain-cli/internal/config"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type walletOutput struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Symbol    string `json:"symbol"`
	Network   string `json:"network"`
	ChainID   uint64 `json:"chain_id"`
	Connected bool   `json:"connected"`
}

func newWalletCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Connect the signing wallet and show the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withRuntime(cmd, func(rt *runtime, printer *toastPrinter) error {
				var session domain.WalletSession
				err := runTracked(cmd, printer, "Connecting wallet...", func(ctx context.Context) error {
					var err error
					session, err = rt.coordinator.Connect(ctx)
					return err
				})
				if err != nil {
					return err
				}

				return writeWallet(cmd, app, session, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the session as JSON")
	cmd.AddCommand(newWalletNewCmd(app), newWalletForgetCmd(app))

	return cmd
}

func writeWallet(cmd *cobra.Command, app *app, session domain.WalletSession, asJSON bool) error {
	out := walletOutput{
		Address:   session.Address.Hex(),
		Balance:   session.BalanceDisplay,
		Symbol:    app.cfg.Network.Currency.Symbol,
		Network:   app.cfg.Network.Name,
		ChainID:   app.cfg.Network.ChainID,
		Connected: session.Connected,
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "address:\t%s\nbalance:\t%s %s\nnetwork:\t%s (%d)\n",
		out.Address, out.Balance, out.Symbol, out.Network, out.ChainID)
	return err
}

func newWalletNewCmd(app *app) *cobra.Command {
	var savePassphrase bool

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a key in the local keystore",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.cfg.Agent.Kind != config.AgentKindKeystore {
				return fmt.Errorf("wallet new requires agent.kind = %q", config.AgentKindKeystore)
			}

			prompter := newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			passphrase, err := prompter.secret("New passphrase: ")
			if err != nil {
				return err
			}
			repeated, err := prompter.secret("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if passphrase != repeated {
				return errors.New("passphrases do not match")
			}

			address, err := keystore.CreateKey(app.cfg.Agent.Keystore.Dir, passphrase)
			if err != nil {
				return err
			}

			if savePassphrase {
				if err := app.secretStore.Put(cmd.Context(), domain.PassphraseSecretKey(address), passphrase); err != nil {
					return fmt.Errorf("store passphrase: %w", err)
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), address.Hex())
			return err
		},
	}

	cmd.Flags().BoolVar(&savePassphrase, "save-passphrase", false, "Store the passphrase in pass (or the file fallback) for unattended signing")

	return cmd
}

func newWalletForgetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <address>",
		Short: "Remove the stored passphrase of a keystore account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("%q is not an account address", args[0])
			}
			address := common.HexToAddress(args[0])

			if err := app.secretStore.Delete(cmd.Context(), domain.PassphraseSecretKey(address)); err != nil {
				return fmt.Errorf("forget passphrase: %w", err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "forgot stored passphrase for %s\n", address.Hex())
			return err
		},
	}
}
