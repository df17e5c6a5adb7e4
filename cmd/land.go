package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	statusadapter "github.com/bdlandchain/landchain-cli/internal/adapters/render/status"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type landRecordOutput struct {
	UID              string    `json:"uid"`
	Owner            string    `json:"owner"`
	SurveyNumber     string    `json:"survey_number"`
	Division         string    `json:"division"`
	District         string    `json:"district"`
	AreaValue        float64   `json:"area_value"`
	AreaUnit         string    `json:"area_unit"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	DocumentHash     string    `json:"document_hash"`
	RegistrationDate time.Time `json:"registration_date"`
	Verified         bool      `json:"verified"`
}

type txOutput struct {
	Hash    string `json:"hash"`
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	LandUID string `json:"land_uid"`
	Reason  string `json:"reason,omitempty"`
}

func newLandCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "land",
		Short: "Browse and submit land records",
	}

	cmd.AddCommand(
		newLandListCmd(app),
		newLandShowCmd(app),
		newLandRegisterCmd(app),
		newLandVerifyCmd(app),
	)

	return cmd
}

func newLandListCmd(app *app) *cobra.Command {
	var (
		pendingOnly bool
		filter      string
		page        int
		pageSize    int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every land record on the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withRuntime(cmd, func(rt *runtime, printer *toastPrinter) error {
				err := runTracked(cmd, printer, "Loading land records...", rt.coordinator.Refresh)
				if err != nil {
					return err
				}

				records := rt.coordinator.Filter(filter)
				if pendingOnly {
					records = slices.DeleteFunc(records, func(r domain.LandRecord) bool { return r.Verified })
				}

				totalPages := 1
				if page > 0 {
					records, totalPages = domain.PageRecords(records, page, pageSize)
				}

				if asJSON {
					return writeJSON(cmd, toRecordOutputs(records))
				}

				rendered, err := app.renderer(statusadapter.Snapshot{
					Network:  app.cfg.Network,
					Wallet:   rt.coordinator.Wallet(),
					Records:  records,
					Language: app.language(cmd.Context()),
				}, statusadapter.RenderOptions{Now: app.now()})
				if err != nil {
					return fmt.Errorf("render records: %w", err)
				}

				if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
					return err
				}
				if page > 0 {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d\n", page, totalPages)
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only list records awaiting verification")
	cmd.Flags().StringVar(&filter, "filter", "", "Only list records whose uid, owner, division or district contains this text")
	cmd.Flags().IntVar(&page, "page", 0, "Page to show, starting at 1; 0 lists every record")
	cmd.Flags().IntVar(&pageSize, "page-size", 5, "Records per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output records as JSON")

	return cmd
}

func newLandShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <uid|survey-number|owner>",
		Short: "Show the land record matching a uid, survey number or owner address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withRuntime(cmd, func(rt *runtime, printer *toastPrinter) error {
				if err := runTracked(cmd, printer, "Loading land records...", rt.coordinator.Refresh); err != nil {
					return err
				}

				record, ok := rt.coordinator.Search(args[0])
				if !ok {
					return fmt.Errorf("no land record matches %q", args[0])
				}

				if asJSON {
					return writeJSON(cmd, toRecordOutput(record))
				}
				return writeRecord(cmd, record)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the record as JSON")

	return cmd
}

func newLandRegisterCmd(app *app) *cobra.Command {
	var (
		input    domain.RegistrationInput
		unit     string
		deedPath string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Submit a land registration and wait for confirmation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input.Area.Unit = domain.AreaUnit(strings.ToLower(strings.TrimSpace(unit)))

			switch {
			case deedPath != "" && input.DocumentHash != "":
				return errors.New("use either --doc-hash or --deed, not both")
			case deedPath != "":
				data, err := os.ReadFile(deedPath)
				if err != nil {
					return fmt.Errorf("read deed: %w", err)
				}
				input.DocumentHash = crypto.Keccak256Hash(data).Hex()
			case input.DocumentHash == "":
				return errors.New("one of --doc-hash or --deed is required")
			}

			return app.withRuntime(cmd, func(rt *runtime, printer *toastPrinter) error {
				if err := connect(cmd, rt, printer); err != nil {
					return err
				}

				var tx domain.TxRecord
				err := runTracked(cmd, printer, "Waiting for registration to confirm...", func(ctx context.Context) error {
					var err error
					tx, err = rt.coordinator.RegisterLand(ctx, input)
					return err
				})
				if err != nil {
					return err
				}

				return writeTx(cmd, tx, asJSON)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.Division, "division", "", "Administrative division")
	flags.StringVar(&input.District, "district", "", "District within the division")
	flags.StringVar(&input.SurveyNumber, "survey", "", "Survey number as printed on the deed")
	flags.Float64Var(&input.Area.Value, "area", 0, "Area as a whole number of units")
	flags.StringVar(&unit, "unit", string(domain.AreaUnitKatha), "Area unit: katha, bigha or acre")
	flags.Float64Var(&input.GPS.Lat, "lat", 0, "Latitude")
	flags.Float64Var(&input.GPS.Lng, "lng", 0, "Longitude")
	flags.StringVar(&input.DocumentHash, "doc-hash", "", "Hash of the deed document")
	flags.StringVar(&deedPath, "deed", "", "Deed file; its keccak256 hash is submitted")
	flags.BoolVar(&asJSON, "json", false, "Output the transaction as JSON")
	_ = cmd.MarkFlagRequired("division")
	_ = cmd.MarkFlagRequired("district")
	_ = cmd.MarkFlagRequired("survey")
	_ = cmd.MarkFlagRequired("area")

	return cmd
}

func newLandVerifyCmd(app *app) *cobra.Command {
	var (
		uid    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Mark a land record as verified (registry authorities only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withRuntime(cmd, func(rt *runtime, printer *toastPrinter) error {
				if err := connect(cmd, rt, printer); err != nil {
					return err
				}

				var tx domain.TxRecord
				err := runTracked(cmd, printer, "Waiting for verification to confirm...", func(ctx context.Context) error {
					var err error
					tx, err = rt.coordinator.VerifyLand(ctx, uid)
					return err
				})
				if err != nil {
					return err
				}

				return writeTx(cmd, tx, asJSON)
			})
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "Land uid to verify")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the transaction as JSON")
	_ = cmd.MarkFlagRequired("uid")

	return cmd
}

func connect(cmd *cobra.Command, rt *runtime, printer *toastPrinter) error {
	return runTracked(cmd, printer, "Connecting wallet...", func(ctx context.Context) error {
		_, err := rt.coordinator.Connect(ctx)
		return err
	})
}

func (a *app) language(ctx context.Context) domain.Language {
	lang, err := a.preferences.Language(ctx)
	if err != nil {
		a.logger.Warn("language preference unavailable", "error", err.Error())
		return domain.DefaultLanguage
	}
	return lang
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toRecordOutput(record domain.LandRecord) landRecordOutput {
	return landRecordOutput{
		UID:              record.UID,
		Owner:            record.Owner.Hex(),
		SurveyNumber:     record.SurveyNumber,
		Division:         record.Division,
		District:         record.District,
		AreaValue:        record.Area.Value,
		AreaUnit:         string(record.Area.Unit),
		Latitude:         record.GPS.Lat,
		Longitude:        record.GPS.Lng,
		DocumentHash:     record.DocumentHash,
		RegistrationDate: record.RegistrationDate,
		Verified:         record.Verified,
	}
}

func toRecordOutputs(records []domain.LandRecord) []landRecordOutput {
	out := make([]landRecordOutput, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordOutput(record))
	}
	return out
}

func writeRecord(cmd *cobra.Command, record domain.LandRecord) error {
	state := "unverified"
	if record.Verified {
		state = "verified"
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(),
		"uid:\t%s\nowner:\t%s\nsurvey:\t%s\nlocation:\t%s, %s\narea:\t%g %s\ngps:\t%g,%g\ndocument:\t%s\nregistered:\t%s\nstatus:\t%s\n",
		record.UID,
		record.Owner.Hex(),
		record.SurveyNumber,
		record.District, record.Division,
		record.Area.Value, record.Area.Unit,
		record.GPS.Lat, record.GPS.Lng,
		record.DocumentHash,
		record.RegistrationDate.UTC().Format(time.RFC3339),
		state,
	)
	return err
}

func writeTx(cmd *cobra.Command, tx domain.TxRecord, asJSON bool) error {
	out := txOutput{
		Hash:    tx.Hash.Hex(),
		Kind:    string(tx.Kind),
		Status:  string(tx.Status),
		LandUID: tx.LandUID,
		Reason:  tx.Reason,
	}

	if asJSON {
		return writeJSON(cmd, out)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s land %s\n", out.Kind, out.Hash, out.Status, out.LandUID)
	return err
}
