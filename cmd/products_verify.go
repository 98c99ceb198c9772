package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PolarWolf314/kaitiaki/internal/metrics"
	"github.com/PolarWolf314/kaitiaki/internal/product"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	verifyKey  keyOptions
	verifyJSON bool
)

func init() {
	verifyCmd.Flags().AddFlagSet(newKeyFlagSet(&verifyKey))
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "output the verification result as JSON")
}

var verifyCmd = &cobra.Command{
	Use:   "verify <payload|-> <signature>",
	Short: "Verifies a scanned item and records the scan",
	Long: `Checks the payload signature and consumes the item's ledger entry.

The first successful scan of an issued item reports a first verification.
Every later scan reports that the item was already verified, with the time
of the first scan. Pass - as the payload to read it from stdin.

Exits non-zero unless the item is authentic.

Examples:
  kaitiaki products verify 0001020304050607.4ae27d82ca 3kTm9QbZ --key "$KEY"
  scan-reader | kaitiaki products verify - 3kTm9QbZ --key "$KEY"`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runVerify,
}

// verifyOutput is the JSON form of a verification result.
type verifyOutput struct {
	Outcome    string          `json:"outcome"`
	Salt       string          `json:"salt,omitempty"`
	Error      string          `json:"error,omitempty"`
	Height     *int64          `json:"height,omitempty"`
	VerifiedAt *time.Time      `json:"verified_at,omitempty"`
	Record     *product.Record `json:"record,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting verify command")

	payload, stdinBusy, err := readPayloadArg(args[0])
	if err != nil {
		fmt.Println(ui.Error.Sprint("✗") + " " + err.Error())
		return err
	}

	key, err := readSecretKey(verifyKey, stdinBusy)
	if err != nil {
		fmt.Println(ui.Error.Sprint("✗") + " " + err.Error())
		return err
	}

	ctx := context.Background()
	project, err := openProject(ctx)
	if err != nil {
		if msg := formatProjectError(err); msg != "" {
			fmt.Println(msg)
		}
		return err
	}
	defer closeProject(project)

	spinner, cleanup := startSpinner("Verifying item...", verbose)
	defer cleanup()

	result, err := workflows.Verify(ctx, workflows.VerifyOptions{
		Encrypted:    payload,
		Signature:    args[1],
		SecretKey:    key,
		Ledger:       project.Ledger,
		LedgerUUID:   project.LedgerUUID(),
		ConstantTime: project.Config.Signature.ConstantTime,
		Metrics:      metrics.Default,
	})
	if err != nil {
		Logger.Debugf("Verify failed: %v", err)
		if msg := formatProjectError(err); msg != "" {
			spinner.FinalMSG = msg
		} else {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " Failed to verify item: " + err.Error()
		}
		return err
	}

	Logger.Infof("Outcome %s for salt %s", result.Outcome, result.Salt)
	if result.DecryptErr != nil {
		Logger.Warnf("Signature matched but the record could not be decoded: %v", result.DecryptErr)
	}

	if verifyJSON {
		out := verifyOutput{
			Outcome: result.Outcome.String(),
			Salt:    result.Salt,
			Record:  result.Record,
		}
		if result.ValidationErr != nil {
			out.Error = result.ValidationErr.Error()
		}
		if result.Block != nil {
			out.Height = &result.Block.Height
		}
		if !result.VerifiedAt.IsZero() {
			out.VerifiedAt = &result.VerifiedAt
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal verification result to JSON: %w", err)
		}
		spinner.FinalMSG = string(data)
	} else {
		spinner.FinalMSG = formatVerifyResult(result)
	}

	if !result.Outcome.Authentic() {
		return fmt.Errorf("item is not authentic: %s", result.Outcome)
	}
	return nil
}

// formatVerifyResult formats a verification outcome for display to the user.
func formatVerifyResult(result *workflows.VerifyResult) string {
	switch result.Outcome {
	case workflows.OutcomeValidationError:
		return ui.Error.Sprint("✗") + " Invalid payload: " + result.ValidationErr.Error()

	case workflows.OutcomeTampered:
		return ui.Error.Sprint("✗") + " Tampered: the signature does not match this payload\n" +
			ui.Warning.Sprint("⚠") + " Treat this item as counterfeit"

	case workflows.OutcomeAuthenticUnregistered:
		return ui.Warning.Sprint("⚠") + " Authentic signature, but the item is not in this ledger" +
			formatRecord(result.Record)

	case workflows.OutcomeAuthenticFirstVerification:
		return ui.Success.Sprint("✓") + " Authentic: first verification of this item" +
			formatBlockLine(result) + formatRecord(result.Record)

	case workflows.OutcomeAuthenticAlreadyVerified:
		return ui.Warning.Sprint("⚠") + " Authentic, but already verified on " +
			ui.Highlight.Sprint(result.VerifiedAt.Local().Format("2006-01-02 15:04:05")) +
			formatBlockLine(result) + formatRecord(result.Record) + "\n" +
			ui.Info.Sprint("→") + " A repeated scan may mean the code was copied"

	default:
		return ui.Error.Sprint("✗") + " Unknown outcome " + result.Outcome.String()
	}
}

func formatBlockLine(result *workflows.VerifyResult) string {
	if result.Block == nil {
		return ""
	}
	return "\n  block " + fmt.Sprint(result.Block.Height) + " " + ui.Hash.Sprint(result.Block.Hash)
}

// formatRecord renders a decoded product record, if any.
func formatRecord(r *product.Record) string {
	if r == nil {
		return ""
	}
	s := "\n  name:        " + ui.Highlight.Sprint(r.Name) +
		"\n  sku:         " + r.SKU
	if r.Batch != "" {
		s += "\n  batch:       " + r.Batch
	}
	if r.ManufactureDate != "" {
		s += "\n  made:        " + r.ManufactureDate
	}
	s += "\n  quantity:    " + fmt.Sprint(r.Quantity)
	if r.Destination != "" {
		s += "\n  destination: " + r.Destination
	}
	return s
}
