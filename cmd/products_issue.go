package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
	"github.com/PolarWolf314/kaitiaki/internal/metrics"
	"github.com/PolarWolf314/kaitiaki/internal/product"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	issueRecord product.Record
	issueKey    keyOptions
	issueJSON   bool
)

func init() {
	issueCmd.Flags().AddFlagSet(newProductFlagSet(&issueRecord))
	issueCmd.Flags().AddFlagSet(newKeyFlagSet(&issueKey))
	issueCmd.Flags().BoolVar(&issueJSON, "json", false, "output the issued item as JSON")
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issues a product item and seals it into the ledger",
	Long: `Encrypts the product record under a fresh salt, signs the payload and mines
a ledger block for it. Print the payload and signature onto the item.

Examples:
  kaitiaki products issue --name "Manuka Honey 500g" --sku MH-500 --key "$KEY"
  kaitiaki products issue --name Tea --sku T-1 --quantity 20 --key-stdin < key.txt
  kaitiaki products issue --name Tea --sku T-1 --json`,
	RunE: runIssue,
}

// issueOutput is the JSON form of an issued item.
type issueOutput struct {
	Payload   string       `json:"payload"`
	Signature string       `json:"signature"`
	Block     ledger.Block `json:"block"`
	ElapsedMS int64        `json:"elapsed_ms"`
}

func runIssue(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting issue command")

	if err := issueRecord.Validate(); err != nil {
		fmt.Println(formatIssueError(err))
		return nil
	}

	key, err := readSecretKey(issueKey, false)
	if err != nil {
		fmt.Println(formatIssueError(err))
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}

	ctx := context.Background()
	project, err := openProject(ctx)
	if err != nil {
		fmt.Println(formatIssueError(err))
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}
	defer closeProject(project)

	spinner, cleanup := startSpinner(fmt.Sprintf("Mining block (%s)...", difficultyLabel(project.Ledger.Difficulty())), verbose)
	defer cleanup()

	result, err := workflows.Generate(ctx, workflows.GenerateOptions{
		Record:     issueRecord,
		SecretKey:  key,
		Ledger:     project.Ledger,
		LedgerUUID: project.LedgerUUID(),
		Metrics:    metrics.Default,
	})
	if err != nil {
		Logger.Debugf("Issue failed: %v", err)
		spinner.FinalMSG = formatIssueError(err)
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}

	Logger.Infof("Sealed block %d with nonce %d in %s", result.Block.Height, result.Block.Nonce, result.Elapsed)

	if issueJSON {
		data, err := json.MarshalIndent(issueOutput{
			Payload:   result.Encrypted,
			Signature: result.Signature,
			Block:     *result.Block,
			ElapsedMS: result.Elapsed.Milliseconds(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal issued item to JSON: %w", err)
		}
		spinner.FinalMSG = string(data)
		return nil
	}

	spinner.FinalMSG = ui.Success.Sprint("✓") + " Issued " + ui.Highlight.Sprint(issueRecord.SKU) +
		" in block " + fmt.Sprint(result.Block.Height) + "\n" +
		"  payload:   " + result.Encrypted + "\n" +
		"  signature: " + result.Signature + "\n" +
		"  hash:      " + ui.Hash.Sprint(result.Block.Hash) + "\n" +
		"  nonce:     " + fmt.Sprint(result.Block.Nonce) + " " + ui.Muted.Sprint(result.Elapsed.Round(time.Millisecond).String()) + "\n" +
		ui.Info.Sprint("→") + " Print the payload and signature onto the item; scan with " +
		ui.Code.Sprint("kaitiaki products verify <payload> <signature>")
	return nil
}

// formatIssueError formats an issue error for display to the user.
func formatIssueError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrMiningExhausted):
		return ui.Error.Sprint("✗") + " No nonce met the difficulty within the attempt limit\n" +
			ui.Info.Sprint("→") + " Raise " + ui.Code.Sprint("max_attempts") + " or lower " + ui.Code.Sprint("difficulty") + " in " + ui.Path.Sprint(".kaitiaki/config.toml")

	case errors.Is(err, kerrors.ErrDuplicateEntry):
		return ui.Error.Sprint("✗") + " The ledger already holds this item: " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Run the command again to draw a new salt"

	case errors.Is(err, kerrors.ErrTipMoved):
		return ui.Error.Sprint("✗") + " Other writers kept extending the ledger; the item was not issued\n" +
			ui.Info.Sprint("→") + " Try again"

	case errors.Is(err, kerrors.ErrValidation):
		return ui.Error.Sprint("✗") + " " + err.Error()

	default:
		if msg := formatProjectError(err); msg != "" {
			return msg
		}
		return ui.Error.Sprint("✗") + " Failed to issue item: " + err.Error()
	}
}
