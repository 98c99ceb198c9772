package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	decryptKey  keyOptions
	decryptJSON bool
)

func init() {
	decryptCmd.Flags().AddFlagSet(newKeyFlagSet(&decryptKey))
	decryptCmd.Flags().BoolVar(&decryptJSON, "json", false, "output the record as JSON")
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <payload|-> <signature>",
	Short: "Decrypts an item's product record without recording a scan",
	Long: `Checks the payload signature and prints the product record it carries.
The item's ledger entry is read but never consumed.

Examples:
  kaitiaki products decrypt 0001020304050607.4ae27d82ca 3kTm9QbZ --key "$KEY"
  kaitiaki products decrypt - 3kTm9QbZ --json < payload.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runDecrypt,
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting decrypt command")

	payload, stdinBusy, err := readPayloadArg(args[0])
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to read payload", err)
	}

	key, err := readSecretKey(decryptKey, stdinBusy)
	if err != nil {
		fmt.Println(formatDecryptError(err))
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}

	ctx := context.Background()
	project, err := openProject(ctx)
	if err != nil {
		fmt.Println(formatDecryptError(err))
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}
	defer closeProject(project)

	spinner, cleanup := startSpinner("Decrypting item...", verbose)
	defer cleanup()

	result, err := workflows.Decrypt(ctx, workflows.DecryptOptions{
		Encrypted:    payload,
		Signature:    args[1],
		SecretKey:    key,
		ConstantTime: project.Config.Signature.ConstantTime,
		Ledger:       project.Ledger,
		LedgerUUID:   project.LedgerUUID(),
	})
	if err != nil {
		Logger.Debugf("Decrypt failed: %v", err)
		spinner.FinalMSG = formatDecryptError(err)
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}

	if decryptJSON {
		data, err := json.MarshalIndent(result.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		spinner.FinalMSG = string(data)
		return nil
	}

	status := ui.Warning.Sprint("not in this ledger")
	if result.Block != nil {
		status = "block " + fmt.Sprint(result.Block.Height) + ", "
		if result.Block.IsVerified && result.Block.VerifiedAt != nil {
			status += "verified " + result.Block.VerifiedAt.Local().Format("2006-01-02 15:04:05")
		} else {
			status += "not yet verified"
		}
	}

	record := result.Record
	spinner.FinalMSG = ui.Success.Sprint("✓") + " Decrypted item " + ui.Muted.Sprint(status) +
		formatRecord(&record)
	return nil
}

// formatDecryptError formats a decrypt error for display to the user.
func formatDecryptError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrSignatureMismatch):
		return ui.Error.Sprint("✗") + " The signature does not match this payload\n" +
			ui.Info.Sprint("→") + " Check the secret key, or treat the item as tampered"

	case errors.Is(err, kerrors.ErrDecryptionFailed):
		return ui.Error.Sprint("✗") + " The payload is authentic but does not hold a product record\n" +
			ui.Muted.Sprint(err.Error())

	case errors.Is(err, kerrors.ErrValidation):
		return ui.Error.Sprint("✗") + " " + err.Error()

	default:
		if msg := formatProjectError(err); msg != "" {
			return msg
		}
		return ui.Error.Sprint("✗") + " Failed to decrypt item: " + err.Error()
	}
}
