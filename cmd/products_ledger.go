package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/utils"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	listSalt     string
	listVerified bool
	listLimit    int
	listReverse  bool
	listJSON     bool
)

func init() {
	ledgerListCmd.Flags().StringVar(&listSalt, "salt", "", "show only the block for this salt")
	ledgerListCmd.Flags().BoolVar(&listVerified, "verified", false, "show only verified items")
	ledgerListCmd.Flags().IntVarP(&listLimit, "number", "n", 0, "limit number of blocks shown")
	ledgerListCmd.Flags().BoolVar(&listReverse, "reverse", false, "show the newest blocks first")
	ledgerListCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON array")

	ledgerCmd.AddCommand(ledgerCheckCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the product ledger",
	Long: `Provides commands to validate the hash chain and list its blocks.

Examples:
  kaitiaki products ledger check
  kaitiaki products ledger list -n 20 --reverse`,
}

var ledgerCheckCmd = &cobra.Command{
	Use:           "check",
	Short:         "Validates every block of the ledger",
	Long:          `Recomputes each block hash, checks links, heights, difficulty and verification fields. Exits non-zero at the first broken block.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLedgerCheck,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists ledger blocks",
	RunE:  runLedgerList,
}

func runLedgerCheck(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting ledger check command")

	ctx := context.Background()
	project, err := openProject(ctx)
	if err != nil {
		if msg := formatProjectError(err); msg != "" {
			fmt.Println(msg)
		}
		return err
	}
	defer closeProject(project)

	spinner, cleanup := startSpinner("Checking ledger...", verbose)
	defer cleanup()

	report, err := workflows.CheckChain(ctx, workflows.CheckChainOptions{
		Ledger:     project.Ledger,
		LedgerUUID: project.LedgerUUID(),
	})
	if err != nil {
		spinner.FinalMSG = formatChainError(err)
		return err
	}

	if report.Blocks == 0 {
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Ledger is empty"
		return nil
	}
	spinner.FinalMSG = ui.Success.Sprint("✓") + " Ledger intact: " + fmt.Sprint(report.Blocks) + " blocks, " +
		fmt.Sprint(report.Verified) + " verified\n" +
		"  tip:        " + ui.Hash.Sprint(report.TipHash) + "\n" +
		"  difficulty: " + difficultyLabel(project.Ledger.Difficulty())
	return nil
}

// formatChainError formats a chain check error for display to the user.
func formatChainError(err error) string {
	var chainErr *ledger.ChainError
	switch {
	case errors.As(err, &chainErr):
		return ui.Error.Sprint("✗") + " Ledger broken at block " + fmt.Sprint(chainErr.Index) + ": " + chainErr.Reason + "\n" +
			ui.Warning.Sprint("⚠") + " Blocks from this height on cannot be trusted"

	case errors.Is(err, kerrors.ErrChainBroken):
		return ui.Error.Sprint("✗") + " " + err.Error()

	default:
		if msg := formatProjectError(err); msg != "" {
			return msg
		}
		return ui.Error.Sprint("✗") + " Failed to check ledger: " + err.Error()
	}
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting ledger list command")

	ctx := context.Background()
	project, err := openProject(ctx)
	if err != nil {
		fmt.Println(formatListError(err))
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}
	defer closeProject(project)

	blocks, err := workflows.ListBlocks(ctx, workflows.ListBlocksOptions{
		Ledger:       project.Ledger,
		Salt:         listSalt,
		VerifiedOnly: listVerified,
		Limit:        listLimit,
		Reverse:      listReverse,
	})
	if err != nil {
		fmt.Println(formatListError(err))
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}

	if listJSON {
		if blocks == nil {
			blocks = []ledger.Block{}
		}
		data, err := json.MarshalIndent(blocks, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal blocks to JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(blocks) == 0 {
		fmt.Println("No blocks found.")
		return nil
	}

	for _, b := range blocks {
		verified := "-"
		if b.VerifiedAt != nil {
			verified = b.VerifiedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%6d  %s  %s  %s  %-19s  %s\n",
			b.Height, b.Salt, b.Signature, ui.Hash.Sprint(utils.ShortHash(b.Hash, 16)), verified, b.Timestamp)
	}
	return nil
}

// formatListError formats a ledger list error for display to the user.
func formatListError(err error) string {
	if errors.Is(err, kerrors.ErrNotFound) {
		return ui.Error.Sprint("✗") + " No block has salt " + ui.Highlight.Sprint(listSalt)
	}
	if msg := formatProjectError(err); msg != "" {
		return msg
	}
	return ui.Error.Sprint("✗") + " Failed to list blocks: " + err.Error()
}
