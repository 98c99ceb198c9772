package cmd

import (
	"context"
	"errors"
	"strconv"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	initName       string
	initBackend    string
	initDSN        string
	initDifficulty int
)

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "ledger name (defaults to the directory name)")
	initCmd.Flags().StringVar(&initBackend, "backend", "", "ledger backend: sqlite, postgres or memory (default sqlite)")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "PostgreSQL connection string for the postgres backend")
	initCmd.Flags().IntVar(&initDifficulty, "difficulty", 4, "leading zero hex characters required of block hashes")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes a product ledger in the current directory",
	Long: `Creates the .kaitiaki directory with a config file and an empty ledger.

Examples:
  kaitiaki products init
  kaitiaki products init --name honey --difficulty 5
  kaitiaki products init --backend postgres --dsn postgres://localhost/kaitiaki`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting init command")

	spinner, cleanup := startSpinner("Initializing Kaitiaki...", verbose)
	defer cleanup()

	opts := workflows.InitOptions{
		Name:    initName,
		Backend: initBackend,
		DSN:     initDSN,
	}
	if cmd.Flags().Changed("difficulty") {
		opts.Difficulty = &initDifficulty
	}

	result, err := workflows.Init(context.Background(), opts)
	if err != nil {
		Logger.Debugf("Init failed: %v", err)
		spinner.FinalMSG = formatInitError(err)
		if isUnexpectedError(err) {
			return err
		}
		return nil
	}

	Logger.Infof("Created ledger %s at %s", result.LedgerUUID, result.ProjectPath)

	finalMessage := ui.Success.Sprint("✓") + " Kaitiaki initialized ledger " + ui.Highlight.Sprint(result.LedgerName) + "\n" +
		ui.Info.Sprint("→") + " Config: " + ui.Path.Sprint(result.ConfigPath) + "\n"
	if result.LedgerPath != "" {
		finalMessage += ui.Info.Sprint("→") + " Ledger: " + ui.Path.Sprint(result.LedgerPath) + "\n"
	} else {
		finalMessage += ui.Info.Sprint("→") + " Backend: " + ui.Highlight.Sprint(result.Backend) + "\n"
	}
	finalMessage += ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kaitiaki products issue --name <name> --sku <sku>") + " to issue an item"

	spinner.FinalMSG = finalMessage
	return nil
}

// formatInitError formats an init error for display to the user.
func formatInitError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrProjectAlreadyInitialized):
		return ui.Error.Sprint("✗") + " Kaitiaki has already been initialized\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kaitiaki products issue") + " instead"

	case errors.Is(err, kerrors.ErrUnknownBackend):
		return ui.Error.Sprint("✗") + " Unknown ledger backend " + ui.Highlight.Sprint(initBackend) + "\n" +
			ui.Info.Sprint("→") + " Use sqlite, postgres or memory"

	case errors.Is(err, kerrors.ErrInvalidProjectConfig):
		return ui.Error.Sprint("✗") + " " + err.Error()

	default:
		if msg := formatProjectError(err); msg != "" {
			return msg
		}
		return ui.Error.Sprint("✗") + " Failed to initialize Kaitiaki: " + err.Error()
	}
}

// difficultyLabel renders a difficulty for output.
func difficultyLabel(d int) string {
	return strconv.Itoa(d) + " leading zeros"
}
