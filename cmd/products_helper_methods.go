package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/metrics"
	"github.com/PolarWolf314/kaitiaki/internal/product"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/PolarWolf314/kaitiaki/internal/utils"
	"github.com/PolarWolf314/kaitiaki/internal/workflows"
	"github.com/briandowns/spinner"
	"github.com/spf13/pflag"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if !verbose && !debug {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// keyOptions holds the secret key flags shared by issue, verify and decrypt.
type keyOptions struct {
	key      string
	keyStdin bool
}

// newKeyFlagSet registers --key and --key-stdin bound to opts.
func newKeyFlagSet(opts *keyOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("key", pflag.ContinueOnError)
	fs.StringVar(&opts.key, "key", "", "secret key (prompted for when omitted)")
	fs.BoolVar(&opts.keyStdin, "key-stdin", false, "read the secret key from stdin")
	return fs
}

// readSecretKey resolves the secret key from --key, --key-stdin or a hidden prompt.
// When stdinBusy is set stdin already carries the payload, so the prompt uses the TTY.
func readSecretKey(opts keyOptions, stdinBusy bool) (string, error) {
	if opts.key != "" {
		Logger.Debugf("Using secret key from --key")
		return opts.key, nil
	}

	if opts.keyStdin {
		if stdinBusy {
			return "", fmt.Errorf("%w: --key-stdin cannot be combined with a payload read from stdin", kerrors.ErrValidation)
		}
		Logger.Debugf("Reading secret key from stdin")
		data, err := utils.ReadStdin()
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	if stdinBusy {
		data, err := utils.ReadSecretFromTTY("Secret key: ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	if !utils.IsTerminal() {
		return "", fmt.Errorf("%w: no secret key given; use --key, --key-stdin or run interactively", kerrors.ErrValidation)
	}
	data, err := utils.ReadSecret("Secret key: ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readPayloadArg returns the payload argument, reading it from stdin when it is "-".
// The second result reports whether stdin was consumed.
func readPayloadArg(arg string) (string, bool, error) {
	if arg != "-" {
		return strings.TrimSpace(arg), false, nil
	}
	data, err := utils.ReadStdin()
	if err != nil {
		return "", true, err
	}
	return string(data), true, nil
}

// newProductFlagSet registers the product record fields bound to r.
func newProductFlagSet(r *product.Record) *pflag.FlagSet {
	fs := pflag.NewFlagSet("product", pflag.ContinueOnError)
	fs.StringVar(&r.Name, "name", "", "product name (required)")
	fs.StringVar(&r.SKU, "sku", "", "stock keeping unit (required)")
	fs.StringVar(&r.Batch, "batch", "", "production batch")
	fs.StringVar(&r.ManufactureDate, "manufacture-date", "", "manufacture date (YYYY-MM-DD)")
	fs.IntVar(&r.Quantity, "quantity", 0, "units in the item")
	fs.StringVar(&r.Destination, "destination", "", "shipping destination")
	return fs
}

// openProject opens the project in the working directory.
func openProject(ctx context.Context) (*workflows.Project, error) {
	project, err := workflows.OpenProject(ctx)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("Opened ledger %s (%s backend, difficulty %d)",
		project.LedgerUUID(), project.Config.Ledger.Backend, project.Ledger.Difficulty())
	return project, nil
}

// closeProject writes the metrics textfile, if configured, and closes the ledger.
func closeProject(project *workflows.Project) {
	if project == nil {
		return
	}
	if path := project.Config.Metrics.Textfile; path != "" {
		if err := metrics.Default.WriteTextfile(path); err != nil {
			Logger.Warnf("Failed to write metrics textfile %s: %v", path, err)
		} else {
			Logger.Debugf("Wrote metrics textfile %s", path)
		}
	}
	if err := project.Close(); err != nil {
		Logger.Warnf("Failed to close ledger: %v", err)
	}
}

// formatProjectError formats errors shared by every command that opens a project.
// Returns "" if err is not one of them.
func formatProjectError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrProjectNotInitialized):
		return ui.Error.Sprint("✗") + " Kaitiaki has not been initialized\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kaitiaki products init") + " first"

	case errors.Is(err, kerrors.ErrInvalidProjectConfig), errors.Is(err, kerrors.ErrUnknownBackend):
		return ui.Error.Sprint("✗") + " Invalid project configuration: " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Check " + ui.Path.Sprint(".kaitiaki/config.toml")

	case errors.Is(err, kerrors.ErrStorageClosed), errors.Is(err, kerrors.ErrStorage):
		return ui.Error.Sprint("✗") + " Ledger storage failed: " + err.Error()

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ui.Error.Sprint("✗") + " Operation stopped: " + err.Error()

	default:
		return ""
	}
}

// isUnexpectedError returns true if the error is unexpected and should cause a non-zero exit.
func isUnexpectedError(err error) bool {
	switch {
	case errors.Is(err, kerrors.ErrProjectNotInitialized),
		errors.Is(err, kerrors.ErrProjectAlreadyInitialized),
		errors.Is(err, kerrors.ErrInvalidProjectConfig),
		errors.Is(err, kerrors.ErrUnknownBackend),
		errors.Is(err, kerrors.ErrValidation),
		errors.Is(err, kerrors.ErrSignatureMismatch),
		errors.Is(err, kerrors.ErrDecryptionFailed),
		errors.Is(err, kerrors.ErrDuplicateEntry),
		errors.Is(err, kerrors.ErrMiningExhausted),
		errors.Is(err, kerrors.ErrNotFound),
		errors.Is(err, kerrors.ErrNoFilesFound),
		errors.Is(err, kerrors.ErrInvalidDateFormat):
		return false
	default:
		return true
	}
}
