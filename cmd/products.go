package cmd

import (
	logger "github.com/PolarWolf314/kaitiaki/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	ProductsCmd = &cobra.Command{
		Use:   "products",
		Short: "Issue and verify authenticated products",
		Long: `Issues encrypted, signed product payloads sealed into a proof-of-work ledger,
and verifies scanned payloads against that ledger.

Each issued item can be verified for the first time exactly once. Later scans
of the same item report that it was already verified.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing products command with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	ProductsCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	ProductsCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	ProductsCmd.AddCommand(initCmd)
	ProductsCmd.AddCommand(issueCmd)
	ProductsCmd.AddCommand(verifyCmd)
	ProductsCmd.AddCommand(decryptCmd)
	ProductsCmd.AddCommand(logCmd)
	ProductsCmd.AddCommand(ledgerCmd)
}

// Helper functions for testing

// GetProductsCmd returns the ProductsCmd for testing.
func GetProductsCmd() *cobra.Command {
	return ProductsCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetCobraFlagState(ProductsCmd)
}

// resetCobraFlagState restores every flag of cmd and its subcommands to its
// default so one test run does not leak into the next.
func resetCobraFlagState(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		_ = flag.Value.Set(flag.DefValue)
		flag.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCobraFlagState(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
