package main

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/kaitiaki/cmd"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kaitiaki",
	Short: "Kaitiaki - A CLI for issuing and verifying authentic products.",
	Long: `Kaitiaki guards products against counterfeiting.

Each item carries an encrypted payload and a short signature. Issued items are
sealed into a proof-of-work hash chain, so every item can be verified exactly
once and repeated scans of a copied code stand out.

Usage:
  kaitiaki <command> [flags]

Available Commands:
  products   Issue, verify and audit product items

Run 'kaitiaki help <command>' for more details on a specific command.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println()
		figure.NewColorFigure("Kaitiaki", "alligator2", "green", true).Print()
		fmt.Println()
		fmt.Println("Welcome to Kaitiaki! Run 'kaitiaki --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.ProductsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
