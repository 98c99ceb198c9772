// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output, and driving the products commands.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/PolarWolf314/kaitiaki/internal/configs"
	logger "github.com/PolarWolf314/kaitiaki/internal/logging"
	"github.com/spf13/cobra"
)

const testSecretKey = "test-secret-key"

// setupTestEnvironment changes into a fresh temporary directory and restores
// the working directory and project settings when the test ends.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get original working directory: %v", err)
	}
	originalSettings := configs.ProjectKaitiakiSettings

	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	// Keep mining fast.
	t.Setenv(configs.EnvDifficulty, "1")
	t.Setenv(configs.EnvLedgerDSN, "")

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		configs.ProjectKaitiakiSettings = originalSettings
		ResetGlobalState()
	})

	return tempDir
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// createTestCLI creates a complete CLI instance running `products` with args.
func createTestCLI(args []string, verboseFlag, debugFlag bool) *cobra.Command {
	ResetGlobalState()

	verbose = verboseFlag
	debug = debugFlag
	Logger = logger.Logger{
		Verbose: verbose,
		Debug:   debug,
	}

	rootCmd := &cobra.Command{
		Use:   "kaitiaki",
		Short: "Kaitiaki - A CLI for issuing and verifying authentic products.",
	}
	rootCmd.AddCommand(ProductsCmd)
	rootCmd.SetArgs(append([]string{"products"}, args...))

	if err := ProductsCmd.PersistentFlags().Set("verbose", fmt.Sprintf("%t", verboseFlag)); err != nil {
		log.Fatalf("Failed to set verbose flag for testing: %s", err)
	}
	if err := ProductsCmd.PersistentFlags().Set("debug", fmt.Sprintf("%t", debugFlag)); err != nil {
		log.Fatalf("Failed to set debug flag for testing: %s", err)
	}

	return rootCmd
}

// runCommand runs `products` with args and returns the captured output.
func runCommand(args ...string) (string, error) {
	return captureOutput(func() error {
		return createTestCLI(args, false, false).Execute()
	})
}

// initializeProject initializes a kaitiaki project in the current directory.
func initializeProject(t *testing.T) {
	t.Helper()
	output, err := runCommand("init", "--name", "test-ledger")
	if err != nil {
		t.Fatalf("Failed to initialize project: %v\nOutput: %s", err, output)
	}
}

// issueTestItem issues an item and returns its payload and signature.
func issueTestItem(t *testing.T, sku string) (string, string) {
	t.Helper()
	output, err := runCommand("issue", "--name", "Test Product", "--sku", sku, "--quantity", "3", "--key", testSecretKey, "--json")
	if err != nil {
		t.Fatalf("Failed to issue item: %v\nOutput: %s", err, output)
	}

	start := strings.Index(output, "{")
	if start < 0 {
		t.Fatalf("No JSON found in issue output: %s", output)
	}
	var issued issueOutput
	if err := json.NewDecoder(strings.NewReader(output[start:])).Decode(&issued); err != nil {
		t.Fatalf("Failed to parse issue output: %v\nOutput: %s", err, output)
	}
	return issued.Payload, issued.Signature
}
