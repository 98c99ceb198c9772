// Package workflows provides high-level orchestration for Kaitiaki commands.
//
// Workflows coordinate the cipher, signature, ledger, audit and metrics
// packages to implement complete user-facing features. Each workflow handles
// a single command's business logic, independent of CLI concerns like flag
// parsing, spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Opens the project with OpenProject
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Validating input
//   - Performing the core operation
//   - Recording audit trail entries and metrics
//
// # Available Workflows
//
//   - Init: Creates .kaitiaki with a config file and an empty ledger
//   - Generate: Encrypts, signs and seals a product record into the ledger
//   - Verify: Checks an item and consumes its ledger entry
//   - Decrypt: Checks an item and decrypts it without consuming it
//   - CheckChain: Validates the hash chain
//   - ListBlocks: Lists ledger blocks
//   - Log: Reads and filters the audit log
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.Generate(ctx, opts)
//	if errors.Is(err, kerrors.ErrMiningExhausted) {
//	    // Suggest a lower difficulty
//	}
//
// Verify is the exception: malformed and tampered items are outcomes, not
// errors, and only ledger or context failures are returned as errors.
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Mining honours cancellation and the configured mining timeout.
package workflows
