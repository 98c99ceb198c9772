// Package errors provides typed error values for the Kaitiaki application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Validation errors: Malformed input rejected before any crypto work (ErrValidation)
//   - Crypto errors: Signature and decryption failures (ErrSignatureMismatch, ErrDecryptionFailed)
//   - Mining errors: Proof-of-work search failures (ErrMiningExhausted)
//   - Ledger errors: Storage and chain state (ErrDuplicateEntry, ErrTipMoved, ErrStorage)
//   - Project errors: Project state issues (ErrProjectNotInitialized)
//
// # Usage
//
// Return errors from internal packages:
//
//	if len(parts) != 2 {
//	    return Payload{}, fmt.Errorf("%w: expected two segments", errors.ErrValidation)
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Generate(ctx, opts)
//	if errors.Is(err, kerrors.ErrMiningExhausted) {
//	    // Suggest lowering the difficulty
//	}
//
// Storage backends wrap driver failures in ErrStorage so that callers can
// tell an actionable conflict (ErrDuplicateEntry) from a generic outage:
//
//	return fmt.Errorf("%w: %v", errors.ErrStorage, err)
package errors
