package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
	"github.com/PolarWolf314/kaitiaki/internal/product"
)

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	// Encrypted is the payload string printed on the item.
	Encrypted string

	// Signature is the signature printed on the item.
	Signature string

	// SecretKey is the issuer's secret key.
	SecretKey string

	// ConstantTime compares signatures in constant time.
	ConstantTime bool

	// Ledger, when set, is read (never updated) to report the item's status.
	Ledger *ledger.Ledger

	// LedgerUUID identifies the ledger in the audit log.
	LedgerUUID string
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	Salt   string
	Record product.Record

	// Block is the item's ledger block, nil if unregistered or no ledger was given.
	Block *ledger.Block
}

// Decrypt checks an item's signature and decrypts its product record without
// consuming the ledger entry.
//
// Returns ErrValidation if the payload or signature is malformed.
// Returns ErrSignatureMismatch if the signature does not match.
// Returns ErrDecryptionFailed if the plaintext is not a product record.
// Returns ErrStorage if the ledger lookup fails.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
	check, payload := checkAuthenticity(opts.Encrypted, opts.Signature, opts.SecretKey, opts.ConstantTime)

	entry := audit.NewEntry("decrypt", opts.LedgerUUID)
	entry.Salt = check.Salt
	entry.Signature = opts.Signature
	entry.Outcome = check.Outcome.String()
	defer func() { audit.Log(entry) }()

	switch check.Outcome {
	case OutcomeValidationError:
		return nil, check.ValidationErr
	case OutcomeTampered:
		return nil, kerrors.ErrSignatureMismatch
	}

	decryptRecord(check, payload, opts.SecretKey)
	if check.DecryptErr != nil {
		entry.Outcome = "decryption_failed"
		return nil, check.DecryptErr
	}

	result := &DecryptResult{Salt: check.Salt, Record: *check.Record}
	if opts.Ledger != nil {
		block, err := opts.Ledger.Lookup(ctx, check.Salt)
		switch {
		case errors.Is(err, kerrors.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("looking up item: %w", err)
		default:
			result.Block = block
			entry.Height = &block.Height
		}
	}
	return result, nil
}
