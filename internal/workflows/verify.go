package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	"github.com/PolarWolf314/kaitiaki/internal/cipher"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
	"github.com/PolarWolf314/kaitiaki/internal/metrics"
	"github.com/PolarWolf314/kaitiaki/internal/product"
	"github.com/PolarWolf314/kaitiaki/internal/signature"
)

// Outcome is the verdict of a verification.
type Outcome int

const (
	// OutcomeValidationError means the payload is malformed or no key was given.
	OutcomeValidationError Outcome = iota
	// OutcomeTampered means the signature does not match the payload and key.
	OutcomeTampered
	// OutcomeAuthenticUnregistered means the signature matches but the ledger has no such item.
	OutcomeAuthenticUnregistered
	// OutcomeAuthenticFirstVerification means this is the first scan of a registered item.
	OutcomeAuthenticFirstVerification
	// OutcomeAuthenticAlreadyVerified means the item was scanned before.
	OutcomeAuthenticAlreadyVerified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValidationError:
		return "validation_error"
	case OutcomeTampered:
		return "tampered"
	case OutcomeAuthenticUnregistered:
		return "authentic_unregistered"
	case OutcomeAuthenticFirstVerification:
		return "authentic_first_verification"
	case OutcomeAuthenticAlreadyVerified:
		return "authentic_already_verified"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Authentic reports whether the signature matched.
func (o Outcome) Authentic() bool {
	return o >= OutcomeAuthenticUnregistered
}

// VerifyOptions configures the verify workflow.
type VerifyOptions struct {
	// Encrypted is the payload string printed on the item.
	Encrypted string

	// Signature is the signature printed on the item.
	Signature string

	// SecretKey is the issuer's secret key.
	SecretKey string

	// Ledger is consulted and updated for authentic items.
	Ledger *ledger.Ledger

	// LedgerUUID identifies the ledger in the audit log.
	LedgerUUID string

	// ConstantTime compares signatures in constant time.
	ConstantTime bool

	// Metrics receives the outcome. May be nil.
	Metrics *metrics.Metrics
}

// VerifyResult contains the outcome of a verify operation.
type VerifyResult struct {
	Outcome Outcome

	// Salt is the payload salt in hex, empty for OutcomeValidationError.
	Salt string

	// ValidationErr explains OutcomeValidationError.
	ValidationErr error

	// Block is the ledger block for registered items.
	Block *ledger.Block

	// VerifiedAt is the first verification time for registered items.
	VerifiedAt time.Time

	// Record is the decrypted product record for authentic items, when decoding succeeded.
	Record *product.Record

	// DecryptErr is set when an authentic payload could not be decoded.
	// It never changes Outcome.
	DecryptErr error
}

// Verify checks an item's payload and signature and records the scan in the ledger.
//
// Malformed input yields OutcomeValidationError and a mismatched signature
// yields OutcomeTampered; neither touches the ledger. Authentic items consume
// their ledger entry: exactly one scan ever reports OutcomeAuthenticFirstVerification.
//
// The returned error is non-nil only for ledger storage or context failures.
func Verify(ctx context.Context, opts VerifyOptions) (*VerifyResult, error) {
	result, payload := checkAuthenticity(opts.Encrypted, opts.Signature, opts.SecretKey, opts.ConstantTime)
	if result.Outcome.Authentic() {
		if opts.Ledger == nil {
			return nil, fmt.Errorf("%w: ledger is required", kerrors.ErrValidation)
		}

		consumption, err := opts.Ledger.Consume(ctx, result.Salt)
		if err != nil {
			return nil, err
		}
		switch consumption.Status {
		case ledger.FirstVerification:
			result.Outcome = OutcomeAuthenticFirstVerification
		case ledger.AlreadyVerified:
			result.Outcome = OutcomeAuthenticAlreadyVerified
		default:
			result.Outcome = OutcomeAuthenticUnregistered
		}
		result.Block = consumption.Block
		result.VerifiedAt = consumption.VerifiedAt

		decryptRecord(result, payload, opts.SecretKey)
	}

	opts.Metrics.ObserveVerification(result.Outcome.String())

	entry := audit.NewEntry("verify", opts.LedgerUUID)
	entry.Salt = result.Salt
	entry.Signature = opts.Signature
	entry.Outcome = result.Outcome.String()
	if result.Block != nil {
		entry.Height = &result.Block.Height
	}
	audit.Log(entry)

	return result, nil
}

// checkAuthenticity parses the payload and checks its signature without
// touching the ledger. The result is OutcomeValidationError, OutcomeTampered,
// or OutcomeAuthenticUnregistered for a matching signature.
func checkAuthenticity(encrypted, sig, secretKey string, constantTime bool) (*VerifyResult, cipher.Payload) {
	result := &VerifyResult{Outcome: OutcomeValidationError}

	if secretKey == "" {
		result.ValidationErr = fmt.Errorf("%w: secret key is required", kerrors.ErrValidation)
		return result, cipher.Payload{}
	}
	payload, err := cipher.ParsePayload(encrypted)
	if err != nil {
		result.ValidationErr = err
		return result, cipher.Payload{}
	}
	result.Salt = payload.Salt.String()

	verify := signature.Verify
	if constantTime {
		verify = signature.VerifyConstantTime
	}
	if !verify(encrypted, sig, secretKey) {
		result.Outcome = OutcomeTampered
		return result, payload
	}

	result.Outcome = OutcomeAuthenticUnregistered
	return result, payload
}

// decryptRecord fills Record or DecryptErr. It never changes the outcome.
func decryptRecord(result *VerifyResult, payload cipher.Payload, secretKey string) {
	record, err := product.Parse(cipher.Decrypt(payload, secretKey))
	if err != nil {
		result.DecryptErr = err
		return
	}
	result.Record = &record
}
