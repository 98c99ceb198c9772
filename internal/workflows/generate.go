package workflows

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	"github.com/PolarWolf314/kaitiaki/internal/cipher"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
	"github.com/PolarWolf314/kaitiaki/internal/metrics"
	"github.com/PolarWolf314/kaitiaki/internal/product"
	"github.com/PolarWolf314/kaitiaki/internal/signature"
)

// GenerateOptions configures the generate workflow.
type GenerateOptions struct {
	// Record is the product record to encrypt.
	Record product.Record

	// SecretKey is the issuer's secret key.
	SecretKey string

	// Ledger records the issued item.
	Ledger *ledger.Ledger

	// LedgerUUID identifies the ledger in the audit log.
	LedgerUUID string

	// Rand supplies the salt. Defaults to crypto/rand.Reader.
	Rand io.Reader

	// Metrics receives issuance metrics. May be nil.
	Metrics *metrics.Metrics
}

// GenerateResult contains the outcome of a generate operation.
type GenerateResult struct {
	// Encrypted is the payload string "<salt hex>.<ciphertext hex>".
	Encrypted string

	// Signature is the 8-character base-62 signature of Encrypted.
	Signature string

	// Block is the sealed ledger block.
	Block *ledger.Block

	// Elapsed is the time spent mining and appending.
	Elapsed time.Duration
}

// Generate issues a new item: it serializes and encrypts the record under a
// fresh salt, signs the payload and seals it into the ledger.
//
// Returns ErrValidation for an invalid record, an empty key or no ledger.
// Returns ErrMiningExhausted if no nonce met the difficulty.
// Returns ErrDuplicateEntry if the salt was already issued.
// Returns ErrStorage on ledger failures, or the context error if cancelled.
func Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	if opts.SecretKey == "" {
		return nil, fmt.Errorf("%w: secret key is required", kerrors.ErrValidation)
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("%w: ledger is required", kerrors.ErrValidation)
	}
	if err := opts.Record.Validate(); err != nil {
		return nil, err
	}

	plaintext, err := opts.Record.Serialize()
	if err != nil {
		return nil, err
	}

	random := opts.Rand
	if random == nil {
		random = rand.Reader
	}
	salt, err := cipher.NewSalt(random)
	if err != nil {
		return nil, err
	}

	payload := cipher.Encrypt(plaintext, opts.SecretKey, salt)
	sig := signature.SignPayload(payload, opts.SecretKey)

	start := time.Now()
	block, err := opts.Ledger.Seal(ctx, ledger.SealRequest{
		ProductHash: product.DetailsHash(plaintext),
		Salt:        salt.String(),
		Signature:   sig,
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	// Nonces start at zero, so the winning nonce is one less than the attempts.
	opts.Metrics.ObserveIssue(block.Nonce+1, elapsed)

	entry := audit.NewEntry("issue", opts.LedgerUUID)
	entry.Salt = block.Salt
	entry.Signature = block.Signature
	entry.SKU = opts.Record.SKU
	entry.Height = &block.Height
	audit.Log(entry)

	return &GenerateResult{
		Encrypted: payload.String(),
		Signature: sig,
		Block:     block,
		Elapsed:   elapsed,
	}, nil
}
