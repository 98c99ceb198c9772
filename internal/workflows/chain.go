package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
)

// CheckChainOptions configures the chain check workflow.
type CheckChainOptions struct {
	Ledger     *ledger.Ledger
	LedgerUUID string
}

// CheckChain validates every block of the ledger.
//
// Returns an error wrapping ErrChainBroken (a *ledger.ChainError) at the first bad block.
// Returns ErrStorage if the blocks cannot be read.
func CheckChain(ctx context.Context, opts CheckChainOptions) (*ledger.ChainReport, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("%w: ledger is required", kerrors.ErrValidation)
	}

	report, err := opts.Ledger.CheckChain(ctx)

	entry := audit.NewEntry("check", opts.LedgerUUID)
	switch {
	case err == nil:
		entry.Outcome = "ok"
		entry.Blocks = report.Blocks
	case errors.Is(err, kerrors.ErrChainBroken):
		entry.Outcome = "broken"
	default:
		return nil, err
	}
	audit.Log(entry)

	return report, err
}

// ListBlocksOptions configures the block listing workflow.
type ListBlocksOptions struct {
	Ledger *ledger.Ledger

	// Salt selects a single block.
	Salt string

	// VerifiedOnly keeps only blocks that have been scanned.
	VerifiedOnly bool

	// Limit is the maximum number of blocks to return. 0 means no limit.
	Limit int

	// Reverse orders blocks from the tip down.
	Reverse bool
}

// ListBlocks returns ledger blocks ordered by height.
//
// Returns ErrNotFound if Salt is set and no block has it.
func ListBlocks(ctx context.Context, opts ListBlocksOptions) ([]ledger.Block, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("%w: ledger is required", kerrors.ErrValidation)
	}

	if opts.Salt != "" {
		block, err := opts.Ledger.Lookup(ctx, opts.Salt)
		if err != nil {
			return nil, err
		}
		return []ledger.Block{*block}, nil
	}

	blocks, err := opts.Ledger.Blocks(ctx)
	if err != nil {
		return nil, err
	}

	if opts.VerifiedOnly {
		filtered := blocks[:0]
		for _, b := range blocks {
			if b.IsVerified {
				filtered = append(filtered, b)
			}
		}
		blocks = filtered
	}

	if opts.Reverse {
		for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
			blocks[i], blocks[j] = blocks[j], blocks[i]
		}
	}

	if opts.Limit > 0 && len(blocks) > opts.Limit {
		if opts.Reverse {
			blocks = blocks[:opts.Limit]
		} else {
			blocks = blocks[len(blocks)-opts.Limit:]
		}
	}
	return blocks, nil
}
