package ledger

import (
	"context"
	"fmt"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/miner"
)

// ChainReport summarizes a successful chain check.
type ChainReport struct {
	Blocks   int
	Verified int
	TipHash  string
}

// ChainError locates the first block that breaks the chain.
// It matches errors.Is(err, ErrChainBroken).
type ChainError struct {
	Index  int
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%v: block %d: %s", kerrors.ErrChainBroken, e.Index, e.Reason)
}

func (e *ChainError) Unwrap() error {
	return kerrors.ErrChainBroken
}

// ValidateChain checks that blocks form a single chain from GenesisHash:
// heights are contiguous, each block links to its predecessor, each stored
// hash matches a recomputation, and each hash meets difficulty.
// The first violation is returned as a *ChainError.
func ValidateChain(blocks []Block, difficulty int) error {
	previous := GenesisHash
	for i := range blocks {
		b := &blocks[i]
		broken := func(format string, args ...any) error {
			return &ChainError{Index: i, Reason: fmt.Sprintf(format, args...)}
		}

		if b.Height != int64(i) {
			return broken("height is %d", b.Height)
		}
		if b.PreviousHash != previous {
			return broken("links to %s, expected %s", b.PreviousHash, previous)
		}
		if got := miner.HashBlock(b.Content(), b.Nonce); got != b.Hash {
			return broken("stored hash %s, computed %s", b.Hash, got)
		}
		if !miner.Meets(b.Hash, difficulty) {
			return broken("hash %s does not meet difficulty %d", b.Hash, difficulty)
		}
		if b.IsVerified != (b.VerifiedAt != nil) {
			return broken("is_verified and verified_at disagree")
		}
		previous = b.Hash
	}
	return nil
}

// CheckChain loads every block and validates it against the ledger's difficulty.
func (l *Ledger) CheckChain(ctx context.Context) (*ChainReport, error) {
	blocks, err := l.store.Blocks(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateChain(blocks, l.opts.Difficulty); err != nil {
		return nil, err
	}

	report := &ChainReport{Blocks: len(blocks), TipHash: GenesisHash}
	for _, b := range blocks {
		if b.IsVerified {
			report.Verified++
		}
		report.TipHash = b.Hash
	}
	return report, nil
}
