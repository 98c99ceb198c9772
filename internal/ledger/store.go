package ledger

import (
	"context"
	"time"
)

// Store persists blocks. Implementations must be safe for concurrent use.
type Store interface {
	// Tip returns the most recently appended block, or ErrNotFound if the chain is empty.
	Tip(ctx context.Context) (*Block, error)

	// Lookup returns the block for salt, or ErrNotFound.
	Lookup(ctx context.Context, salt string) (*Block, error)

	// MarkVerified sets is_verified and verified_at for salt in one conditional
	// update that only matches unverified blocks. It returns the stored block
	// after the update and whether this call performed the transition.
	// Returns ErrNotFound if no block has that salt.
	MarkVerified(ctx context.Context, salt string, at time.Time) (*Block, bool, error)

	// Append inserts b if b.PreviousHash equals the current tip hash (or
	// GenesisHash for an empty chain) and sets b.Height. Returns ErrTipMoved
	// on a stale previous hash and ErrDuplicateEntry on a salt or hash conflict.
	Append(ctx context.Context, b *Block) error

	// Blocks returns every block ordered by height.
	Blocks(ctx context.Context) ([]Block, error)

	// Close releases the store's resources.
	Close() error
}
