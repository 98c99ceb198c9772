package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/miner"
)

// Default ledger options.
const (
	DefaultDifficulty    = 4
	DefaultMiningTimeout = 5 * time.Minute
	DefaultAppendRetries = 3
)

// Options configures a Ledger.
type Options struct {
	// Difficulty is the number of leading '0' hex characters a block hash needs.
	Difficulty int
	// MaxAttempts bounds mining per block. Zero means miner.DefaultMaxAttempts.
	MaxAttempts uint64
	// MiningTimeout bounds mining per block. Zero disables the timeout.
	MiningTimeout time.Duration
	// AppendRetries is how many times Seal re-mines after ErrTipMoved.
	AppendRetries int

	// Now overrides the clock for block timestamps and verification times.
	Now func() time.Time
}

// Ledger issues and verifies items against a Store.
type Ledger struct {
	store Store
	opts  Options

	// sealMu serializes Seal so only one block is mined per tip in this process.
	sealMu sync.Mutex
}

// New returns a Ledger over store. The caller keeps ownership of store.
// An out-of-range Difficulty is reported by Seal.
func New(store Store, opts Options) *Ledger {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = miner.DefaultMaxAttempts
	}
	if opts.AppendRetries < 0 {
		opts.AppendRetries = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{store: store, opts: opts}
}

// Store returns the underlying store.
func (l *Ledger) Store() Store {
	return l.store
}

// Difficulty returns the number of leading zero hex characters required of a block hash.
func (l *Ledger) Difficulty() int {
	return l.opts.Difficulty
}

// SealRequest describes an issued item to be recorded.
type SealRequest struct {
	ProductHash string
	Salt        string
	Signature   string
}

// Seal mines a block for req on top of the current tip and appends it.
//
// If another writer extends the chain between mining and appending, the
// block is re-mined against the new tip up to AppendRetries times.
//
// Returns:
//   - ErrValidation if req has an empty field or the difficulty is out of range
//   - ErrMiningExhausted if no nonce met the difficulty within MaxAttempts
//   - context.DeadlineExceeded if mining exceeded MiningTimeout
//   - ErrDuplicateEntry if the salt is already recorded
//   - ErrTipMoved if the tip kept moving after every retry
//   - ErrStorage on backend failures
func (l *Ledger) Seal(ctx context.Context, req SealRequest) (*Block, error) {
	if req.ProductHash == "" || req.Salt == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: product hash, salt and signature are required", kerrors.ErrValidation)
	}
	if err := miner.ValidateDifficulty(l.opts.Difficulty); err != nil {
		return nil, err
	}

	l.sealMu.Lock()
	defer l.sealMu.Unlock()

	for attempt := 0; ; attempt++ {
		previous, err := l.tipHash(ctx)
		if err != nil {
			return nil, err
		}

		block := &Block{
			Timestamp:    l.opts.Now().UTC().Format(TimestampFormat),
			ProductHash:  req.ProductHash,
			Salt:         req.Salt,
			Signature:    req.Signature,
			PreviousHash: previous,
		}
		result, err := l.mine(ctx, block)
		if err != nil {
			return nil, err
		}
		block.Nonce = result.Nonce
		block.Hash = result.Hash

		err = l.store.Append(ctx, block)
		if err == nil {
			return block, nil
		}
		if !errors.Is(err, kerrors.ErrTipMoved) || attempt >= l.opts.AppendRetries {
			return nil, err
		}
	}
}

func (l *Ledger) mine(ctx context.Context, block *Block) (miner.Result, error) {
	if l.opts.MiningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.MiningTimeout)
		defer cancel()
	}
	return miner.Mine(ctx, block.Content(), miner.Options{
		Difficulty:  l.opts.Difficulty,
		MaxAttempts: l.opts.MaxAttempts,
	})
}

func (l *Ledger) tipHash(ctx context.Context) (string, error) {
	tip, err := l.store.Tip(ctx)
	if errors.Is(err, kerrors.ErrNotFound) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", err
	}
	return tip.Hash, nil
}

// Status is the ledger-side outcome of a verification.
type Status int

const (
	// NotRegistered means no block carries the salt.
	NotRegistered Status = iota
	// FirstVerification means this call flipped the block to verified.
	FirstVerification
	// AlreadyVerified means an earlier call verified the block.
	AlreadyVerified
)

func (s Status) String() string {
	switch s {
	case NotRegistered:
		return "not_registered"
	case FirstVerification:
		return "first_verification"
	case AlreadyVerified:
		return "already_verified"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Consumption is the result of Consume.
type Consumption struct {
	Status Status
	// Block is nil when Status is NotRegistered.
	Block *Block
	// VerifiedAt is the stored first-verification time. For AlreadyVerified it
	// is the earlier time, never the time of this call.
	VerifiedAt time.Time
}

// Consume records a verification of salt. Among any number of concurrent
// calls for the same salt exactly one observes FirstVerification.
//
// Errors are returned only for storage and context failures.
func (l *Ledger) Consume(ctx context.Context, salt string) (Consumption, error) {
	at := l.opts.Now().UTC().Truncate(time.Microsecond)
	block, transitioned, err := l.store.MarkVerified(ctx, salt, at)
	if errors.Is(err, kerrors.ErrNotFound) {
		return Consumption{Status: NotRegistered}, nil
	}
	if err != nil {
		return Consumption{}, err
	}

	c := Consumption{Status: AlreadyVerified, Block: block}
	if transitioned {
		c.Status = FirstVerification
	}
	if block.VerifiedAt != nil {
		c.VerifiedAt = *block.VerifiedAt
	}
	return c, nil
}

// Lookup returns the block for salt without changing it.
func (l *Ledger) Lookup(ctx context.Context, salt string) (*Block, error) {
	return l.store.Lookup(ctx, salt)
}

// Blocks returns the whole chain ordered by height.
func (l *Ledger) Blocks(ctx context.Context) ([]Block, error) {
	return l.store.Blocks(ctx)
}
