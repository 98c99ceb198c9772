package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/miner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDifficulty = 1

// stores returns a fresh instance of every backend available in this environment.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemoryStore()}

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), 4)
	require.NoError(t, err)
	out["sqlite"] = sq

	if dsn := os.Getenv("TEST_LEDGER_DSN"); dsn != "" {
		pg, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		_, err = pg.pool.Exec(context.Background(), "TRUNCATE ledger_blocks")
		require.NoError(t, err)
		out["postgres"] = pg
	}

	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})
	return out
}

func newTestLedger(store Store) *Ledger {
	return New(store, Options{Difficulty: testDifficulty, AppendRetries: 2})
}

func sealN(t *testing.T, l *Ledger, n int) []*Block {
	t.Helper()
	var out []*Block
	for i := 0; i < n; i++ {
		b, err := l.Seal(context.Background(), SealRequest{
			ProductHash: fmt.Sprintf("product-%d", i),
			Salt:        fmt.Sprintf("%016x", i+1),
			Signature:   fmt.Sprintf("sig%05d", i),
		})
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

// mineBlock builds a valid block on top of previous without going through a Ledger.
func mineBlock(t *testing.T, previous, salt string) *Block {
	t.Helper()
	b := &Block{
		Timestamp:    time.Now().UTC().Format(TimestampFormat),
		ProductHash:  "foreign",
		Salt:         salt,
		Signature:    "foreign1",
		PreviousHash: previous,
	}
	res, err := miner.Mine(context.Background(), b.Content(), miner.Options{Difficulty: testDifficulty})
	require.NoError(t, err)
	b.Nonce, b.Hash = res.Nonce, res.Hash
	return b
}

func TestSealBuildsChain(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			l := newTestLedger(store)
			blocks := sealN(t, l, 3)

			assert.Equal(t, GenesisHash, blocks[0].PreviousHash)
			for i, b := range blocks {
				assert.Equal(t, int64(i), b.Height)
				assert.True(t, miner.Meets(b.Hash, testDifficulty))
				assert.Equal(t, miner.HashBlock(b.Content(), b.Nonce), b.Hash)
				if i > 0 {
					assert.Equal(t, blocks[i-1].Hash, b.PreviousHash)
				}
			}

			tip, err := store.Tip(context.Background())
			require.NoError(t, err)
			assert.Equal(t, blocks[2].Hash, tip.Hash)

			report, err := l.CheckChain(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 3, report.Blocks)
			assert.Equal(t, 0, report.Verified)
			assert.Equal(t, blocks[2].Hash, report.TipHash)
		})
	}
}

func TestSealRejectsDuplicateSalt(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			l := newTestLedger(store)
			req := SealRequest{ProductHash: "p", Salt: "0001020304050607", Signature: "00000001"}
			_, err := l.Seal(context.Background(), req)
			require.NoError(t, err)

			_, err = l.Seal(context.Background(), req)
			assert.ErrorIs(t, err, kerrors.ErrDuplicateEntry)

			blocks, err := store.Blocks(context.Background())
			require.NoError(t, err)
			assert.Len(t, blocks, 1)
		})
	}
}

func TestAppendRejectsStaleTip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := mineBlock(t, GenesisHash, "00000000000000aa")
			require.NoError(t, store.Append(ctx, first))

			stale := mineBlock(t, GenesisHash, "00000000000000bb")
			assert.ErrorIs(t, store.Append(ctx, stale), kerrors.ErrTipMoved)

			_, err := store.Lookup(ctx, "00000000000000bb")
			assert.ErrorIs(t, err, kerrors.ErrNotFound)
		})
	}
}

func TestTipOfEmptyStore(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Tip(context.Background())
			assert.ErrorIs(t, err, kerrors.ErrNotFound)
		})
	}
}

func TestConsumeOutcomes(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)
			l := New(store, Options{Difficulty: testDifficulty, Now: func() time.Time { return now }})
			blocks := sealN(t, l, 1)

			c, err := l.Consume(ctx, "ffffffffffffffff")
			require.NoError(t, err)
			assert.Equal(t, NotRegistered, c.Status)
			assert.Nil(t, c.Block)

			c, err = l.Consume(ctx, blocks[0].Salt)
			require.NoError(t, err)
			assert.Equal(t, FirstVerification, c.Status)
			first := c.VerifiedAt
			assert.True(t, first.Equal(now.Truncate(time.Microsecond)), "verified at %v", first)

			now = now.Add(time.Hour)
			c, err = l.Consume(ctx, blocks[0].Salt)
			require.NoError(t, err)
			assert.Equal(t, AlreadyVerified, c.Status)
			assert.True(t, c.VerifiedAt.Equal(first), "verified at moved from %v to %v", first, c.VerifiedAt)

			report, err := l.CheckChain(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Verified)
		})
	}
}

func TestConsumeConcurrentlyVerifiesOnce(t *testing.T) {
	const workers = 16
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			l := newTestLedger(store)
			salt := sealN(t, l, 1)[0].Salt

			var wg sync.WaitGroup
			results := make([]Consumption, workers)
			errs := make([]error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = l.Consume(context.Background(), salt)
				}(i)
			}
			wg.Wait()

			firsts := 0
			var verifiedAt time.Time
			for i := range results {
				require.NoError(t, errs[i])
				switch results[i].Status {
				case FirstVerification:
					firsts++
					verifiedAt = results[i].VerifiedAt
				case AlreadyVerified:
				default:
					t.Fatalf("unexpected status %v", results[i].Status)
				}
			}
			assert.Equal(t, 1, firsts)
			for _, r := range results {
				assert.True(t, r.VerifiedAt.Equal(verifiedAt))
			}
		})
	}
}

// racingStore appends a foreign block just before the first Append it sees,
// as if another process won the race for the tip.
type racingStore struct {
	Store
	t     *testing.T
	races int
}

func (s *racingStore) Append(ctx context.Context, b *Block) error {
	if s.races > 0 {
		s.races--
		tip, err := s.Store.Tip(ctx)
		previous := GenesisHash
		if err == nil {
			previous = tip.Hash
		}
		foreign := mineBlock(s.t, previous, fmt.Sprintf("%016x", 0xf00+s.races))
		require.NoError(s.t, s.Store.Append(ctx, foreign))
	}
	return s.Store.Append(ctx, b)
}

func TestSealRemineAfterTipMoved(t *testing.T) {
	store := &racingStore{Store: NewMemoryStore(), t: t, races: 1}
	l := New(store, Options{Difficulty: testDifficulty, AppendRetries: 1})

	b, err := l.Seal(context.Background(), SealRequest{ProductHash: "p", Salt: "0102030405060708", Signature: "abcdefgh"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Height)
	assert.Equal(t, "0102030405060708", b.Salt)

	_, err = l.CheckChain(context.Background())
	assert.NoError(t, err)
}

func TestSealGivesUpWhenTipKeepsMoving(t *testing.T) {
	store := &racingStore{Store: NewMemoryStore(), t: t, races: 3}
	l := New(store, Options{Difficulty: testDifficulty, AppendRetries: 1})

	_, err := l.Seal(context.Background(), SealRequest{ProductHash: "p", Salt: "0102030405060708", Signature: "abcdefgh"})
	assert.ErrorIs(t, err, kerrors.ErrTipMoved)
}

func TestSealMiningExhausted(t *testing.T) {
	store := NewMemoryStore()
	l := New(store, Options{Difficulty: miner.MaxDifficulty, MaxAttempts: 10})

	_, err := l.Seal(context.Background(), SealRequest{ProductHash: "p", Salt: "01", Signature: "s"})
	assert.ErrorIs(t, err, kerrors.ErrMiningExhausted)

	blocks, err := store.Blocks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestSealMiningTimeout(t *testing.T) {
	l := New(NewMemoryStore(), Options{
		Difficulty:    miner.MaxDifficulty,
		MaxAttempts:   1 << 62,
		MiningTimeout: 20 * time.Millisecond,
	})
	_, err := l.Seal(context.Background(), SealRequest{ProductHash: "p", Salt: "01", Signature: "s"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSealValidation(t *testing.T) {
	l := newTestLedger(NewMemoryStore())
	_, err := l.Seal(context.Background(), SealRequest{Salt: "01", Signature: "s"})
	assert.ErrorIs(t, err, kerrors.ErrValidation)

	bad := New(NewMemoryStore(), Options{Difficulty: 65})
	_, err = bad.Seal(context.Background(), SealRequest{ProductHash: "p", Salt: "01", Signature: "s"})
	assert.ErrorIs(t, err, kerrors.ErrValidation)
}

func TestCheckChainDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(b *Block)
	}{
		{"signature", func(b *Block) { b.Signature = "tampered" }},
		{"link", func(b *Block) { b.PreviousHash = GenesisHash }},
		{"hash", func(b *Block) { b.Hash = "0" + b.Hash[1:] + "x" }},
		{"verification", func(b *Block) { b.IsVerified = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			l := newTestLedger(store)
			sealN(t, l, 3)

			tt.tamper(store.blocks[1])

			_, err := l.CheckChain(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, kerrors.ErrChainBroken)

			var chainErr *ChainError
			require.True(t, errors.As(err, &chainErr))
			assert.Equal(t, 1, chainErr.Index)
		})
	}
}

func TestCheckChainEmpty(t *testing.T) {
	report, err := newTestLedger(NewMemoryStore()).CheckChain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Blocks)
	assert.Equal(t, GenesisHash, report.TipHash)
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Tip(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrStorageClosed)
	_, _, err = store.MarkVerified(context.Background(), "01", time.Now())
	assert.ErrorIs(t, err, kerrors.ErrStorageClosed)
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := OpenSQLite(path, 2)
	require.NoError(t, err)
	blocks := sealN(t, newTestLedger(store), 2)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path, 2)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Blocks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, blocks[1].Hash, got[1].Hash)
	assert.Equal(t, blocks[1].Nonce, got[1].Nonce)
	assert.Equal(t, blocks[1].Timestamp, got[1].Timestamp)
}

func TestOpenStore(t *testing.T) {
	s, err := OpenStore(context.Background(), StoreConfig{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = OpenStore(context.Background(), StoreConfig{Backend: "etcd"})
	assert.ErrorIs(t, err, kerrors.ErrUnknownBackend)

	_, err = OpenStore(context.Background(), StoreConfig{Backend: BackendPostgres})
	assert.ErrorIs(t, err, kerrors.ErrInvalidProjectConfig)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "first_verification", FirstVerification.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
