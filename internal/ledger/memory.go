package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks []*Block
	bySalt map[string]int
	byHash map[string]int
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySalt: make(map[string]int),
		byHash: make(map[string]int),
	}
}

// Tip implements Store.Tip.
func (s *MemoryStore) Tip(ctx context.Context) (*Block, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kerrors.ErrStorageClosed
	}
	if len(s.blocks) == 0 {
		return nil, kerrors.ErrNotFound
	}
	return s.blocks[len(s.blocks)-1].clone(), nil
}

// Lookup implements Store.Lookup.
func (s *MemoryStore) Lookup(ctx context.Context, salt string) (*Block, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kerrors.ErrStorageClosed
	}
	i, ok := s.bySalt[salt]
	if !ok {
		return nil, kerrors.ErrNotFound
	}
	return s.blocks[i].clone(), nil
}

// MarkVerified implements Store.MarkVerified.
func (s *MemoryStore) MarkVerified(ctx context.Context, salt string, at time.Time) (*Block, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, kerrors.ErrStorageClosed
	}
	i, ok := s.bySalt[salt]
	if !ok {
		return nil, false, kerrors.ErrNotFound
	}
	b := s.blocks[i]
	if b.IsVerified {
		return b.clone(), false, nil
	}
	b.IsVerified = true
	b.VerifiedAt = &at
	return b.clone(), true, nil
}

// Append implements Store.Append.
func (s *MemoryStore) Append(ctx context.Context, b *Block) error {
	_ = ctx
	if b == nil {
		return fmt.Errorf("%w: nil block", kerrors.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kerrors.ErrStorageClosed
	}

	tipHash := GenesisHash
	if n := len(s.blocks); n > 0 {
		tipHash = s.blocks[n-1].Hash
	}
	if b.PreviousHash != tipHash {
		return fmt.Errorf("%w: block links to %s, tip is %s", kerrors.ErrTipMoved, b.PreviousHash, tipHash)
	}
	if _, dup := s.bySalt[b.Salt]; dup {
		return fmt.Errorf("%w: salt %s", kerrors.ErrDuplicateEntry, b.Salt)
	}
	if _, dup := s.byHash[b.Hash]; dup {
		return fmt.Errorf("%w: block hash %s", kerrors.ErrDuplicateEntry, b.Hash)
	}

	b.Height = int64(len(s.blocks))
	stored := b.clone()
	s.blocks = append(s.blocks, stored)
	s.bySalt[stored.Salt] = int(stored.Height)
	s.byHash[stored.Hash] = int(stored.Height)
	return nil
}

// Blocks implements Store.Blocks.
func (s *MemoryStore) Blocks(ctx context.Context) ([]Block, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kerrors.ErrStorageClosed
	}
	out := make([]Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = *b.clone()
	}
	return out, nil
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
