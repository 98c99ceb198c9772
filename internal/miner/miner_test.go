package miner

import (
	"context"
	"strings"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContent = Content{
	Timestamp:    "2026-01-02T03:04:05Z",
	ProductHash:  "ph",
	Salt:         "0001020304050607",
	Signature:    "sig",
	PreviousHash: strings.Repeat("0", 64),
}

func TestHashBlock_KnownVector(t *testing.T) {
	assert.Equal(t,
		"a68768e9441903370e532c55af2bdd899b1843d65d0ea5ec4cf84d8739995f73",
		HashBlock(testContent, 0))
}

func TestHashBlock_NoFieldDelimiters(t *testing.T) {
	a := testContent
	b := testContent
	a.Signature, a.PreviousHash = "sigX", "Y"
	b.Signature, b.PreviousHash = "sig", "XY"
	assert.Equal(t, HashBlock(a, 7), HashBlock(b, 7))
}

func TestMine_DifficultyZeroAcceptsFirstNonce(t *testing.T) {
	res, err := Mine(context.Background(), testContent, Options{Difficulty: 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Nonce)
	assert.Equal(t, uint64(1), res.Attempts)
	assert.Equal(t, HashBlock(testContent, 0), res.Hash)
}

func TestMine_DifficultyTwo(t *testing.T) {
	res, err := Mine(context.Background(), testContent, Options{Difficulty: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(397), res.Nonce)
	assert.Equal(t, "00d7af74c44a4ae7aa8cd865afc88c77a475831443154457963f2868097b5965", res.Hash)
	assert.Equal(t, uint64(398), res.Attempts)
}

func TestMine_ResultMatchesRecomputedHash(t *testing.T) {
	for d := 0; d <= 3; d++ {
		res, err := Mine(context.Background(), testContent, Options{Difficulty: d})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Hash, strings.Repeat("0", d)), "difficulty %d: %s", d, res.Hash)
		assert.Equal(t, HashBlock(testContent, res.Nonce), res.Hash)
		assert.True(t, Meets(res.Hash, d))
	}
}

func TestMine_Exhausted(t *testing.T) {
	res, err := Mine(context.Background(), testContent, Options{Difficulty: MaxDifficulty, MaxAttempts: 50})
	require.ErrorIs(t, err, kerrors.ErrMiningExhausted)
	assert.Equal(t, uint64(50), res.Attempts)
}

func TestMine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Mine(ctx, testContent, Options{Difficulty: 1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), res.Attempts)
}

func TestMine_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Mine(ctx, testContent, Options{Difficulty: MaxDifficulty, MaxAttempts: 1 << 62})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMine_InvalidDifficulty(t *testing.T) {
	for _, d := range []int{-1, MaxDifficulty + 1} {
		_, err := Mine(context.Background(), testContent, Options{Difficulty: d})
		assert.ErrorIs(t, err, kerrors.ErrValidation, "difficulty %d", d)
	}
}

func TestCandidates_Restartable(t *testing.T) {
	seq := Candidates(testContent)

	take := func() []string {
		var hashes []string
		for nonce, hash := range seq {
			assert.Equal(t, uint64(len(hashes)), nonce)
			hashes = append(hashes, hash)
			if len(hashes) == 3 {
				break
			}
		}
		return hashes
	}

	first := take()
	second := take()
	assert.Equal(t, first, second)
	assert.Equal(t, HashBlock(testContent, 2), first[2])
}

func TestMeets(t *testing.T) {
	assert.True(t, Meets("abc", 0))
	assert.True(t, Meets("abc", -3))
	assert.True(t, Meets("00ab", 2))
	assert.False(t, Meets("0ab", 2))
	assert.False(t, Meets("0", 2))
}
