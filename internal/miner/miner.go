package miner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// DefaultMaxAttempts bounds a single mining run when Options.MaxAttempts is zero.
const DefaultMaxAttempts uint64 = 10_000_000

// MaxDifficulty is the length of a hex SHA-256 digest.
const MaxDifficulty = sha256.Size * 2

// checkInterval is how many attempts pass between context checks.
const checkInterval = 1024

// Content is the part of a block covered by the proof of work, excluding the nonce.
type Content struct {
	Timestamp    string
	ProductHash  string
	Salt         string
	Signature    string
	PreviousHash string
}

// Options configures a mining run.
type Options struct {
	// Difficulty is the number of leading '0' characters required in the hex hash.
	Difficulty int

	// MaxAttempts bounds the search. Zero means DefaultMaxAttempts.
	MaxAttempts uint64
}

// Result is a successful proof of work.
type Result struct {
	Nonce    uint64
	Hash     string
	Attempts uint64
}

// HashBlock returns the hex SHA-256 of c's fields followed by nonce.
func HashBlock(c Content, nonce uint64) string {
	h := sha256.New()
	h.Write([]byte(c.Timestamp))
	h.Write([]byte(c.ProductHash))
	h.Write([]byte(c.Salt))
	h.Write([]byte(c.Signature))
	h.Write([]byte(c.PreviousHash))
	h.Write([]byte(strconv.FormatUint(nonce, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// Candidates returns the sequence of (nonce, hash) pairs starting at nonce 0.
// Every range over the sequence starts again from 0.
func Candidates(c Content) iter.Seq2[uint64, string] {
	return func(yield func(uint64, string) bool) {
		for nonce := uint64(0); ; nonce++ {
			if !yield(nonce, HashBlock(c, nonce)) {
				return
			}
			if nonce == math.MaxUint64 {
				return
			}
		}
	}
}

// Meets reports whether hash starts with difficulty '0' characters.
func Meets(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	return strings.HasPrefix(hash, strings.Repeat("0", difficulty))
}

// ValidateDifficulty returns ErrValidation for difficulties outside [0, MaxDifficulty].
func ValidateDifficulty(difficulty int) error {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return fmt.Errorf("%w: difficulty must be between 0 and %d, got %d",
			kerrors.ErrValidation, MaxDifficulty, difficulty)
	}
	return nil
}

// Mine searches for a nonce whose block hash meets opts.Difficulty.
//
// The context is checked before the first attempt and every 1024 attempts
// after that; cancellation returns the context error wrapped. Returns
// ErrMiningExhausted once opts.MaxAttempts candidates have been tried.
func Mine(ctx context.Context, c Content, opts Options) (Result, error) {
	if err := ValidateDifficulty(opts.Difficulty); err != nil {
		return Result{}, err
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	prefix := strings.Repeat("0", opts.Difficulty)

	var attempts uint64
	for nonce, hash := range Candidates(c) {
		if attempts%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempts}, fmt.Errorf("mining stopped after %d attempts: %w", attempts, err)
			}
		}
		attempts++

		if strings.HasPrefix(hash, prefix) {
			return Result{Nonce: nonce, Hash: hash, Attempts: attempts}, nil
		}
		if attempts >= maxAttempts {
			break
		}
	}

	return Result{Attempts: attempts}, fmt.Errorf("%w: no hash with %d leading zeros in %d attempts",
		kerrors.ErrMiningExhausted, opts.Difficulty, attempts)
}
