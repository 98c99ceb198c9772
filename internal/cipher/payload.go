package cipher

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// SaltSize is the length of a per-item salt in bytes.
const SaltSize = 8

// Separator joins the salt and ciphertext segments of an encoded payload.
const Separator = "."

// Salt is the random per-item value mixed into the key stream. It doubles
// as the ledger lookup key.
type Salt [SaltSize]byte

// NewSalt reads a fresh salt from r.
func NewSalt(r io.Reader) (Salt, error) {
	var s Salt
	if _, err := io.ReadFull(r, s[:]); err != nil {
		return Salt{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	return s, nil
}

// String returns the lowercase hex form of the salt.
func (s Salt) String() string {
	return hex.EncodeToString(s[:])
}

// Payload is an encrypted product record together with its salt.
type Payload struct {
	Salt       Salt
	Ciphertext []byte
}

// String renders the payload as hex(salt) + "." + hex(ciphertext).
func (p Payload) String() string {
	return p.Salt.String() + Separator + hex.EncodeToString(p.Ciphertext)
}

// ParsePayload parses an encoded payload. Any structural problem is reported
// as ErrValidation.
func ParsePayload(encoded string) (Payload, error) {
	parts := strings.Split(encoded, Separator)
	if len(parts) != 2 {
		return Payload{}, fmt.Errorf("%w: expected 2 segments separated by %q, got %d",
			kerrors.ErrValidation, Separator, len(parts))
	}
	if parts[0] == "" || parts[1] == "" {
		return Payload{}, fmt.Errorf("%w: empty payload segment", kerrors.ErrValidation)
	}

	saltBytes, err := hex.DecodeString(parts[0])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: salt is not hex: %v", kerrors.ErrValidation, err)
	}
	if len(saltBytes) != SaltSize {
		return Payload{}, fmt.Errorf("%w: salt must be %d bytes, got %d",
			kerrors.ErrValidation, SaltSize, len(saltBytes))
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: ciphertext is not hex: %v", kerrors.ErrValidation, err)
	}

	var p Payload
	copy(p.Salt[:], saltBytes)
	p.Ciphertext = ciphertext
	return p, nil
}
