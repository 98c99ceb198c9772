package cipher

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveKeyStream expands secretKey and salt into an n-byte key stream by
// cycling a single SHA-256 digest of secretKey followed by hex(salt).
func DeriveKeyStream(secretKey string, salt Salt, n int) []byte {
	if n <= 0 {
		return []byte{}
	}

	h := sha256.New()
	h.Write([]byte(secretKey))
	h.Write([]byte(hex.EncodeToString(salt[:])))
	digest := h.Sum(nil)

	stream := make([]byte, n)
	for i := range stream {
		stream[i] = digest[i%len(digest)]
	}
	return stream
}
