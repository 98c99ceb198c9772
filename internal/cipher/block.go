package cipher

import (
	"fmt"
	"math/bits"
)

// Rounds is the fixed number of transformation rounds.
const Rounds = 4

// Encode transforms plaintext with keyStream. keyStream must be at least as
// long as plaintext.
func Encode(plaintext, keyStream []byte) []byte {
	mustCover(keyStream, len(plaintext))

	out := make([]byte, len(plaintext))
	copy(out, plaintext)

	for round := 0; round < Rounds; round++ {
		for i, b := range out {
			b ^= keyStream[i]
			b = bits.RotateLeft8(b, 1)
			out[i] = swapNibbles(b)
		}
	}
	return out
}

// Decode reverses Encode. keyStream must be at least as long as ciphertext.
func Decode(ciphertext, keyStream []byte) []byte {
	mustCover(keyStream, len(ciphertext))

	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)

	for round := 0; round < Rounds; round++ {
		for i, b := range out {
			b = swapNibbles(b)
			b = bits.RotateLeft8(b, -1)
			out[i] = b ^ keyStream[i]
		}
	}
	return out
}

// Encrypt derives a key stream for salt and encodes plaintext into a Payload.
func Encrypt(plaintext []byte, secretKey string, salt Salt) Payload {
	keyStream := DeriveKeyStream(secretKey, salt, len(plaintext))
	return Payload{
		Salt:       salt,
		Ciphertext: Encode(plaintext, keyStream),
	}
}

// Decrypt derives the key stream for p.Salt and decodes the ciphertext.
// A wrong secretKey yields garbage rather than an error.
func Decrypt(p Payload, secretKey string) []byte {
	keyStream := DeriveKeyStream(secretKey, p.Salt, len(p.Ciphertext))
	return Decode(p.Ciphertext, keyStream)
}

func swapNibbles(b byte) byte {
	return b<<4 | b>>4
}

func mustCover(keyStream []byte, n int) {
	if len(keyStream) < n {
		panic(fmt.Sprintf("cipher: key stream of %d bytes cannot cover %d bytes", len(keyStream), n))
	}
}
