// Package cipher implements the byte-transformation cipher used to seal
// product records into scannable payloads.
//
// # Key Stream
//
// A key stream is derived from the secret key and a per-item salt:
//
//	digest    = SHA-256(secretKey || hex(salt))
//	stream[i] = digest[i mod 32]
//
// The stream repeats every 32 bytes. It carries no entropy beyond the single
// digest and is reproducible from (secretKey, salt) alone.
//
// # Rounds
//
// Encode runs four identical rounds. Each round transforms every byte
// position i with the same key stream byte:
//
//	b = b XOR stream[i]
//	b = rotate-left(b, 1)
//	b = swap-nibbles(b)
//
// Decode applies the inverse steps in reverse order for four rounds.
// Decoding with the wrong key stream still produces bytes; integrity comes
// solely from the signature package.
//
// # Payload Format
//
// An encrypted payload is rendered as lowercase hex of the 8-byte salt and
// the ciphertext joined by a single dot:
//
//	0a1b2c3d4e5f6071.9f8e7d...
//
// This is not a hardened construction. The transform is kept bit-for-bit
// stable because every issued payload depends on it.
package cipher
