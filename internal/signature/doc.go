// Package signature derives and checks the 8-character fingerprint that
// binds an encrypted payload to a secret key.
//
// A signature is computed from the ciphertext bytes c and the payload's key
// stream k:
//
//	sum = Σ c[i] * (i+1)        (unbounded precision)
//	sig = base62(sum XOR k[0])  left-padded with '0', first 8 characters
//
// The base-62 alphabet is digits, then lowercase, then uppercase letters.
//
// Signatures are not secret. They are a deterministic checksum keyed by the
// secret, so flipping a ciphertext byte changes the signature with high but
// not guaranteed probability.
//
// Verify compares with plain string equality. VerifyConstantTime is
// available for deployments where timing side channels matter.
package signature
