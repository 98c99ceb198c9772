package signature

import (
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"

	"github.com/PolarWolf314/kaitiaki/internal/cipher"
)

// Length is the fixed number of characters in a signature.
const Length = 8

// Alphabet is the base-62 symbol order used to render signatures.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var base = big.NewInt(int64(len(Alphabet)))

// Sign computes the signature of an encoded payload under secretKey.
// Returns an error wrapping ErrValidation if encoded cannot be parsed.
func Sign(encoded, secretKey string) (string, error) {
	payload, err := cipher.ParsePayload(encoded)
	if err != nil {
		return "", err
	}
	return SignPayload(payload, secretKey), nil
}

// SignPayload computes the signature of an already parsed payload.
func SignPayload(p cipher.Payload, secretKey string) string {
	keyStream := cipher.DeriveKeyStream(secretKey, p.Salt, len(p.Ciphertext))

	sum := new(big.Int)
	term := new(big.Int)
	for i, b := range p.Ciphertext {
		term.SetUint64(uint64(b) * uint64(i+1))
		sum.Add(sum, term)
	}

	var first uint64
	if len(keyStream) > 0 {
		first = uint64(keyStream[0])
	}
	sum.Xor(sum, new(big.Int).SetUint64(first))

	return fit(EncodeBase62(sum))
}

// Verify reports whether sig is the signature of encoded under secretKey.
// Malformed input yields false.
func Verify(encoded, sig, secretKey string) bool {
	expected, err := Sign(encoded, secretKey)
	if err != nil {
		return false
	}
	return expected == sig
}

// VerifyConstantTime is Verify with a constant-time final comparison.
func VerifyConstantTime(encoded, sig, secretKey string) bool {
	expected, err := Sign(encoded, secretKey)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}

// EncodeBase62 renders a non-negative integer in base 62 without padding.
// Zero renders as "0".
func EncodeBase62(n *big.Int) string {
	if n.Sign() < 0 {
		panic(fmt.Sprintf("signature: cannot encode negative value %s", n))
	}
	if n.Sign() == 0 {
		return "0"
	}

	v := new(big.Int).Set(n)
	mod := new(big.Int)
	var digits []byte
	for v.Sign() > 0 {
		v.DivMod(v, base, mod)
		digits = append(digits, Alphabet[mod.Int64()])
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// fit left-pads s with '0' to Length and keeps the first Length characters.
func fit(s string) string {
	if len(s) < Length {
		s = strings.Repeat("0", Length-len(s)) + s
	}
	return s[:Length]
}
