package cipher

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

var testSalt = Salt{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}

func TestDeriveKeyStream_KnownVector(t *testing.T) {
	stream := DeriveKeyStream("k1", testSalt, 5)
	if got := hex.EncodeToString(stream); got != "93abf9e8d0" {
		t.Errorf("Expected key stream 93abf9e8d0, got %s", got)
	}
}

func TestDeriveKeyStream_CyclesDigest(t *testing.T) {
	stream := DeriveKeyStream("secret", testSalt, 100)
	if len(stream) != 100 {
		t.Fatalf("Expected 100 bytes, got %d", len(stream))
	}
	for i := 32; i < len(stream); i++ {
		if stream[i] != stream[i-32] {
			t.Fatalf("Expected stream to repeat every 32 bytes, differs at %d", i)
		}
	}
}

func TestDeriveKeyStream_Deterministic(t *testing.T) {
	a := DeriveKeyStream("secret", testSalt, 40)
	b := DeriveKeyStream("secret", testSalt, 40)
	if !bytes.Equal(a, b) {
		t.Error("Expected identical key streams for identical inputs")
	}

	other := testSalt
	other[7] ^= 0xff
	c := DeriveKeyStream("secret", other, 40)
	if bytes.Equal(a, c) {
		t.Error("Expected different salts to produce different key streams")
	}
}

func TestDeriveKeyStream_ZeroLength(t *testing.T) {
	if got := DeriveKeyStream("secret", testSalt, 0); len(got) != 0 {
		t.Errorf("Expected empty stream, got %d bytes", len(got))
	}
}

func TestEncode_KnownVector(t *testing.T) {
	keyStream := DeriveKeyStream("k1", testSalt, 5)
	got := hex.EncodeToString(Encode([]byte("hello"), keyStream))
	if got != "4ae27d82ca" {
		t.Errorf("Expected ciphertext 4ae27d82ca, got %s", got)
	}
}

func TestEncryptDecrypt_Hello(t *testing.T) {
	salt, err := NewSalt(rand.Reader)
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}

	payload := Encrypt([]byte("hello"), "k1", salt)
	if got := Decrypt(payload, "k1"); string(got) != "hello" {
		t.Errorf("Expected hello, got %q", got)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xff, 0x00, 0x80, 0x01},
		[]byte(`{"name":"Widget","sku":"W-1"}`),
		bytes.Repeat([]byte{0xa5}, 257),
	}

	for _, key := range []string{"", "k1", "a much longer secret key with spaces"} {
		for _, input := range inputs {
			salt, err := NewSalt(rand.Reader)
			if err != nil {
				t.Fatalf("NewSalt failed: %v", err)
			}
			keyStream := DeriveKeyStream(key, salt, len(input))
			got := Decode(Encode(input, keyStream), keyStream)
			if !bytes.Equal(got, input) {
				t.Errorf("Round trip mismatch for key %q, input %x: got %x", key, input, got)
			}
		}
	}
}

func TestEncode_DoesNotMutateInput(t *testing.T) {
	input := []byte("hello")
	keyStream := DeriveKeyStream("k1", testSalt, len(input))
	_ = Encode(input, keyStream)
	if string(input) != "hello" {
		t.Errorf("Expected input to be unchanged, got %q", input)
	}
}

func TestDecrypt_WrongKeyProducesBytes(t *testing.T) {
	payload := Encrypt([]byte("hello"), "k1", testSalt)
	got := Decrypt(payload, "k2")
	if len(got) != 5 {
		t.Fatalf("Expected 5 bytes, got %d", len(got))
	}
	if string(got) == "hello" {
		t.Error("Expected wrong key to produce different bytes")
	}
}

func TestEncode_ShortKeyStreamPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for short key stream")
		}
	}()
	Encode([]byte("hello"), []byte{1, 2})
}

func TestPayload_StringAndParse(t *testing.T) {
	payload := Encrypt([]byte("hello"), "k1", testSalt)
	encoded := payload.String()
	if encoded != "0001020304050607.4ae27d82ca" {
		t.Fatalf("Unexpected encoding: %s", encoded)
	}

	parsed, err := ParsePayload(encoded)
	if err != nil {
		t.Fatalf("ParsePayload failed: %v", err)
	}
	if parsed.Salt != testSalt {
		t.Errorf("Expected salt %s, got %s", testSalt, parsed.Salt)
	}
	if !bytes.Equal(parsed.Ciphertext, payload.Ciphertext) {
		t.Errorf("Expected ciphertext %x, got %x", payload.Ciphertext, parsed.Ciphertext)
	}
}

func TestParsePayload_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"no separator":     "00010203040506074ae27d82ca",
		"three segments":   "0001020304050607.4ae2.7d82ca",
		"empty salt":       ".4ae27d82ca",
		"empty ciphertext": "0001020304050607.",
		"short salt":       "00010203.4ae27d82ca",
		"long salt":        "000102030405060708.4ae27d82ca",
		"non-hex salt":     "zz01020304050607.4ae27d82ca",
		"non-hex cipher":   "0001020304050607.xyz",
		"odd hex cipher":   "0001020304050607.4ae",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePayload(input)
			if err == nil {
				t.Fatalf("Expected error for %q", input)
			}
			if !errors.Is(err, kerrors.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestNewSalt_ShortReader(t *testing.T) {
	_, err := NewSalt(strings.NewReader("abc"))
	if err == nil {
		t.Fatal("Expected error from short reader")
	}
}
