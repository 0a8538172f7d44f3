package cipher

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestBlockStreamKnownAnswer(t *testing.T) {
	key := sequentialBytes(0x00, 16)
	nonce := sequentialBytes(0x10, 16)

	ciphertext, err := BlockStream([]byte("Hello, World!"), key, nonce)
	if err != nil {
		t.Fatalf("BlockStream: %v", err)
	}

	const expected = "ff99fd495d16d19c53de839e5c"
	if got := hex.EncodeToString(ciphertext); got != expected {
		t.Fatalf("expected %s, got %s", expected, got)
	}
}

func TestBlockStreamRoundTrip(t *testing.T) {
	key := sequentialBytes(0xA0, 16)
	nonce := sequentialBytes(0x05, 16)

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"single byte", 1},
		{"one state width", 16},
		{"partial second width", 17},
		{"wraps position byte", 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := sequentialBytes(0x33, tt.size)

			sealed, err := BlockStream(input, key, nonce)
			if err != nil {
				t.Fatalf("BlockStream: %v", err)
			}
			if len(sealed) != len(input) {
				t.Fatalf("expected length %d, got %d", len(input), len(sealed))
			}
			if tt.size > 0 && bytes.Equal(sealed, input) {
				t.Fatal("ciphertext equals plaintext")
			}

			opened, err := BlockStream(sealed, key, nonce)
			if err != nil {
				t.Fatalf("BlockStream reverse: %v", err)
			}
			if !bytes.Equal(opened, input) {
				t.Fatalf("roundtrip failed for %d bytes", tt.size)
			}
		})
	}
}

func TestBlockStreamNonceChangesKeystream(t *testing.T) {
	key := sequentialBytes(0x01, 16)
	input := make([]byte, 48)

	a, err := BlockStream(input, key, make([]byte, 16))
	if err != nil {
		t.Fatalf("BlockStream: %v", err)
	}
	b, err := BlockStream(input, key, sequentialBytes(0x01, 16))
	if err != nil {
		t.Fatalf("BlockStream: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different nonces produced identical keystreams")
	}
}

func TestBlockStreamInvalidKeyMaterial(t *testing.T) {
	if _, err := BlockStream(nil, make([]byte, 32), make([]byte, 16)); !errors.Is(err, ErrInvalidKeyMaterial) {
		t.Fatalf("expected ErrInvalidKeyMaterial for 32-byte key, got %v", err)
	}
	if _, err := BlockStream(nil, make([]byte, 16), make([]byte, 12)); !errors.Is(err, ErrInvalidKeyMaterial) {
		t.Fatalf("expected ErrInvalidKeyMaterial for 12-byte nonce, got %v", err)
	}
}

func TestSBoxIsPermutation(t *testing.T) {
	var seen [256]bool
	for _, v := range sbox {
		if seen[v] {
			t.Fatalf("value 0x%02x appears twice", v)
		}
		seen[v] = true
	}
	if sbox[0x00] != 0x63 || sbox[0x53] != 0xed || sbox[0xff] != 0x16 {
		t.Fatal("sbox does not match the AES forward table")
	}
}
