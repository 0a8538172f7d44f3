package cipher

import (
	"bytes"
	"fmt"
)

// CipherContext holds the key material for a single layer. Values are copied on
// the way in and on the way out, so a context never aliases caller memory.
type CipherContext struct {
	key     []byte
	nonce   []byte
	counter uint32
}

// NewCipherContext builds a context from key, nonce and initial block counter.
// Algorithms that take no nonce or counter ignore them.
func NewCipherContext(key, nonce []byte, counter uint32) CipherContext {
	return CipherContext{
		key:     bytes.Clone(key),
		nonce:   bytes.Clone(nonce),
		counter: counter,
	}
}

// Key returns a copy of the key.
func (c CipherContext) Key() []byte { return bytes.Clone(c.key) }

// Nonce returns a copy of the nonce.
func (c CipherContext) Nonce() []byte { return bytes.Clone(c.nonce) }

// Counter returns the initial block counter.
func (c CipherContext) Counter() uint32 { return c.counter }

// Equal reports whether two contexts carry identical material.
func (c CipherContext) Equal(other CipherContext) bool {
	return c.counter == other.counter && bytes.Equal(c.key, other.key) && bytes.Equal(c.nonce, other.nonce)
}

// Validate checks the context against the requirements of alg.
func (c CipherContext) Validate(alg Algorithm) error {
	switch alg {
	case AlgorithmChaCha20:
		if len(c.key) != ChaCha20KeySize {
			return keyLengthError(alg, "key", len(c.key), ChaCha20KeySize)
		}
		if len(c.nonce) != ChaCha20NonceSize {
			return keyLengthError(alg, "nonce", len(c.nonce), ChaCha20NonceSize)
		}
	case AlgorithmBlockStream:
		if len(c.key) != BlockStreamKeySize {
			return keyLengthError(alg, "key", len(c.key), BlockStreamKeySize)
		}
		if len(c.nonce) != BlockStreamNonceSize {
			return keyLengthError(alg, "nonce", len(c.nonce), BlockStreamNonceSize)
		}
	case AlgorithmXorAvalanche:
		if len(c.key) < XorAvalancheMinKeySize || len(c.key) > XorAvalancheMaxKeySize {
			return fmt.Errorf("%w: %s key must be %d-%d bytes, got %d", ErrInvalidKeyMaterial, alg,
				XorAvalancheMinKeySize, XorAvalancheMaxKeySize, len(c.key))
		}
	default:
		return fmt.Errorf("%w: unknown algorithm %d", ErrMalformedOrder, int(alg))
	}
	return nil
}

// Contexts maps each algorithm to the key material used for its layer.
type Contexts map[Algorithm]CipherContext
