package cipher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyMaterial indicates a key or nonce does not match the length a cipher requires.
	ErrInvalidKeyMaterial = errors.New("invalid key material")
	// ErrMissingKeyMaterial indicates an order entry has no corresponding cipher context.
	ErrMissingKeyMaterial = errors.New("missing key material")
	// ErrMalformedOrder indicates an order is not a permutation of the supported algorithms.
	ErrMalformedOrder = errors.New("malformed cipher order")
	// ErrCounterOverflow indicates the input would exhaust the 32-bit block counter.
	ErrCounterOverflow = errors.New("block counter overflow")
)

func keyLengthError(alg Algorithm, field string, got, want int) error {
	return fmt.Errorf("%w: %s %s must be %d bytes, got %d", ErrInvalidKeyMaterial, alg, field, want, got)
}
