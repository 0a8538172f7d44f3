package cipher

import (
	"fmt"
	"strings"
)

// Algorithm identifies one of the transform layers the orchestrator can apply.
type Algorithm int

const (
	AlgorithmChaCha20 Algorithm = iota + 1
	AlgorithmBlockStream
	AlgorithmXorAvalanche
)

// Algorithms returns every supported algorithm in canonical order.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmChaCha20, AlgorithmBlockStream, AlgorithmXorAvalanche}
}

func (a Algorithm) String() string {
	switch a {
	case AlgorithmChaCha20:
		return "chacha20"
	case AlgorithmBlockStream:
		return "blockstream"
	case AlgorithmXorAvalanche:
		return "xor_avalanche"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// Valid reports whether a names a supported algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmChaCha20, AlgorithmBlockStream, AlgorithmXorAvalanche:
		return true
	default:
		return false
	}
}

// ParseAlgorithm resolves an algorithm from its name. Matching is case-insensitive
// and treats '-' and '_' alike.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalised := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for _, alg := range Algorithms() {
		if alg.String() == normalised {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown algorithm %q", ErrMalformedOrder, name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: unknown algorithm %d", ErrMalformedOrder, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// KeySize returns the key length the algorithm requires. XorAvalanche accepts a
// range of lengths; its preferred size is returned.
func (a Algorithm) KeySize() int {
	switch a {
	case AlgorithmChaCha20:
		return ChaCha20KeySize
	case AlgorithmBlockStream:
		return BlockStreamKeySize
	case AlgorithmXorAvalanche:
		return XorAvalancheKeySize
	default:
		return 0
	}
}

// NonceSize returns the nonce length the algorithm requires, or 0 if it takes none.
func (a Algorithm) NonceSize() int {
	switch a {
	case AlgorithmChaCha20:
		return ChaCha20NonceSize
	case AlgorithmBlockStream:
		return BlockStreamNonceSize
	default:
		return 0
	}
}
