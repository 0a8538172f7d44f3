package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// RandomSource supplies the entropy used for key generation and order
// shuffling. It is passed in explicitly so tests can make generation
// deterministic.
type RandomSource interface {
	NextBytes(n int) ([]byte, error)
}

type readerSource struct {
	r io.Reader
}

// ReaderSource adapts an io.Reader into a RandomSource. Short reads are errors.
func ReaderSource(r io.Reader) RandomSource {
	return &readerSource{r: r}
}

// CryptoRandom returns a RandomSource backed by crypto/rand.
func CryptoRandom() RandomSource {
	return &readerSource{r: rand.Reader}
}

func (s *readerSource) NextBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.New("negative byte count")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}

// GenerateContext creates fresh key material for alg.
func GenerateContext(alg Algorithm, src RandomSource) (CipherContext, error) {
	if src == nil {
		return CipherContext{}, errors.New("random source is required")
	}
	if !alg.Valid() {
		return CipherContext{}, fmt.Errorf("%w: unknown algorithm %d", ErrMalformedOrder, int(alg))
	}
	key, err := src.NextBytes(alg.KeySize())
	if err != nil {
		return CipherContext{}, fmt.Errorf("generate %s key: %w", alg, err)
	}
	var nonce []byte
	if size := alg.NonceSize(); size > 0 {
		nonce, err = src.NextBytes(size)
		if err != nil {
			return CipherContext{}, fmt.Errorf("generate %s nonce: %w", alg, err)
		}
	}
	return NewCipherContext(key, nonce, 0), nil
}

// GenerateContexts creates fresh key material for every supported algorithm.
func GenerateContexts(src RandomSource) (Contexts, error) {
	contexts := make(Contexts, len(Algorithms()))
	for _, alg := range Algorithms() {
		ctx, err := GenerateContext(alg, src)
		if err != nil {
			return nil, err
		}
		contexts[alg] = ctx
	}
	return contexts, nil
}

// uniformIndex returns a uniformly distributed value in [0, n) using
// rejection sampling over single bytes. n must be in 1..256.
func uniformIndex(src RandomSource, n int) (int, error) {
	limit := 256 - 256%n
	for {
		b, err := src.NextBytes(1)
		if err != nil {
			return 0, err
		}
		if int(b[0]) < limit {
			return int(b[0]) % n, nil
		}
	}
}
