package cipher

import (
	"errors"
	"fmt"
	"strings"
)

// Order is the sequence in which layers are applied during encryption.
// Decryption walks it backwards.
type Order []Algorithm

// DefaultOrder returns the canonical layer order.
func DefaultOrder() Order {
	return Order(Algorithms())
}

// ParseOrder parses a comma separated list of algorithm names.
func ParseOrder(spec string) (Order, error) {
	parts := strings.Split(spec, ",")
	order := make(Order, 0, len(parts))
	for _, part := range parts {
		alg, err := ParseAlgorithm(part)
		if err != nil {
			return nil, err
		}
		order = append(order, alg)
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate checks that o holds every supported algorithm exactly once.
func (o Order) Validate() error {
	supported := Algorithms()
	if len(o) != len(supported) {
		return fmt.Errorf("%w: expected %d layers, got %d", ErrMalformedOrder, len(supported), len(o))
	}
	seen := make(map[Algorithm]bool, len(o))
	for _, alg := range o {
		if !alg.Valid() {
			return fmt.Errorf("%w: unknown algorithm %d", ErrMalformedOrder, int(alg))
		}
		if seen[alg] {
			return fmt.Errorf("%w: %s appears more than once", ErrMalformedOrder, alg)
		}
		seen[alg] = true
	}
	return nil
}

// Strings returns the algorithm names in order.
func (o Order) Strings() []string {
	names := make([]string, len(o))
	for i, alg := range o {
		names[i] = alg.String()
	}
	return names
}

func (o Order) String() string {
	return strings.Join(o.Strings(), ",")
}

// ShuffleOrder returns a uniformly random permutation of the supported
// algorithms using a Fisher-Yates shuffle driven by src.
func ShuffleOrder(src RandomSource) (Order, error) {
	if src == nil {
		return nil, errors.New("random source is required")
	}
	order := DefaultOrder()
	for i := len(order) - 1; i > 0; i-- {
		j, err := uniformIndex(src, i+1)
		if err != nil {
			return nil, fmt.Errorf("shuffle order: %w", err)
		}
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Encrypt applies each layer of order to a copy of input. contexts must hold
// key material for every layer; nothing is transformed until all of it has
// been validated.
func Encrypt(input []byte, order Order, contexts Contexts) ([]byte, error) {
	if err := checkLayers(order, contexts); err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	copy(out, input)
	for _, alg := range order {
		if err := applyLayer(alg, out, contexts[alg], false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Decrypt undoes Encrypt given the same order and contexts.
func Decrypt(input []byte, order Order, contexts Contexts) ([]byte, error) {
	if err := checkLayers(order, contexts); err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	copy(out, input)
	for i := len(order) - 1; i >= 0; i-- {
		alg := order[i]
		if err := applyLayer(alg, out, contexts[alg], true); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkLayers(order Order, contexts Contexts) error {
	if err := order.Validate(); err != nil {
		return err
	}
	for _, alg := range order {
		ctx, ok := contexts[alg]
		if !ok {
			return fmt.Errorf("%w: no context for %s", ErrMissingKeyMaterial, alg)
		}
		if err := ctx.Validate(alg); err != nil {
			return err
		}
	}
	return nil
}

// applyLayer transforms buf in place.
func applyLayer(alg Algorithm, buf []byte, ctx CipherContext, inverse bool) error {
	switch alg {
	case AlgorithmChaCha20:
		return chacha20XOR(buf, buf, ctx.key, ctx.nonce, ctx.counter)
	case AlgorithmBlockStream:
		blockStreamXOR(buf, buf, ctx.key, ctx.nonce)
		return nil
	case AlgorithmXorAvalanche:
		if inverse {
			avalancheInverse(buf, ctx.key)
		} else {
			avalancheForward(buf, ctx.key)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown algorithm %d", ErrMalformedOrder, int(alg))
	}
}
