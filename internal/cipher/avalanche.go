package cipher

import "math/bits"

const (
	// XorAvalancheMinKeySize is the shortest key XorAvalanche accepts.
	XorAvalancheMinKeySize = 16
	// XorAvalancheMaxKeySize is the longest key XorAvalanche accepts.
	XorAvalancheMaxKeySize = 64
	// XorAvalancheKeySize is the key length used when generating or deriving keys.
	XorAvalancheKeySize = 32

	avalancheMultiplier uint32 = 0x9E3779B1
)

// XorAvalanche applies the three-pass XOR/rotate/chained-state transform. It is
// not self-inverse; use XorAvalancheInverse to undo it.
//
// Pass 3 carries state across the whole buffer, so a buffer encrypted in one
// call must be decrypted in one call.
func XorAvalanche(input, key []byte) ([]byte, error) {
	if err := validateAvalancheKey(key); err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	copy(out, input)
	avalancheForward(out, key)
	return out, nil
}

// XorAvalancheInverse undoes XorAvalanche for the same key.
func XorAvalancheInverse(input, key []byte) ([]byte, error) {
	if err := validateAvalancheKey(key); err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	copy(out, input)
	avalancheInverse(out, key)
	return out, nil
}

func validateAvalancheKey(key []byte) error {
	return NewCipherContext(key, nil, 0).Validate(AlgorithmXorAvalanche)
}

func avalancheForward(data, key []byte) {
	for i := range data {
		data[i] ^= avalancheMask(key, i)
	}
	for i := range data {
		data[i] = bits.RotateLeft8(data[i], i%8)
	}

	// The mask is taken after the multiply and before the byte is absorbed;
	// masking after absorption would cancel the byte out of the output.
	state := avalancheSeed(key)
	for i := range data {
		state *= avalancheMultiplier
		plain := data[i]
		data[i] ^= byte(state)
		state ^= uint32(plain)
	}
}

func avalancheInverse(data, key []byte) {
	state := avalancheSeed(key)
	for i := range data {
		state *= avalancheMultiplier
		data[i] ^= byte(state)
		state ^= uint32(data[i])
	}
	for i := range data {
		data[i] = bits.RotateLeft8(data[i], -(i % 8))
	}
	for i := range data {
		data[i] ^= avalancheMask(key, i)
	}
}

func avalancheMask(key []byte, i int) byte {
	return key[i%len(key)] ^ (byte(i) ^ byte(i>>8))
}

func avalancheSeed(key []byte) uint32 {
	var seed uint32
	for _, b := range key {
		seed += uint32(b)
	}
	return seed
}
