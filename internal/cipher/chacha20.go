package cipher

import (
	"encoding/binary"
	"math/bits"
)

const (
	// ChaCha20KeySize is the ChaCha20 key length in bytes.
	ChaCha20KeySize = 32
	// ChaCha20NonceSize is the ChaCha20 nonce length in bytes.
	ChaCha20NonceSize = 12

	chachaBlockSize = 64
	chachaRounds    = 20
)

// "expand 32-byte k"
var chachaConstants = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}

// ChaCha20 XORs input with the ChaCha20 keystream for key, nonce and the
// initial block counter. Applying it twice with the same parameters returns
// the original input.
func ChaCha20(input, key, nonce []byte, counter uint32) ([]byte, error) {
	if len(key) != ChaCha20KeySize {
		return nil, keyLengthError(AlgorithmChaCha20, "key", len(key), ChaCha20KeySize)
	}
	if len(nonce) != ChaCha20NonceSize {
		return nil, keyLengthError(AlgorithmChaCha20, "nonce", len(nonce), ChaCha20NonceSize)
	}
	out := make([]byte, len(input))
	if err := chacha20XOR(out, input, key, nonce, counter); err != nil {
		return nil, err
	}
	return out, nil
}

// chacha20XOR writes src XOR keystream into dst. dst and src may be the same slice.
func chacha20XOR(dst, src, key, nonce []byte, counter uint32) error {
	blocks := (uint64(len(src)) + chachaBlockSize - 1) / chachaBlockSize
	if uint64(counter)+blocks > 1<<32 {
		return ErrCounterOverflow
	}

	var state [16]uint32
	copy(state[:4], chachaConstants[:])
	for i := 0; i < 8; i++ {
		state[4+i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	state[12] = counter
	for i := 0; i < 3; i++ {
		state[13+i] = binary.LittleEndian.Uint32(nonce[4*i:])
	}

	var keystream [chachaBlockSize]byte
	for offset := 0; offset < len(src); offset += chachaBlockSize {
		chachaBlock(&keystream, &state)
		state[12]++

		end := offset + chachaBlockSize
		if end > len(src) {
			end = len(src)
		}
		for i := offset; i < end; i++ {
			dst[i] = src[i] ^ keystream[i-offset]
		}
	}
	return nil
}

func chachaBlock(out *[chachaBlockSize]byte, state *[16]uint32) {
	x := *state
	for round := 0; round < chachaRounds; round += 2 {
		// columns
		x[0], x[4], x[8], x[12] = quarterRound(x[0], x[4], x[8], x[12])
		x[1], x[5], x[9], x[13] = quarterRound(x[1], x[5], x[9], x[13])
		x[2], x[6], x[10], x[14] = quarterRound(x[2], x[6], x[10], x[14])
		x[3], x[7], x[11], x[15] = quarterRound(x[3], x[7], x[11], x[15])
		// diagonals
		x[0], x[5], x[10], x[15] = quarterRound(x[0], x[5], x[10], x[15])
		x[1], x[6], x[11], x[12] = quarterRound(x[1], x[6], x[11], x[12])
		x[2], x[7], x[8], x[13] = quarterRound(x[2], x[7], x[8], x[13])
		x[3], x[4], x[9], x[14] = quarterRound(x[3], x[4], x[9], x[14])
	}
	for i := range x {
		binary.LittleEndian.PutUint32(out[4*i:], x[i]+state[i])
	}
}

func quarterRound(a, b, c, d uint32) (uint32, uint32, uint32, uint32) {
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 16)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 12)
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 8)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 7)
	return a, b, c, d
}
