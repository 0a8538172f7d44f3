// Package keyset persists the layer order and key material needed to reverse
// a cipherstack encryption. Key bytes are stored as decimal strings together
// with their byte lengths, so leading zero bytes survive a round trip.
package keyset

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/RowanDark/cipherstack/internal/cipher"
	"github.com/RowanDark/cipherstack/internal/keycodec"
)

var (
	// ErrKeysetNotFound indicates no keyset is stored under the requested id or name.
	ErrKeysetNotFound = errors.New("keyset not found")
	// ErrFingerprintMismatch indicates stored key material no longer matches its fingerprint.
	ErrFingerprintMismatch = errors.New("keyset fingerprint mismatch")
	// ErrNameRequired indicates a keyset was created without a name.
	ErrNameRequired = errors.New("keyset name is required")
	// ErrUnreadableKeyset marks a file List skipped because it failed to parse or verify.
	ErrUnreadableKeyset = errors.New("unreadable keyset")
)

const fingerprintSize = 16

// Layer is the serialised key material of one cipher layer.
type Layer struct {
	Key         string `yaml:"key"`
	KeyLength   int    `yaml:"key_length"`
	Nonce       string `yaml:"nonce,omitempty"`
	NonceLength int    `yaml:"nonce_length,omitempty"`
	Counter     uint32 `yaml:"counter,omitempty"`
}

// Keyset is everything needed to decrypt data produced by cipher.Encrypt.
type Keyset struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Order       []string         `yaml:"order"`
	Layers      map[string]Layer `yaml:"layers"`
	Fingerprint string           `yaml:"fingerprint"`
	CreatedAt   time.Time        `yaml:"created_at"`
	UpdatedAt   time.Time        `yaml:"updated_at"`
}

// New builds a keyset from an order and the contexts for every layer in it.
func New(name string, order cipher.Order, contexts cipher.Contexts) (*Keyset, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	ks := &Keyset{
		Name:   name,
		Order:  order.Strings(),
		Layers: make(map[string]Layer, len(order)),
	}
	for _, alg := range order {
		ctx, ok := contexts[alg]
		if !ok {
			return nil, fmt.Errorf("%w: no context for %s", cipher.ErrMissingKeyMaterial, alg)
		}
		if err := ctx.Validate(alg); err != nil {
			return nil, err
		}
		key, nonce := ctx.Key(), ctx.Nonce()
		layer := Layer{
			Key:       keycodec.BytesToDecimal(key),
			KeyLength: len(key),
			Counter:   ctx.Counter(),
		}
		if len(nonce) > 0 {
			layer.Nonce = keycodec.BytesToDecimal(nonce)
			layer.NonceLength = len(nonce)
		}
		ks.Layers[alg.String()] = layer
	}

	fingerprint, err := ks.computeFingerprint()
	if err != nil {
		return nil, err
	}
	ks.Fingerprint = fingerprint
	return ks, nil
}

// Generate creates a keyset with a shuffled order and fresh key material.
func Generate(name string, src cipher.RandomSource) (*Keyset, error) {
	order, err := cipher.ShuffleOrder(src)
	if err != nil {
		return nil, err
	}
	contexts, err := cipher.GenerateContexts(src)
	if err != nil {
		return nil, err
	}
	return New(name, order, contexts)
}

// Derive creates a keyset whose key material is derived from secret and salt.
// Deriving twice with the same inputs yields the same fingerprint.
func Derive(name string, secret, salt []byte, order cipher.Order) (*Keyset, error) {
	contexts, err := cipher.DeriveContexts(secret, salt)
	if err != nil {
		return nil, err
	}
	return New(name, order, contexts)
}

// CipherOrder decodes the stored layer order.
func (k *Keyset) CipherOrder() (cipher.Order, error) {
	order := make(cipher.Order, 0, len(k.Order))
	for _, name := range k.Order {
		alg, err := cipher.ParseAlgorithm(name)
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

// Contexts decodes the stored key material for every layer in the order.
func (k *Keyset) Contexts() (cipher.Contexts, error) {
	order, err := k.CipherOrder()
	if err != nil {
		return nil, err
	}
	contexts := make(cipher.Contexts, len(order))
	for _, alg := range order {
		layer, ok := k.Layers[alg.String()]
		if !ok {
			return nil, fmt.Errorf("%w: keyset has no %s layer", cipher.ErrMissingKeyMaterial, alg)
		}
		if err := checkLayerLengths(alg, layer); err != nil {
			return nil, err
		}
		key, err := keycodec.DecimalToBytes(layer.Key, layer.KeyLength)
		if err != nil {
			return nil, fmt.Errorf("decode %s key: %w", alg, err)
		}
		var nonce []byte
		if layer.NonceLength > 0 {
			nonce, err = keycodec.DecimalToBytes(layer.Nonce, layer.NonceLength)
			if err != nil {
				return nil, fmt.Errorf("decode %s nonce: %w", alg, err)
			}
		}
		ctx := cipher.NewCipherContext(key, nonce, layer.Counter)
		if err := ctx.Validate(alg); err != nil {
			return nil, err
		}
		contexts[alg] = ctx
	}
	return contexts, nil
}

// checkLayerLengths bounds the stored lengths before any buffer is sized from them.
func checkLayerLengths(alg cipher.Algorithm, layer Layer) error {
	if alg == cipher.AlgorithmXorAvalanche {
		if layer.KeyLength < cipher.XorAvalancheMinKeySize || layer.KeyLength > cipher.XorAvalancheMaxKeySize {
			return fmt.Errorf("%w: %s key_length must be %d-%d, got %d", cipher.ErrInvalidKeyMaterial, alg,
				cipher.XorAvalancheMinKeySize, cipher.XorAvalancheMaxKeySize, layer.KeyLength)
		}
	} else if layer.KeyLength != alg.KeySize() {
		return fmt.Errorf("%w: %s key_length must be %d, got %d", cipher.ErrInvalidKeyMaterial, alg,
			alg.KeySize(), layer.KeyLength)
	}
	if layer.NonceLength != alg.NonceSize() {
		return fmt.Errorf("%w: %s nonce_length must be %d, got %d", cipher.ErrInvalidKeyMaterial, alg,
			alg.NonceSize(), layer.NonceLength)
	}
	return nil
}

// Verify recomputes the fingerprint and compares it with the stored one.
func (k *Keyset) Verify() error {
	fingerprint, err := k.computeFingerprint()
	if err != nil {
		return err
	}
	if fingerprint != k.Fingerprint {
		return fmt.Errorf("%w: keyset %s", ErrFingerprintMismatch, k.ID)
	}
	return nil
}

// Encrypt runs cipher.Encrypt with this keyset's order and contexts.
func (k *Keyset) Encrypt(plaintext []byte) ([]byte, error) {
	order, contexts, err := k.material()
	if err != nil {
		return nil, err
	}
	return cipher.Encrypt(plaintext, order, contexts)
}

// Decrypt runs cipher.Decrypt with this keyset's order and contexts.
func (k *Keyset) Decrypt(ciphertext []byte) ([]byte, error) {
	order, contexts, err := k.material()
	if err != nil {
		return nil, err
	}
	return cipher.Decrypt(ciphertext, order, contexts)
}

func (k *Keyset) material() (cipher.Order, cipher.Contexts, error) {
	order, err := k.CipherOrder()
	if err != nil {
		return nil, nil, err
	}
	contexts, err := k.Contexts()
	if err != nil {
		return nil, nil, err
	}
	return order, contexts, nil
}

// computeFingerprint hashes the decoded order and key material, so two
// encodings of the same keys share a fingerprint.
func (k *Keyset) computeFingerprint() (string, error) {
	order, err := k.CipherOrder()
	if err != nil {
		return "", err
	}
	contexts, err := k.Contexts()
	if err != nil {
		return "", err
	}

	h := blake3.New()
	var scratch [4]byte
	for _, alg := range order {
		ctx := contexts[alg]
		h.Write([]byte(alg.String()))
		for _, field := range [][]byte{ctx.Key(), ctx.Nonce()} {
			binary.BigEndian.PutUint32(scratch[:], uint32(len(field)))
			h.Write(scratch[:])
			h.Write(field)
		}
		binary.BigEndian.PutUint32(scratch[:], ctx.Counter())
		h.Write(scratch[:])
	}
	return hex.EncodeToString(h.Sum(nil)[:fingerprintSize]), nil
}
