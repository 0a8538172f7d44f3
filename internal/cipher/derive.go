package cipher

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/hkdf"
)

const deriveInfoPrefix = "cipherstack/"

// DeriveContexts expands secret into key material for every supported
// algorithm with HKDF-SHA256. Each algorithm uses its own info label, so the
// layers never share key bytes. The same secret and salt always yield the same
// contexts.
func DeriveContexts(secret, salt []byte) (Contexts, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: derivation secret is empty", ErrInvalidKeyMaterial)
	}
	contexts := make(Contexts, len(Algorithms()))
	for _, alg := range Algorithms() {
		reader := hkdf.New(sha256.New, secret, salt, []byte(deriveInfoPrefix+alg.String()))
		ctx, err := GenerateContext(alg, ReaderSource(reader))
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", alg, err)
		}
		contexts[alg] = ctx
	}
	return contexts, nil
}
