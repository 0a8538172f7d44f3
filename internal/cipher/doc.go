// Package cipher implements cipherstack's layered byte-stream transforms.
//
// # Layers
//
// Three independent layers are available, identified by Algorithm:
//   - chacha20 - ChaCha20 keystream (32-byte key, 12-byte nonce, 32-bit block counter)
//   - blockstream - a keyed stream generator that borrows the AES S-box for
//     non-linear mixing (16-byte key, 16-byte nonce). It is NOT AES and offers
//     no AES-equivalent security.
//   - xor_avalanche - XOR with the key, per-byte rotation and chained
//     multiplicative mixing (16-64 byte key). Not self-inverse.
//
// # Orchestration
//
// Encrypt applies all three layers in a caller-chosen Order, and Decrypt walks
// the same Order backwards:
//
//	contexts, _ := cipher.GenerateContexts(cipher.CryptoRandom())
//	order, _ := cipher.ShuffleOrder(cipher.CryptoRandom())
//
//	sealed, _ := cipher.Encrypt(plaintext, order, contexts)
//	opened, _ := cipher.Decrypt(sealed, order, contexts)
//
// Ciphertext carries no header. The order and contexts must be stored by the
// caller, typically as a keyset (see internal/keyset).
//
// # Operations and Pipelines
//
// Each layer is also registered as a named Operation taking hex parameters, so
// layers can be chained ad hoc and reversed:
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "chacha20", Parameters: map[string]interface{}{"key": k, "nonce": n}},
//	        {Name: "xor_avalanche_encrypt", Parameters: map[string]interface{}{"key": x}},
//	    },
//	    Reversible: true,
//	}
//	sealed, _ := pipeline.Execute(ctx, data)
//	reversed, _ := pipeline.Reverse()
//	opened, _ := reversed.Execute(ctx, sealed)
//
// A RecipeBook saves pipelines under a name as YAML files.
//
// # Thread Safety
//
// Transforms are pure: each call allocates its own output buffer and never
// retains input or key slices, so independent calls may run concurrently. The
// operation registry is guarded by a read/write mutex.
package cipher
