// Package service implements the cipher layer of the envelope encryption hierarchy:
// the concrete AEAD variants, the algorithm registry that dispatches between them,
// and the RotatableCipher that protects everything written to storage with the
// configured KEK keyring.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// Cipher is one authenticated cipher bound to a single key.
//
// The implementing set is closed: ChaCha20Poly1305Cipher, XChaCha20Poly1305Cipher,
// AESSIVCipher, UnencryptedCipher and RotatableCipher. Adding an algorithm means adding
// a variant here and an arm in NewCipher.
type Cipher interface {
	// Encrypt returns nonce ++ AEAD(plaintext). A fresh random nonce is drawn per call.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt reverses Encrypt. It fails with ErrAuthenticationFailed when the input is
	// shorter than a nonce or the tag does not verify.
	Decrypt(ciphertext []byte) ([]byte, error)

	// Name returns the algorithm name, e.g. "chacha20-poly1305".
	Name() string

	// Algorithm returns the algorithm tag.
	Algorithm() cryptoDomain.Algorithm

	// Key returns a copy of the raw key bytes.
	Key() []byte

	sealed()
}

// KMSService opens gocloud.dev/secrets keepers that wrap KEK material at rest.
type KMSService interface {
	// OpenKeeper opens a keeper for the given provider URI.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}
