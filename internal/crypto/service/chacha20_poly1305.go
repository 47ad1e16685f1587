package service

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// ChaCha20Poly1305Cipher is ChaCha20-Poly1305 with a 32-byte key and a 12-byte nonce.
// It is fast on platforms without AES hardware and is the default DEK algorithm.
type ChaCha20Poly1305Cipher struct {
	aeadCipher
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher. The key must be 32 bytes.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: chacha20-poly1305 requires %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize, chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}
	return &ChaCha20Poly1305Cipher{aeadCipher: newAEADCipher(cryptoDomain.ChaCha20Poly1305, key, aead)}, nil
}
