package service

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// XChaCha20Poly1305Cipher is the extended-nonce variant of ChaCha20-Poly1305. The
// 24-byte nonce makes random nonces safe for effectively unlimited messages per key.
type XChaCha20Poly1305Cipher struct {
	aeadCipher
}

// NewXChaCha20Poly1305 creates an XChaCha20-Poly1305 cipher. The key must be 32 bytes.
func NewXChaCha20Poly1305(key []byte) (*XChaCha20Poly1305Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: xchacha20-poly1305 requires %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize, chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 cipher: %w", err)
	}
	return &XChaCha20Poly1305Cipher{aeadCipher: newAEADCipher(cryptoDomain.XChaCha20Poly1305, key, aead)}, nil
}
