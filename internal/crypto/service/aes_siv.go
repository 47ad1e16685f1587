package service

import (
	"fmt"

	siv "github.com/secure-io/siv-go"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// AESSIVCipher is AES-SIV (RFC 5297) in its CMAC construction with a 64-byte key,
// i.e. AES-256 for both the S2V and CTR halves. A repeated nonce leaks only whether two
// plaintexts are equal.
type AESSIVCipher struct {
	aeadCipher
}

// NewAESSIV creates an AES-SIV cipher. The key must be 64 bytes.
func NewAESSIV(key []byte) (*AESSIVCipher, error) {
	if len(key) != cryptoDomain.AESSIVKeySize {
		return nil, fmt.Errorf("%w: aes-siv requires %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize, cryptoDomain.AESSIVKeySize, len(key))
	}

	aead, err := siv.NewCMAC(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES-SIV cipher: %w", err)
	}
	return &AESSIVCipher{aeadCipher: newAEADCipher(cryptoDomain.AESSIV, key, aead)}, nil
}
