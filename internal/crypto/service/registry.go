package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// NewCipher builds the cipher variant for alg. Unknown tags are rejected; there is no
// fallback algorithm.
func NewCipher(alg cryptoDomain.Algorithm, key []byte) (Cipher, error) {
	switch alg {
	case cryptoDomain.Unencrypted:
		if len(key) != 0 {
			return nil, fmt.Errorf("%w: unencrypted takes no key, got %d bytes", cryptoDomain.ErrInvalidKeySize, len(key))
		}
		return NewUnencrypted(), nil
	case cryptoDomain.ChaCha20Poly1305:
		return NewChaCha20Poly1305(key)
	case cryptoDomain.AESSIV:
		return NewAESSIV(key)
	case cryptoDomain.XChaCha20Poly1305:
		return NewXChaCha20Poly1305(key)
	default:
		return nil, fmt.Errorf("%w: tag 0x%04x", cryptoDomain.ErrUnsupportedAlgorithm, uint16(alg))
	}
}

// GenerateCipher creates a cipher for alg with a fresh random key.
func GenerateCipher(alg cryptoDomain.Algorithm) (Cipher, error) {
	size := alg.KeySize()
	if size < 0 {
		return nil, fmt.Errorf("%w: tag 0x%04x", cryptoDomain.ErrUnsupportedAlgorithm, uint16(alg))
	}

	key := make([]byte, size)
	defer cryptoDomain.Zero(key)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewCipher(alg, key)
}

// ExportTaggedKey returns be16(algorithm) ++ key for c.
func ExportTaggedKey(c Cipher) ([]byte, error) {
	key := c.Key()
	defer cryptoDomain.Zero(key)
	return cryptoDomain.MarshalTaggedKey(c.Algorithm(), key)
}

// ImportTaggedKey builds a cipher from the be16(algorithm) ++ key encoding.
func ImportTaggedKey(blob []byte) (Cipher, error) {
	alg, key, err := cryptoDomain.UnmarshalTaggedKey(blob)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)
	return NewCipher(alg, key)
}
