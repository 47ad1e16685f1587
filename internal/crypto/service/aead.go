package service

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// aeadCipher holds the framing shared by every AEAD variant: a random nonce prefixed
// to the sealed payload.
type aeadCipher struct {
	alg  cryptoDomain.Algorithm
	aead cipher.AEAD
	key  []byte
}

func newAEADCipher(alg cryptoDomain.Algorithm, key []byte, aead cipher.AEAD) aeadCipher {
	owned := make([]byte, len(key))
	copy(owned, key)
	return aeadCipher{alg: alg, aead: aead, key: owned}
}

func (c *aeadCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	out := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(out, out[:nonceSize], plaintext, nil), nil
}

func (c *aeadCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than %d byte nonce", cryptoDomain.ErrAuthenticationFailed, nonceSize)
	}

	plaintext, err := c.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrAuthenticationFailed, c.alg)
	}
	return plaintext, nil
}

func (c *aeadCipher) Name() string {
	return c.alg.String()
}

func (c *aeadCipher) Algorithm() cryptoDomain.Algorithm {
	return c.alg
}

func (c *aeadCipher) Key() []byte {
	out := make([]byte, len(c.key))
	copy(out, c.key)
	return out
}

// NonceSize returns the length of the nonce prefix.
func (c *aeadCipher) NonceSize() int {
	return c.aead.NonceSize()
}

func (c *aeadCipher) sealed() {}
