package service

import (
	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// UnencryptedCipher passes data through unchanged. It exists so a development keyring
// can run without key material and is refused as a DEK algorithm.
type UnencryptedCipher struct{}

// NewUnencrypted returns the pass-through cipher.
func NewUnencrypted() *UnencryptedCipher {
	return &UnencryptedCipher{}
}

func (UnencryptedCipher) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}

func (UnencryptedCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	return out, nil
}

func (UnencryptedCipher) Name() string {
	return cryptoDomain.Unencrypted.String()
}

func (UnencryptedCipher) Algorithm() cryptoDomain.Algorithm {
	return cryptoDomain.Unencrypted
}

func (UnencryptedCipher) Key() []byte {
	return []byte{}
}

func (UnencryptedCipher) sealed() {}
