package service

import (
	"fmt"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// NewKeyringCipher builds the KEK RotatableCipher from a loaded keyring. The keyring
// keeps ownership of its key bytes; the ciphers hold their own copies.
func NewKeyringCipher(keyring *cryptoDomain.Keyring) (*RotatableCipher, error) {
	if keyring == nil || len(keyring.Keys) == 0 {
		return nil, cryptoDomain.ErrKeyringNotSet
	}

	ciphers := make(map[uuid.UUID]Cipher, len(keyring.Keys))
	for _, kek := range keyring.Keys {
		if _, exists := ciphers[kek.ID]; exists {
			return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrDuplicateKekID, kek.ID)
		}

		c, err := NewCipher(kek.Algorithm, kek.Key)
		if err != nil {
			return nil, fmt.Errorf("kek %s: %w", kek.ID, err)
		}
		ciphers[kek.ID] = c
	}

	return NewRotatableCipher(keyring.DefaultID, ciphers)
}
