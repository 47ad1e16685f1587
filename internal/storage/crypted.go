package storage

import (
	"context"
	"fmt"
)

// Cipher is the part of the cipher layer CryptedStorage needs. In production it is
// the KEK RotatableCipher.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// CryptedStorage encrypts values on the way into a Storage and decrypts them on the
// way out. Key names are stored as given.
type CryptedStorage struct {
	inner  Storage
	cipher Cipher
}

// NewCryptedStorage wraps inner so every value is encrypted with cipher at rest.
func NewCryptedStorage(inner Storage, cipher Cipher) *CryptedStorage {
	return &CryptedStorage{inner: inner, cipher: cipher}
}

func (c *CryptedStorage) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := c.cipher.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt value for %s: %w", key, err)
	}
	return c.inner.Set(ctx, key, sealed)
}

func (c *CryptedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	value, err := c.cipher.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecryptable, key, err)
	}
	return value, nil
}

func (c *CryptedStorage) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *CryptedStorage) Exists(ctx context.Context, key string) (bool, error) {
	return c.inner.Exists(ctx, key)
}

func (c *CryptedStorage) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	sealed, err := c.cipher.Encrypt(value)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt value for %s: %w", key, err)
	}
	return c.inner.SetIfAbsent(ctx, key, sealed)
}
