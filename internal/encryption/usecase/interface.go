package usecase

import (
	"context"

	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
)

// Encryptor manages per-identifier DEKs and encrypts caller data with them.
type Encryptor interface {
	// GetLatestCipher returns the cipher of the latest DEK version for id, creating
	// version 1 when the identifier has no key yet.
	GetLatestCipher(ctx context.Context, id string) (cryptoService.Cipher, encryptionDomain.EncryptionKeyRef, error)

	// GetCipher returns the cipher of an exact DEK version. Never creates keys.
	GetCipher(ctx context.Context, id string, version uint64) (cryptoService.Cipher, error)

	// Encrypt encrypts plaintext under the latest DEK of id.
	Encrypt(
		ctx context.Context,
		info encryptionDomain.RequestInfo,
		id string,
		plaintext []byte,
	) (*encryptionDomain.Ciphertext, error)

	// Decrypt decrypts a ciphertext with the DEK version it names.
	//
	// Callers should zero the returned plaintext once it is no longer needed.
	Decrypt(
		ctx context.Context,
		info encryptionDomain.RequestInfo,
		ciphertext *encryptionDomain.Ciphertext,
	) ([]byte, error)

	// Rotate creates version latest+1 and makes it the latest.
	Rotate(
		ctx context.Context,
		info encryptionDomain.RequestInfo,
		id string,
	) (*encryptionDomain.EncryptionKeyRef, error)

	// Status describes the latest DEK of id without creating one.
	Status(ctx context.Context, id string) (*encryptionDomain.KeyStatus, error)
}
