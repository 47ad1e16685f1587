package domain

import (
	"errors"

	apperrors "github.com/allisson/kagimori/internal/errors"
)

// Cryptographic errors. Lookup and input errors wrap the shared sentinels so the HTTP
// layer can classify them; configuration errors are plain and abort startup.
var (
	// ErrUnsupportedAlgorithm indicates an unknown algorithm tag or name. Never
	// answered with a fallback algorithm.
	ErrUnsupportedAlgorithm = apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates key material of the wrong length for its algorithm.
	ErrInvalidKeySize = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key size")

	// ErrAuthenticationFailed indicates the AEAD tag did not verify, or the
	// ciphertext was too short to carry a nonce. The cause is deliberately not
	// distinguished.
	ErrAuthenticationFailed = apperrors.Wrap(apperrors.ErrInvalidInput, "authentication failed")

	// ErrInvalidKeyID indicates a KEK-rotated ciphertext whose 16-byte prefix is not a
	// well-formed identifier.
	ErrInvalidKeyID = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key id")

	// ErrKeyNotFound indicates a KEK identifier absent from the keyring.
	ErrKeyNotFound = apperrors.Wrap(apperrors.ErrNotFound, "key not found")
)

// Keyring configuration errors.
var (
	ErrKeyringNotSet        = errors.New("KEKS or KEK_FILE is not set")
	ErrActiveKekIDNotSet    = errors.New("ACTIVE_KEK_ID is not set")
	ErrActiveKekNotFound    = errors.New("active KEK not found in keyring")
	ErrInvalidKeyringFormat = errors.New("invalid keyring format")
	ErrDuplicateKekID       = errors.New("duplicate KEK id")
)
