package domain

import (
	"errors"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	apperrors "github.com/allisson/kagimori/internal/errors"
)

// DEK lifecycle errors.
var (
	// ErrKeyNotFound indicates an identifier with no DEK yet.
	ErrKeyNotFound = apperrors.Wrap(apperrors.ErrNotFound, "key not found")

	// ErrKeyVersionNotFound indicates a version record that does not exist.
	ErrKeyVersionNotFound = apperrors.Wrap(apperrors.ErrNotFound, "key version not found")

	// ErrUnsupportedAlgorithm indicates a stored record whose algorithm this build does
	// not know, or one that is not valid for data.
	ErrUnsupportedAlgorithm = cryptoDomain.ErrUnsupportedAlgorithm

	// ErrRotationConflict indicates another writer claimed the next version first.
	ErrRotationConflict = apperrors.Wrap(apperrors.ErrConflict, "key rotation conflict")

	// ErrInvalidKeyIdentifier indicates an identifier that cannot be stored.
	ErrInvalidKeyIdentifier = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key identifier")

	// ErrInvalidVersion indicates version 0, which is never assigned.
	ErrInvalidVersion = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key version")

	// ErrCorruptRecord indicates a stored record that does not parse.
	ErrCorruptRecord = errors.New("corrupt key record")
)
