// Package storage defines the byte-oriented key-value store that holds every piece of
// persistent state, the encrypt-at-rest wrapper that sits on top of it, and a small
// in-memory backend. Durable backends live in the file, etcd and sqlstore
// subpackages.
package storage

import (
	"context"

	apperrors "github.com/allisson/kagimori/internal/errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = apperrors.Wrap(apperrors.ErrNotFound, "storage key not found")

	// ErrInvalidKey is returned for keys a backend cannot address safely.
	ErrInvalidKey = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid storage key")

	// ErrUnavailable wraps failures talking to a remote backend (etcd, SQL).
	ErrUnavailable = apperrors.Wrap(apperrors.ErrUnavailable, "storage backend unavailable")

	// ErrUndecryptable is returned by CryptedStorage.Get when a value is present but
	// cannot be decrypted with the configured KEKs. It is never reported as absent,
	// and the cipher failure behind it is kept as text only so it cannot be mistaken
	// for a lookup or input error.
	ErrUndecryptable = apperrors.Wrap(apperrors.ErrInternal, "stored value could not be decrypted")
)

// Storage is a byte-oriented key-value store. Keys are '/'-delimited and
// case-sensitive. Implementations must be safe for concurrent use and SetIfAbsent
// must be linearizable: of any number of concurrent callers on one key, exactly one
// observes true.
type Storage interface {
	// Set writes value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// SetIfAbsent writes value only when key holds no value and reports whether the
	// write happened.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
}
