// Package domain defines the data-encryption-key (DEK) model: versioned key records,
// the latest pointer, the caller-facing ciphertext envelope and the storage layout
// that ties them together.
//
// Storage layout, per identifier:
//
//	keys/{id}/versions/{n}  EncryptionKey, immutable once written
//	keys/{id}/latest        EncryptionKeyRef, only ever advances
package domain

import (
	"fmt"
	"strings"
	"unicode"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// MaxIdentifierLength bounds key identifiers so storage paths stay addressable on
// every backend.
const MaxIdentifierLength = 255

// EncryptionKey is one persisted DEK version.
type EncryptionKey struct {
	ID        string
	Version   uint64
	Algorithm cryptoDomain.Algorithm
	Key       []byte
}

// Ref returns the pointer to this version.
func (k *EncryptionKey) Ref() EncryptionKeyRef {
	return EncryptionKeyRef{ID: k.ID, Version: k.Version}
}

// EncryptionKeyRef points at a DEK version. Stored at keys/{id}/latest.
type EncryptionKeyRef struct {
	ID      string
	Version uint64
}

// Ciphertext is what callers keep: the data ciphertext plus the DEK version needed to
// decrypt it.
type Ciphertext struct {
	KeyID      string
	Version    uint64
	Ciphertext []byte
}

// RequestInfo carries the caller context recorded in audit events.
type RequestInfo struct {
	EventID string
	Service string
	User    string
	DataKey *string
}

// KeyStatus describes the latest DEK of an identifier without exposing key material.
type KeyStatus struct {
	ID          string
	Version     uint64
	Algorithm   cryptoDomain.Algorithm
	Fingerprint [cryptoDomain.FingerprintSize]byte
}

// LatestPath returns the storage key of the latest pointer for id.
func LatestPath(id string) string {
	return "keys/" + id + "/latest"
}

// VersionPath returns the storage key of DEK version n for id.
func VersionPath(id string, version uint64) string {
	return fmt.Sprintf("keys/%s/versions/%d", id, version)
}

// ValidateIdentifier rejects identifiers that cannot be embedded in a storage path.
func ValidateIdentifier(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidKeyIdentifier)
	case len(id) > MaxIdentifierLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKeyIdentifier, MaxIdentifierLength)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKeyIdentifier, id)
	case strings.Contains(id, "/"):
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidKeyIdentifier, id)
	case strings.IndexFunc(id, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: contains control characters", ErrInvalidKeyIdentifier)
	}
	return nil
}
