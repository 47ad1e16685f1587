// Package domain defines audit events: who asked for which key operation, when, and
// with which algorithm.
package domain

import (
	"errors"
	"time"
)

// ErrSignatureInvalid indicates an audit event whose signature does not match its
// contents.
var ErrSignatureInvalid = errors.New("audit log signature is invalid")

// AuditLog is one audited key operation.
type AuditLog struct {
	Timestamp time.Time
	EventID   string
	Service   string
	User      string
	Action    Action
	Signature []byte
}

// ActionKind names an audited operation.
type ActionKind string

const (
	KindEncryption   ActionKind = "encryption"
	KindDecryption   ActionKind = "decryption"
	KindKeyRotation  ActionKind = "key_rotation"
	KindKeyDeletion  ActionKind = "key_deletion"
	KindKeyCreation  ActionKind = "key_creation"
	KindSigning      ActionKind = "signing"
	KindVerification ActionKind = "verification"
)

// ActionDetails is the payload every action carries. Version is zero for actions not
// tied to a DEK version; DataKey is only set by data-plane actions.
type ActionDetails struct {
	Algorithm string
	KeyID     string
	Version   uint64
	DataKey   *string
}

// Action is the closed set of audited operations.
type Action interface {
	Kind() ActionKind
	Details() ActionDetails
	action()
}

// EncryptionAction records caller data encrypted under a DEK.
type EncryptionAction struct {
	Algorithm string
	KeyID     string
	Version   uint64
	DataKey   *string
}

func (a EncryptionAction) Kind() ActionKind { return KindEncryption }
func (a EncryptionAction) Details() ActionDetails {
	return ActionDetails{Algorithm: a.Algorithm, KeyID: a.KeyID, Version: a.Version, DataKey: a.DataKey}
}
func (EncryptionAction) action() {}

// DecryptionAction records caller data decrypted under a DEK.
type DecryptionAction struct {
	Algorithm string
	KeyID     string
	Version   uint64
	DataKey   *string
}

func (a DecryptionAction) Kind() ActionKind { return KindDecryption }
func (a DecryptionAction) Details() ActionDetails {
	return ActionDetails{Algorithm: a.Algorithm, KeyID: a.KeyID, Version: a.Version, DataKey: a.DataKey}
}
func (DecryptionAction) action() {}

// KeyRotationAction records a new DEK version becoming latest.
type KeyRotationAction struct {
	Algorithm string
	KeyID     string
	Version   uint64
}

func (a KeyRotationAction) Kind() ActionKind { return KindKeyRotation }
func (a KeyRotationAction) Details() ActionDetails {
	return ActionDetails{Algorithm: a.Algorithm, KeyID: a.KeyID, Version: a.Version}
}
func (KeyRotationAction) action() {}

// KeyDeletionAction records a DEK version record being removed.
type KeyDeletionAction struct {
	Algorithm string
	KeyID     string
	Version   uint64
}

func (a KeyDeletionAction) Kind() ActionKind { return KindKeyDeletion }
func (a KeyDeletionAction) Details() ActionDetails {
	return ActionDetails{Algorithm: a.Algorithm, KeyID: a.KeyID, Version: a.Version}
}
func (KeyDeletionAction) action() {}

// KeyCreationAction records the first DEK of an identifier.
type KeyCreationAction struct {
	Algorithm string
	KeyID     string
	Version   uint64
}

func (a KeyCreationAction) Kind() ActionKind { return KindKeyCreation }
func (a KeyCreationAction) Details() ActionDetails {
	return ActionDetails{Algorithm: a.Algorithm, KeyID: a.KeyID, Version: a.Version}
}
func (KeyCreationAction) action() {}

// SigningAction records a signature produced with a managed key.
type SigningAction struct {
	Algorithm string
	KeyID     string
	DataKey   *string
}

func (a SigningAction) Kind() ActionKind { return KindSigning }
func (a SigningAction) Details() ActionDetails {
	return ActionDetails{Algorithm: a.Algorithm, KeyID: a.KeyID, DataKey: a.DataKey}
}
func (SigningAction) action() {}

// VerificationAction records a signature checked with a managed key.
type VerificationAction struct {
	Algorithm string
	KeyID     string
	DataKey   *string
}

func (a VerificationAction) Kind() ActionKind { return KindVerification }
func (a VerificationAction) Details() ActionDetails {
	return ActionDetails{Algorithm: a.Algorithm, KeyID: a.KeyID, DataKey: a.DataKey}
}
func (VerificationAction) action() {}
