package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/kagimori/internal/audit/domain"
	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

const signingKeyInfo = "audit-log-signing-v1"

// SigningLogger attaches an HMAC-SHA256 signature to every event before handing it to
// the next Logger. The HMAC key is derived from a KEK with HKDF-SHA256 so the KEK
// itself is never used for anything but encryption.
type SigningLogger struct {
	next       Logger
	signingKey []byte
}

// NewSigningLogger derives the signing key from kekKey and wraps next.
func NewSigningLogger(next Logger, kekKey []byte) (*SigningLogger, error) {
	if len(kekKey) == 0 {
		return nil, fmt.Errorf("audit signing requires key material: %w", cryptoDomain.ErrInvalidKeySize)
	}

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, kekKey, nil, []byte(signingKeyInfo)), signingKey); err != nil {
		return nil, fmt.Errorf("failed to derive audit signing key: %w", err)
	}
	return &SigningLogger{next: next, signingKey: signingKey}, nil
}

// Log signs log in place and forwards it.
func (s *SigningLogger) Log(ctx context.Context, log *auditDomain.AuditLog) {
	if log == nil || log.Action == nil {
		return
	}
	log.Signature = s.Sign(log)
	s.next.Log(ctx, log)
}

// Sign returns the signature of log. Any existing Signature field is ignored.
func (s *SigningLogger) Sign(log *auditDomain.AuditLog) []byte {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(canonicalize(log))
	return mac.Sum(nil)
}

// Verify checks log.Signature in constant time.
func (s *SigningLogger) Verify(log *auditDomain.AuditLog) error {
	if !hmac.Equal(log.Signature, s.Sign(log)) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}

// Close zeroes the signing key.
func (s *SigningLogger) Close() {
	cryptoDomain.Zero(s.signingKey)
}

// canonicalize encodes every signed field unambiguously:
// be64(unix nanos) || lp(event_id) || lp(service) || lp(user) || lp(kind) ||
// lp(algorithm) || lp(key_id) || be64(version) || presence byte [|| lp(data_key)].
func canonicalize(log *auditDomain.AuditLog) []byte {
	details := log.Action.Details()

	buf := make([]byte, 0, 256)
	buf = binary.BigEndian.AppendUint64(buf, uint64(log.Timestamp.UnixNano()))
	buf = appendLengthPrefixed(buf, log.EventID)
	buf = appendLengthPrefixed(buf, log.Service)
	buf = appendLengthPrefixed(buf, log.User)
	buf = appendLengthPrefixed(buf, string(log.Action.Kind()))
	buf = appendLengthPrefixed(buf, details.Algorithm)
	buf = appendLengthPrefixed(buf, details.KeyID)
	buf = binary.BigEndian.AppendUint64(buf, details.Version)
	if details.DataKey == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendLengthPrefixed(buf, *details.DataKey)
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s))) //nolint:gosec // audit fields are far below 4 GiB
	return append(buf, s...)
}
