package usecase

import (
	"context"
	"time"

	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
	"github.com/allisson/kagimori/internal/metrics"
)

const metricsDomain = "encryption"

// encryptorWithMetrics decorates Encryptor with metrics instrumentation.
type encryptorWithMetrics struct {
	next    Encryptor
	metrics metrics.BusinessMetrics
}

// NewEncryptorWithMetrics wraps an Encryptor with metrics recording.
func NewEncryptorWithMetrics(encryptor Encryptor, m metrics.BusinessMetrics) Encryptor {
	return &encryptorWithMetrics{
		next:    encryptor,
		metrics: m,
	}
}

func (e *encryptorWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusFromError(err)
	e.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	e.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// GetLatestCipher records metrics for latest cipher lookups.
func (e *encryptorWithMetrics) GetLatestCipher(
	ctx context.Context,
	id string,
) (cryptoService.Cipher, encryptionDomain.EncryptionKeyRef, error) {
	start := time.Now()
	cipher, ref, err := e.next.GetLatestCipher(ctx, id)
	e.record(ctx, "get_latest_cipher", start, err)
	return cipher, ref, err
}

// GetCipher records metrics for versioned cipher lookups.
func (e *encryptorWithMetrics) GetCipher(ctx context.Context, id string, version uint64) (cryptoService.Cipher, error) {
	start := time.Now()
	cipher, err := e.next.GetCipher(ctx, id, version)
	e.record(ctx, "get_cipher", start, err)
	return cipher, err
}

// Encrypt records metrics for encryption operations.
func (e *encryptorWithMetrics) Encrypt(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
	plaintext []byte,
) (*encryptionDomain.Ciphertext, error) {
	start := time.Now()
	ciphertext, err := e.next.Encrypt(ctx, info, id, plaintext)
	e.record(ctx, "encrypt", start, err)
	return ciphertext, err
}

// Decrypt records metrics for decryption operations.
func (e *encryptorWithMetrics) Decrypt(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	ciphertext *encryptionDomain.Ciphertext,
) ([]byte, error) {
	start := time.Now()
	plaintext, err := e.next.Decrypt(ctx, info, ciphertext)
	e.record(ctx, "decrypt", start, err)
	return plaintext, err
}

// Rotate records metrics for key rotation operations.
func (e *encryptorWithMetrics) Rotate(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
) (*encryptionDomain.EncryptionKeyRef, error) {
	start := time.Now()
	ref, err := e.next.Rotate(ctx, info, id)
	e.record(ctx, "rotate", start, err)
	return ref, err
}

// Status records metrics for key status lookups.
func (e *encryptorWithMetrics) Status(ctx context.Context, id string) (*encryptionDomain.KeyStatus, error) {
	start := time.Now()
	status, err := e.next.Status(ctx, id)
	e.record(ctx, "status", start, err)
	return status, err
}
