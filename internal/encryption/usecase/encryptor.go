// Package usecase implements the DEK lifecycle on top of the key-value store.
//
// Every identifier owns a chain of DEK versions. Version records are written once with
// SetIfAbsent and never modified; the latest pointer names the version used for new
// encryptions and only moves forward. All records pass through the KEK-encrypting
// storage wrapper, so this package never sees KEK material.
//
// # First Key Creation
//
// An identifier gets its first DEK lazily, on the first encryption. Concurrent
// instances race with two conditional writes:
//
//  1. SetIfAbsent(keys/{id}/versions/1, fresh key)
//  2. SetIfAbsent(keys/{id}/latest, {id, 1})
//
// Whoever claims version 1 owns its key material; whoever publishes latest decides when
// it becomes visible. Both writes are conditional, so latest can only ever start at
// {id, 1}, and every caller ends up encrypting with the record the pointer resolves
// to. A claimed version 1 is never deleted: once any instance has published the
// pointer, that record may already protect caller data.
//
// # Rotation
//
// Rotate claims version latest+1 with SetIfAbsent and then publishes it as latest.
// Losing the claim reports ErrRotationConflict. Version n+1 can only be claimed by a
// writer that resolved latest to n, so versions form a gapless chain from 1.
//
// The stored pointer is a lower bound. Readers resolve it forward through any
// version record that already exists past it, and writers only publish a pointer
// that is ahead of the stored one. A rotation interrupted between claim and publish,
// or a slow publisher that lands after a faster one, can therefore never make a
// reader see an older version than one it has already been handed.
//
// # Usage Example
//
//	enc, err := usecase.NewEncryptor(store, auditLogger, cryptoDomain.ChaCha20Poly1305, logger)
//
//	ct, err := enc.Encrypt(ctx, info, "svc-a", []byte("secret"))
//	plaintext, err := enc.Decrypt(ctx, info, ct)
//
//	ref, err := enc.Rotate(ctx, info, "svc-a")
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/kagimori/internal/audit/domain"
	auditService "github.com/allisson/kagimori/internal/audit/service"
	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
	apperrors "github.com/allisson/kagimori/internal/errors"
	"github.com/allisson/kagimori/internal/storage"
)

// systemService names the caller of key operations that did not come from a request.
const systemService = "kagimori"

// encryptor implements Encryptor over a storage.Storage that is expected to encrypt
// values at rest.
type encryptor struct {
	storage     storage.Storage
	auditLogger auditService.Logger
	algorithm   cryptoDomain.Algorithm
	logger      *slog.Logger
	now         func() time.Time
}

// NewEncryptor creates an Encryptor that generates new DEKs with alg.
func NewEncryptor(
	store storage.Storage,
	auditLogger auditService.Logger,
	alg cryptoDomain.Algorithm,
	logger *slog.Logger,
) (Encryptor, error) {
	if !alg.IsDataAlgorithm() {
		return nil, fmt.Errorf("%w: %s cannot encrypt data", encryptionDomain.ErrUnsupportedAlgorithm, alg)
	}
	if auditLogger == nil {
		auditLogger = auditService.NewNoopLogger()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &encryptor{
		storage:     store,
		auditLogger: auditLogger,
		algorithm:   alg,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (e *encryptor) GetLatestCipher(
	ctx context.Context,
	id string,
) (cryptoService.Cipher, encryptionDomain.EncryptionKeyRef, error) {
	return e.latestCipher(ctx, systemRequestInfo(), id)
}

func (e *encryptor) GetCipher(ctx context.Context, id string, version uint64) (cryptoService.Cipher, error) {
	if err := encryptionDomain.ValidateIdentifier(id); err != nil {
		return nil, err
	}

	record, err := e.loadVersion(ctx, id, version)
	if err != nil {
		return nil, err
	}
	return cipherFromRecord(record)
}

func (e *encryptor) Encrypt(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
	plaintext []byte,
) (*encryptionDomain.Ciphertext, error) {
	cipher, ref, err := e.latestCipher(ctx, info, id)
	if err != nil {
		return nil, err
	}

	ciphertext, err := cipher.Encrypt(plaintext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt plaintext")
	}

	e.audit(ctx, info, auditDomain.EncryptionAction{
		Algorithm: cipher.Name(),
		KeyID:     id,
		Version:   ref.Version,
		DataKey:   info.DataKey,
	})

	return &encryptionDomain.Ciphertext{
		KeyID:      id,
		Version:    ref.Version,
		Ciphertext: ciphertext,
	}, nil
}

func (e *encryptor) Decrypt(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	ciphertext *encryptionDomain.Ciphertext,
) ([]byte, error) {
	if ciphertext == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "missing ciphertext")
	}

	cipher, err := e.GetCipher(ctx, ciphertext.KeyID, ciphertext.Version)
	if err != nil {
		return nil, err
	}

	plaintext, err := cipher.Decrypt(ciphertext.Ciphertext)
	if err != nil {
		e.logger.DebugContext(ctx, "decryption failed",
			slog.String("key_id", ciphertext.KeyID),
			slog.Uint64("version", ciphertext.Version),
			slog.Any("error", err),
		)
		return nil, err
	}

	e.audit(ctx, info, auditDomain.DecryptionAction{
		Algorithm: cipher.Name(),
		KeyID:     ciphertext.KeyID,
		Version:   ciphertext.Version,
		DataKey:   info.DataKey,
	})
	return plaintext, nil
}

func (e *encryptor) Rotate(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
) (*encryptionDomain.EncryptionKeyRef, error) {
	if err := encryptionDomain.ValidateIdentifier(id); err != nil {
		return nil, err
	}

	current, err := e.readLatest(ctx, id)
	if apperrors.Is(err, encryptionDomain.ErrKeyNotFound) {
		// Rotating an identifier without keys creates its first version.
		_, ref, err := e.createFirstKey(ctx, info, id)
		if err != nil {
			return nil, err
		}
		return &ref, nil
	}
	if err != nil {
		return nil, err
	}

	next := &encryptionDomain.EncryptionKey{ID: id, Version: current.Version + 1, Algorithm: e.algorithm}
	cipher, claimed, err := e.claimVersion(ctx, next)
	if err != nil {
		return nil, err
	}
	ref := next.Ref()
	if err := e.publish(ctx, ref); err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s version %d already exists", encryptionDomain.ErrRotationConflict, id, next.Version)
	}

	e.logger.DebugContext(ctx, "rotated key",
		slog.String("key_id", id),
		slog.Uint64("version", ref.Version),
		slog.String("algorithm", cipher.Name()),
	)
	e.audit(ctx, info, auditDomain.KeyRotationAction{
		Algorithm: cipher.Name(),
		KeyID:     id,
		Version:   ref.Version,
	})
	return &ref, nil
}

func (e *encryptor) Status(ctx context.Context, id string) (*encryptionDomain.KeyStatus, error) {
	if err := encryptionDomain.ValidateIdentifier(id); err != nil {
		return nil, err
	}

	ref, err := e.readLatest(ctx, id)
	if err != nil {
		return nil, err
	}

	record, err := e.loadVersion(ctx, id, ref.Version)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(record.Key)

	return &encryptionDomain.KeyStatus{
		ID:          id,
		Version:     record.Version,
		Algorithm:   record.Algorithm,
		Fingerprint: cryptoDomain.ComputeFingerprint(record.Algorithm, record.Key),
	}, nil
}

// latestCipher resolves the latest DEK of id, creating the first one if needed.
func (e *encryptor) latestCipher(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
) (cryptoService.Cipher, encryptionDomain.EncryptionKeyRef, error) {
	if err := encryptionDomain.ValidateIdentifier(id); err != nil {
		return nil, encryptionDomain.EncryptionKeyRef{}, err
	}

	ref, err := e.readLatest(ctx, id)
	if apperrors.Is(err, encryptionDomain.ErrKeyNotFound) {
		return e.createFirstKey(ctx, info, id)
	}
	if err != nil {
		return nil, encryptionDomain.EncryptionKeyRef{}, err
	}

	record, err := e.loadVersion(ctx, id, ref.Version)
	if err != nil {
		return nil, encryptionDomain.EncryptionKeyRef{}, err
	}
	cipher, err := cipherFromRecord(record)
	if err != nil {
		return nil, encryptionDomain.EncryptionKeyRef{}, err
	}
	return cipher, ref, nil
}

// createFirstKey races other instances for version 1 of id.
func (e *encryptor) createFirstKey(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
) (cryptoService.Cipher, encryptionDomain.EncryptionKeyRef, error) {
	first := &encryptionDomain.EncryptionKey{ID: id, Version: 1, Algorithm: e.algorithm}
	cipher, claimed, err := e.claimVersion(ctx, first)
	if err != nil {
		return nil, encryptionDomain.EncryptionKeyRef{}, err
	}

	ref := first.Ref()
	published, err := e.storage.SetIfAbsent(
		ctx,
		encryptionDomain.LatestPath(id),
		encryptionDomain.MarshalEncryptionKeyRef(ref),
	)
	if err != nil {
		// The pointer may or may not have landed, so the version record stays. A later
		// call publishes it or reads whichever pointer won.
		return nil, encryptionDomain.EncryptionKeyRef{}, fmt.Errorf("failed to publish first key of %s: %w", id, err)
	}

	if !published {
		ref, err = e.readLatest(ctx, id)
		if err != nil {
			return nil, encryptionDomain.EncryptionKeyRef{}, err
		}
	}

	if claimed && ref.Version == 1 {
		if published {
			e.logger.DebugContext(ctx, "created first key",
				slog.String("key_id", id),
				slog.String("algorithm", cipher.Name()),
			)
			e.audit(ctx, info, auditDomain.KeyCreationAction{
				Algorithm: cipher.Name(),
				KeyID:     id,
				Version:   1,
			})
		}
		return cipher, ref, nil
	}

	if claimed {
		// Latest starts at {id, 1} and only moves forward, so it moved past our record:
		// another instance published it and rotated. The record stays as history.
		e.logger.DebugContext(ctx, "first key already rotated",
			slog.String("key_id", id),
			slog.Uint64("version", ref.Version),
		)
	}

	record, err := e.loadVersion(ctx, id, ref.Version)
	if err != nil {
		return nil, encryptionDomain.EncryptionKeyRef{}, err
	}
	winner, err := cipherFromRecord(record)
	if err != nil {
		return nil, encryptionDomain.EncryptionKeyRef{}, err
	}
	return winner, ref, nil
}

// claimVersion generates a key for record and writes it with SetIfAbsent. The cipher
// is returned whether or not the claim succeeded; callers that lost must not use it.
func (e *encryptor) claimVersion(
	ctx context.Context,
	record *encryptionDomain.EncryptionKey,
) (cryptoService.Cipher, bool, error) {
	cipher, err := cryptoService.GenerateCipher(record.Algorithm)
	if err != nil {
		return nil, false, err
	}

	record.Key = cipher.Key()
	value := encryptionDomain.MarshalEncryptionKey(record)
	cryptoDomain.Zero(record.Key)
	record.Key = nil
	defer cryptoDomain.Zero(value)

	claimed, err := e.storage.SetIfAbsent(ctx, encryptionDomain.VersionPath(record.ID, record.Version), value)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store %s version %d: %w", record.ID, record.Version, err)
	}
	return cipher, claimed, nil
}

// publish moves the stored pointer of next.ID to next unless it already points there
// or beyond.
func (e *encryptor) publish(ctx context.Context, next encryptionDomain.EncryptionKeyRef) error {
	stored, err := e.readPointer(ctx, next.ID)
	if err != nil {
		return err
	}
	if stored.Version >= next.Version {
		return nil
	}

	if err := e.storage.Set(ctx, encryptionDomain.LatestPath(next.ID), encryptionDomain.MarshalEncryptionKeyRef(next)); err != nil {
		return fmt.Errorf("failed to publish %s version %d: %w", next.ID, next.Version, err)
	}
	return nil
}

// readLatest resolves the version new encryptions of id must use: the stored pointer,
// advanced through any version records already written past it.
func (e *encryptor) readLatest(ctx context.Context, id string) (encryptionDomain.EncryptionKeyRef, error) {
	ref, err := e.readPointer(ctx, id)
	if err != nil {
		return encryptionDomain.EncryptionKeyRef{}, err
	}

	for {
		exists, err := e.storage.Exists(ctx, encryptionDomain.VersionPath(id, ref.Version+1))
		if err != nil {
			return encryptionDomain.EncryptionKeyRef{}, err
		}
		if !exists {
			return ref, nil
		}
		ref.Version++
		e.logger.DebugContext(ctx, "latest pointer behind stored versions",
			slog.String("key_id", id),
			slog.Uint64("version", ref.Version),
		)
	}
}

func (e *encryptor) readPointer(ctx context.Context, id string) (encryptionDomain.EncryptionKeyRef, error) {
	value, err := e.storage.Get(ctx, encryptionDomain.LatestPath(id))
	if apperrors.Is(err, storage.ErrNotFound) {
		return encryptionDomain.EncryptionKeyRef{}, fmt.Errorf("%w: %s", encryptionDomain.ErrKeyNotFound, id)
	}
	if err != nil {
		return encryptionDomain.EncryptionKeyRef{}, err
	}

	ref, err := encryptionDomain.UnmarshalEncryptionKeyRef(value)
	if err != nil {
		return encryptionDomain.EncryptionKeyRef{}, fmt.Errorf("latest pointer of %s: %w", id, err)
	}
	if ref.ID != id || ref.Version == 0 {
		return encryptionDomain.EncryptionKeyRef{}, fmt.Errorf(
			"%w: latest pointer of %s names %s version %d",
			encryptionDomain.ErrCorruptRecord, id, ref.ID, ref.Version,
		)
	}
	return ref, nil
}

func (e *encryptor) loadVersion(ctx context.Context, id string, version uint64) (*encryptionDomain.EncryptionKey, error) {
	if version == 0 {
		return nil, encryptionDomain.ErrInvalidVersion
	}

	value, err := e.storage.Get(ctx, encryptionDomain.VersionPath(id, version))
	if apperrors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s version %d", encryptionDomain.ErrKeyVersionNotFound, id, version)
	}
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(value)

	record, err := encryptionDomain.UnmarshalEncryptionKey(value)
	if err != nil {
		return nil, fmt.Errorf("%s version %d: %w", id, version, err)
	}
	if record.ID != id || record.Version != version {
		cryptoDomain.Zero(record.Key)
		return nil, fmt.Errorf(
			"%w: %s version %d holds %s version %d",
			encryptionDomain.ErrCorruptRecord, id, version, record.ID, record.Version,
		)
	}
	return record, nil
}

// cipherFromRecord builds the data cipher for record and zeroes its key.
func cipherFromRecord(record *encryptionDomain.EncryptionKey) (cryptoService.Cipher, error) {
	defer cryptoDomain.Zero(record.Key)

	if !record.Algorithm.IsDataAlgorithm() {
		return nil, fmt.Errorf(
			"%w: %s version %d uses %s",
			encryptionDomain.ErrUnsupportedAlgorithm, record.ID, record.Version, record.Algorithm,
		)
	}
	return cryptoService.NewCipher(record.Algorithm, record.Key)
}

func (e *encryptor) audit(ctx context.Context, info encryptionDomain.RequestInfo, action auditDomain.Action) {
	eventID := info.EventID
	if eventID == "" {
		eventID = uuid.Must(uuid.NewV7()).String()
	}

	e.auditLogger.Log(ctx, &auditDomain.AuditLog{
		Timestamp: e.now().UTC(),
		EventID:   eventID,
		Service:   info.Service,
		User:      info.User,
		Action:    action,
	})
}

func systemRequestInfo() encryptionDomain.RequestInfo {
	return encryptionDomain.RequestInfo{Service: systemService}
}
