// Package mocks provides mock implementations of the encryption use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
)

// MockEncryptor is a mock implementation of usecase.Encryptor.
type MockEncryptor struct {
	mock.Mock
}

// NewMockEncryptor creates a MockEncryptor that asserts its expectations on cleanup.
func NewMockEncryptor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEncryptor {
	m := &MockEncryptor{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEncryptor) GetLatestCipher(
	ctx context.Context,
	id string,
) (cryptoService.Cipher, encryptionDomain.EncryptionKeyRef, error) {
	args := m.Called(ctx, id)
	var c cryptoService.Cipher
	if v := args.Get(0); v != nil {
		c = v.(cryptoService.Cipher)
	}
	return c, args.Get(1).(encryptionDomain.EncryptionKeyRef), args.Error(2)
}

func (m *MockEncryptor) GetCipher(ctx context.Context, id string, version uint64) (cryptoService.Cipher, error) {
	args := m.Called(ctx, id, version)
	if v := args.Get(0); v != nil {
		return v.(cryptoService.Cipher), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEncryptor) Encrypt(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
	plaintext []byte,
) (*encryptionDomain.Ciphertext, error) {
	args := m.Called(ctx, info, id, plaintext)
	if v := args.Get(0); v != nil {
		return v.(*encryptionDomain.Ciphertext), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEncryptor) Decrypt(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	ciphertext *encryptionDomain.Ciphertext,
) ([]byte, error) {
	args := m.Called(ctx, info, ciphertext)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEncryptor) Rotate(
	ctx context.Context,
	info encryptionDomain.RequestInfo,
	id string,
) (*encryptionDomain.EncryptionKeyRef, error) {
	args := m.Called(ctx, info, id)
	if v := args.Get(0); v != nil {
		return v.(*encryptionDomain.EncryptionKeyRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEncryptor) Status(ctx context.Context, id string) (*encryptionDomain.KeyStatus, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*encryptionDomain.KeyStatus), args.Error(1)
	}
	return nil, args.Error(1)
}
