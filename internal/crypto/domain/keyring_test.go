package domain

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockKeeper struct {
	mock.Mock
}

func (m *mockKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKeeper) Close() error {
	return m.Called().Error(0)
}

func taggedB64(t *testing.T, alg Algorithm, key []byte) string {
	t.Helper()
	blob, err := MarshalTaggedKey(alg, key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(blob)
}

func TestParseKeyring(t *testing.T) {
	ctx := context.Background()
	idA := uuid.MustParse("0190d3a4-0000-7000-8000-00000000000a")
	idB := uuid.MustParse("0190d3a4-0000-7000-8000-00000000000b")
	keyA := bytes.Repeat([]byte{0xaa}, 32)
	keyB := bytes.Repeat([]byte{0xbb}, 64)

	entryA := idA.String() + ":" + taggedB64(t, ChaCha20Poly1305, keyA)
	entryB := idB.String() + ":" + taggedB64(t, AESSIV, keyB)

	tests := []struct {
		name     string
		raw      string
		active   string
		wantErr  error
		validate func(t *testing.T, kr *Keyring)
	}{
		{
			name:   "single key",
			raw:    entryA,
			active: idA.String(),
			validate: func(t *testing.T, kr *Keyring) {
				kek, ok := kr.Default()
				require.True(t, ok)
				assert.Equal(t, idA, kek.ID)
				assert.Equal(t, ChaCha20Poly1305, kek.Algorithm)
				assert.Equal(t, keyA, kek.Key)
			},
		},
		{
			name:   "rotated keyring with whitespace",
			raw:    " " + entryA + " , " + entryB + " ",
			active: idB.String(),
			validate: func(t *testing.T, kr *Keyring) {
				assert.Len(t, kr.Keys, 2)
				assert.Equal(t, idB, kr.DefaultID)
				old, ok := kr.Get(idA)
				require.True(t, ok)
				assert.Equal(t, keyA, old.Key)
			},
		},
		{name: "keks not set", raw: "", active: idA.String(), wantErr: ErrKeyringNotSet},
		{name: "active not set", raw: entryA, active: "", wantErr: ErrActiveKekIDNotSet},
		{name: "active not a uuid", raw: entryA, active: "nope", wantErr: ErrInvalidKeyringFormat},
		{name: "active missing from keyring", raw: entryA, active: idB.String(), wantErr: ErrActiveKekNotFound},
		{name: "entry without separator", raw: "garbage", active: idA.String(), wantErr: ErrInvalidKeyringFormat},
		{name: "entry id not a uuid", raw: "abc:" + taggedB64(t, ChaCha20Poly1305, keyA), active: idA.String(), wantErr: ErrInvalidKeyringFormat},
		{name: "invalid base64", raw: idA.String() + ":!!!", active: idA.String(), wantErr: ErrInvalidKeyringFormat},
		{name: "duplicate id", raw: entryA + "," + entryA, active: idA.String(), wantErr: ErrDuplicateKekID},
		{
			name:    "unknown algorithm tag",
			raw:     idA.String() + ":" + base64.StdEncoding.EncodeToString(append([]byte{0x09, 0x09}, keyA...)),
			active:  idA.String(),
			wantErr: ErrUnsupportedAlgorithm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kr, err := ParseKeyring(ctx, tt.raw, tt.active, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, kr)
				return
			}
			require.NoError(t, err)
			tt.validate(t, kr)
		})
	}
}

func TestParseKeyring_WithKMS(t *testing.T) {
	ctx := context.Background()
	id := uuid.MustParse("0190d3a4-0000-7000-8000-00000000000a")
	key := bytes.Repeat([]byte{0x42}, 32)
	tagged, err := MarshalTaggedKey(ChaCha20Poly1305, key)
	require.NoError(t, err)

	t.Run("unwraps through keeper", func(t *testing.T) {
		keeper := &mockKeeper{}
		keeper.On("Decrypt", ctx, []byte("wrapped")).Return(append([]byte(nil), tagged...), nil).Once()

		raw := id.String() + ":" + base64.StdEncoding.EncodeToString([]byte("wrapped"))
		kr, err := ParseKeyring(ctx, raw, id.String(), keeper)
		require.NoError(t, err)

		kek, ok := kr.Default()
		require.True(t, ok)
		assert.Equal(t, key, kek.Key)
		keeper.AssertExpectations(t)
	})

	t.Run("keeper failure", func(t *testing.T) {
		keeper := &mockKeeper{}
		keeper.On("Decrypt", ctx, mock.Anything).Return(nil, errors.New("kms down")).Once()

		raw := id.String() + ":" + base64.StdEncoding.EncodeToString([]byte("wrapped"))
		kr, err := ParseKeyring(ctx, raw, id.String(), keeper)
		assert.ErrorContains(t, err, "kms down")
		assert.Nil(t, kr)
	})
}

func TestParseKeyringYAML(t *testing.T) {
	ctx := context.Background()
	idA := "0190d3a4-0000-7000-8000-00000000000a"
	idB := "0190d3a4-0000-7000-8000-00000000000b"
	keyA := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))
	keyB := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, 64))

	t.Run("mixed algorithms", func(t *testing.T) {
		doc := "default: " + idB + "\n" +
			"keys:\n" +
			"  - id: " + idA + "\n    algorithm: chacha20-poly1305\n    key: " + keyA + "\n" +
			"  - id: " + idB + "\n    algorithm: aes-siv\n    key: " + keyB + "\n" +
			"  - id: 0190d3a4-0000-7000-8000-00000000000c\n    algorithm: unencrypted\n"

		kr, err := ParseKeyringYAML(ctx, []byte(doc), nil)
		require.NoError(t, err)
		assert.Len(t, kr.Keys, 3)

		kek, ok := kr.Default()
		require.True(t, ok)
		assert.Equal(t, AESSIV, kek.Algorithm)
		assert.Len(t, kek.Key, 64)
	})

	t.Run("wrong key size for algorithm", func(t *testing.T) {
		doc := "default: " + idA + "\nkeys:\n  - id: " + idA + "\n    algorithm: aes-siv\n    key: " + keyA + "\n"
		_, err := ParseKeyringYAML(ctx, []byte(doc), nil)
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		doc := "default: " + idA + "\nkeys:\n  - id: " + idA + "\n    algorithm: rot13\n    key: " + keyA + "\n"
		_, err := ParseKeyringYAML(ctx, []byte(doc), nil)
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("default missing", func(t *testing.T) {
		doc := "default: " + idB + "\nkeys:\n  - id: " + idA + "\n    algorithm: chacha20-poly1305\n    key: " + keyA + "\n"
		_, err := ParseKeyringYAML(ctx, []byte(doc), nil)
		assert.ErrorIs(t, err, ErrActiveKekNotFound)
	})

	t.Run("no keys", func(t *testing.T) {
		_, err := ParseKeyringYAML(ctx, []byte("default: "+idA+"\n"), nil)
		assert.ErrorIs(t, err, ErrKeyringNotSet)
	})

	t.Run("not yaml", func(t *testing.T) {
		_, err := ParseKeyringYAML(ctx, []byte("keys: [:"), nil)
		assert.ErrorIs(t, err, ErrInvalidKeyringFormat)
	})
}

func TestLoadKeyringFile(t *testing.T) {
	ctx := context.Background()
	id := "0190d3a4-0000-7000-8000-00000000000a"
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	path := filepath.Join(t.TempDir(), "keyring.yaml")
	doc := "default: " + id + "\nkeys:\n  - id: " + id + "\n    algorithm: xchacha20-poly1305\n    key: " + key + "\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	kr, err := LoadKeyringFile(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(id), kr.DefaultID)

	_, err = LoadKeyringFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestKeyring_Close(t *testing.T) {
	key := []byte{1, 2, 3}
	kr := &Keyring{
		DefaultID: uuid.New(),
		Keys:      []KekConfig{{ID: uuid.New(), Algorithm: ChaCha20Poly1305, Key: key}},
	}

	kr.Close()

	assert.Equal(t, []byte{0, 0, 0}, key)
	assert.Empty(t, kr.Keys)
	assert.Equal(t, uuid.Nil, kr.DefaultID)
}
