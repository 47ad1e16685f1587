package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
	"github.com/allisson/kagimori/internal/encryption/usecase/mocks"
)

func TestRunKeyStatus(t *testing.T) {
	ctx := context.Background()
	status := &encryptionDomain.KeyStatus{
		ID:          "svc-a",
		Version:     4,
		Algorithm:   cryptoDomain.ChaCha20Poly1305,
		Fingerprint: cryptoDomain.ComputeFingerprint(cryptoDomain.ChaCha20Poly1305, make([]byte, 32)),
	}

	t.Run("text output", func(t *testing.T) {
		encryptor := mocks.NewMockEncryptor(t)
		encryptor.On("Status", ctx, "svc-a").Return(status, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunKeyStatus(ctx, encryptor, &out, "svc-a", "text"))
		assert.Contains(t, out.String(), "Key ID:      svc-a\n")
		assert.Contains(t, out.String(), "Version:     4\n")
		assert.Contains(t, out.String(), "Algorithm:   chacha20-poly1305\n")
	})

	t.Run("json output", func(t *testing.T) {
		encryptor := mocks.NewMockEncryptor(t)
		encryptor.On("Status", ctx, "svc-a").Return(status, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunKeyStatus(ctx, encryptor, &out, "svc-a", "json"))

		var got map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, "svc-a", got["key_id"])
		assert.EqualValues(t, 4, got["version"])
		assert.Equal(t, "chacha20-poly1305", got["algorithm"])
		assert.Len(t, got["fingerprint"], 32)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		encryptor := mocks.NewMockEncryptor(t)
		encryptor.On("Status", ctx, "missing").Return(nil, encryptionDomain.ErrKeyNotFound).Once()

		var out bytes.Buffer
		err := RunKeyStatus(ctx, encryptor, &out, "missing", "text")
		assert.ErrorIs(t, err, encryptionDomain.ErrKeyNotFound)
		assert.Empty(t, out.String())
	})
}
