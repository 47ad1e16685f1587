package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
)

var (
	keksLine   = regexp.MustCompile(`(?m)^KEKS="([^"]+)"$`)
	activeLine = regexp.MustCompile(`(?m)^ACTIVE_KEK_ID="([^"]+)"$`)
)

type failingKMSService struct{}

func (failingKMSService) OpenKeeper(context.Context, string) (cryptoDomain.KMSKeeper, error) {
	return nil, errors.New("kms down")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func localKeeperURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func parseEnvOutput(t *testing.T, out string) (string, string) {
	t.Helper()
	keks := keksLine.FindStringSubmatch(out)
	require.Len(t, keks, 2, out)
	active := activeLine.FindStringSubmatch(out)
	require.Len(t, active, 2, out)
	return keks[1], active[1]
}

func TestRunCreateKek(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()
	kmsService := cryptoService.NewKMSService()

	t.Run("env output loads as a keyring", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateKek(ctx, kmsService, logger, &out, "aes-siv", "", "env")
		require.NoError(t, err)

		keks, active := parseEnvOutput(t, out.String())
		assert.NotContains(t, out.String(), "KMS_KEY_URI")

		keyring, err := cryptoDomain.ParseKeyring(ctx, keks, active, nil)
		require.NoError(t, err)
		defer keyring.Close()

		kek, ok := keyring.Default()
		require.True(t, ok)
		assert.Equal(t, cryptoDomain.AESSIV, kek.Algorithm)
		assert.Len(t, kek.Key, 64)
		assert.Equal(t, uuid.Version(7), kek.ID.Version())
	})

	t.Run("yaml output loads as a keyring file", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateKek(ctx, kmsService, logger, &out, "chacha20-poly1305", "", "yaml")
		require.NoError(t, err)

		keyring, err := cryptoDomain.ParseKeyringYAML(ctx, out.Bytes(), nil)
		require.NoError(t, err)
		defer keyring.Close()

		kek, ok := keyring.Default()
		require.True(t, ok)
		assert.Equal(t, cryptoDomain.ChaCha20Poly1305, kek.Algorithm)
		assert.Len(t, kek.Key, 32)
	})

	t.Run("kms wrapped env output", func(t *testing.T) {
		uri := localKeeperURI(t)

		var out bytes.Buffer
		err := RunCreateKek(ctx, kmsService, logger, &out, "xchacha20-poly1305", uri, "env")
		require.NoError(t, err)
		assert.Contains(t, out.String(), `KMS_KEY_URI="`+uri+`"`)

		keks, active := parseEnvOutput(t, out.String())

		_, err = cryptoDomain.ParseKeyring(ctx, keks, active, nil)
		require.Error(t, err, "wrapped material must not parse as a plain tagged key")

		keeper, err := kmsService.OpenKeeper(ctx, uri)
		require.NoError(t, err)
		defer func() { _ = keeper.Close() }()

		keyring, err := cryptoDomain.ParseKeyring(ctx, keks, active, keeper)
		require.NoError(t, err)
		defer keyring.Close()
		assert.Equal(t, uuid.MustParse(active), keyring.DefaultID)

		kek, ok := keyring.Default()
		require.True(t, ok)
		assert.Equal(t, cryptoDomain.XChaCha20Poly1305, kek.Algorithm)
	})

	t.Run("kms wrapped yaml output", func(t *testing.T) {
		uri := localKeeperURI(t)

		var out bytes.Buffer
		err := RunCreateKek(ctx, kmsService, logger, &out, "aes-siv", uri, "yaml")
		require.NoError(t, err)

		keeper, err := kmsService.OpenKeeper(ctx, uri)
		require.NoError(t, err)
		defer func() { _ = keeper.Close() }()

		keyring, err := cryptoDomain.ParseKeyringYAML(ctx, out.Bytes(), keeper)
		require.NoError(t, err)
		defer keyring.Close()
		assert.Len(t, keyring.Keys, 1)
	})

	t.Run("each run generates a distinct key", func(t *testing.T) {
		var first, second bytes.Buffer
		require.NoError(t, RunCreateKek(ctx, kmsService, logger, &first, "aes-siv", "", "env"))
		require.NoError(t, RunCreateKek(ctx, kmsService, logger, &second, "aes-siv", "", "env"))

		firstKeks, _ := parseEnvOutput(t, first.String())
		secondKeks, _ := parseEnvOutput(t, second.String())
		assert.NotEqual(t, firstKeks, secondKeks)
	})

	t.Run("invalid algorithm", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateKek(ctx, kmsService, logger, &out, "rot13", "", "env")
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedAlgorithm)
		assert.Empty(t, out.String())
	})

	t.Run("unencrypted is rejected", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateKek(ctx, kmsService, logger, &out, "unencrypted", "", "env")
		assert.ErrorContains(t, err, "a KEK must encrypt")
	})

	t.Run("invalid format", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateKek(ctx, kmsService, logger, &out, "aes-siv", "", "toml")
		assert.ErrorContains(t, err, "invalid format")
	})

	t.Run("kms failure writes nothing", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateKek(ctx, failingKMSService{}, logger, &out, "aes-siv", "gcpkms://key", "env")
		assert.ErrorContains(t, err, "kms down")
		assert.Empty(t, out.String())
	})
}
