package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/kagimori/internal/storage"
	"github.com/allisson/kagimori/internal/storage/storagetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return newTestStore(t)
	})
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(root)
	require.NoError(t, err)

	info, err := os.Stat(s.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_Layout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "keys/svc-a/versions/1", []byte("v1")))

	raw, err := os.ReadFile(filepath.Join(s.Root(), "keys", "svc-a", "versions", "1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), raw)

	t.Run("leading slash is ignored", func(t *testing.T) {
		value, err := s.Get(ctx, "/keys/svc-a/versions/1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value)
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		_, err := s.SetIfAbsent(ctx, "keys/svc-a/latest", []byte("ref"))
		require.NoError(t, err)
		_, err = s.SetIfAbsent(ctx, "keys/svc-a/latest", []byte("ref2"))
		require.NoError(t, err)

		entries, err := os.ReadDir(filepath.Join(s.Root(), "keys", "svc-a"))
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.ElementsMatch(t, []string{"versions", "latest"}, names)
	})

	t.Run("directory is not a value", func(t *testing.T) {
		ok, err := s.Exists(ctx, "keys/svc-a")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Get(ctx, "keys/svc-a")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, key := range []string{"", "/", "//", "../escape", "keys/../../escape", ".", ".kagimori-tmp-1"} {
		t.Run(key, func(t *testing.T) {
			assert.ErrorIs(t, s.Set(ctx, key, []byte("x")), storage.ErrInvalidKey)

			_, err := s.Get(ctx, key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)

			_, err = s.SetIfAbsent(ctx, key, []byte("x"))
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
		})
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(s.Root()), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), context.Canceled)
	_, err := s.SetIfAbsent(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
}
