// Package storagetest holds the behaviour every storage.Storage backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/kagimori/internal/storage"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		value, err := s.Get(ctx, "keys/missing/latest")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Nil(t, value)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "keys/a/latest", []byte("one")))

		value, err := s.Get(ctx, "keys/a/latest")
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), value)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "keys/a/latest", []byte("one")))
		require.NoError(t, s.Set(ctx, "keys/a/latest", []byte("two")))

		value, err := s.Get(ctx, "keys/a/latest")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), value)
	})

	t.Run("binary and empty values", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "bin", []byte{0x00, 0xff, 0x00}))
		require.NoError(t, s.Set(ctx, "empty", []byte{}))

		value, err := s.Get(ctx, "bin")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0xff, 0x00}, value)

		value, err = s.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, value)

		ok, err := s.Exists(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("exists", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Exists(ctx, "keys/a/versions/1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Set(ctx, "keys/a/versions/1", []byte("v")))
		ok, err = s.Exists(ctx, "keys/a/versions/1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "keys/a/versions/1", []byte("v")))
		require.NoError(t, s.Delete(ctx, "keys/a/versions/1"))
		require.NoError(t, s.Delete(ctx, "keys/a/versions/1"))

		_, err := s.Get(ctx, "keys/a/versions/1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set if absent", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.SetIfAbsent(ctx, "keys/a/latest", []byte("first"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetIfAbsent(ctx, "keys/a/latest", []byte("second"))
		require.NoError(t, err)
		assert.False(t, ok)

		value, err := s.Get(ctx, "keys/a/latest")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), value)
	})

	t.Run("set if absent after delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte("old")))
		require.NoError(t, s.Delete(ctx, "k"))

		ok, err := s.SetIfAbsent(ctx, "k", []byte("new"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("concurrent set if absent has one winner", func(t *testing.T) {
		s := newStore(t)
		const writers = 16

		var wins atomic.Int32
		var g errgroup.Group
		for i := range writers {
			g.Go(func() error {
				ok, err := s.SetIfAbsent(ctx, "keys/race/latest", fmt.Appendf(nil, "writer-%d", i))
				if ok {
					wins.Add(1)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), wins.Load())

		value, err := s.Get(ctx, "keys/race/latest")
		require.NoError(t, err)
		assert.Contains(t, string(value), "writer-")
	})
}
