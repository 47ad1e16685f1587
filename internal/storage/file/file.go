// Package file implements storage.Storage on a local directory tree. Each key maps to
// one file below the root; '/' in a key becomes a directory separator.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/allisson/kagimori/internal/storage"
)

const tempPrefix = ".kagimori-tmp-"

// Store is a filesystem-rooted storage.Storage. Writes are atomic: values are written
// to a temporary file in the target directory and then renamed (Set) or hard-linked
// (SetIfAbsent) into place, so readers never observe a partial value.
//
// SetIfAbsent relies on link(2) failing with EEXIST and is linearizable among
// processes sharing one local filesystem. It is not safe on network filesystems
// without POSIX link semantics.
type Store struct {
	root string
}

// New creates a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := s.writeTemp(path, value)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, err := os.ReadFile(path) //nolint:gosec // path is confined to the root by path()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDirectory(path) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	tmp, err := s.writeTemp(path, value)
	if err != nil {
		return false, err
	}
	defer func() { _ = os.Remove(tmp) }()

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to write %s: %w", key, err)
	}
	return true, nil
}

// path maps key to a file below the root. Leading slashes are ignored; empty keys,
// '..' segments and segments that collide with temporary files are rejected.
func (s *Store) path(key string) (string, error) {
	trimmed := strings.TrimLeft(key, "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty key", storage.ErrInvalidKey)
	}

	for segment := range strings.SplitSeq(trimmed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q contains '..'", storage.ErrInvalidKey, key)
		}
		if strings.HasPrefix(segment, tempPrefix) {
			return "", fmt.Errorf("%w: %q uses a reserved name", storage.ErrInvalidKey, key)
		}
	}

	cleaned := filepath.Clean(filepath.FromSlash(trimmed))
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q resolves to the root", storage.ErrInvalidKey, key)
	}
	return filepath.Join(s.root, cleaned), nil
}

// writeTemp writes value to a synced temporary file next to path and returns its name.
func (s *Store) writeTemp(path string, value []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return name, nil
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
