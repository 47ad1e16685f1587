// Package etcd implements storage.Storage on an etcd v3 cluster. SetIfAbsent is a
// single transaction guarded by the key's creation revision, so it is linearizable
// across every node talking to the cluster.
package etcd

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/allisson/kagimori/internal/storage"
)

// KV is the subset of *clientv3.Client the store uses.
type KV interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Txn(ctx context.Context) clientv3.Txn
}

// Config holds etcd connection settings.
type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string
}

// Connect dials the cluster described by cfg. The caller owns the returned client.
func Connect(cfg Config) (*clientv3.Client, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return client, nil
}

// Store is an etcd-backed storage.Storage. Every key is namespaced under prefix.
type Store struct {
	kv     KV
	prefix string
}

// New creates a Store over kv. A non-empty prefix is normalised to end with '/'.
func New(kv KV, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{kv: kv, prefix: prefix}
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	if _, err := s.kv.Put(ctx, s.prefix+key, string(value)); err != nil {
		return fmt.Errorf("%w: put %s: %w", storage.ErrUnavailable, key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.kv.Get(ctx, s.prefix+key)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", storage.ErrUnavailable, key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, storage.ErrNotFound
	}

	value := resp.Kvs[0].Value
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.kv.Delete(ctx, s.prefix+key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", storage.ErrUnavailable, key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := s.kv.Get(ctx, s.prefix+key, clientv3.WithCountOnly())
	if err != nil {
		return false, fmt.Errorf("%w: count %s: %w", storage.ErrUnavailable, key, err)
	}
	return resp.Count > 0, nil
}

// SetIfAbsent puts value only if the key has never been created (create revision 0).
func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if key == "" {
		return false, storage.ErrInvalidKey
	}

	full := s.prefix + key
	resp, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(full), "=", 0)).
		Then(clientv3.OpPut(full, string(value))).
		Commit()
	if err != nil {
		return false, fmt.Errorf("%w: set-if-absent %s: %w", storage.ErrUnavailable, key, err)
	}
	return resp.Succeeded, nil
}
