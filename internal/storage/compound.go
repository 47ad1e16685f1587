package storage

import (
	"context"
	"errors"
	"fmt"
)

// Compound fans writes out to several stores. The first store is authoritative: it
// arbitrates SetIfAbsent and is consulted first on reads. The others are mirrors.
type Compound struct {
	stores []Storage
}

// NewCompound builds a Compound over stores, which must not be empty.
func NewCompound(stores ...Storage) (*Compound, error) {
	if len(stores) == 0 {
		return nil, errors.New("compound storage requires at least one store")
	}
	return &Compound{stores: stores}, nil
}

func (c *Compound) Set(ctx context.Context, key string, value []byte) error {
	for i, s := range c.stores {
		if err := s.Set(ctx, key, value); err != nil {
			return fmt.Errorf("store %d: %w", i, err)
		}
	}
	return nil
}

// Get returns the value from the first store that has it.
func (c *Compound) Get(ctx context.Context, key string) ([]byte, error) {
	for i, s := range c.stores {
		value, err := s.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("store %d: %w", i, err)
		}
	}
	return nil, ErrNotFound
}

func (c *Compound) Delete(ctx context.Context, key string) error {
	var errs []error
	for i, s := range c.stores {
		if err := s.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("store %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Compound) Exists(ctx context.Context, key string) (bool, error) {
	for i, s := range c.stores {
		ok, err := s.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("store %d: %w", i, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// SetIfAbsent claims key on the authoritative store and, when the claim succeeds,
// mirrors the value to the remaining stores.
func (c *Compound) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := c.stores[0].SetIfAbsent(ctx, key, value)
	if err != nil || !ok {
		return ok, err
	}

	for i, s := range c.stores[1:] {
		if err := s.Set(ctx, key, value); err != nil {
			return true, fmt.Errorf("store %d: mirror %s: %w", i+1, key, err)
		}
	}
	return true, nil
}
