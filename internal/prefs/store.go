// Package prefs persists small client-side preferences behind an injectable key/value store.
package prefs

import (
	"context"
	"fmt"
)

// Store is a durable key/value store. Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// StoreError wraps a backend failure with the operation and key involved.
type StoreError struct {
	Backend string
	Op      string
	Key     string
	Cause   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s %q: %v", e.Backend, e.Op, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
