// Package storage defines the local persistent key-value store that holds the
// PIN records and encrypted protected state.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get and Delete when the key does not exist.
var ErrNotFound = errors.New("key not found")

// ErrInvalidKey is returned for an empty key.
var ErrInvalidKey = errors.New("invalid key")

// BatchTx provides Set and Delete within an atomic transaction.
type BatchTx interface {
	Set(key, value string) error
	Delete(key string) error
}

// Store is a string-to-string persistent store. Values are opaque; the store
// never interprets them.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys returns every key beginning with prefix, sorted ascending.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Batch runs fn atomically: either every write in fn is applied or none is.
	Batch(ctx context.Context, fn func(tx BatchTx) error) error
}

// ValidateKey rejects keys no backend can store.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsRune(key, 0) {
		return ErrInvalidKey
	}
	return nil
}
