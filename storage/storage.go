// Package storage defines the key/value backend the native object store is
// persisted in. Keys are slash separated strings; values are opaque bytes.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrConflict is returned by CompareAndSwap when the stored value is not
	// the expected one, and by backends whose transaction lost a race.
	ErrConflict = errors.New("value changed concurrently")
)

// Backend is a key/value store with an atomic compare-and-swap.
//
//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../mocks/backend.go . Backend
type Backend interface {
	// Get returns the value stored under key or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// PutIfAbsent stores value unless key already exists. It reports whether it wrote.
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// CompareAndSwap replaces the value of key with next if the current value
	// equals prev. A nil prev requires the key to be absent; a nil next deletes it.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases the backend.
	Close() error
}
