// Package storage defines the byte-blob key/value capability that the
// core engine treats as an external collaborator: a named project's
// manifest, working-set snapshots, and content blobs all live behind this
// interface, never behind a hardcoded backend.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Adapter is the capability set every storage backend must provide. Keys
// are forward-slash-separated strings; no adapter may whitelist or reject
// any prefix, including ".store/blobs/" — archive portability depends on
// that prefix being writable like any other key.
type Adapter interface {
	// Read returns the bytes stored at key, or ErrNotFound if absent.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data at key, creating intermediate namespaces as
	// needed. Overwriting an existing key is permitted.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
