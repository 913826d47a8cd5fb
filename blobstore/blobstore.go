// Package blobstore implements the content-addressed blob store (spec
// §4.1): it maps SHA-256 content addresses to bytes through an injected
// storage.Adapter, deduplicating on write and owning the ".store/blobs/"
// prefix end to end. No other component may write under that prefix.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"kamaros/storage"
)

// ErrNotFound is returned by Get when the referenced blob is absent.
var ErrNotFound = errors.New("blobstore: blob not found")

// DefaultCacheSize bounds the number of recently-read blobs kept in memory,
// mirroring the teacher blockstore's fixed-size LRU of recent blocks.
const DefaultCacheSize = 1000

// BlobStore deduplicates file bodies across versions and across paths: a
// rename-then-checkpoint, or adding identical bytes under N paths, writes
// zero or one new blob respectively.
type BlobStore struct {
	adapter storage.Adapter

	mu    sync.RWMutex
	cache *lru.Cache[string, []byte]
}

// New wraps adapter in a BlobStore with the default cache size.
func New(adapter storage.Adapter) *BlobStore {
	return NewWithCacheSize(adapter, DefaultCacheSize)
}

// NewWithCacheSize is like New but lets the caller size the read cache
// (0 disables caching entirely).
func NewWithCacheSize(adapter storage.Adapter, cacheSize int) *BlobStore {
	bs := &BlobStore{adapter: adapter}
	if cacheSize > 0 {
		c, _ := lru.New[string, []byte](cacheSize)
		bs.cache = c
	}
	return bs
}

func (bs *BlobStore) cacheGet(key string) ([]byte, bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	if bs.cache == nil {
		return nil, false
	}
	return bs.cache.Get(key)
}

func (bs *BlobStore) cachePut(key string, data []byte) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.cache == nil {
		return
	}
	bs.cache.Add(key, data)
}

// Hash computes the content address for data without storing it.
func Hash(data []byte) Ref {
	sum := sha256.Sum256(data)
	return RefFromDigest(hex.EncodeToString(sum[:]))
}

// Put computes the SHA-256 of data, writes it under ".store/" only if a
// blob with that digest isn't already present, and returns its Ref.
// Writing an already-present blob is a no-op and idempotent: two callers
// computing the same hash produce byte-identical stores.
func (bs *BlobStore) Put(ctx context.Context, data []byte) (Ref, error) {
	ref := Hash(data)
	key := ref.storageKey()

	exists, err := bs.adapter.Exists(ctx, key)
	if err != nil {
		return Ref{}, fmt.Errorf("blobstore: check existing blob: %w", err)
	}
	if exists {
		bs.cachePut(ref.String(), data)
		return ref, nil
	}

	if err := bs.adapter.Write(ctx, key, data); err != nil {
		return Ref{}, fmt.Errorf("blobstore: write blob: %w", err)
	}
	bs.cachePut(ref.String(), data)
	return ref, nil
}

// Get reads the bytes referenced by ref, returning ErrNotFound if missing.
func (bs *BlobStore) Get(ctx context.Context, ref Ref) ([]byte, error) {
	if cached, ok := bs.cacheGet(ref.String()); ok {
		out := make([]byte, len(cached))
		copy(out, cached)
		return out, nil
	}

	data, err := bs.adapter.Read(ctx, ref.storageKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: read blob: %w", err)
	}
	bs.cachePut(ref.String(), data)
	return data, nil
}

// Has reports whether ref is present in the store.
func (bs *BlobStore) Has(ctx context.Context, ref Ref) (bool, error) {
	if _, ok := bs.cacheGet(ref.String()); ok {
		return true, nil
	}
	return bs.adapter.Exists(ctx, ref.storageKey())
}

// Verify recomputes the SHA-256 of the blob at ref and reports whether it
// matches the digest encoded in the ref itself. Unlike Get, it always reads
// through the adapter rather than trusting a cached copy, since its whole
// purpose is to catch storage-level corruption.
func (bs *BlobStore) Verify(ctx context.Context, ref Ref) (bool, error) {
	data, err := bs.adapter.Read(ctx, ref.storageKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("blobstore: read blob: %w", err)
	}
	return Hash(data).HexDigest() == ref.HexDigest(), nil
}

// List returns the Ref of every blob currently under ".store/blobs/".
func (bs *BlobStore) List(ctx context.Context) ([]Ref, error) {
	keys, err := bs.adapter.List(ctx, storePrefix+"blobs")
	if err != nil {
		return nil, fmt.Errorf("blobstore: list blobs: %w", err)
	}
	out := make([]Ref, 0, len(keys))
	for _, key := range keys {
		rel := key
		if len(key) >= len(storePrefix) && key[:len(storePrefix)] == storePrefix {
			rel = key[len(storePrefix):]
		}
		ref, err := ParseRef(rel)
		if err != nil {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}
