package storage

import (
	"context"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerOptions configures a BadgerAdapter. Zero value is valid and opens
// badger with its package defaults plus an on-disk path.
type BadgerOptions struct {
	// InMemory runs badger without touching disk, useful for tests that
	// want Badger's transaction semantics without a real adapter.
	InMemory bool
}

// BadgerAdapter is a disk-backed Adapter implementation, an alternative to
// FileAdapter for embedders that already run Badger elsewhere in their
// process and want the project store to share its LSM-tree machinery
// rather than talk to the filesystem one file per key.
type BadgerAdapter struct {
	db *badger.DB
}

// NewBadgerAdapter opens (creating if necessary) a Badger database at path.
func NewBadgerAdapter(path string, opts BadgerOptions) (*BadgerAdapter, error) {
	bopts := badger.DefaultOptions(path)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &BadgerAdapter{db: db}, nil
}

// Close releases the underlying database handle.
func (a *BadgerAdapter) Close() error {
	return a.db.Close()
}

func (a *BadgerAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *BadgerAdapter) Write(ctx context.Context, key string, data []byte) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (a *BadgerAdapter) Delete(ctx context.Context, key string) error {
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

func (a *BadgerAdapter) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := a.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (a *BadgerAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	p := strings.TrimSuffix(prefix, "/") + "/"
	var out []string
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(p)); it.ValidForPrefix([]byte(p)); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
