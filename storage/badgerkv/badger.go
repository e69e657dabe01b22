// Package badgerkv persists a storage.Backend in a Badger database.
package badgerkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/grafana/changeset/storage"
)

// Store is a storage.Backend over badger. Writes run in optimistic
// transactions; a transaction that loses a race surfaces storage.ErrConflict.
type Store struct {
	db     *badger.DB
	prefix []byte
}

// Open opens or creates a database in dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an open database. Every key is stored under prefix so several
// repositories can share one database.
func New(db *badger.DB, prefix string) *Store {
	return &Store{db: db, prefix: []byte(prefix)}
}

func (s *Store) key(k string) []byte {
	return append(bytes.Clone(s.prefix), k...)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrKeyNotFound
	}
	return value, err
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), value)
	})
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	wrote := false
	err := s.update(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		wrote = true
		return txn.Set(s.key(key), value)
	})
	if errors.Is(err, storage.ErrConflict) {
		// a concurrent writer stored the same key first
		return false, nil
	}
	return wrote, err
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		var current []byte
		exists := true
		item, err := txn.Get(s.key(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			exists = false
		case err != nil:
			return err
		default:
			if current, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}

		if !storage.Matches(current, exists, prev) {
			return storage.ErrConflict
		}
		if next == nil {
			return txn.Delete(s.key(key))
		}
		return txn.Set(s.key(key), next)
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		full := s.key(prefix)
		for it.Seek(full); it.ValidForPrefix(full); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(s.prefix):]))
		}
		return nil
	})
	return keys, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	}
	return err
}
