// Package boltkv persists a storage.Backend in a single bbolt file.
package boltkv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/grafana/changeset/storage"
)

const defaultBucket = "changeset"

// Store is a storage.Backend over one bbolt bucket. bbolt serializes
// read-write transactions, so CompareAndSwap needs no retry.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("bolt database path is required")
	}

	cleaned := filepath.Clean(path)
	if dir := filepath.Dir(cleaned); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := bolt.Open(cleaned, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, bucket: []byte(defaultBucket)}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return storage.ErrKeyNotFound
		}
		// v is only valid for the life of the transaction
		value = bytes.Clone(v)
		return nil
	})
	return value, err
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return tx.Bucket(s.bucket).Put([]byte(key), nonNil(value))
	})
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	wrote := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := tx.Bucket(s.bucket)
		if b.Get([]byte(key)) != nil {
			return nil
		}
		wrote = true
		return b.Put([]byte(key), nonNil(value))
	})
	return wrote, err
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := tx.Bucket(s.bucket)
		current := b.Get([]byte(key))
		if !storage.Matches(current, current != nil, prev) {
			return storage.ErrConflict
		}
		if next == nil {
			return b.Delete([]byte(key))
		}
		return b.Put([]byte(key), next)
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := tx.Bucket(s.bucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// nonNil keeps empty values distinguishable from missing keys, which bbolt
// reports as a nil slice.
func nonNil(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return value
}
