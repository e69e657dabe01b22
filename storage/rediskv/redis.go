// Package rediskv persists a storage.Backend in Redis or a compatible server
// such as KeyDB. Keys are indexed in a sorted set so prefix listing does not
// need SCAN.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/grafana/changeset/storage"
)

// Config selects the server and the key namespace.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Namespace prefixes every key so several repositories can share a database.
	Namespace string
}

// Store is a storage.Backend over a redis client.
type Store struct {
	client    *redis.Client
	namespace string
	ownClient bool
}

// Dial connects to the configured server and verifies it responds.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	s := New(client, cfg.Namespace)
	s.ownClient = true
	return s, nil
}

// New wraps an existing client. Close leaves the client open.
func New(client *redis.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

func (s *Store) key(k string) string {
	return s.namespace + "kv:" + k
}

func (s *Store) indexKey() string {
	return s.namespace + "keys"
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrKeyNotFound
	}
	return value, err
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(key), value, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Member: key})
		return nil
	})
	return err
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	wrote, err := s.client.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil || !wrote {
		return false, err
	}
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{Member: key}).Err(); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte) error {
	full := s.key(key)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, full).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		if !storage.Matches(current, exists, prev) {
			return storage.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, full)
				pipe.ZRem(ctx, s.indexKey(), key)
				return nil
			}
			pipe.Set(ctx, full, next, 0)
			pipe.ZAdd(ctx, s.indexKey(), redis.Z{Member: key})
			return nil
		})
		return err
	}, full)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	}
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(key))
		pipe.ZRem(ctx, s.indexKey(), key)
		return nil
	})
	return err
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	by := &redis.ZRangeBy{Min: "-", Max: "+"}
	if prefix != "" {
		by = &redis.ZRangeBy{Min: "[" + prefix, Max: "[" + prefix + "\xff"}
	}
	keys, err := s.client.ZRangeByLex(ctx, s.indexKey(), by).Result()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.client.Close()
}
