package storage

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemory is a Backend kept in a map. It is safe for concurrent use.
type InMemory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{data: make(map[string][]byte)}
}

func (s *InMemory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(value), nil
}

func (s *InMemory) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = bytes.Clone(value)
	return nil
}

func (s *InMemory) PutIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = bytes.Clone(value)
	return true, nil
}

func (s *InMemory) CompareAndSwap(_ context.Context, key string, prev, next []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[key]
	if !Matches(current, ok, prev) {
		return ErrConflict
	}
	if next == nil {
		delete(s.data, key)
		return nil
	}
	s.data[key] = bytes.Clone(next)
	return nil
}

func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *InMemory) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *InMemory) Close() error {
	return nil
}

// Matches reports whether a stored value satisfies the prev argument of
// CompareAndSwap. exists tells whether the key was present at all.
func Matches(current []byte, exists bool, prev []byte) bool {
	if prev == nil {
		return !exists
	}
	return exists && bytes.Equal(current, prev)
}
