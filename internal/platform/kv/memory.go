// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
)

// memoryCleanupInterval is how often expired items are purged.
const memoryCleanupInterval = time.Minute

// MemoryStore implements [Store] and [Counter] in process memory.
type MemoryStore struct {
	items *cache.Cache

	// counterMu serializes read-compare-increment sequences.
	counterMu sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cache.New(cache.NoExpiration, memoryCleanupInterval)}
}

// Get implements [Store].
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	item, found := s.items.Get(key)
	if !found {
		return nil, ErrNotFound
	}

	switch value := item.(type) {
	case []byte:
		return append([]byte(nil), value...), nil
	case int64:
		return []byte(strconv.FormatInt(value, 10)), nil
	default:
		return nil, fmt.Errorf("kv: memory item %q has unexpected type %T", key, item)
	}
}

// Put implements [Store].
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete implements [Store].
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

// IncrementBelow implements [Counter].
func (s *MemoryStore) IncrementBelow(_ context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()

	var current int64
	item, expiration, found := s.items.GetWithExpiration(key)
	if found {
		switch value := item.(type) {
		case int64:
			current = value
		case []byte:
			parsed, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil {
				return 0, false, fmt.Errorf("kv: memory counter %q is not an integer", key)
			}
			current = parsed
		}
	}

	if current >= limit {
		return current, false, nil
	}

	if current == 0 {
		if ttl <= 0 {
			ttl = cache.NoExpiration
		}
		s.items.Set(key, int64(1), ttl)
		return 1, true, nil
	}

	// Keeps the window's original expiry.
	next, err := s.items.IncrementInt64(key, 1)
	if err != nil {
		// Written by Put as bytes: convert to a counter with the remaining lifetime.
		remaining := cache.NoExpiration
		if !expiration.IsZero() {
			remaining = max(time.Until(expiration), time.Millisecond)
		}
		s.items.Set(key, current+1, remaining)
		return current + 1, true, nil
	}
	return next, true, nil
}

// LoadSnapshot seeds the store from a JSON object file mapping keys to values.
//
// String values are stored verbatim; any other JSON value is stored as its
// encoded form, which matches how the dataset pipeline writes records.
func (s *MemoryStore) LoadSnapshot(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("kv: failed to read snapshot %s: %w", path, err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("kv: failed to decode snapshot %s: %w", path, err)
	}

	for key, raw := range entries {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			s.items.Set(key, []byte(text), cache.NoExpiration)
			continue
		}
		s.items.Set(key, []byte(raw), cache.NoExpiration)
	}

	return len(entries), nil
}
