// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package kv defines the backing key-value capability shared by the dataset and
the auth/rate-limit namespaces, and provides its drivers.

Drivers:

  - Redis: go-redis client; atomic counter via a Lua script.
  - Postgres: kv_entries table keyed by (namespace, key); atomic counter via a
    conditional upsert.
  - Memory: go-cache with per-item expiry; used for local runs and tests.

Consumers depend on [Store] only and detect [Counter] and [Pinger] with a
type assertion.
*/
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by [Store.Get] for absent or expired keys.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal capability every driver provides.
type Store interface {
	// Get returns the value stored at key or [ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value at key. A non-positive ttl means the entry never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Counter is implemented by drivers that can bump a counter atomically.
type Counter interface {
	// IncrementBelow increments the integer at key only while it is below
	// limit. A freshly created counter expires after ttl.
	//
	// It returns the counter value after the call and whether the increment
	// was admitted. A rejected call reports the current value unchanged.
	IncrementBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error)
}

// Pinger is implemented by drivers backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks store health when the driver supports it.
func Ping(ctx context.Context, store Store) error {
	if pinger, ok := store.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
