// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides managed clients for the two Redis namespaces.

The dataset namespace holds the read-mostly identifier mapping loaded by the
offline dataset pipeline. The auth namespace holds volatile state written by
the API itself: API key records, session cache entries and rate windows.

Both namespaces may point at the same server; each gets its own pool so a
burst of rate-limit writes does not starve dataset reads.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Opinionated default timeouts for Redis operations.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// PoolProfile tunes a client for its workload.
type PoolProfile struct {
	PoolSize     int
	MinIdleConns int
	MaxIdleConns int
}

var (
	// DatasetPool serves the high fan-out two-tier lookups.
	DatasetPool = PoolProfile{PoolSize: 20, MinIdleConns: 4, MaxIdleConns: 10}

	// AuthPool serves key records, session cache and rate counters.
	AuthPool = PoolProfile{PoolSize: 10, MinIdleConns: 2, MaxIdleConns: 5}
)

/*
NewClient parses a Redis URL and returns a connected client.

Parameters:
  - context: Context for the initial ping.
  - name: Namespace label used in logs ("dataset" or "auth").
  - redisURL: Redis connection URL.
  - profile: Pool sizing for the namespace workload.
  - logger: Structured logger for connection events.

Returns:
  - *redis.Client: Ready client
  - error: Invalid URL or unreachable server
*/
func NewClient(context stdctx.Context, name, redisURL string, profile PoolProfile, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid %s URL: %w", name, err)
	}

	options.PoolSize = profile.PoolSize
	options.MinIdleConns = profile.MinIdleConns
	options.MaxIdleConns = profile.MaxIdleConns

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup.
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: %s namespace: %w", name, err)
	}

	logger.Info("redis_client_connected",
		slog.String("namespace", name),
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
