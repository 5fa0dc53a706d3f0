// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/animeids/internal/platform/postgres"
)

// # SQL

const (
	getQuery = `
		SELECT value
		FROM kv_entries
		WHERE namespace = $1 AND key = $2
		  AND (expires_at IS NULL OR expires_at > now())`

	putQuery = `
		INSERT INTO kv_entries (namespace, key, value, expires_at)
		VALUES ($1, $2, $3, CASE WHEN $4::bigint > 0 THEN now() + $4::bigint * interval '1 millisecond' END)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	deleteQuery = `DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`

	// An expired row is restarted at 1; a live row is bumped only while below $3.
	// No row is returned when the WHERE clause rejects the update.
	incrementBelowQuery = `
		INSERT INTO kv_entries (namespace, key, value, expires_at)
		VALUES ($1, $2, '1', CASE WHEN $4::bigint > 0 THEN now() + $4::bigint * interval '1 millisecond' END)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = CASE
		        WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now() THEN '1'
		        ELSE (kv_entries.value::bigint + 1)::text
		    END,
		    expires_at = CASE
		        WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now() THEN EXCLUDED.expires_at
		        ELSE kv_entries.expires_at
		    END
		WHERE (kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now())
		   OR kv_entries.value::bigint < $3
		RETURNING value::bigint`
)

// PostgresStore implements [Store], [Counter] and [Pinger] on the kv_entries table.
//
// The namespace column separates the dataset from the auth/rate-limit
// entries so both can share one database.
type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgresStore binds a pool to one namespace.
func NewPostgresStore(pool *pgxpool.Pool, namespace string) *PostgresStore {
	return &PostgresStore{pool: pool, namespace: namespace}
}

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.pool.QueryRow(ctx, getQuery, s.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv: postgres_get_failed: %w", err)
	}
	return []byte(value), nil
}

// Put implements [Store].
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := s.pool.Exec(ctx, putQuery, s.namespace, key, string(value), ttl.Milliseconds()); err != nil {
		return fmt.Errorf("kv: postgres_put_failed: %w", err)
	}
	return nil
}

// Delete implements [Store].
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteQuery, s.namespace, key); err != nil {
		return fmt.Errorf("kv: postgres_delete_failed: %w", err)
	}
	return nil
}

// IncrementBelow implements [Counter].
func (s *PostgresStore) IncrementBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	if limit <= 0 {
		return 0, false, nil
	}

	var count int64
	err := s.pool.QueryRow(ctx, incrementBelowQuery, s.namespace, key, limit, ttl.Milliseconds()).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return limit, false, nil
		}
		return 0, false, fmt.Errorf("kv: postgres_increment_failed: %w", err)
	}
	return count, true, nil
}

// Ping implements [Pinger].
func (s *PostgresStore) Ping(ctx context.Context) error {
	return postgres.Ping(ctx, s.pool)
}
