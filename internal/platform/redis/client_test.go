// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/animeids/internal/platform/redis"
)

func TestNewClient(t *testing.T) {
	server := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := redis.NewClient(context.Background(), "dataset", "redis://"+server.Addr()+"/0", redis.DatasetPool, logger)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, redis.Ping(context.Background(), client))
	assert.Equal(t, redis.DatasetPool.PoolSize, client.Options().PoolSize)
}

func TestNewClient_Failures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := redis.NewClient(context.Background(), "auth", "not a url", redis.AuthPool, logger)
	assert.ErrorContains(t, err, "invalid auth URL")

	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err = redis.NewClient(context.Background(), "auth", "redis://"+addr, redis.AuthPool, logger)
	assert.ErrorContains(t, err, "ping failed")
}
