// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements the fixed-window request counter applied to
every authenticated principal.

Algorithm:

  - windowStart = floor(now / window) * window
  - key = "rate:<principalID>:<windowStart>"
  - count >= limit: reject without incrementing
  - otherwise increment, keeping the counter for two windows

Stores implementing [kv.Counter] get an atomic check-and-increment. Plain
stores fall back to read-then-write, which may admit a few extra requests when
concurrent calls observe the same count.
*/
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/kv"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

// # Tier Table

// Limits maps each tier to its per-window allowance.
type Limits map[sec.Tier]int

// DefaultLimits returns the built-in tier allowances.
func DefaultLimits() Limits {
	return Limits{
		sec.TierFree:       constants.DefaultRateLimitFree,
		sec.TierPro:        constants.DefaultRateLimitPro,
		sec.TierEnterprise: constants.DefaultRateLimitEnterprise,
	}
}

// Resolve picks the effective limit: a positive override, else the tier
// default, else the free tier default.
func (l Limits) Resolve(tier sec.Tier, override int) int {
	if override > 0 {
		return override
	}
	if limit, ok := l[tier]; ok && limit > 0 {
		return limit
	}
	if limit, ok := l[sec.TierFree]; ok && limit > 0 {
		return limit
	}
	return constants.DefaultRateLimitFree
}

// # Result

// Info describes the principal's window after a check.
type Info struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RetryAfter returns the whole seconds until the window resets, at least 1.
func (i Info) RetryAfter(now time.Time) int {
	seconds := int(i.Reset.Sub(now).Seconds() + 0.999)
	return max(seconds, 1)
}

// # Limiter

// Limiter enforces fixed-window allowances against a shared store.
type Limiter struct {
	store  kv.Store
	limits Limits
	window time.Duration
	now    func() time.Time
}

// Option customizes a [Limiter].
type Option func(*Limiter)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithWindow changes the window length. Windows are whole seconds; anything
// shorter than a second is raised to one.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) { l.window = max(window.Truncate(time.Second), time.Second) }
}

// NewLimiter builds a limiter over the auth namespace store.
func NewLimiter(store kv.Store, limits Limits, opts ...Option) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}

	limiter := &Limiter{
		store:  store,
		limits: limits,
		window: constants.RateLimitWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter
}

// Now exposes the limiter's clock so callers compute Retry-After consistently.
func (l *Limiter) Now() time.Time {
	return l.now()
}

/*
Check counts one request for the principal.

Parameters:
  - ctx: Request context
  - principalID: Stable identity of the caller
  - tier: Caller tier
  - override: Per-principal limit, ignored when not positive

Returns:
  - Info: Always populated, also on rejection
  - error: [apperr.RateLimited] when exhausted, [apperr.Internal] on store failure
*/
func (l *Limiter) Check(ctx context.Context, principalID string, tier sec.Tier, override int) (Info, error) {
	limit := l.limits.Resolve(tier, override)

	windowSeconds := int64(l.window / time.Second)
	windowStart := l.now().Unix() / windowSeconds * windowSeconds

	info := Info{
		Limit: limit,
		Reset: time.Unix(windowStart+windowSeconds, 0),
	}

	key := constants.KeyPrefixRateWindow + principalID + ":" + strconv.FormatInt(windowStart, 10)
	retention := 2 * l.window

	count, admitted, err := l.increment(ctx, key, int64(limit), retention)
	if err != nil {
		return info, apperr.Internal(err)
	}

	info.Remaining = max(limit-int(count), 0)
	if !admitted {
		info.Remaining = 0
		return info, apperr.RateLimited(limit)
	}

	return info, nil
}

func (l *Limiter) increment(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	if counter, ok := l.store.(kv.Counter); ok {
		return counter.IncrementBelow(ctx, key, limit, ttl)
	}

	var current int64
	raw, err := l.store.Get(ctx, key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return 0, false, fmt.Errorf("ratelimit: read window: %w", err)
	default:
		current, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("ratelimit: window %s is not an integer: %w", key, err)
		}
	}

	if current >= limit {
		return current, false, nil
	}

	next := current + 1
	if err := l.store.Put(ctx, key, []byte(strconv.FormatInt(next, 10)), ttl); err != nil {
		return 0, false, fmt.Errorf("ratelimit: write window: %w", err)
	}
	return next, true, nil
}
