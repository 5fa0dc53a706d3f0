// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/kv"
	"github.com/taibuivan/animeids/internal/platform/metrics"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

// SessionVerifier is the delegated identity check. [sec.SessionVerifier]
// implements it; tests substitute fakes.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*sec.Session, error)
}

// cachedSession is the value memoized in the auth namespace.
type cachedSession struct {
	Principal sec.Principal `json:"principal"`
	ExpiresAt int64         `json:"expiresAt"`
}

// CachedVerifier memoizes successful session verifications.
//
// Entries are keyed by a digest of the token and live for the shorter of the
// cache TTL and the token's remaining lifetime. Failures are never cached.
type CachedVerifier struct {
	verifier SessionVerifier
	store    kv.Store
	ttl      time.Duration
	now      func() time.Time
}

// NewCachedVerifier wraps verifier with a cache in store. A nil verifier
// rejects every token.
func NewCachedVerifier(verifier SessionVerifier, store kv.Store, ttl time.Duration) *CachedVerifier {
	if ttl <= 0 {
		ttl = constants.DefaultSessionCacheTTL
	}
	return &CachedVerifier{verifier: verifier, store: store, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of c using now as its clock.
func (c *CachedVerifier) WithClock(now func() time.Time) *CachedVerifier {
	clone := *c
	clone.now = now
	return &clone
}

/*
Verify returns the principal of a session token.

Returns:
  - *sec.Principal: Identity and tier from the token
  - error: [ErrInvalidCredential] when the verifier rejects the token
*/
func (c *CachedVerifier) Verify(ctx context.Context, token string) (*sec.Principal, error) {
	if c.verifier == nil {
		return nil, fmt.Errorf("%w: session verification is not configured", ErrInvalidCredential)
	}

	logger := ctxutil.GetLogger(ctx)
	key := constants.KeyPrefixSessionCache + sec.TokenFingerprint(token)
	now := c.now()

	// 1. Cache lookup
	if principal, ok := c.lookup(ctx, logger, key, now); ok {
		metrics.SessionCache.WithLabelValues(metrics.OutcomeHit).Inc()
		return principal, nil
	}
	metrics.SessionCache.WithLabelValues(metrics.OutcomeMiss).Inc()

	// 2. Delegated verification
	session, err := c.verifier.Verify(ctx, token)
	if err != nil {
		logger.DebugContext(ctx, "session_verification_failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	// 3. Memoize for the shorter of ttl and the token's remaining lifetime
	ttl := min(c.ttl, session.ExpiresAt.Sub(now))
	if ttl > 0 {
		c.remember(ctx, logger, key, session, ttl)
	}

	principal := session.Principal
	return &principal, nil
}

func (c *CachedVerifier) lookup(ctx context.Context, logger *slog.Logger, key string, now time.Time) (*sec.Principal, bool) {
	payload, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			logger.WarnContext(ctx, "session_cache_read_failed", slog.Any("error", err))
		}
		return nil, false
	}

	var entry cachedSession
	if err := json.Unmarshal(payload, &entry); err != nil {
		logger.WarnContext(ctx, "session_cache_entry_malformed", slog.Any("error", err))
		return nil, false
	}

	if entry.Principal.ID == "" || now.Unix() >= entry.ExpiresAt {
		return nil, false
	}
	return &entry.Principal, true
}

func (c *CachedVerifier) remember(ctx context.Context, logger *slog.Logger, key string, session *sec.Session, ttl time.Duration) {
	payload, err := json.Marshal(cachedSession{
		Principal: session.Principal,
		ExpiresAt: session.ExpiresAt.Unix(),
	})
	if err != nil {
		logger.WarnContext(ctx, "session_cache_encode_failed", slog.Any("error", err))
		return
	}

	if err := c.store.Put(ctx, key, payload, ttl); err != nil {
		logger.WarnContext(ctx, "session_cache_write_failed", slog.Any("error", err))
	}
}
