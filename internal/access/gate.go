// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package access decides who is calling: it validates API keys issued by this
service and delegated session tokens, and manages the API-key lifecycle.

Credential resolution:

  - ScopePublic: no credential is inspected.
  - ScopeAPI: a key carrying the registry prefix is checked against the
    registry first; anything else, or a prefixed key the registry rejects, is
    tried as a session token.
  - ScopeSession: only session tokens are accepted (API-key management).

Rate limiting happens after authentication, in the middleware chain.
*/
package access

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/metrics"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

// Scope selects which credentials an endpoint accepts.
type Scope int

const (
	ScopePublic Scope = iota
	ScopeAPI
	ScopeSession
)

// Client-facing messages.
const (
	msgMissingAPIKey  = "Missing API key. Use: Authorization: Bearer YOUR_API_KEY or ?key=YOUR_API_KEY"
	msgMissingSession = "Missing authentication token"
	msgInvalidAPIKey  = "Invalid API key"
	msgInvalidSession = "Invalid session token"
)

// KeyValidator resolves an API key to its owner.
type KeyValidator interface {
	Validate(ctx context.Context, apiKey string) (string, error)
}

// SessionAuthenticator resolves a session token to a principal.
type SessionAuthenticator interface {
	Verify(ctx context.Context, token string) (*sec.Principal, error)
}

// Gate authenticates credentials for a given scope.
type Gate struct {
	keys     KeyValidator
	sessions SessionAuthenticator
	prefix   string
}

// NewGate wires the gate. prefix is the marker of locally issued keys.
func NewGate(keys KeyValidator, sessions SessionAuthenticator, prefix string) *Gate {
	return &Gate{keys: keys, sessions: sessions, prefix: prefix}
}

/*
Authenticate resolves credential into a principal for scope.

Parameters:
  - ctx: Request context
  - credential: Bearer value or ?key= value, "" when absent
  - scope: Credentials accepted by the endpoint

Returns:
  - *sec.Principal: nil for ScopePublic
  - error: [apperr.Unauthorized] distinguishing missing from invalid, or
    [apperr.Internal] when the auth store fails
*/
func (g *Gate) Authenticate(ctx context.Context, credential string, scope Scope) (*sec.Principal, error) {
	if scope == ScopePublic {
		return nil, nil
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		if scope == ScopeSession {
			return nil, apperr.Unauthorized(msgMissingSession)
		}
		return nil, apperr.Unauthorized(msgMissingAPIKey)
	}

	if scope == ScopeSession {
		principal, err := g.session(ctx, credential)
		if err != nil {
			return nil, g.reject(err, msgInvalidSession)
		}
		return principal, nil
	}

	// 1. Locally issued key
	if g.prefix != "" && strings.HasPrefix(credential, g.prefix) {
		principal, err := g.apiKey(ctx, credential)
		if err == nil {
			return principal, nil
		}
		if !errors.Is(err, ErrInvalidCredential) {
			return nil, apperr.Internal(err)
		}
	}

	// 2. Delegated session
	principal, err := g.session(ctx, credential)
	if err != nil {
		return nil, g.reject(err, msgInvalidAPIKey)
	}
	return principal, nil
}

// For binds the gate to scope, yielding a single-argument authenticator.
func (g *Gate) For(scope Scope) *ScopedGate {
	return &ScopedGate{gate: g, scope: scope}
}

func (g *Gate) apiKey(ctx context.Context, credential string) (*sec.Principal, error) {
	userID, err := g.keys.Validate(ctx, credential)
	switch {
	case err == nil:
		metrics.AuthAttempts.WithLabelValues(string(sec.MethodAPIKey), metrics.OutcomeSuccess).Inc()
		return &sec.Principal{ID: userID, Tier: sec.TierFree, Method: sec.MethodAPIKey}, nil
	case errors.Is(err, ErrInvalidCredential):
		metrics.AuthAttempts.WithLabelValues(string(sec.MethodAPIKey), metrics.OutcomeRejected).Inc()
	default:
		metrics.AuthAttempts.WithLabelValues(string(sec.MethodAPIKey), metrics.OutcomeError).Inc()
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "api_key_validation_failed", slog.Any("error", err))
	}
	return nil, err
}

func (g *Gate) session(ctx context.Context, credential string) (*sec.Principal, error) {
	principal, err := g.sessions.Verify(ctx, credential)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(string(sec.MethodSession), metrics.OutcomeRejected).Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues(string(sec.MethodSession), metrics.OutcomeSuccess).Inc()
	return principal, nil
}

func (g *Gate) reject(err error, message string) error {
	return apperr.Unauthorized(message).WithCause(err)
}

// # Scoped Gate

// ScopedGate is a [Gate] bound to one scope.
type ScopedGate struct {
	gate  *Gate
	scope Scope
}

// Authenticate resolves credential within the bound scope.
func (s *ScopedGate) Authenticate(ctx context.Context, credential string) (*sec.Principal, error) {
	return s.gate.Authenticate(ctx, credential, s.scope)
}
