// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the cryptographic primitives used by request authentication.
//
// # Architecture
//
// This package isolates security-sensitive code (key generation, digests,
// session token verification) from the HTTP and storage layers. It has no
// knowledge of where credentials are persisted.
package sec

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for any token that fails verification.
var ErrInvalidSession = errors.New("sec: invalid session token")

// # Claims

// SessionMetadata mirrors the public metadata block some identity providers
// attach to session tokens.
type SessionMetadata struct {
	Tier      string `json:"tier,omitempty"`
	RateLimit int    `json:"rateLimit,omitempty"`
}

// SessionClaims represents the payload of a delegated session token.
//
// Tier and rate limit may be carried either at the top level or nested under
// the metadata claim; top-level values win.
type SessionClaims struct {
	jwt.RegisteredClaims

	AuthorizedParty string           `json:"azp,omitempty"`
	Email           string           `json:"email,omitempty"`
	Tier            string           `json:"tier,omitempty"`
	RateLimit       int              `json:"rate_limit,omitempty"`
	Metadata        *SessionMetadata `json:"metadata,omitempty"`
}

// Principal extracts the authenticated identity from verified claims.
func (c *SessionClaims) Principal() Principal {
	tier, limit := c.Tier, c.RateLimit
	if c.Metadata != nil {
		if tier == "" {
			tier = c.Metadata.Tier
		}
		if limit <= 0 {
			limit = c.Metadata.RateLimit
		}
	}

	return Principal{
		ID:        c.Subject,
		Email:     c.Email,
		Tier:      ParseTier(tier),
		RateLimit: max(limit, 0),
		Method:    MethodSession,
	}
}

// Session is the outcome of a successful verification.
type Session struct {
	Principal Principal
	ExpiresAt time.Time
}

// # Key Sources

// KeySource resolves the RSA public key that signed a token.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// StaticKey serves a single PEM-configured public key regardless of key id.
type StaticKey struct {
	publicKey *rsa.PublicKey
}

// NewStaticKey wraps an already parsed key.
func NewStaticKey(publicKey *rsa.PublicKey) *StaticKey {
	return &StaticKey{publicKey: publicKey}
}

// LoadStaticKey reads a PEM encoded RSA public key from the filesystem.
func LoadStaticKey(publicKeyPath string) (*StaticKey, error) {
	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return &StaticKey{publicKey: publicKey}, nil
}

// Key returns the configured key.
func (s *StaticKey) Key(_ context.Context, _ string) (*rsa.PublicKey, error) {
	return s.publicKey, nil
}

// # Verifier

// SessionVerifier validates delegated session tokens signed with RS256.
type SessionVerifier struct {
	keys    KeySource
	parser  *jwt.Parser
	parties []string
	now     func() time.Time
}

// VerifierOption customizes a [SessionVerifier].
type VerifierOption func(*verifierOptions)

type verifierOptions struct {
	issuer string
	now    func() time.Time
}

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) VerifierOption {
	return func(o *verifierOptions) { o.issuer = issuer }
}

// WithClock replaces the wall clock used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(o *verifierOptions) { o.now = now }
}

/*
NewSessionVerifier builds a verifier.

Parameters:
  - keys: KeySource (static PEM key or JWKS cache)
  - parties: []string (accepted azp values; empty accepts any)
  - opts: ...VerifierOption

Returns:
  - *SessionVerifier
*/
func NewSessionVerifier(keys KeySource, parties []string, opts ...VerifierOption) *SessionVerifier {
	options := verifierOptions{now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(options.now),
	}
	if options.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(options.issuer))
	}

	return &SessionVerifier{
		keys:    keys,
		parser:  jwt.NewParser(parserOptions...),
		parties: parties,
		now:     options.now,
	}
}

// Verify checks the signature, expiry, issuer and authorized party of token.
func (v *SessionVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	claims := &SessionClaims{}

	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	if claims.AuthorizedParty != "" && len(v.parties) > 0 && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return nil, fmt.Errorf("%w: unexpected authorized party %q", ErrInvalidSession, claims.AuthorizedParty)
	}

	return &Session{
		Principal: claims.Principal(),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
