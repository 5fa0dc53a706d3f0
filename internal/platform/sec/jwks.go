// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/taibuivan/animeids/internal/platform/constants"
)

// jwksDocument is the subset of RFC 7517 needed for RSA signature keys.
type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// JWKSCache fetches and caches the identity provider's signing keys.
//
// Fetches run behind a circuit breaker so a failing provider does not add
// its timeout to every authenticated request. Previously fetched keys keep
// serving while the breaker is open.
type JWKSCache struct {
	uri        string
	httpClient *http.Client
	ttl        time.Duration
	breaker    *gobreaker.CircuitBreaker[map[string]*rsa.PublicKey]

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewJWKSCache creates a cache for uri. A nil client gets a 10 second timeout.
func NewJWKSCache(uri string, client *http.Client, ttl time.Duration) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = constants.JWKSRefreshInterval
	}

	breaker := gobreaker.NewCircuitBreaker[map[string]*rsa.PublicKey](gobreaker.Settings{
		Name:        "jwks",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &JWKSCache{
		uri:        uri,
		httpClient: client,
		ttl:        ttl,
		breaker:    breaker,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// Key retrieves a key by id, refreshing the set when stale or unknown.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetched) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	keys, err := c.breaker.Execute(func() (map[string]*rsa.PublicKey, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("sec: jwks refresh failed: %w", err)
	}

	c.mu.Lock()
	c.keys = keys
	c.fetched = time.Now()
	c.mu.Unlock()

	key, ok = keys[kid]
	if !ok {
		return nil, fmt.Errorf("sec: signing key %q not found", kid)
	}
	return key, nil
}

func (c *JWKSCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch failed with status %d", resp.StatusCode)
	}

	var document jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&document); err != nil {
		return nil, fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(document.Keys))
	for _, entry := range document.Keys {
		if entry.Kty != "RSA" {
			continue
		}

		nBytes, err := base64.RawURLEncoding.DecodeString(entry.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(entry.E)
		if err != nil {
			continue
		}

		exponent := 0
		for _, b := range eBytes {
			exponent = exponent<<8 + int(b)
		}

		keys[entry.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: exponent}
	}

	return keys, nil
}
