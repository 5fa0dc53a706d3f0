// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire service.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: window length, tier defaults, and the per-IP guard.
  - Authentication: credential markers and cache validity.
  - Store Keys: key prefixes for the auth/rate-limit namespace and the dataset sentinel.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "animeids-api"
	AppVersion = "2.0.0"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// RateLimitWindow is the fixed window length for per-principal counters.
	RateLimitWindow = 60 * time.Second

	// RateLimitWindowRetention is how long a window counter is kept by the store.
	// Two windows absorb clock skew between instances sharing the counters.
	RateLimitWindowRetention = 2 * RateLimitWindow

	// DefaultRateLimitFree, DefaultRateLimitPro and DefaultRateLimitEnterprise
	// are the per-window request allowances of each tier.
	DefaultRateLimitFree       = 100
	DefaultRateLimitPro        = 1000
	DefaultRateLimitEnterprise = 10000

	// IPGuardRPS is the per-IP request rate allowed before any authentication.
	IPGuardRPS = 100.0

	// IPGuardBurst is the maximum burst allowed by the per-IP guard.
	IPGuardBurst = 150

	// IPGuardCleanupInterval is how often idle IP entries are removed from memory.
	IPGuardCleanupInterval = 1 * time.Minute

	// IPGuardClientTTL is how long a client must be idle before its entry is deleted.
	IPGuardClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// DefaultAPIKeyPrefix marks locally issued API keys.
	DefaultAPIKeyPrefix = "ids_"

	// APIKeyRandomBytes is the entropy of an issued key (256 bits).
	APIKeyRandomBytes = 32

	// DefaultSessionCacheTTL bounds how long a verified session is memoized.
	DefaultSessionCacheTTL = 5 * time.Minute

	// SessionCacheKeyLength is the number of hex digest characters used as cache key.
	SessionCacheKeyLength = 40

	// JWKSRefreshInterval is how long fetched signing keys are trusted.
	JWKSRefreshInterval = 15 * time.Minute

	// QueryParamKey is the query parameter accepted as a credential fallback.
	QueryParamKey = "key"
)

// # HTTP Headers

const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderOrigin         = "Origin"
	HeaderAuthorization  = "Authorization"
	HeaderRateLimit      = "X-RateLimit-Limit"
	HeaderRateRemaining  = "X-RateLimit-Remaining"
	HeaderRateReset      = "X-RateLimit-Reset"
	HeaderRetryAfter     = "Retry-After"
	HeaderContentType    = "Content-Type"
	ContentTypeJSON      = "application/json"
	ContentTypePlainText = "text/plain"
)

// # JSON Field Identifiers

const (
	FieldError   = "error"
	FieldCode    = "code"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Store Keys (auth namespace taxonomy)

const (
	KeyPrefixSessionCache = "auth:"
	KeyPrefixRateWindow   = "rate:"
	KeyPrefixAPIKeyDigest = "apikey:"
	KeyPrefixUser         = "user:"
	KeySuffixUserAPIKey   = ":apikey"
)

// # Store Keys (dataset namespace)

const (
	// DatasetUpdatedKey holds the epoch second of the last dataset refresh.
	DatasetUpdatedKey = "last_updated"

	// SentinelPlatform and SentinelID identify the record used by the heartbeat.
	SentinelPlatform = "myanimelist"
	SentinelID       = "1"
)
