// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values shared by the counters below.
const (
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
	OutcomeInvalid   = "invalid"
	OutcomeIntegrity = "integrity_fault"
	OutcomeError     = "error"
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
)

var (
	// Lookups counts record resolutions.
	// Labels:
	//   - platform: canonical source platform
	//   - outcome: "hit", "miss", "invalid", "integrity_fault", "error"
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animeids_lookups_total",
			Help: "Total number of two-tier record lookups",
		},
		[]string{"platform", "outcome"},
	)

	// Redirects counts redirect resolutions by target ("self" when absent).
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animeids_redirects_total",
			Help: "Total number of redirect resolutions",
		},
		[]string{"target", "outcome"},
	)

	// AuthAttempts counts credential checks.
	// Labels:
	//   - method: "api_key", "session"
	//   - outcome: "success", "rejected", "error"
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animeids_auth_attempts_total",
			Help: "Total number of credential verifications",
		},
		[]string{"method", "outcome"},
	)

	// SessionCache counts memoized session lookups ("hit" or "miss").
	SessionCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animeids_session_cache_total",
			Help: "Session verification cache lookups",
		},
		[]string{"outcome"},
	)

	// RateLimitRejections counts requests refused for an exhausted window.
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animeids_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the per-principal rate limiter",
		},
		[]string{"tier"},
	)

	// APIKeysIssued counts keys handed out ("issued" or "regenerated").
	APIKeysIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animeids_api_keys_issued_total",
			Help: "Total number of API keys issued",
		},
		[]string{"kind"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
