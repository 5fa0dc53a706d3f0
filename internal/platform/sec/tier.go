// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "strings"

// # Service Tiers

// Tier represents the service level granted to a principal.
type Tier string

const (
	// Highest allowance, negotiated per customer
	TierEnterprise Tier = "enterprise"

	// Paid self-service plan
	TierPro Tier = "pro"

	// Default tier for every key and session
	TierFree Tier = "free"
)

// ParseTier maps a free-form claim value onto a known tier.
// Unknown or empty values fall back to [TierFree].
func ParseTier(value string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierEnterprise:
		return TierEnterprise
	case TierPro:
		return TierPro
	default:
		return TierFree
	}
}

// # Principal

// AuthMethod records which credential produced a [Principal].
type AuthMethod string

const (
	MethodAPIKey  AuthMethod = "api_key"
	MethodSession AuthMethod = "session"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	// ID is the stable subject identifier (session subject or key owner).
	ID string `json:"userId"`

	// Email is informational and only present for session principals.
	Email string `json:"email,omitempty"`

	// Tier selects the default rate limit.
	Tier Tier `json:"tier"`

	// RateLimit overrides the tier default when positive.
	RateLimit int `json:"rateLimit,omitempty"`

	// Method is the credential kind that authenticated the request.
	Method AuthMethod `json:"method"`
}
