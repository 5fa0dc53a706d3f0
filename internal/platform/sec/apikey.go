// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/taibuivan/animeids/internal/platform/constants"
)

// GenerateAPIKey returns prefix followed by 256 random bits, base64url-encoded without padding.
func GenerateAPIKey(prefix string) (string, error) {
	buffer := make([]byte, constants.APIKeyRandomBytes)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buffer), nil
}

// MaskAPIKey returns the display form of a key: its first 8 and last 4 characters.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 12 {
		return strings.Repeat("*", len(apiKey))
	}
	return apiKey[:8] + "..." + apiKey[len(apiKey)-4:]
}

// KeyHasher computes salted one-way digests of API keys.
//
// The digest is deterministic for a given salt so it can be used as a lookup
// key; the plaintext key is never stored.
type KeyHasher struct {
	key [32]byte
}

// NewKeyHasher derives the BLAKE2b MAC key from an arbitrary-length salt.
func NewKeyHasher(salt string) *KeyHasher {
	return &KeyHasher{key: blake2b.Sum256([]byte(salt))}
}

// Digest returns the hex-encoded keyed BLAKE2b-256 digest of apiKey.
func (h *KeyHasher) Digest(apiKey string) string {
	mac, err := blake2b.New256(h.key[:])
	if err != nil {
		// Only reachable with a key longer than 64 bytes.
		panic(fmt.Sprintf("sec: invalid blake2b key: %v", err))
	}
	mac.Write([]byte(apiKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// TokenFingerprint returns a hex digest prefix identifying a bearer token
// without retaining the token itself.
func TokenFingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:constants.SessionCacheKeyLength]
}
