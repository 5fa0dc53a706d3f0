// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/animeids/internal/platform/sec"
)

func TestParseTier(t *testing.T) {
	assert.Equal(t, sec.TierPro, sec.ParseTier("PRO"))
	assert.Equal(t, sec.TierEnterprise, sec.ParseTier(" enterprise "))
	assert.Equal(t, sec.TierFree, sec.ParseTier("platinum"))
	assert.Equal(t, sec.TierFree, sec.ParseTier(""))
}

func TestGenerateAPIKey(t *testing.T) {
	first, err := sec.GenerateAPIKey("ids_")
	require.NoError(t, err)
	second, err := sec.GenerateAPIKey("ids_")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "ids_"))
	assert.Len(t, first, len("ids_")+43)
	assert.NotEqual(t, first, second)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "ids_abcd...wxyz", sec.MaskAPIKey("ids_abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "*****", sec.MaskAPIKey("short"))
}

func TestKeyHasher_Digest(t *testing.T) {
	hasher := sec.NewKeyHasher("pepper")

	digest := hasher.Digest("ids_key")
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, hasher.Digest("ids_key"))
	assert.NotEqual(t, digest, hasher.Digest("ids_other"))
	assert.NotEqual(t, digest, sec.NewKeyHasher("salt").Digest("ids_key"))
}

func TestTokenFingerprint(t *testing.T) {
	// Tokens sharing a long common prefix must not collide.
	header := "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9."
	assert.NotEqual(t, sec.TokenFingerprint(header+"a"), sec.TokenFingerprint(header+"b"))
	assert.Len(t, sec.TokenFingerprint("x"), 40)
}

// # Session verification

type signer struct {
	key *rsa.PrivateKey
	kid string
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &signer{key: key, kid: "test-key"}
}

func (s *signer) sign(t *testing.T, claims sec.SessionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func validClaims() sec.SessionClaims {
	now := time.Now()
	return sec.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_123",
			Issuer:    "https://clerk.ids.moe",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
		AuthorizedParty: "https://ids.moe",
		Email:           "user@example.com",
	}
}

func TestSessionVerifier_Verify(t *testing.T) {
	s := newSigner(t)
	verifier := sec.NewSessionVerifier(
		sec.NewStaticKey(&s.key.PublicKey),
		[]string{"https://ids.moe"},
		sec.WithIssuer("https://clerk.ids.moe"),
	)
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		session, err := verifier.Verify(ctx, s.sign(t, validClaims()))
		require.NoError(t, err)
		assert.Equal(t, "user_123", session.Principal.ID)
		assert.Equal(t, sec.TierFree, session.Principal.Tier)
		assert.Equal(t, sec.MethodSession, session.Principal.Method)
		assert.WithinDuration(t, time.Now().Add(10*time.Minute), session.ExpiresAt, 2*time.Second)
	})

	t.Run("metadata_tier", func(t *testing.T) {
		claims := validClaims()
		claims.Metadata = &sec.SessionMetadata{Tier: "pro", RateLimit: 5000}
		session, err := verifier.Verify(ctx, s.sign(t, claims))
		require.NoError(t, err)
		assert.Equal(t, sec.TierPro, session.Principal.Tier)
		assert.Equal(t, 5000, session.Principal.RateLimit)
	})

	t.Run("top_level_tier_wins", func(t *testing.T) {
		claims := validClaims()
		claims.Tier = "enterprise"
		claims.Metadata = &sec.SessionMetadata{Tier: "pro"}
		session, err := verifier.Verify(ctx, s.sign(t, claims))
		require.NoError(t, err)
		assert.Equal(t, sec.TierEnterprise, session.Principal.Tier)
	})

	failures := map[string]func(*sec.SessionClaims){
		"expired":         func(c *sec.SessionClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) },
		"no_expiry":       func(c *sec.SessionClaims) { c.ExpiresAt = nil },
		"wrong_issuer":    func(c *sec.SessionClaims) { c.Issuer = "https://evil.example" },
		"foreign_party":   func(c *sec.SessionClaims) { c.AuthorizedParty = "https://evil.example" },
		"missing_subject": func(c *sec.SessionClaims) { c.Subject = "" },
	}
	for name, mutate := range failures {
		t.Run(name, func(t *testing.T) {
			claims := validClaims()
			mutate(&claims)
			_, err := verifier.Verify(ctx, s.sign(t, claims))
			assert.ErrorIs(t, err, sec.ErrInvalidSession)
		})
	}

	t.Run("foreign_signer", func(t *testing.T) {
		other := newSigner(t)
		_, err := verifier.Verify(ctx, other.sign(t, validClaims()))
		assert.ErrorIs(t, err, sec.ErrInvalidSession)
	})

	t.Run("hmac_rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = verifier.Verify(ctx, signed)
		assert.ErrorIs(t, err, sec.ErrInvalidSession)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, sec.ErrInvalidSession)
	})
}

func TestJWKSCache_Key(t *testing.T) {
	s := newSigner(t)

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		e := big.NewInt(int64(s.key.PublicKey.E)).Bytes()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": s.kid,
				"n":   base64.RawURLEncoding.EncodeToString(s.key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(e),
			}},
		})
	}))
	defer server.Close()

	cache := sec.NewJWKSCache(server.URL, server.Client(), time.Minute)
	verifier := sec.NewSessionVerifier(cache, nil)

	session, err := verifier.Verify(context.Background(), s.sign(t, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user_123", session.Principal.ID)

	_, err = cache.Key(context.Background(), s.kid)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	_, err = cache.Key(context.Background(), "unknown")
	assert.Error(t, err)
}
