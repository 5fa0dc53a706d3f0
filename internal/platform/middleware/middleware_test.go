// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/kv"
	"github.com/taibuivan/animeids/internal/platform/middleware"
	"github.com/taibuivan/animeids/internal/platform/ratelimit"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

// # Fakes

type fakeAuthenticator map[string]*sec.Principal

func (f fakeAuthenticator) Authenticate(_ context.Context, credential string) (*sec.Principal, error) {
	if credential == "" {
		return nil, apperr.Unauthorized("Missing API key. Use: Authorization: Bearer YOUR_API_KEY or ?key=YOUR_API_KEY")
	}
	if principal, ok := f[credential]; ok {
		return principal, nil
	}
	return nil, apperr.Unauthorized("Invalid API key")
}

type publicAuthenticator struct{}

func (publicAuthenticator) Authenticate(context.Context, string) (*sec.Principal, error) {
	return nil, nil
}

type corsConfig struct{ development bool }

func (c corsConfig) IsDevelopment() bool { return c.development }
func (c corsConfig) AllowedOrigins() []string { return []string{"ids.moe"} }

// # Tracing & Logging

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "client-id")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "client-id", seen)
}

func TestStructuredLogger_IncludesPrincipal(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))

	limiter := ratelimit.NewLimiter(kv.NewMemoryStore(), nil)
	authenticator := fakeAuthenticator{"good": {ID: "user_1", Tier: sec.TierFree, Method: sec.MethodAPIKey}}

	chain := middleware.RequestID()(
		middleware.StructuredLogger(logger)(
			middleware.Authenticate(authenticator, limiter)(okHandler),
		),
	)

	request := httptest.NewRequest(http.MethodGet, "/anilist/1?key=good", nil)
	chain.ServeHTTP(httptest.NewRecorder(), request)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	assert.Equal(t, "http_request_finished", entry["msg"])
	assert.Equal(t, "user_1", entry["user_id"])
	assert.Equal(t, "api_key", entry["auth_method"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
}

// # Guards

func TestIPGuard(t *testing.T) {
	guard := middleware.NewIPGuard(1, 2)
	handler := guard.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("X-Real-IP", "203.0.113.7")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	assert.True(t, guard.Allow("198.51.100.1"), "other addresses are independent")
}

func TestReadOnly(t *testing.T) {
	handler := middleware.ReadOnly("/apikey/regenerate")(okHandler)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/anilist/1", http.StatusOK},
		{http.MethodHead, "/anilist/1", http.StatusOK},
		{http.MethodPost, "/apikey/regenerate", http.StatusOK},
		{http.MethodPost, "/anilist/1", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/apikey", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, recorder.Code, "%s %s", tt.method, tt.path)
		if tt.want == http.StatusMethodNotAllowed {
			assert.Contains(t, recorder.Body.String(), "Only GET requests are allowed")
		}
	}
}

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "boom")
}

func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{})(okHandler)

	t.Run("preflight", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/anilist/1", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, OPTIONS", recorder.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("known_origin", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/apikey", nil)
		request.Header.Set("Origin", "https://dash.ids.moe")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		assert.Equal(t, "https://dash.ids.moe", recorder.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("lookalike_origin", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Origin", "https://evilids.moe")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("development", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Origin", "http://localhost:4321")
		recorder := httptest.NewRecorder()
		middleware.CORS(corsConfig{development: true})(okHandler).ServeHTTP(recorder, request)
		assert.Equal(t, "http://localhost:4321", recorder.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRealIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", middleware.RealIP(request))

	request.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", middleware.RealIP(request))

	request.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", middleware.RealIP(request))
}

// # Authentication & Rate Limiting

func TestAuthenticate(t *testing.T) {
	now := time.Unix(1_700_000_010, 0)
	limiter := ratelimit.NewLimiter(kv.NewMemoryStore(), nil,
		ratelimit.WithClock(func() time.Time { return now }))

	authenticator := fakeAuthenticator{
		"tiny": {ID: "user_tiny", Tier: sec.TierFree, RateLimit: 2, Method: sec.MethodAPIKey},
	}

	var principal *sec.Principal
	handler := middleware.Authenticate(authenticator, limiter)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal = ctxutil.GetPrincipal(request.Context())
		writer.WriteHeader(http.StatusOK)
	}))

	serve := func(request *http.Request) *httptest.ResponseRecorder {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	t.Run("missing", func(t *testing.T) {
		recorder := serve(httptest.NewRequest(http.MethodGet, "/anilist/1", nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Missing API key")
	})

	t.Run("invalid", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/anilist/1", nil)
		request.Header.Set("Authorization", "Bearer nope")
		recorder := serve(request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Invalid API key")
	})

	t.Run("window", func(t *testing.T) {
		request := func() *http.Request {
			request := httptest.NewRequest(http.MethodGet, "/anilist/1", nil)
			request.Header.Set("Authorization", "Bearer tiny")
			return request
		}

		first := serve(request())
		require.Equal(t, http.StatusOK, first.Code)
		require.NotNil(t, principal)
		assert.Equal(t, "user_tiny", principal.ID)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1700000040", first.Header().Get("X-RateLimit-Reset"))

		second := serve(request())
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

		third := serve(request())
		assert.Equal(t, http.StatusTooManyRequests, third.Code)
		assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "30", third.Header().Get("Retry-After"))
		assert.True(t, strings.Contains(third.Body.String(), "Rate limit exceeded. Limit: 2 requests per minute"))
	})

	t.Run("public_scope", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		middleware.Authenticate(publicAuthenticator{}, limiter)(okHandler).
			ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/anilist/1", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Empty(t, recorder.Header().Get("X-RateLimit-Limit"))
	})
}
