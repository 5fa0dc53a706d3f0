// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the cross-cutting HTTP processing chain.

It acts as a series of decorators around the standard http.Handler, injecting
traceability, safety, and security into every request lifecycle.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Log: Structured activity logging (slog).
  - Guard: Per-IP token bucket, method allow-list and CORS.
  - Safe: Panic recovery to prevent server crashes.
  - Admit: Credential check and per-principal fixed window (authz.go).

This package ensures that domain handlers can focus purely on resolution logic
without worrying about infrastructure-level concerns.
*/
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/respond"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

// # Request Tracing

// RequestID attaches a correlation ID to every request for log tracing.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Check if the client already provided an ID
			requestID := request.Header.Get(constants.HeaderXRequestID)

			// 2. Generate a new one if missing (using UUID v7 for time-sortable properties)
			if requestID == "" {
				uuidV7, err := uuid.NewV7()
				if err != nil {
					requestID = uuid.New().String()
				} else {
					requestID = uuidV7.String()
				}
			}

			// 3. Inject into context and response headers
			ctx := ctxutil.WithRequestID(request.Context(), requestID)
			writer.Header().Set(constants.HeaderXRequestID, requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Activity Logging

// statusRecorder captures the status code and, once authentication has run,
// the principal that made the request.
type statusRecorder struct {
	http.ResponseWriter
	status    int
	principal *sec.Principal
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

func (recorder *statusRecorder) setPrincipal(principal *sec.Principal) {
	recorder.principal = principal
}

// principalSink is implemented by writers that want to learn the principal.
type principalSink interface {
	setPrincipal(principal *sec.Principal)
}

// StructuredLogger logs every request status and performance metrics.
// It also injects a request-specific logger into the context.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			startTime := time.Now()
			rid := ctxutil.GetRequestID(request.Context())
			ip := RealIP(request)

			// 1. Create a sub-logger for this specific request
			requestLogger := logger.With(
				slog.String("request_id", rid),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", ip),
			)

			// 2. Inject this logger into the context for downstream use
			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			wrappedWriter := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			// 3. Proceed to downstream handlers with the enriched context
			next.ServeHTTP(wrappedWriter, request.WithContext(ctx))

			// 4. Final log entry after the request is finished
			latency := time.Since(startTime).Milliseconds()
			logLevel := slog.LevelInfo

			if wrappedWriter.status >= 500 {
				logLevel = slog.LevelError
			} else if wrappedWriter.status >= 400 {
				logLevel = slog.LevelWarn
			}

			logAttrs := []any{
				slog.Int("status", wrappedWriter.status),
				slog.Int64("latency_ms", latency),
				slog.String("user_agent", request.UserAgent()),
			}

			// Add user_id if the request is authenticated
			if principal := wrappedWriter.principal; principal != nil {
				logAttrs = append(logAttrs,
					slog.String("user_id", principal.ID),
					slog.String("auth_method", string(principal.Method)),
				)
			}

			requestLogger.Log(ctx, logLevel, "http_request_finished", logAttrs...)
		})
	}
}

// # IP Guard

type guardClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPGuard is a coarse per-IP token bucket in front of everything else,
// including anonymous traffic that never reaches the principal limiter.
type IPGuard struct {
	mu      sync.Mutex
	clients map[string]*guardClient
	limit   rate.Limit
	burst   int
}

// NewIPGuard creates a guard allowing rps requests per second with burst.
func NewIPGuard(rps float64, burst int) *IPGuard {
	return &IPGuard{
		clients: make(map[string]*guardClient),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Run removes idle clients until ctx is cancelled.
func (guard *IPGuard) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.IPGuardCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			guard.sweep(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

func (guard *IPGuard) sweep(now time.Time) {
	guard.mu.Lock()
	defer guard.mu.Unlock()

	for ip, client := range guard.clients {
		if now.Sub(client.lastSeen) > constants.IPGuardClientTTL {
			delete(guard.clients, ip)
		}
	}
}

// Allow consumes one token for ip.
func (guard *IPGuard) Allow(ip string) bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()

	client, found := guard.clients[ip]
	if !found {
		client = &guardClient{limiter: rate.NewLimiter(guard.limit, guard.burst)}
		guard.clients[ip] = client
	}
	client.lastSeen = time.Now()

	return client.limiter.Allow()
}

// Middleware rejects requests from IPs that exhausted their bucket.
func (guard *IPGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !guard.Allow(RealIP(request)) {
			writer.Header().Set(constants.HeaderRetryAfter, "1")
			respond.Error(writer, request, &apperr.AppError{
				Kind:       apperr.KindRateLimited,
				Title:      "Too Many Requests",
				Message:    "Too many requests from this address",
				HTTPStatus: http.StatusTooManyRequests,
			})
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// # Method Guard

// ReadOnly rejects every method except GET and HEAD, apart from the listed
// write paths which additionally accept POST.
func ReadOnly(writePaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			switch request.Method {
			case http.MethodGet, http.MethodHead:
			case http.MethodPost:
				if !slices.Contains(writePaths, request.URL.Path) {
					respond.Error(writer, request, apperr.MethodNotAllowed("Only GET requests are allowed"))
					return
				}
			default:
				respond.Error(writer, request, apperr.MethodNotAllowed("Only GET requests are allowed"))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// # Reliability & Safety

// PanicRecovery recovers from panics, logs stack trace, and returns 500.
func PanicRecovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// Defer a recovery function to catch any runtime exceptions
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					// Capture the runtime stack trace for diagnostics
					stackTrace := make([]byte, 2048)
					length := runtime.Stack(stackTrace, false)

					ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "panic_recovered",
						slog.Any("error", err),
						slog.String("stack", string(stackTrace[:length])),
					)

					respond.Error(writer, request, apperr.Internal(nil))
				}
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # Cross-Origin Resource Sharing

// CORSConfig defines the behavior needed by the CORS middleware.
type CORSConfig interface {
	IsDevelopment() bool
	AllowedOrigins() []string
}

// CORS answers preflight requests and decorates responses.
//
// Known origins (any origin in development) are echoed back with credentials
// allowed so the key dashboard can call the management endpoints. Every other
// origin gets the public read-only policy.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	suffixes := cfg.AllowedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := writer.Header()
			origin := request.Header.Get(constants.HeaderOrigin)

			// 1. Decide the policy for this origin
			if origin != "" && (cfg.IsDevelopment() || originAllowed(origin, suffixes)) {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Add("Vary", constants.HeaderOrigin)
			} else {
				header.Set("Access-Control-Allow-Origin", "*")
				header.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			header.Set("Access-Control-Expose-Headers", strings.Join([]string{
				constants.HeaderXRequestID,
				constants.HeaderRateLimit,
				constants.HeaderRateRemaining,
				constants.HeaderRateReset,
				constants.HeaderRetryAfter,
			}, ", "))

			// 2. Handle pre-flight requests (OPTIONS)
			if request.Method == http.MethodOptions {
				header.Set("Access-Control-Max-Age", "300")
				writer.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// originAllowed matches the origin's host against the allowed domain suffixes.
func originAllowed(origin string, suffixes []string) bool {
	host := origin
	if _, rest, found := strings.Cut(origin, "://"); found {
		host = rest
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	for _, suffix := range suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// # Middleware Helpers

// RealIP extracts client IP, respecting common proxy headers.
func RealIP(request *http.Request) string {

	// Check standard proxy headers first
	if ip := request.Header.Get(constants.HeaderXRealIP); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	// Fallback to the direct connection's address
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
