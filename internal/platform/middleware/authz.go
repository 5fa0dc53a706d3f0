// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/metrics"
	"github.com/taibuivan/animeids/internal/platform/ratelimit"
	requestutil "github.com/taibuivan/animeids/internal/platform/request"
	"github.com/taibuivan/animeids/internal/platform/respond"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

// Authenticator resolves a raw credential into a principal.
//
// Defining it here decouples the middleware from the access package, so
// tests can inject fakes.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*sec.Principal, error)
}

// RateChecker counts one request against a principal's window.
type RateChecker interface {
	Check(ctx context.Context, principalID string, tier sec.Tier, override int) (ratelimit.Info, error)
	Now() time.Time
}

// Authenticate admits a request only with a valid credential and a
// non-exhausted window.
//
// # Flow
//  1. Extract the credential (Bearer header, else ?key=).
//  2. Resolve it via [Authenticator]; failures end the request with 401.
//  3. Count the request via [RateChecker] and emit X-RateLimit-* headers.
//  4. Exhausted windows end the request with 429 and Retry-After.
//  5. Inject [*sec.Principal] into the request context.
//
// A nil principal with no error (public scope) skips steps 3 to 5.
func Authenticate(authenticator Authenticator, limiter RateChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// 1. Credential
			principal, err := authenticator.Authenticate(ctx, requestutil.Credential(request))
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if principal == nil {
				next.ServeHTTP(writer, request)
				return
			}

			if sink, ok := writer.(principalSink); ok {
				sink.setPrincipal(principal)
			}

			// 2. Fixed window
			info, err := limiter.Check(ctx, principal.ID, principal.Tier, principal.RateLimit)
			if err != nil {
				if apperr.IsKind(err, apperr.KindRateLimited) {
					writeRateHeaders(writer, info)
					writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(info.RetryAfter(limiter.Now())))
					metrics.RateLimitRejections.WithLabelValues(string(principal.Tier)).Inc()
					ctxutil.GetLogger(ctx).WarnContext(ctx, "rate_limit_exceeded",
						slog.String("user_id", principal.ID),
						slog.Int("limit", info.Limit),
					)
				}
				respond.Error(writer, request, err)
				return
			}
			writeRateHeaders(writer, info)

			// 3. Context injection
			ctx = ctxutil.WithPrincipal(ctx, principal)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("user_id", principal.ID)))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func writeRateHeaders(writer http.ResponseWriter, info ratelimit.Info) {
	header := writer.Header()
	header.Set(constants.HeaderRateLimit, strconv.Itoa(info.Limit))
	header.Set(constants.HeaderRateRemaining, strconv.Itoa(info.Remaining))
	header.Set(constants.HeaderRateReset, strconv.FormatInt(info.Reset.Unix(), 10))
}
