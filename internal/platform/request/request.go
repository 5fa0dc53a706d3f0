// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction, alias-aware
query lookups and credential extraction.
*/
package requestutil

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
FirstQuery returns the first non-empty value among several alias names.

Parameters:
  - request: *http.Request
  - names: ...string (checked in order, e.g. "platform", "from", "f")

Returns:
  - string: The value, or "" when none is set
*/
func FirstQuery(request *http.Request, names ...string) string {
	query := request.URL.Query()
	for _, name := range names {
		if value := query.Get(name); value != "" {
			return value
		}
	}
	return ""
}

/*
HasQuery reports whether any of the names is present, even with an empty value.
*/
func HasQuery(request *http.Request, names ...string) bool {
	query := request.URL.Query()
	for _, name := range names {
		if query.Has(name) {
			return true
		}
	}
	return false
}

/*
Credential extracts the bearer value from the Authorization header, falling
back to the ?key= query parameter.

Returns "" when the request carries no credential.
*/
func Credential(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	return request.URL.Query().Get(constants.QueryParamKey)
}

/*
Principal extracts the authenticated principal from the request context.

Returns nil if the request is anonymous.
*/
func Principal(request *http.Request) *sec.Principal {
	return ctxutil.GetPrincipal(request.Context())
}

/*
RequiredPrincipal ensures the request is authenticated and returns its principal.

Returns:
  - *sec.Principal: The authenticated principal
  - error: apperr.Unauthorized if the request is anonymous
*/
func RequiredPrincipal(request *http.Request) (*sec.Principal, error) {
	principal := ctxutil.GetPrincipal(request.Context())
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return principal, nil
}
