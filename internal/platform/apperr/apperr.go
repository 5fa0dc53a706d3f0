// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error taxonomy for the AnimeIDs API.

It bridges low-level storage and verification failures and the HTTP error
envelope returned to clients.

Taxonomy:

  - InvalidInput: malformed platform, id, or target (400).
  - Unauthorized: missing or invalid credential (401).
  - RateLimited: fixed window exhausted (429).
  - NotFound: no record, or no presence on the requested target (404).
  - InternalFault: store unreachable or data integrity violation (500).

Every error that leaves a handler is converted into an [AppError] at the
boundary; nothing propagates to the client as an unstructured fault.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an [AppError] independently of its wording.
type Kind string

const (
	KindInvalidInput     Kind = "INVALID_INPUT"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindNotFound         Kind = "NOT_FOUND"
	KindMethodNotAllowed Kind = "METHOD_NOT_ALLOWED"
	KindInternal         Kind = "INTERNAL_FAULT"
)

// AppError is the canonical error type for the AnimeIDs API.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients.
type AppError struct {
	// Kind is the machine-readable classification.
	Kind Kind `json:"-"`
	// Title is the short summary rendered as the envelope's "error" field.
	Title string `json:"error"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code, echoed as "code".
	HTTPStatus int `json:"code"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of e carrying cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Client Errors (4xx)

// InvalidInput creates a 400 [AppError].
//
// Example:
//
//	apperr.InvalidInput("Invalid target", "Target foo not found")
func InvalidInput(title, msg string, details ...FieldError) *AppError {
	return &AppError{
		Kind:       KindInvalidInput,
		Title:      title,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Kind:       KindUnauthorized,
		Title:      "Unauthorized",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// RateLimited creates a 429 [AppError] for an exhausted window of limit requests.
func RateLimited(limit int) *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Title:      "Too Many Requests",
		Message:    fmt.Sprintf("Rate limit exceeded. Limit: %d requests per minute", limit),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NotFound creates a 404 [AppError].
func NotFound(msg string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Title:      "Not found",
		Message:    msg,
		HTTPStatus: http.StatusNotFound,
	}
}

// MethodNotAllowed creates a 405 [AppError].
func MethodNotAllowed(msg string) *AppError {
	return &AppError{
		Kind:       KindMethodNotAllowed,
		Title:      "Method not allowed",
		Message:    msg,
		HTTPStatus: http.StatusMethodNotAllowed,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Title:      "Internal server error",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// InternalWithMessage is [Internal] with a client-safe diagnostic message,
// used by checks whose failure reason is part of the contract.
func InternalWithMessage(msg string, cause error) *AppError {
	ae := Internal(cause)
	ae.Message = msg
	return ae
}

// # Helpers

// IsKind reports whether err (or any error in its chain) is an [*AppError] of kind.
func IsKind(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
