// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	requestutil "github.com/taibuivan/animeids/internal/platform/request"
	"github.com/taibuivan/animeids/internal/platform/respond"
)

const (
	msgKeyIssued      = "New API key generated. Store it securely - it cannot be retrieved again."
	msgKeyRegenerated = "API key regenerated successfully. Store it securely - it cannot be retrieved again."
)

// Handler implements the API-key management endpoints.
//
// Both endpoints must be mounted behind session authentication; the
// principal is read from the request context.
type Handler struct {
	keys *KeyRegistry
}

// NewHandler constructs a new [Handler].
func NewHandler(keys *KeyRegistry) *Handler {
	return &Handler{keys: keys}
}

// Routes registers the endpoints on router.
//
// # Endpoints
//   - GET  /apikey            : Issue on first call, masked key afterwards
//   - POST /apikey/regenerate : Rotate the key
func (handler *Handler) Routes(router chi.Router) {
	router.Get("/apikey", handler.getKey)
	router.Post("/apikey/regenerate", handler.regenerate)
}

// keyResponse is the wire shape of both endpoints.
type keyResponse struct {
	Exists    *bool  `json:"exists,omitempty"`
	Key       string `json:"key"`
	CreatedAt int64  `json:"createdAt"`
	LastUsed  *int64 `json:"lastUsed,omitempty"`
	Message   string `json:"message,omitempty"`
}

/*
getKey returns the caller's API key.

GET /apikey

Response:
  - 200: keyResponse: Full key with exists=false on first call, masked key
    with exists=true afterwards
  - 401: ErrUnauthorized: Missing or invalid session token
*/
func (handler *Handler) getKey(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	issued, err := handler.keys.Issue(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	exists := !issued.Created
	response := keyResponse{
		Exists:    &exists,
		Key:       issued.Record.DisplayKey,
		CreatedAt: issued.Record.CreatedAt,
		LastUsed:  issued.Record.LastUsed,
	}
	if issued.Created {
		response.Key = issued.Key
		response.Message = msgKeyIssued
	}

	respond.OK(writer, response)
}

/*
regenerate rotates the caller's API key.

POST /apikey/regenerate

Response:
  - 200: keyResponse: The new full key
  - 401: ErrUnauthorized: Missing or invalid session token
*/
func (handler *Handler) regenerate(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	issued, err := handler.keys.Regenerate(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, keyResponse{
		Key:       issued.Key,
		CreatedAt: issued.Record.CreatedAt,
		Message:   msgKeyRegenerated,
	})
}
