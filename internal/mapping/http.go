// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	requestutil "github.com/taibuivan/animeids/internal/platform/request"
	"github.com/taibuivan/animeids/internal/platform/respond"
)

// Query parameter aliases accepted by the redirect endpoint.
var (
	platformParams = []string{"platform", "from", "f"}
	idParams       = []string{"mediaid", "id", "i"}
	targetParams   = []string{"target", "to", "t"}
	rawParams      = []string{"israw", "raw", "r"}
)

// Handler exposes the lookup and redirect endpoints.
type Handler struct {
	service    *Service
	archiveURL string
}

// NewHandler creates a handler. archiveURL is the base of the static dataset
// archive used by the legacy whole-platform routes.
func NewHandler(service *Service, archiveURL string) *Handler {
	return &Handler{service: service, archiveURL: archiveURL}
}

// Routes registers the endpoints on router. Static routes win over the
// catch-all platform patterns in chi, so registration order does not matter.
func (h *Handler) Routes(router chi.Router) {
	router.Get("/redirect", h.redirect)
	router.Get("/rd", h.redirect)

	router.Get("/trakt/{kind}", h.invalidFormat("Invalid Trakt URL format"))
	router.Get("/trakt/{kind}/{id}", h.trakt)
	router.Get("/trakt/{kind}/{id}/seasons/{season}", h.trakt)
	router.Get("/trakt/{kind}/{id}/season/{season}", h.trakt)
	router.Get("/trakt/{kind}/{id}/*", h.trakt)

	router.Get("/themoviedb/{kind}", h.invalidFormat("Invalid TMDB URL format"))
	router.Get("/themoviedb/{kind}/{id}", h.tmdb)
	router.Get("/themoviedb/{kind}/{id}/*", h.tmdb)

	router.Get("/{platform}", h.archive)
	router.Get("/{platform}/{id}", h.lookup)
}

// # Lookups

func (h *Handler) lookup(writer http.ResponseWriter, request *http.Request) {
	record, err := h.service.Lookup(request.Context(),
		requestutil.Param(request, "platform"),
		requestutil.Param(request, "id"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, record)
}

func (h *Handler) trakt(writer http.ResponseWriter, request *http.Request) {
	record, err := h.service.LookupTrakt(request.Context(),
		requestutil.Param(request, "kind"),
		requestutil.Param(request, "id"),
		requestutil.Param(request, "season"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, record)
}

func (h *Handler) tmdb(writer http.ResponseWriter, request *http.Request) {
	record, err := h.service.LookupTMDB(request.Context(),
		requestutil.Param(request, "kind"),
		requestutil.Param(request, "id"),
		requestutil.Param(request, "*") != "",
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, record)
}

func (h *Handler) invalidFormat(message string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, apperr.InvalidInput("Invalid request", message))
	}
}

// # Redirects

func (h *Handler) redirect(writer http.ResponseWriter, request *http.Request) {
	uri, err := h.service.Redirect(request.Context(), RedirectRequest{
		Platform: requestutil.FirstQuery(request, platformParams...),
		ID:       requestutil.FirstQuery(request, idParams...),
		Target:   requestutil.FirstQuery(request, targetParams...),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if requestutil.HasQuery(request, rawParams...) {
		respond.Text(writer, http.StatusOK, uri)
		return
	}
	respond.Redirect(writer, uri)
}

// # Legacy Archive

// archive redirects whole-platform requests such as /anilist, /anilist.json,
// /anilist() or /animeapi to the static dataset archive.
//
// "<platform>()" selects the array form of the dump, anything else the
// object form keyed by id.
func (h *Handler) archive(writer http.ResponseWriter, request *http.Request) {
	raw := requestutil.Param(request, "platform")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}

	name, file, ok := h.archiveFile(raw)
	if !ok {
		respond.Error(writer, request, apperr.InvalidInput("Invalid platform",
			fmt.Sprintf("Platform %s not found, please check if it is a valid platform", name)))
		return
	}

	respond.Redirect(writer, h.archiveURL+file)
}

// archiveFile maps a legacy route segment to its archive file name.
func (h *Handler) archiveFile(segment string) (string, string, bool) {
	if name, isTSV := strings.CutSuffix(segment, ".tsv"); isTSV {
		if name == "animeapi" || name == "aa" {
			return name, "animeapi.tsv", true
		}
		return name, "", false
	}

	name := strings.TrimSuffix(segment, ".json")
	name, isArray := strings.CutSuffix(name, "()")

	if name == "animeapi" || name == "aa" {
		return name, "animeapi.json", true
	}

	if !h.service.Aliases().IsValidTarget(name) {
		return name, "", false
	}

	platform := string(h.service.Aliases().Canonicalize(name))
	if isArray {
		return name, platform + ".json", true
	}
	return name, platform + "_object.json", true
}
