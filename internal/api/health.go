// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/animeids/internal/mapping"
	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/kv"
	"github.com/taibuivan/animeids/internal/platform/respond"
)

// updatedLayout renders the dataset timestamp as "01/02/2006, 03:04:05 PM UTC".
const updatedLayout = "01/02/2006, 03:04:05 PM MST"

// HealthDependencies holds what the liveness, readiness and status endpoints inspect.
type HealthDependencies struct {
	// Dataset is the cross-reference namespace.
	Dataset kv.Store

	// Auth is the auth/rate-limit namespace.
	Auth kv.Store

	// Records runs the heartbeat lookup.
	Records *mapping.RecordStore

	// StoreDriver and RequireAuth are reported by /status.
	StoreDriver string
	RequireAuth bool

	// HomepageURL is the target of GET /.
	HomepageURL string
}

// HealthHandler serves the service's public operational endpoints.
type HealthHandler struct {
	deps    HealthDependencies
	logger  *slog.Logger
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates the handler. The process start time is taken now.
func NewHealthHandler(deps HealthDependencies, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, logger: logger, started: time.Now(), now: time.Now}
}

// Routes registers the endpoints on router.
//
// # Endpoints
//   - GET /             : Redirect to the project homepage
//   - GET /health       : Liveness
//   - GET /ready        : Readiness (store pings)
//   - GET /heartbeat    : Dataset integrity check (also /ping)
//   - GET /updated      : Dataset refresh time as text
//   - GET /status       : Service summary
//   - GET /schema       : OpenAPI document (also /schema.json)
//   - GET /robots.txt   : Crawl policy
func (handler *HealthHandler) Routes(router chi.Router) {
	router.Get("/", handler.home)
	router.Get("/health", handler.liveness)
	router.Get("/ready", handler.readiness)
	router.Get("/heartbeat", handler.heartbeat)
	router.Get("/ping", handler.heartbeat)
	router.Get("/updated", handler.updated)
	router.Get("/status", handler.status)
	router.Get("/schema", handler.schema)
	router.Get("/schema.json", handler.schema)
	router.Get("/robots.txt", handler.robots)
}

func (handler *HealthHandler) home(writer http.ResponseWriter, _ *http.Request) {
	respond.Redirect(writer, handler.deps.HomepageURL)
}

// liveness handles GET /health (liveness check).
func (handler *HealthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{constants.FieldStatus: "ok"})
}

// readiness handles GET /ready (readiness check).
func (handler *HealthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	stores := []struct {
		name  string
		store kv.Store
	}{
		{"dataset", handler.deps.Dataset},
		{"auth", handler.deps.Auth},
	}

	results := make([]checkResult, 0, len(stores))
	isSystemReady := true

	for _, dependency := range stores {
		if dependency.store == nil {
			continue
		}

		result := checkResult{Name: dependency.name, IsOK: true}
		if err := kv.Ping(request.Context(), dependency.store); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.ErrorContext(request.Context(), "readiness_check_failed",
				slog.String("dependency", dependency.name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	responseStatus, httpStatus := "ready", http.StatusOK
	if !isSystemReady {
		responseStatus, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, map[string]any{
		constants.FieldStatus: responseStatus,
		constants.FieldChecks: results,
	})
}

// # Heartbeat

type heartbeatResponse struct {
	Status       string  `json:"status"`
	Code         int     `json:"code"`
	RequestTime  string  `json:"request_time"`
	ResponseTime string  `json:"response_time"`
	RequestEpoch float64 `json:"request_epoch"`
}

/*
heartbeat handles GET /heartbeat and GET /ping.

It resolves the sentinel record (myanimelist/1) through both tiers and checks
that the record really is that title.

Response:
  - 200: heartbeatResponse
  - 500: "KV data is corrupted or unavailable" on a tier-1 miss,
    "Data integrity check failed" on a tier-2 miss or wrong record
*/
func (handler *HealthHandler) heartbeat(writer http.ResponseWriter, request *http.Request) {
	requestStart := handler.now()

	if err := handler.verifySentinel(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}

	finished := handler.now()
	elapsed := finished.Sub(requestStart).Seconds()

	respond.OK(writer, heartbeatResponse{
		Status:       "OK",
		Code:         http.StatusOK,
		RequestTime:  fmt.Sprintf("%.3fs", elapsed),
		ResponseTime: fmt.Sprintf("%.3fs", elapsed),
		RequestEpoch: float64(requestStart.UnixMilli()) / 1000,
	})
}

func (handler *HealthHandler) verifySentinel(ctx context.Context) error {
	record, err := handler.deps.Records.Resolve(ctx, constants.SentinelPlatform, constants.SentinelID)
	switch {
	case errors.Is(err, mapping.ErrNotFound):
		return apperr.InternalWithMessage("KV data is corrupted or unavailable", err)
	case errors.Is(err, mapping.ErrIntegrity):
		return apperr.InternalWithMessage("Data integrity check failed", err)
	case err != nil:
		return apperr.InternalWithMessage("Health check failed", err)
	}

	if id, ok := record.ID(mapping.MyAnimeList); !ok || id != constants.SentinelID {
		return apperr.InternalWithMessage("Data integrity check failed",
			fmt.Errorf("sentinel record has myanimelist=%q", id))
	}
	return nil
}

// # Dataset Metadata

// updated handles GET /updated. Any failure degrades to the fallback text.
func (handler *HealthHandler) updated(writer http.ResponseWriter, request *http.Request) {
	const fallback = "Updated endpoint - timestamp not available"

	raw, err := handler.deps.Dataset.Get(request.Context(), constants.DatasetUpdatedKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			handler.logger.WarnContext(request.Context(), "dataset_timestamp_unavailable", slog.Any("error", err))
		}
		respond.Text(writer, http.StatusOK, fallback)
		return
	}

	epoch, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		respond.Text(writer, http.StatusOK, fallback)
		return
	}

	respond.Text(writer, http.StatusOK, "Updated on "+time.Unix(epoch, 0).UTC().Format(updatedLayout))
}

// status handles GET /status.
func (handler *HealthHandler) status(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]any{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
		"uptime_seconds":       int64(handler.now().Sub(handler.started).Seconds()),
		"store_driver":         handler.deps.StoreDriver,
		"require_auth":         handler.deps.RequireAuth,
		"platforms":            len(mapping.Platforms),
	})
}

// # Static Documents

func (handler *HealthHandler) schema(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, openAPIDocument())
}

func (handler *HealthHandler) robots(writer http.ResponseWriter, _ *http.Request) {
	respond.Text(writer, http.StatusOK, "User-agent: *\nDisallow:")
}
