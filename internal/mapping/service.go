// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mapping resolves an anime's identifier on one platform into its
identifiers on every other platform, and computes redirect destinations.

Pipeline:

	AliasTable (canonical platform) -> RecordStore (two-tier lookup) -> URIBuilder (redirects only)

Authentication and rate limiting run before this package in the middleware
chain; by the time a [Service] method is called the request is admitted.
*/
package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/animeids/internal/platform/apperr"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/metrics"
	"github.com/taibuivan/animeids/internal/platform/validate"
)

// # Id Composition

// pluralKind normalizes a Trakt media kind to its plural form ("show" -> "shows").
func pluralKind(kind string) string {
	if strings.HasSuffix(kind, "s") {
		return kind
	}
	return kind + "s"
}

// TraktID composes the Trakt lookup id "<kind>s/<id>[/seasons/<season>]".
func TraktID(kind, id, season string) string {
	composed := pluralKind(kind) + "/" + id
	if season != "" {
		composed += "/seasons/" + season
	}
	return composed
}

// TMDBID composes the TheMovieDB lookup id "movie/<id>".
func TMDBID(id string) string {
	return "movie/" + id
}

// # Service

// RedirectRequest carries the raw redirect parameters.
type RedirectRequest struct {
	Platform string
	ID       string
	Target   string
}

// Service answers lookup and redirect requests.
type Service struct {
	aliases *AliasTable
	records *RecordStore
	uris    *URIBuilder
}

// NewService wires the resolution pipeline.
func NewService(aliases *AliasTable, records *RecordStore, uris *URIBuilder) *Service {
	return &Service{aliases: aliases, records: records, uris: uris}
}

// Aliases exposes the alias table used by the service.
func (s *Service) Aliases() *AliasTable {
	return s.aliases
}

// Lookup resolves (platform, id) into its full record.
func (s *Service) Lookup(ctx context.Context, platformName, id string) (*Record, error) {
	platform := s.aliases.Canonicalize(platformName)
	return s.resolve(ctx, platform, id, fmt.Sprintf("Platform %s with ID %s not found", platform, id))
}

// LookupTrakt resolves a Trakt entry addressed by media kind, id and optional season.
func (s *Service) LookupTrakt(ctx context.Context, kind, id, season string) (*Record, error) {
	err := (&validate.Validator{}).
		Custom("season", season == "0" && (kind == "show" || kind == "shows"), "Season ID cannot be 0").
		Err("Invalid season ID")
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Media type %s with ID %s", pluralKind(kind), id)
	if season != "" {
		message += fmt.Sprintf(" and season ID %s", season)
	}

	return s.resolve(ctx, Trakt, TraktID(kind, id, season), message+" not found")
}

// LookupTMDB resolves a TheMovieDB movie. Other kinds and season sub-paths
// are rejected before any store access.
func (s *Service) LookupTMDB(ctx context.Context, kind, id string, hasSubPath bool) (*Record, error) {
	const unsupported = "Currently, only `movie` are supported"

	err := (&validate.Validator{}).
		OneOf("kind", kind, unsupported, "movie").
		Custom("path", hasSubPath, unsupported).
		Err("Invalid request")
	if err != nil {
		return nil, err
	}

	return s.resolve(ctx, TheMovieDB, TMDBID(id), fmt.Sprintf("Media type %s with ID %s not found", kind, id))
}

/*
Redirect computes the destination URI for a redirect request.

With no target the source platform's own page is returned; otherwise the
record's page on the target platform.

Returns:
  - string: Destination URI
  - error: InvalidInput for bad parameters, NotFound when the title or its
    presence on the target is missing, Internal on store faults
*/
func (s *Service) Redirect(ctx context.Context, req RedirectRequest) (string, error) {
	// 1. Required parameters
	if err := (&validate.Validator{}).
		Required("platform", req.Platform, "Platform not found, please specify platform by adding `platform` parameter.").
		Err("Invalid platform"); err != nil {
		return "", err
	}
	if err := (&validate.Validator{}).
		Required("id", req.ID, "Platform ID not found, please specify platform ID by adding `id` parameter").
		Err("Invalid platform ID"); err != nil {
		return "", err
	}

	// 2. Canonical names and one-way sources
	platform := s.aliases.Canonicalize(req.Platform)
	var target Platform
	if req.Target != "" {
		target = s.aliases.Canonicalize(req.Target)
	}

	if IsOneWay(platform) {
		return "", apperr.InvalidInput("Invalid platform source",
			fmt.Sprintf("Platform `%s` is not supported as redirect source (one-way)", platform))
	}

	if target != "" && !s.aliases.IsValidTarget(string(target)) {
		return "", apperr.InvalidInput("Invalid target", fmt.Sprintf("Target %s not found", target))
	}

	// 3. Platform-specific id composition
	id, err := composeSourceID(platform, NormalizeID(req.ID))
	if err != nil {
		return "", err
	}

	// 4. Resolve
	record, err := s.resolve(ctx, platform, id, fmt.Sprintf("Platform %s with ID %s not found", platform, req.ID))
	if err != nil {
		s.countRedirect(target, err)
		return "", err
	}

	// 5. Destination
	if target == "" {
		uri, ok := s.uris.Source(platform, id)
		if !ok {
			err := apperr.InvalidInput("Invalid platform", fmt.Sprintf("Unable to build URI for platform %s", platform))
			s.countRedirect(target, err)
			return "", err
		}
		s.countRedirect(target, nil)
		return uri, nil
	}

	uri, ok := s.uris.Target(target, record)
	if !ok {
		title := record.Title
		if title == "" {
			title = "Unknown title"
		}
		err := apperr.NotFound(fmt.Sprintf("%s does not exist on %s using %s with ID %s", title, target, platform, req.ID))
		s.countRedirect(target, err)
		return "", err
	}

	s.countRedirect(target, nil)
	return uri, nil
}

// composeSourceID applies the Trakt and TheMovieDB id rules to a redirect source id.
func composeSourceID(platform Platform, id string) (string, error) {
	switch platform {
	case Trakt:
		parts := strings.Split(id, "/")
		if len(parts) < 2 {
			return id, nil
		}
		message := fmt.Sprintf(
			"Trakt ID for %s/%s is not an `int`. Please convert the slug to `int` ID using Trakt API to proceed",
			parts[0], parts[1])
		err := (&validate.Validator{}).
			Required("id", parts[1], message).
			Numeric("id", parts[1], message).
			Err("Invalid Trakt ID")
		if err != nil {
			return "", err
		}
		if len(parts) >= 4 && (parts[2] == "seasons" || parts[2] == "season") {
			return TraktID(parts[0], parts[1], parts[3]), nil
		}
		return TraktID(parts[0], parts[1], ""), nil

	case TheMovieDB:
		if strings.HasPrefix(id, "tv/") || id == "tv" {
			return "", apperr.InvalidInput("Invalid request", "Currently, only `movie` are supported")
		}
		if !strings.Contains(id, "movie") {
			return TMDBID(id), nil
		}
		return id, nil
	}

	return id, nil
}

// resolve runs the two-tier lookup and classifies its failures.
func (s *Service) resolve(ctx context.Context, platform Platform, id, notFoundMessage string) (*Record, error) {
	record, err := s.records.Resolve(ctx, platform, id)

	// Unknown names pass through canonicalization; keep them out of the label set.
	label := string(platform)
	if !s.aliases.Known(label) {
		label = "other"
	}

	if err == nil {
		metrics.Lookups.WithLabelValues(label, metrics.OutcomeHit).Inc()
		return record, nil
	}

	logger := ctxutil.GetLogger(ctx)

	switch {
	case errors.Is(err, ErrNotFound):
		metrics.Lookups.WithLabelValues(label, metrics.OutcomeMiss).Inc()
		return nil, apperr.NotFound(notFoundMessage).WithCause(err)

	case errors.Is(err, ErrIntegrity):
		metrics.Lookups.WithLabelValues(label, metrics.OutcomeIntegrity).Inc()
		logger.ErrorContext(ctx, "record_integrity_violation",
			slog.String("platform", string(platform)),
			slog.String("id", id),
			slog.Any("error", err),
		)
		return nil, apperr.Internal(err)

	default:
		metrics.Lookups.WithLabelValues(label, metrics.OutcomeError).Inc()
		logger.ErrorContext(ctx, "record_store_unavailable",
			slog.String("platform", string(platform)),
			slog.Any("error", err),
		)
		return nil, apperr.Internal(err)
	}
}

func (s *Service) countRedirect(target Platform, err error) {
	label := string(target)
	if label == "" {
		label = "self"
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case apperr.IsKind(err, apperr.KindNotFound):
		outcome = metrics.OutcomeMiss
	case apperr.IsKind(err, apperr.KindInternal):
		outcome = metrics.OutcomeError
	default:
		outcome = metrics.OutcomeInvalid
	}

	metrics.Redirects.WithLabelValues(label, outcome).Inc()
}
