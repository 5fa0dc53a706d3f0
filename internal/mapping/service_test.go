// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/animeids/internal/mapping"
	"github.com/taibuivan/animeids/internal/platform/apperr"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	return appErr.HTTPStatus
}

func TestService_Lookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("alias_and_suffix", func(t *testing.T) {
		record, err := f.service.Lookup(ctx, "MAL", "1.json")
		require.NoError(t, err)
		assert.Equal(t, "Cowboy Bebop", record.Title)
		require.NotNil(t, record.MyAnimeList)
		assert.Equal(t, 1, *record.MyAnimeList)
	})

	t.Run("non_numeric_id", func(t *testing.T) {
		record, err := f.service.Lookup(ctx, "ap", "cowboy-bebop")
		require.NoError(t, err)
		assert.Equal(t, "Cowboy Bebop", record.Title)
	})

	t.Run("extra_platform", func(t *testing.T) {
		record, err := f.service.Lookup(ctx, "kaize_id", "99")
		require.NoError(t, err)
		assert.Equal(t, "Cowboy Bebop", record.Title)
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := f.service.Lookup(ctx, "anilist", "999999")
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
		assert.Equal(t, "Platform anilist with ID 999999 not found", err.Error())
	})

	t.Run("unknown_platform", func(t *testing.T) {
		_, err := f.service.Lookup(ctx, "crunchyroll", "1")
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})

	t.Run("integrity_violation", func(t *testing.T) {
		_, err := f.service.Lookup(ctx, "anilist", "404")
		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
		assert.ErrorIs(t, err, mapping.ErrIntegrity)
	})
}

func TestService_LookupAndRedirectAgree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"1", "1.json", "%31", "%2531", " %2531.json "} {
		t.Run(id, func(t *testing.T) {
			record, err := f.service.Lookup(ctx, "anilist", id)
			require.NoError(t, err)
			assert.Equal(t, "Cowboy Bebop", record.Title)

			uri, err := f.service.Redirect(ctx, mapping.RedirectRequest{Platform: "anilist", ID: id, Target: "myanimelist"})
			require.NoError(t, err)
			assert.Equal(t, "https://myanimelist.net/anime/1", uri)
		})
	}
}

func TestService_LookupTrakt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.service.LookupTrakt(ctx, "show", "30857", "1")
	require.NoError(t, err)
	assert.Equal(t, "Cowboy Bebop", record.Title)

	record, err = f.service.LookupTrakt(ctx, "movies", "9788", "")
	require.NoError(t, err)
	assert.Equal(t, "Cowboy Bebop: Tengoku no Tobira", record.Title)

	_, err = f.service.LookupTrakt(ctx, "shows", "30857", "0")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Season ID cannot be 0", err.Error())

	_, err = f.service.LookupTrakt(ctx, "shows", "30857", "2")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	assert.Equal(t, "Media type shows with ID 30857 and season ID 2 not found", err.Error())
}

func TestService_LookupTMDB(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.service.LookupTMDB(ctx, "movie", "11299", false)
	require.NoError(t, err)
	require.NotNil(t, record.TheMovieDB)
	assert.Equal(t, 11299, *record.TheMovieDB)

	_, err = f.service.LookupTMDB(ctx, "tv", "1", false)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Currently, only `movie` are supported", err.Error())

	_, err = f.service.LookupTMDB(ctx, "movie", "11299", true)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Currently, only `movie` are supported", err.Error())
}

func TestService_Redirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     mapping.RedirectRequest
		want    string
		status  int
		message string
	}{
		{
			name: "to_target",
			req:  mapping.RedirectRequest{Platform: "mal", ID: "1", Target: "kitsu"},
			want: "https://kitsu.app/anime/1",
		},
		{
			name: "to_self",
			req:  mapping.RedirectRequest{Platform: "anilist", ID: "1"},
			want: "https://anilist.co/anime/1",
		},
		{
			name: "derived_target",
			req:  mapping.RedirectRequest{Platform: "al", ID: "5", Target: "lb"},
			want: "https://letterboxd.com/tmdb/11299",
		},
		{
			name: "trakt_source_with_season",
			req:  mapping.RedirectRequest{Platform: "trakt", ID: "show/30857/season/1", Target: "anidb"},
			want: "https://anidb.net/anime/23",
		},
		{
			name: "trakt_self",
			req:  mapping.RedirectRequest{Platform: "trakt", ID: "shows/30857/seasons/1"},
			want: "https://trakt.tv/shows/30857/seasons/1",
		},
		{
			name: "trakt_target",
			req:  mapping.RedirectRequest{Platform: "mal", ID: "1", Target: "trakt"},
			want: "https://trakt.tv/shows/30857/seasons/1",
		},
		{
			name: "tmdb_bare_id",
			req:  mapping.RedirectRequest{Platform: "tmdb", ID: "11299"},
			want: "https://www.themoviedb.org/movie/11299",
		},
		{
			name: "tmdb_composed_id",
			req:  mapping.RedirectRequest{Platform: "tmdb", ID: "movie/11299", Target: "myanimelist"},
			want: "https://myanimelist.net/anime/5",
		},
		{
			name:    "missing_platform",
			req:     mapping.RedirectRequest{ID: "1"},
			status:  http.StatusBadRequest,
			message: "Platform not found, please specify platform by adding `platform` parameter.",
		},
		{
			name:    "missing_id",
			req:     mapping.RedirectRequest{Platform: "mal"},
			status:  http.StatusBadRequest,
			message: "Platform ID not found, please specify platform ID by adding `id` parameter",
		},
		{
			name:    "one_way_source",
			req:     mapping.RedirectRequest{Platform: "kurozora", ID: "1"},
			status:  http.StatusBadRequest,
			message: "Platform `kurozora` is not supported as redirect source (one-way)",
		},
		{
			name:    "one_way_alias",
			req:     mapping.RedirectRequest{Platform: "lb", ID: "1"},
			status:  http.StatusBadRequest,
			message: "Platform `letterboxd` is not supported as redirect source (one-way)",
		},
		{
			name:    "unknown_target",
			req:     mapping.RedirectRequest{Platform: "mal", ID: "1", Target: "crunchyroll"},
			status:  http.StatusBadRequest,
			message: "Target crunchyroll not found",
		},
		{
			name:    "trakt_slug",
			req:     mapping.RedirectRequest{Platform: "trakt", ID: "shows/cowboy-bebop"},
			status:  http.StatusBadRequest,
			message: "Trakt ID for shows/cowboy-bebop is not an `int`. Please convert the slug to `int` ID using Trakt API to proceed",
		},
		{
			name:    "trakt_empty_id",
			req:     mapping.RedirectRequest{Platform: "trakt", ID: "shows/"},
			status:  http.StatusBadRequest,
			message: "Trakt ID for shows/ is not an `int`. Please convert the slug to `int` ID using Trakt API to proceed",
		},
		{
			name:    "tmdb_tv",
			req:     mapping.RedirectRequest{Platform: "tmdb", ID: "tv/1"},
			status:  http.StatusBadRequest,
			message: "Currently, only `movie` are supported",
		},
		{
			name:    "absent_on_target",
			req:     mapping.RedirectRequest{Platform: "mal", ID: "5", Target: "kitsu"},
			status:  http.StatusNotFound,
			message: "Cowboy Bebop: Tengoku no Tobira does not exist on kitsu using myanimelist with ID 5",
		},
		{
			name:    "unknown_id",
			req:     mapping.RedirectRequest{Platform: "mal", ID: "424242", Target: "kitsu"},
			status:  http.StatusNotFound,
			message: "Platform myanimelist with ID 424242 not found",
		},
		{
			name:   "integrity_violation",
			req:    mapping.RedirectRequest{Platform: "anilist", ID: "500", Target: "kitsu"},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := f.service.Redirect(ctx, tt.req)

			if tt.status == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.want, uri)
				return
			}

			require.Error(t, err)
			assert.Empty(t, uri)
			assert.Equal(t, tt.status, statusOf(t, err))
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}
