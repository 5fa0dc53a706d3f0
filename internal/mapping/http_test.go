// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/animeids/internal/mapping"
)

const archiveURL = "https://archive.example/dataset/"

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	router := chi.NewRouter()
	mapping.NewHandler(newFixture(t).service, archiveURL).Routes(router)
	return router
}

func serve(router http.Handler, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func TestHandler_Lookup(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		path   string
		status int
		title  string
	}{
		{"/mal/1", http.StatusOK, "Cowboy Bebop"},
		{"/anilist/1.json", http.StatusOK, "Cowboy Bebop"},
		{"/anilist/%31", http.StatusOK, "Cowboy Bebop"},
		{"/trakt/show/30857/seasons/1", http.StatusOK, "Cowboy Bebop"},
		{"/trakt/shows/30857/season/1", http.StatusOK, "Cowboy Bebop"},
		{"/trakt/movie/9788", http.StatusOK, "Cowboy Bebop: Tengoku no Tobira"},
		{"/trakt/movie/9788/seasons", http.StatusOK, "Cowboy Bebop: Tengoku no Tobira"},
		{"/trakt/shows/30857/seasons", http.StatusNotFound, ""},
		{"/anilist/%2531", http.StatusOK, "Cowboy Bebop"},
		{"/themoviedb/movie/11299", http.StatusOK, "Cowboy Bebop: Tengoku no Tobira"},
		{"/anilist/999999", http.StatusNotFound, ""},
		{"/anilist/404", http.StatusInternalServerError, ""},
		{"/trakt/shows/30857/seasons/0", http.StatusBadRequest, ""},
		{"/trakt/shows", http.StatusBadRequest, ""},
		{"/themoviedb/tv/1", http.StatusBadRequest, ""},
		{"/themoviedb/movie/11299/season/1", http.StatusBadRequest, ""},
		{"/themoviedb/movie", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			recorder := serve(router, tt.path)
			require.Equal(t, tt.status, recorder.Code, recorder.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

			if tt.title != "" {
				assert.Equal(t, tt.title, body["title"])
				return
			}
			assert.EqualValues(t, tt.status, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestHandler_Redirect(t *testing.T) {
	router := newRouter(t)

	recorder := serve(router, "/redirect?platform=mal&mediaid=1&target=anilist")
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "https://anilist.co/anime/1", recorder.Header().Get("Location"))
	assert.Empty(t, recorder.Body.String())

	recorder = serve(router, "/rd?f=al&i=5&t=letterboxd")
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "https://letterboxd.com/tmdb/11299", recorder.Header().Get("Location"))

	recorder = serve(router, "/rd?from=mal&id=1&to=kitsu&r")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/plain", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "https://kitsu.app/anime/1", recorder.Body.String())

	recorder = serve(router, "/redirect?platform=mal&id=1&israw=false")
	assert.Equal(t, http.StatusOK, recorder.Code, "raw mode is enabled by presence alone")
	assert.Equal(t, "https://myanimelist.net/anime/1", recorder.Body.String())

	recorder = serve(router, "/redirect?platform=kurozora&id=1")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "one-way")

	recorder = serve(router, "/redirect?id=1")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = serve(router, "/redirect?platform=mal&id=5&target=kitsu")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandler_Archive(t *testing.T) {
	router := newRouter(t)

	tests := map[string]string{
		"/anilist":        "anilist_object.json",
		"/al.json":        "anilist_object.json",
		"/anilist()":      "anilist.json",
		"/mal().json":     "myanimelist.json",
		"/animeapi":       "animeapi.json",
		"/aa":             "animeapi.json",
		"/animeapi.tsv":   "animeapi.tsv",
		"/trakt":          "trakt_object.json",
		"/themoviedb":     "themoviedb_object.json",
		"/anime-planet()": "animeplanet.json",
	}

	for path, file := range tests {
		t.Run(path, func(t *testing.T) {
			recorder := serve(router, path)
			assert.Equal(t, http.StatusFound, recorder.Code)
			assert.Equal(t, archiveURL+file, recorder.Header().Get("Location"))
		})
	}

	for _, path := range []string{"/crunchyroll", "/anilist.tsv", "/kaize_id"} {
		recorder := serve(router, path)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, path)
	}
}
