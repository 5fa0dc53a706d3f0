// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"github.com/taibuivan/animeids/internal/mapping"
	"github.com/taibuivan/animeids/internal/platform/constants"
)

// openAPIDocument returns the OpenAPI 3.0.3 description served on /schema.
func openAPIDocument() map[string]any {
	platforms := make([]string, 0, len(mapping.Platforms))
	for _, platform := range mapping.Platforms {
		platforms = append(platforms, string(platform))
	}

	errorResponse := map[string]any{
		"description": "Error envelope",
		"content": map[string]any{
			constants.ContentTypeJSON: map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}

	recordResponse := map[string]any{
		"200": map[string]any{
			"description": "Cross-reference record",
			"content": map[string]any{
				constants.ContentTypeJSON: map[string]any{
					"schema": map[string]any{"$ref": "#/components/schemas/Record"},
				},
			},
		},
		"400": errorResponse,
		"404": errorResponse,
		"500": errorResponse,
	}

	pathParam := func(name string) map[string]any {
		return map[string]any{"name": name, "in": "path", "required": true, "schema": map[string]any{"type": "string"}}
	}
	queryParam := func(name, description string) map[string]any {
		return map[string]any{"name": name, "in": "query", "description": description, "schema": map[string]any{"type": "string"}}
	}

	recordProperties := map[string]any{"title": map[string]any{"type": "string"}}
	for _, field := range []string{
		"anidb", "anilist", "animenewsnetwork", "anisearch", "annict", "kaize_id", "kitsu", "livechart",
		"myanimelist", "nautiljon_id", "otakotaku", "shikimori", "shoboi", "silveryasha", "simkl",
		"themoviedb", "themoviedb_season", "trakt", "trakt_season",
	} {
		recordProperties[field] = map[string]any{"type": "integer", "nullable": true}
	}
	for _, field := range []string{"animeplanet", "imdb", "kaize", "nautiljon", "notify", "themoviedb_type", "trakt_type"} {
		recordProperties[field] = map[string]any{"type": "string", "nullable": true}
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "ids.moe API",
			"description": "High-performance anime ID mapping API providing cross-platform anime database ID relationships.",
			"version":     constants.AppVersion,
			"license": map[string]any{
				"name": "AGPL-3.0-only",
				"url":  "https://github.com/tajoumaru/ids.moe/blob/main/LICENSE",
			},
		},
		"servers": []map[string]any{{"url": "https://api.ids.moe", "description": "Production server"}},
		"paths": map[string]any{
			"/{platform}/{id}": map[string]any{
				"get": map[string]any{
					"summary":    "Resolve a platform id into its cross-reference record",
					"parameters": []any{pathParam("platform"), pathParam("id")},
					"responses":  recordResponse,
				},
			},
			"/trakt/{kind}/{id}/seasons/{season}": map[string]any{
				"get": map[string]any{
					"summary":    "Resolve a Trakt show season",
					"parameters": []any{pathParam("kind"), pathParam("id"), pathParam("season")},
					"responses":  recordResponse,
				},
			},
			"/themoviedb/movie/{id}": map[string]any{
				"get": map[string]any{
					"summary":    "Resolve a TheMovieDB movie",
					"parameters": []any{pathParam("id")},
					"responses":  recordResponse,
				},
			},
			"/redirect": map[string]any{
				"get": map[string]any{
					"summary": "Redirect to the title's page on a target platform",
					"parameters": []any{
						queryParam("platform", "Source platform (aliases: from, f)"),
						queryParam("id", "Source id (aliases: mediaid, i)"),
						queryParam("target", "Target platform (aliases: to, t)"),
						queryParam("raw", "Return the URI as text instead of redirecting (aliases: israw, r)"),
					},
					"responses": map[string]any{
						"302": map[string]any{"description": "Redirect to the computed URI"},
						"200": map[string]any{"description": "Computed URI as plain text (raw mode)"},
						"400": errorResponse,
						"404": errorResponse,
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Record": map[string]any{"type": "object", "properties": recordProperties},
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error":   map[string]any{"type": "string"},
						"code":    map[string]any{"type": "integer"},
						"message": map[string]any{"type": "string"},
					},
				},
				"Platform": map[string]any{"type": "string", "enum": platforms},
			},
			"securitySchemes": map[string]any{
				"bearer": map[string]any{
					"type":        "http",
					"scheme":      "bearer",
					"description": "API key or session token",
				},
				"apiKey": map[string]any{
					"type":        "apiKey",
					"in":          "query",
					"name":        constants.QueryParamKey,
					"description": "API key passed as a query parameter",
				},
			},
		},
	}
}
