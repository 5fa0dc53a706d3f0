// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import "strconv"

// Record is one cross-reference entry: a title and its id on every platform.
//
// Every field is always serialized; an absent id is an explicit null so
// clients can tell "not on this platform" from "field missing".
type Record struct {
	Title            string  `json:"title"`
	AniDB            *int    `json:"anidb"`
	AniList          *int    `json:"anilist"`
	AnimeNewsNetwork *int    `json:"animenewsnetwork"`
	AnimePlanet      *string `json:"animeplanet"`
	AniSearch        *int    `json:"anisearch"`
	Annict           *int    `json:"annict"`
	IMDb             *string `json:"imdb"`
	Kaize            *string `json:"kaize"`
	KaizeID          *int    `json:"kaize_id"`
	Kitsu            *int    `json:"kitsu"`
	LiveChart        *int    `json:"livechart"`
	MyAnimeList      *int    `json:"myanimelist"`
	Nautiljon        *string `json:"nautiljon"`
	NautiljonID      *int    `json:"nautiljon_id"`
	Notify           *string `json:"notify"`
	OtakOtaku        *int    `json:"otakotaku"`
	Shikimori        *int    `json:"shikimori"`
	Shoboi           *int    `json:"shoboi"`
	SilverYasha      *int    `json:"silveryasha"`
	SIMKL            *int    `json:"simkl"`
	TheMovieDB       *int    `json:"themoviedb"`
	TheMovieDBSeason *int    `json:"themoviedb_season"`
	TheMovieDBType   *string `json:"themoviedb_type"`
	Trakt            *int    `json:"trakt"`
	TraktSeason      *int    `json:"trakt_season"`
	TraktType        *string `json:"trakt_type"`
}

// # Field Access

// accessor reads one platform's id from a record.
type accessor func(*Record) (string, bool)

func intField(field func(*Record) *int) accessor {
	return func(r *Record) (string, bool) {
		if value := field(r); value != nil {
			return strconv.Itoa(*value), true
		}
		return "", false
	}
}

func stringField(field func(*Record) *string) accessor {
	return func(r *Record) (string, bool) {
		if value := field(r); value != nil && *value != "" {
			return *value, true
		}
		return "", false
	}
}

// accessors is the dispatch table from a platform to its own id field.
// Kurozora, MyAniLi and Letterboxd have no field of their own and borrow
// another platform's id in the URI builder.
var accessors = map[Platform]accessor{
	AniDB:            intField(func(r *Record) *int { return r.AniDB }),
	AniList:          intField(func(r *Record) *int { return r.AniList }),
	AnimeNewsNetwork: intField(func(r *Record) *int { return r.AnimeNewsNetwork }),
	AnimePlanet:      stringField(func(r *Record) *string { return r.AnimePlanet }),
	AniSearch:        intField(func(r *Record) *int { return r.AniSearch }),
	Annict:           intField(func(r *Record) *int { return r.Annict }),
	IMDb:             stringField(func(r *Record) *string { return r.IMDb }),
	Kaize:            stringField(func(r *Record) *string { return r.Kaize }),
	Kitsu:            intField(func(r *Record) *int { return r.Kitsu }),
	LiveChart:        intField(func(r *Record) *int { return r.LiveChart }),
	MyAnimeList:      intField(func(r *Record) *int { return r.MyAnimeList }),
	Nautiljon:        stringField(func(r *Record) *string { return r.Nautiljon }),
	Notify:           stringField(func(r *Record) *string { return r.Notify }),
	OtakOtaku:        intField(func(r *Record) *int { return r.OtakOtaku }),
	Shikimori:        intField(func(r *Record) *int { return r.Shikimori }),
	Shoboi:           intField(func(r *Record) *int { return r.Shoboi }),
	SilverYasha:      intField(func(r *Record) *int { return r.SilverYasha }),
	SIMKL:            intField(func(r *Record) *int { return r.SIMKL }),
	TheMovieDB:       intField(func(r *Record) *int { return r.TheMovieDB }),
	Trakt:            intField(func(r *Record) *int { return r.Trakt }),
}

// ID returns the record's own id on platform, if any.
func (r *Record) ID(platform Platform) (string, bool) {
	read, ok := accessors[platform]
	if !ok {
		return "", false
	}
	return read(r)
}
