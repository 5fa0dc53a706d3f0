// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import (
	"strconv"
	"strings"
)

// DefaultTraktKind is used when a record has a trakt id but no media kind.
const DefaultTraktKind = "movies"

// RouteTable maps each platform to the base URI its ids are appended to.
type RouteTable map[Platform]string

// DefaultRoutes returns the built-in base URIs.
func DefaultRoutes() RouteTable {
	return RouteTable{
		AniDB:            "https://anidb.net/anime/",
		AniList:          "https://anilist.co/anime/",
		AnimeNewsNetwork: "https://animenewsnetwork/encyclopedia/anime?id=",
		AnimePlanet:      "https://www.anime-planet.com/anime/",
		AniSearch:        "https://www.anisearch.com/anime/",
		Annict:           "https://annict.com/works/",
		IMDb:             "https://www.imdb.com/title/",
		Kaize:            "https://kaize.io/anime/",
		Kitsu:            "https://kitsu.app/anime/",
		Kurozora:         "https://kurozora.app/myanimelist.net/anime/",
		Letterboxd:       "https://letterboxd.com/tmdb/",
		LiveChart:        "https://www.livechart.me/anime/",
		MyAniLi:          "https://myani.li/#/anime/details/",
		MyAnimeList:      "https://myanimelist.net/anime/",
		Nautiljon:        "https://www.nautiljon.com/animes/",
		Notify:           "https://notify.moe/anime/",
		OtakOtaku:        "https://otakotaku.com/anime/view/",
		Shikimori:        "https://shikimori.one/animes/",
		Shoboi:           "https://cal.syoboi.jp/tid/",
		SilverYasha:      "https://db.silveryasha.id/anime/",
		SIMKL:            "https://simkl.com/anime/",
		TheMovieDB:       "https://www.themoviedb.org/movie/",
		Trakt:            "https://trakt.tv/",
	}
}

// derivedFrom lists targets whose URI is built from another platform's id.
var derivedFrom = map[Platform]Platform{
	Kurozora:   MyAnimeList,
	MyAniLi:    MyAnimeList,
	Letterboxd: TheMovieDB,
}

// IsOneWay reports whether platform can only be a redirect target.
func IsOneWay(platform Platform) bool {
	_, ok := derivedFrom[platform]
	return ok
}

// URIBuilder turns resolved records into destination URIs.
type URIBuilder struct {
	routes RouteTable
}

// NewURIBuilder binds a builder to a route table.
func NewURIBuilder(routes RouteTable) *URIBuilder {
	return &URIBuilder{routes: routes}
}

// Target builds the page URI of record on target. The boolean is false when
// the record has no presence on target or target has no route.
func (b *URIBuilder) Target(target Platform, record *Record) (string, bool) {
	base, ok := b.routes[target]
	if !ok {
		return "", false
	}

	if target == Trakt {
		return b.trakt(base, record)
	}

	source := target
	if origin, derived := derivedFrom[target]; derived {
		source = origin
	}

	id, ok := record.ID(source)
	if !ok {
		return "", false
	}
	return base + id, true
}

// trakt composes "<base><kind>/<id>[/seasons/<n>]".
func (b *URIBuilder) trakt(base string, record *Record) (string, bool) {
	if record.Trakt == nil {
		return "", false
	}

	kind := DefaultTraktKind
	if record.TraktType != nil && *record.TraktType != "" {
		kind = *record.TraktType
	}

	uri := base + kind + "/" + strconv.Itoa(*record.Trakt)
	if record.TraktSeason != nil {
		uri += "/seasons/" + strconv.Itoa(*record.TraktSeason)
	}
	return uri, true
}

// Source builds the page URI of id on its own platform, without a record.
// TheMovieDB ids composed as "movie/<id>" are reduced to the bare id since
// the base URI already carries the kind.
func (b *URIBuilder) Source(platform Platform, id string) (string, bool) {
	base, ok := b.routes[platform]
	if !ok || id == "" {
		return "", false
	}

	if platform == TheMovieDB {
		id = strings.TrimPrefix(id, "movie/")
	}
	return base + id, true
}
