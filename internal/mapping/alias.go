// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// # Platforms

// Platform is the canonical name of a supported cataloguing service.
type Platform string

const (
	AniDB            Platform = "anidb"
	AniList          Platform = "anilist"
	AnimeNewsNetwork Platform = "animenewsnetwork"
	AnimePlanet      Platform = "animeplanet"
	AniSearch        Platform = "anisearch"
	Annict           Platform = "annict"
	IMDb             Platform = "imdb"
	Kaize            Platform = "kaize"
	Kitsu            Platform = "kitsu"
	Kurozora         Platform = "kurozora"
	Letterboxd       Platform = "letterboxd"
	LiveChart        Platform = "livechart"
	MyAniLi          Platform = "myanili"
	MyAnimeList      Platform = "myanimelist"
	Nautiljon        Platform = "nautiljon"
	Notify           Platform = "notify"
	OtakOtaku        Platform = "otakotaku"
	Shikimori        Platform = "shikimori"
	Shoboi           Platform = "shoboi"
	SilverYasha      Platform = "silveryasha"
	SIMKL            Platform = "simkl"
	TheMovieDB       Platform = "themoviedb"
	Trakt            Platform = "trakt"
)

// Platforms lists every canonical platform in display order.
var Platforms = []Platform{
	AniDB, AniList, AnimeNewsNetwork, AnimePlanet, AniSearch, Annict, IMDb,
	Kaize, Kitsu, Kurozora, Letterboxd, LiveChart, MyAniLi, MyAnimeList,
	Nautiljon, Notify, OtakOtaku, Shikimori, Shoboi, SilverYasha, SIMKL,
	TheMovieDB, Trakt,
}

// DefaultAliases returns the built-in alias lists, keyed by canonical name.
// The canonical name itself is always accepted and is not repeated here.
func DefaultAliases() map[Platform][]string {
	return map[Platform][]string{
		AniDB:            {"ad", "adb", "anidb.net"},
		AniList:          {"al", "anilist.co"},
		AnimeNewsNetwork: {"an", "ann", "animenewsnetwork.com"},
		AnimePlanet:      {"ap", "anime-planet", "anime-planet.com", "animeplanet.com"},
		AniSearch:        {"as", "anisearch.de", "anisearch.es", "anisearch.fr", "anisearch.it", "anisearch.jp", "anisearch.com"},
		Annict:           {"ac", "act", "anc", "annict.com", "annict.jp", "en.annict.com"},
		IMDb:             {"im", "imdb.com"},
		Kaize:            {"kz", "kaize.io"},
		Kitsu:            {"kt", "kts", "kitsu.app", "kitsu.io"},
		Kurozora:         {"kr", "krz", "kurozora.app"},
		Letterboxd:       {"lb", "letterboxd.com"},
		LiveChart:        {"lc", "livechart.me"},
		MyAniLi:          {"my", "myani.li"},
		MyAnimeList:      {"ma", "mal", "myanimelist.net"},
		Nautiljon:        {"nj", "ntj", "nautiljon.com"},
		Notify:           {"nf", "ntf", "ntm", "notifymoe", "notify.moe"},
		OtakOtaku:        {"oo", "otakotaku.com"},
		Shikimori:        {"sh", "shk", "shiki", "shikimori.me", "shikimori.one", "shikimori.org"},
		Shoboi:           {"sb", "shb", "syb", "syoboi", "shobocal", "syobocal", "cal.syoboi.jp"},
		SilverYasha:      {"sy", "dbti", "db.silveryasha.id", "db.silveryasha.web.id"},
		SIMKL:            {"sm", "smk", "simkl.com", "animecountdown", "animecountdown.com"},
		TheMovieDB:       {"tm", "tmdb", "tmdb.org"},
		Trakt:            {"tr", "trk", "trakt.tv"},
	}
}

// # Alias Table

// AliasTable resolves platform aliases to canonical names.
//
// It is built once at startup and never mutated afterwards, so it is safe for
// concurrent use without locking.
type AliasTable struct {
	lookup  map[string]Platform
	targets map[Platform]struct{}
}

// NewAliasTable builds a table from alias lists keyed by canonical name.
// Every canonical name becomes a valid redirect target.
func NewAliasTable(aliases map[Platform][]string) *AliasTable {
	table := &AliasTable{
		lookup:  make(map[string]Platform),
		targets: make(map[Platform]struct{}, len(aliases)),
	}

	for platform, names := range aliases {
		canonical := Platform(lower(string(platform)))
		table.lookup[string(canonical)] = canonical
		table.targets[canonical] = struct{}{}
		for _, name := range names {
			table.lookup[lower(name)] = canonical
		}
	}

	return table
}

// DefaultAliasTable builds the table from [DefaultAliases].
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(DefaultAliases())
}

// Canonicalize lower-cases name and maps it to its canonical platform.
// Unknown names are returned lower-cased but otherwise unchanged, leaving it
// to the record lookup to report them as missing.
func (t *AliasTable) Canonicalize(name string) Platform {
	key := lower(name)
	if platform, ok := t.lookup[key]; ok {
		return platform
	}
	return Platform(key)
}

// IsValidTarget reports whether name resolves to a redirect target.
func (t *AliasTable) IsValidTarget(name string) bool {
	_, ok := t.targets[t.Canonicalize(name)]
	return ok
}

// Known reports whether name is a recognized alias or canonical name.
func (t *AliasTable) Known(name string) bool {
	_, ok := t.lookup[lower(name)]
	return ok
}

// lower applies Unicode-aware lower-casing. A fresh Caser is used per call
// because Casers carry state and are not safe for concurrent use.
func lower(value string) string {
	return cases.Lower(language.Und).String(value)
}
