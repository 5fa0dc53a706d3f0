// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/taibuivan/animeids/internal/platform/kv"
)

var (
	// ErrNotFound means the (platform, id) pair is not indexed.
	ErrNotFound = errors.New("mapping: record not found")

	// ErrIntegrity means the pair is indexed but its record is missing or
	// unreadable, i.e. the two lookup tiers disagree.
	ErrIntegrity = errors.New("mapping: record integrity violation")
)

// NormalizeID percent-decodes rawID, trims whitespace and strips trailing
// ".json" and ".html" suffixes, so "123", "123.json" and "%31%32%33" share
// one lookup key. The steps repeat until nothing changes, which makes the
// result a fixed point: NormalizeID(NormalizeID(x)) == NormalizeID(x).
// Undecodable input is kept as it stands at that step.
func NormalizeID(rawID string) string {
	id := rawID
	for {
		next := id
		if decoded, err := url.PathUnescape(next); err == nil {
			next = decoded
		}
		next = strings.TrimSpace(next)
		next = strings.TrimSpace(strings.TrimSuffix(next, ".json"))
		next = strings.TrimSpace(strings.TrimSuffix(next, ".html"))

		// Every change shortens the id, so this terminates.
		if next == id {
			return id
		}
		id = next
	}
}

// LookupKey builds the tier-1 key "<platform>/<id>" for an already normalized id.
func LookupKey(platform Platform, id string) string {
	return string(platform) + "/" + id
}

// RecordStore resolves (platform, id) pairs through the two-tier dataset:
// the pair key holds an internal key, and the internal key holds the record.
type RecordStore struct {
	store kv.Store
}

// NewRecordStore wraps the dataset namespace.
func NewRecordStore(store kv.Store) *RecordStore {
	return &RecordStore{store: store}
}

/*
Resolve looks up the record indexed under (platform, rawID).

Parameters:
  - ctx: Request context
  - platform: Canonical platform
  - rawID: Identifier as received; normalized before key construction

Returns:
  - *Record: Decoded record
  - error: [ErrNotFound] on a tier-1 miss, [ErrIntegrity] on a tier-2 miss or
    malformed record, or a wrapped store error
*/
func (s *RecordStore) Resolve(ctx context.Context, platform Platform, rawID string) (*Record, error) {
	key := LookupKey(platform, NormalizeID(rawID))

	// 1. Tier one: pair key to internal key
	internal, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("mapping: tier-1 lookup %s: %w", key, err)
	}

	internalKey := strings.TrimSpace(string(internal))
	if internalKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	// 2. Tier two: internal key to record
	payload, err := s.store.Get(ctx, internalKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s points to missing record %s", ErrIntegrity, key, internalKey)
		}
		return nil, fmt.Errorf("mapping: tier-2 lookup %s: %w", internalKey, err)
	}

	// 3. Decode
	record := &Record{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("%w: record %s is malformed: %w", ErrIntegrity, internalKey, err)
	}

	return record, nil
}
