// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/ctxutil"
	"github.com/taibuivan/animeids/internal/platform/kv"
	"github.com/taibuivan/animeids/internal/platform/metrics"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

var (
	// ErrInvalidCredential means a key or token was presented but not accepted.
	ErrInvalidCredential = errors.New("access: invalid credential")

	// ErrNoKey means the principal has never been issued an API key.
	ErrNoKey = errors.New("access: no api key issued")
)

// # Key Records

// KeyRecord is the metadata kept for a principal's current API key.
// The plaintext key is never part of it.
type KeyRecord struct {
	UserID     string `json:"userId"`
	CreatedAt  int64  `json:"createdAt"`
	LastUsed   *int64 `json:"lastUsed,omitempty"`
	DisplayKey string `json:"displayKey"`
	Digest     string `json:"digest"`
}

// IssuedKey is the result of [KeyRegistry.Issue] and [KeyRegistry.Regenerate].
// Key holds the plaintext only when Created is true.
type IssuedKey struct {
	Key     string
	Record  KeyRecord
	Created bool
}

func userKey(userID string) string {
	return constants.KeyPrefixUser + userID + constants.KeySuffixUserAPIKey
}

func digestKey(digest string) string {
	return constants.KeyPrefixAPIKeyDigest + digest
}

// # Registry

// KeyRegistry issues and validates locally generated API keys.
//
// Two entries are written per key: "user:<id>:apikey" holds the [KeyRecord]
// and "apikey:<digest>" maps the digest back to the owner. A digest entry is
// honoured only while the owner's record still carries that digest, so a
// regenerated key revokes its predecessor even if the old mapping survives.
type KeyRegistry struct {
	store  kv.Store
	hasher *sec.KeyHasher
	prefix string
	now    func() time.Time
}

// RegistryOption customizes a [KeyRegistry].
type RegistryOption func(*KeyRegistry)

// WithRegistryClock replaces the wall clock used for timestamps.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *KeyRegistry) { r.now = now }
}

// NewKeyRegistry creates a registry over the auth namespace.
func NewKeyRegistry(store kv.Store, hasher *sec.KeyHasher, prefix string, opts ...RegistryOption) *KeyRegistry {
	if prefix == "" {
		prefix = constants.DefaultAPIKeyPrefix
	}

	registry := &KeyRegistry{store: store, hasher: hasher, prefix: prefix, now: time.Now}
	for _, opt := range opts {
		opt(registry)
	}
	return registry
}

// Prefix returns the marker that identifies keys issued by this registry.
func (r *KeyRegistry) Prefix() string {
	return r.prefix
}

// Get returns the key record of userID or [ErrNoKey].
func (r *KeyRegistry) Get(ctx context.Context, userID string) (*KeyRecord, error) {
	payload, err := r.store.Get(ctx, userKey(userID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNoKey
		}
		return nil, fmt.Errorf("access: apikey_record_get_failed: %w", err)
	}

	record := &KeyRecord{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("access: apikey record of %s is malformed: %w", userID, err)
	}
	return record, nil
}

/*
Issue returns the principal's key, creating one on first use.

When a key already exists only its record is returned; the plaintext cannot
be recovered.

Parameters:
  - ctx: Request context
  - userID: Session principal id

Returns:
  - *IssuedKey: Created is true only for a fresh key
  - error: Store failures
*/
func (r *KeyRegistry) Issue(ctx context.Context, userID string) (*IssuedKey, error) {
	record, err := r.Get(ctx, userID)
	switch {
	case err == nil:
		return &IssuedKey{Record: *record}, nil
	case !errors.Is(err, ErrNoKey):
		return nil, err
	}

	issued, err := r.create(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics.APIKeysIssued.WithLabelValues("issued").Inc()
	ctxutil.GetLogger(ctx).InfoContext(ctx, "api_key_issued", slog.String("user_id", userID))
	return issued, nil
}

// Regenerate replaces the principal's key and revokes the previous one.
func (r *KeyRegistry) Regenerate(ctx context.Context, userID string) (*IssuedKey, error) {
	previous, err := r.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNoKey) {
		return nil, err
	}

	issued, err := r.create(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The new record no longer carries the old digest, so a failed delete
	// leaves an orphan mapping that Validate already rejects.
	if previous != nil && previous.Digest != "" {
		if err := r.store.Delete(ctx, digestKey(previous.Digest)); err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "api_key_revoke_failed",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		}
	}

	metrics.APIKeysIssued.WithLabelValues("regenerated").Inc()
	ctxutil.GetLogger(ctx).InfoContext(ctx, "api_key_regenerated", slog.String("user_id", userID))
	return issued, nil
}

/*
Validate resolves apiKey to its owner and refreshes the key's last-used time.

Returns:
  - string: Owner id
  - error: [ErrInvalidCredential] for unknown or revoked keys, or a wrapped
    store error
*/
func (r *KeyRegistry) Validate(ctx context.Context, apiKey string) (string, error) {
	digest := r.hasher.Digest(apiKey)

	// 1. Digest to owner
	owner, err := r.store.Get(ctx, digestKey(digest))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrInvalidCredential
		}
		return "", fmt.Errorf("access: apikey_digest_get_failed: %w", err)
	}
	userID := string(owner)

	// 2. Owner record must still reference this digest
	record, err := r.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoKey) {
			return "", ErrInvalidCredential
		}
		return "", err
	}
	if record.Digest != digest {
		return "", fmt.Errorf("%w: key was revoked", ErrInvalidCredential)
	}

	// 3. Usage timestamp, best effort
	usedAt := r.now().UnixMilli()
	record.LastUsed = &usedAt
	if err := r.putRecord(ctx, record); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "api_key_touch_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	return userID, nil
}

// create generates a key and writes the record and the digest mapping.
// The two writes are independent; a concurrent regeneration wins by writing last.
func (r *KeyRegistry) create(ctx context.Context, userID string) (*IssuedKey, error) {
	apiKey, err := sec.GenerateAPIKey(r.prefix)
	if err != nil {
		return nil, err
	}

	record := KeyRecord{
		UserID:     userID,
		CreatedAt:  r.now().UnixMilli(),
		DisplayKey: sec.MaskAPIKey(apiKey),
		Digest:     r.hasher.Digest(apiKey),
	}

	if err := r.putRecord(ctx, &record); err != nil {
		return nil, err
	}
	if err := r.store.Put(ctx, digestKey(record.Digest), []byte(userID), 0); err != nil {
		return nil, fmt.Errorf("access: apikey_digest_put_failed: %w", err)
	}

	return &IssuedKey{Key: apiKey, Record: record, Created: true}, nil
}

func (r *KeyRegistry) putRecord(ctx context.Context, record *KeyRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("access: failed to encode apikey record: %w", err)
	}
	if err := r.store.Put(ctx, userKey(record.UserID), payload, 0); err != nil {
		return fmt.Errorf("access: apikey_record_put_failed: %w", err)
	}
	return nil
}
