// Package assets manages user photo objects: key minting, listing,
// batch removal and access-URL issuing on top of the storage backend.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/araozmd/ancdotario-user-service/pkg/storage"
)

// ErrNoAssets is returned by Current when the identity owns no photo.
var ErrNoAssets = errors.New("no assets for identity")

const (
	keyRoot         = "users"
	keyTimeLayout   = "20060102_150405"
	contentTypeJPEG = "image/jpeg"
)

// Store owns the object-key layout for user photos. Every upload mints a
// fresh key, so concurrent uploads never overwrite each other and stale
// objects are cleaned up explicitly.
type Store struct {
	storage storage.Storage
	urlTTL  time.Duration
}

func NewStore(st storage.Storage, urlTTL time.Duration) *Store {
	return &Store{storage: st, urlTTL: urlTTL}
}

// Prefix returns the key prefix containing every asset owned by the
// identity.
func Prefix(identity string) string {
	return keyRoot + "/" + identity + "/"
}

// NewKey mints a key for a JPEG photo owned by the identity. The timestamp
// makes lexicographic order match upload order; the random suffix keeps
// same-second uploads from colliding.
func NewKey(identity string, now time.Time) string {
	return fmt.Sprintf("%sphoto_%s_%s.jpg",
		Prefix(identity),
		now.UTC().Format(keyTimeLayout),
		uuid.NewString()[:8],
	)
}

// Put stores a normalized JPEG under a freshly minted key and returns it.
func (s *Store) Put(ctx context.Context, identity string, data []byte) (string, error) {
	key := NewKey(identity, time.Now())
	err := s.storage.Write(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypeJPEG)
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return key, nil
}

// ListKeys returns every asset key owned by the identity, oldest first.
func (s *Store) ListKeys(ctx context.Context, identity string) ([]string, error) {
	infos, err := s.storage.List(ctx, Prefix(identity))
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Current returns the key of the identity's newest asset, or ErrNoAssets.
func (s *Store) Current(ctx context.Context, identity string) (string, error) {
	keys, err := s.ListKeys(ctx, identity)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", ErrNoAssets
	}
	return keys[len(keys)-1], nil
}

// DeleteKeys removes the given keys best-effort, reporting per-key
// outcomes.
func (s *Store) DeleteKeys(ctx context.Context, keys []string) (*storage.BatchDeleteResult, error) {
	if len(keys) == 0 {
		return &storage.BatchDeleteResult{}, nil
	}
	result, err := s.storage.DeleteMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("delete photos: %w", err)
	}
	return result, nil
}

// RemoveAll deletes every asset owned by the identity. It returns the keys
// it attempted alongside the per-key outcomes.
func (s *Store) RemoveAll(ctx context.Context, identity string) ([]string, *storage.BatchDeleteResult, error) {
	keys, err := s.ListKeys(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.DeleteKeys(ctx, keys)
	if err != nil {
		return keys, nil, err
	}
	return keys, result, nil
}

// Exists reports whether the object behind the key is still present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.storage.Exists(ctx, key)
}

// AccessURL issues a time-limited URL for the key.
func (s *Store) AccessURL(ctx context.Context, key string) (string, error) {
	url, err := s.storage.GetURL(ctx, key, s.urlTTL)
	if err != nil {
		return "", fmt.Errorf("issue access url: %w", err)
	}
	return url, nil
}

// URLTTL exposes the configured URL lifetime so callers can surface the
// expiry to clients.
func (s *Store) URLTTL() time.Duration {
	return s.urlTTL
}
