package cache

import (
	"context"
	"time"

	"github.com/araozmd/ancdotario-user-service/internal/nickname"
)

// NoopUserCache is used when no Redis address is configured. Every read is
// a miss and writes vanish, so the service degrades to straight repository
// access.
type NoopUserCache struct{}

func NewNoopUserCache() *NoopUserCache { return &NoopUserCache{} }

func (NoopUserCache) Get(ctx context.Context, key string) (*UserCacheResult, error) {
	return nil, ErrCacheMiss
}

func (NoopUserCache) Set(ctx context.Context, key string, result *UserCacheResult, ttl time.Duration) error {
	return nil
}

func (NoopUserCache) Delete(ctx context.Context, keys ...string) error { return nil }

func (NoopUserCache) KeyByIdentity(identity string) string { return "identity:" + identity }

func (NoopUserCache) KeyByNickname(nick string) string {
	return "nickname:" + nickname.Normalize(nick)
}

func (NoopUserCache) Close() error { return nil }
