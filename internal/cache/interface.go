package cache

import (
	"context"
	"time"

	"github.com/araozmd/ancdotario-user-service/internal/domain"
)

type UserCacheResult struct {
	User domain.User `json:"user"`
}

// UserCache is a read-through cache for nickname lookups. Mutations
// invalidate both key shapes; a miss is signalled with ErrCacheMiss.
type UserCache interface {
	Get(ctx context.Context, key string) (*UserCacheResult, error)
	Set(ctx context.Context, key string, result *UserCacheResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	KeyByIdentity(identity string) string
	KeyByNickname(nickname string) string
	Close() error
}
