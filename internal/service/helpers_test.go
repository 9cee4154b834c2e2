package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/araozmd/ancdotario-user-service/internal/assets"
	"github.com/araozmd/ancdotario-user-service/internal/auth"
	"github.com/araozmd/ancdotario-user-service/internal/cache"
	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
	"github.com/araozmd/ancdotario-user-service/internal/photo"
	"github.com/araozmd/ancdotario-user-service/internal/repository"
	"github.com/araozmd/ancdotario-user-service/pkg/storage"
)

func testPhotoConstraints() photo.Constraints {
	return photo.Constraints{
		MaxBytes:  5 << 20,
		MaxWidth:  1920,
		MaxHeight: 1080,
		Quality:   85,
	}
}

type testEnv struct {
	repo   repository.UserRepository
	store  *assets.Store
	cache  *fakeCache
	users  UserService
	photos PhotoService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	local, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	repo := repository.NewMemoryUserRepository()
	store := assets.NewStore(local, time.Hour)
	c := newFakeCache()
	rules := nickname.DefaultRules()

	return &testEnv{
		repo:   repo,
		store:  store,
		cache:  c,
		users:  NewUserService(repo, store, c, rules, 30*time.Second),
		photos: NewPhotoService(repo, store, c, rules, testPhotoConstraints()),
	}
}

func caller(subject string) *auth.Identity {
	return &auth.Identity{Subject: subject, Nickname: "caller_nick"}
}

func adminCaller(subject string) *auth.Identity {
	return &auth.Identity{Subject: subject, Groups: []string{"admin"}}
}

// jpegPayload returns a base64-encoded JPEG of the given dimensions.
func jpegPayload(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func mustCreate(t *testing.T, env *testEnv, subject, nick string) *domain.UserResponse {
	t.Helper()
	user, err := env.users.Create(context.Background(), caller(subject), &domain.CreateUserRequest{Nickname: nick})
	if err != nil {
		t.Fatalf("Create(%s, %s) error = %v", subject, nick, err)
	}
	return user
}

func mustAttach(t *testing.T, env *testEnv, subject, payload string) *domain.PhotoUploadResponse {
	t.Helper()
	resp, err := env.photos.Attach(context.Background(), caller(subject), subject, &domain.PhotoUploadRequest{Image: payload})
	if err != nil {
		t.Fatalf("Attach(%s) error = %v", subject, err)
	}
	return resp
}

func assetKeys(t *testing.T, env *testEnv, subject string) []string {
	t.Helper()
	keys, err := env.store.ListKeys(context.Background(), subject)
	if err != nil {
		t.Fatalf("ListKeys(%s) error = %v", subject, err)
	}
	return keys
}

// fakeCache is an in-memory UserCache that records deletions, for
// asserting invalidation behavior.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*cache.UserCacheResult
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*cache.UserCacheResult)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (*cache.UserCacheResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if result, ok := c.entries[key]; ok {
		copied := *result
		return &copied, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) Set(ctx context.Context, key string, result *cache.UserCacheResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *result
	c.entries[key] = &copied
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func (c *fakeCache) KeyByIdentity(identity string) string { return "identity:" + identity }

func (c *fakeCache) KeyByNickname(nick string) string {
	return "nickname:" + nickname.Normalize(nick)
}

func (c *fakeCache) Close() error { return nil }

// countingRepo counts nickname lookups hitting the backing repository.
type countingRepo struct {
	repository.UserRepository
	mu         sync.Mutex
	byNickname int
	byIdentity int
}

func (r *countingRepo) GetByNickname(ctx context.Context, nick string) (*domain.User, error) {
	r.mu.Lock()
	r.byNickname++
	r.mu.Unlock()
	return r.UserRepository.GetByNickname(ctx, nick)
}

func (r *countingRepo) Get(ctx context.Context, identity string) (*domain.User, error) {
	r.mu.Lock()
	r.byIdentity++
	r.mu.Unlock()
	return r.UserRepository.Get(ctx, identity)
}

// failingUpdateRepo fails every SetImageURL with the configured error.
type failingUpdateRepo struct {
	repository.UserRepository
	err error
}

func (r *failingUpdateRepo) SetImageURL(ctx context.Context, identity, url string) (*domain.User, error) {
	return nil, r.err
}
