package repository

import (
	"context"
	"sync"
	"time"

	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
)

// MemoryUserRepository keeps records in process memory. It backs tests and
// the "memory" database backend for quick local runs. A single mutex covers
// both maps so create, delete and the nickname claim stay atomic, matching
// the transactional guarantees of the real backends.
type MemoryUserRepository struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	nicknames map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:     make(map[string]*domain.User),
		nicknames: make(map[string]string),
	}
}

func (r *MemoryUserRepository) Get(ctx context.Context, identity string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[identity]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) GetByNickname(ctx context.Context, nick string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.nicknames[nickname.Normalize(nick)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(r.users[identity]), nil
}

func (r *MemoryUserRepository) CreateIfAbsent(ctx context.Context, identity, nick string) (*domain.User, error) {
	normalized := nickname.Normalize(nick)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[identity]; ok {
		return nil, ErrUserExists
	}
	if owner, ok := r.nicknames[normalized]; ok && owner != identity {
		return nil, ErrNicknameTaken
	}

	now := time.Now().UTC()
	user := &domain.User{
		Identity:           identity,
		Nickname:           nick,
		NicknameNormalized: normalized,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.users[identity] = user
	r.nicknames[normalized] = identity
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) SetImageURL(ctx context.Context, identity, imageURL string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[identity]
	if !ok {
		return nil, ErrUserNotFound
	}
	user.ImageURL = imageURL
	user.UpdatedAt = time.Now().UTC()
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, identity string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[identity]
	if !ok {
		return nil, ErrUserNotFound
	}
	delete(r.users, identity)
	delete(r.nicknames, user.NicknameNormalized)
	return user, nil
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	return &clone
}
