package repository

import (
	"context"
	"errors"

	"github.com/araozmd/ancdotario-user-service/internal/domain"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrNicknameTaken = errors.New("nickname already taken")
)

// UserRepository defines the interface for user record persistence.
//
// CreateIfAbsent must be atomic: when two callers race on the same identity
// or the same nickname, the backing store decides the winner via its
// conditional-write primitive. Callers never pre-check and trust the check.
// Nickname uniqueness is enforced on the normalized (lowercase) form; the
// implementations normalize internally.
type UserRepository interface {
	// Get returns the record for an identity, or ErrUserNotFound.
	Get(ctx context.Context, identity string) (*domain.User, error)

	// GetByNickname resolves a record through the nickname secondary key,
	// case-insensitively. Returns ErrUserNotFound when nobody owns it.
	GetByNickname(ctx context.Context, nickname string) (*domain.User, error)

	// CreateIfAbsent writes a fresh record. Fails with ErrUserExists when
	// the identity already has a record, ErrNicknameTaken when a different
	// identity owns the nickname.
	CreateIfAbsent(ctx context.Context, identity, nickname string) (*domain.User, error)

	// SetImageURL updates the record's image URL (empty string clears it)
	// and bumps updated_at. Returns the updated record, or ErrUserNotFound.
	SetImageURL(ctx context.Context, identity, imageURL string) (*domain.User, error)

	// Delete removes the record, releasing its nickname, and returns the
	// deleted record so callers can derive cleanup actions.
	Delete(ctx context.Context, identity string) (*domain.User, error)
}
