package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
)

// GormUserRepository implements UserRepository on a relational database.
// Used by the local dev server; the Lambda deployment runs on DynamoDB.
// Uniqueness is enforced by the primary key on identity and the unique
// index on nickname_normalized, so concurrent creates are settled by the
// database, not by a pre-read.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Get(ctx context.Context, identity string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).First(&model, "identity = ?", identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", identity, err)
	}
	return model.ToDomain(), nil
}

func (r *GormUserRepository) GetByNickname(ctx context.Context, nick string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).
		First(&model, "nickname_normalized = ?", nickname.Normalize(nick)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by nickname %s: %w", nick, err)
	}
	return model.ToDomain(), nil
}

func (r *GormUserRepository) CreateIfAbsent(ctx context.Context, identity, nick string) (*domain.User, error) {
	model := &domain.UserModel{
		Identity:           identity,
		Nickname:           nick,
		NicknameNormalized: nickname.Normalize(nick),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, r.handleError(err)
	}
	return model.ToDomain(), nil
}

func (r *GormUserRepository) SetImageURL(ctx context.Context, identity, imageURL string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "identity = ?", identity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.Model(&model).Update("image_url", imageURL).Error; err != nil {
			return err
		}
		return tx.First(&model, "identity = ?", identity).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set image url for %s: %w", identity, err)
	}
	return model.ToDomain(), nil
}

func (r *GormUserRepository) Delete(ctx context.Context, identity string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "identity = ?", identity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		// Hard delete: the row owns the nickname, removing it releases the
		// nickname for reuse.
		return tx.Delete(&model).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete user %s: %w", identity, err)
	}
	return model.ToDomain(), nil
}

// handleError maps driver-specific unique-constraint violations onto the
// repository sentinels. Message shapes differ per driver (postgres says
// "duplicate key", sqlite "UNIQUE constraint failed", mysql "Duplicate
// entry"), so matching is by substring.
func (r *GormUserRepository) handleError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	isDuplicate := strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "Duplicate entry")
	if !isDuplicate {
		return fmt.Errorf("create user: %w", err)
	}
	if strings.Contains(msg, "nickname") {
		return ErrNicknameTaken
	}
	// Anything else duplicated is the identity primary key; postgres names
	// it users_pkey, which carries no column hint.
	return ErrUserExists
}
