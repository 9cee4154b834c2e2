package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/araozmd/ancdotario-user-service/internal/assets"
	"github.com/araozmd/ancdotario-user-service/internal/audit"
	"github.com/araozmd/ancdotario-user-service/internal/auth"
	"github.com/araozmd/ancdotario-user-service/internal/cache"
	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
	"github.com/araozmd/ancdotario-user-service/internal/photo"
	"github.com/araozmd/ancdotario-user-service/internal/repository"
	"github.com/araozmd/ancdotario-user-service/pkg/log"
)

// photoServiceImpl implements PhotoService.
type photoServiceImpl struct {
	repo        repository.UserRepository
	assets      *assets.Store
	cache       cache.UserCache
	rules       nickname.Rules
	constraints photo.Constraints
}

// NewPhotoService creates a new photo service.
func NewPhotoService(repo repository.UserRepository, store *assets.Store, userCache cache.UserCache, rules nickname.Rules, constraints photo.Constraints) PhotoService {
	return &photoServiceImpl{
		repo:        repo,
		assets:      store,
		cache:       userCache,
		rules:       rules,
		constraints: constraints,
	}
}

// Attach stores a normalized photo and points the record at it. The new
// object is written before the record switches and before old objects are
// touched, so a crash at any point leaves the user with a working photo.
func (s *photoServiceImpl) Attach(ctx context.Context, caller *auth.Identity, identity string, req *domain.PhotoUploadRequest) (*domain.PhotoUploadResponse, error) {
	l := log.Ctx(ctx)

	if caller.Subject != identity {
		return nil, ErrForbidden
	}

	data, err := photo.DecodeInput(req.Image, s.constraints.MaxBytes)
	if err != nil {
		return nil, err
	}
	result, err := photo.Normalize(data, s.constraints)
	if err != nil {
		return nil, err
	}

	user, err := s.getOrCreateOwner(ctx, caller, req.Nickname)
	if err != nil {
		return nil, err
	}

	// Snapshot the old objects before the new one lands, so cleanup never
	// sees the fresh key.
	oldKeys, err := s.assets.ListKeys(ctx, identity)
	if err != nil {
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to list existing photos")
		return nil, err
	}

	newKey, err := s.assets.Put(ctx, identity, result.Data)
	if err != nil {
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to store photo")
		return nil, err
	}

	url, err := s.assets.AccessURL(ctx, newKey)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAssetKey, newKey).Msg("failed to issue photo url")
		s.compensate(ctx, newKey)
		return nil, err
	}

	updated, err := s.repo.SetImageURL(ctx, identity, url)
	if err != nil {
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to update image url")
		s.compensate(ctx, newKey)
		return nil, err
	}

	// Old objects go last; a failure here leaves garbage, not a broken user.
	if cleanup, err := s.assets.DeleteKeys(ctx, oldKeys); err != nil {
		l.Warn().Err(err).Str(log.FieldIdentity, identity).Msg("old photo cleanup failed")
	} else {
		for _, failure := range cleanup.Failed {
			l.Warn().Err(failure.Err).Str(log.FieldAssetKey, failure.Key).Msg("old photo object survived cleanup")
		}
	}

	invalidateUser(ctx, s.cache, updated)

	audit.LogWithDetail(ctx, audit.ActionPhotoAttach, identity, newKey, "profile photo attached")

	return &domain.PhotoUploadResponse{
		User: updated.ToResponse(),
		Photo: domain.PhotoInfo{
			Key:              newKey,
			Width:            result.Width,
			Height:           result.Height,
			OriginalSize:     result.OriginalSize,
			OutputSize:       result.OutputSize,
			ReductionPercent: result.ReductionPercent,
		},
	}, nil
}

// Detach clears the record's image URL, then removes the stored objects
// best-effort.
func (s *photoServiceImpl) Detach(ctx context.Context, caller *auth.Identity, identity string) (*domain.PhotoDetachResponse, error) {
	l := log.Ctx(ctx)

	if caller.Subject != identity {
		return nil, ErrForbidden
	}

	user, err := s.repo.Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	keys, err := s.assets.ListKeys(ctx, identity)
	if err != nil {
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to list photos for detach")
		return nil, err
	}
	if user.ImageURL == "" && len(keys) == 0 {
		return nil, ErrNoPhoto
	}

	updated, err := s.repo.SetImageURL(ctx, identity, "")
	if err != nil {
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to clear image url")
		return nil, err
	}

	var removed []string
	if result, err := s.assets.DeleteKeys(ctx, keys); err != nil {
		l.Warn().Err(err).Str(log.FieldIdentity, identity).Msg("photo cleanup failed after detach")
	} else {
		removed = result.Deleted
		for _, failure := range result.Failed {
			l.Warn().Err(failure.Err).Str(log.FieldAssetKey, failure.Key).Msg("photo object survived detach")
		}
	}

	invalidateUser(ctx, s.cache, updated)

	audit.Log(ctx, audit.ActionPhotoDetach, identity, "profile photo removed")

	return &domain.PhotoDetachResponse{
		User:        updated.ToResponse(),
		RemovedKeys: removed,
	}, nil
}

// Refresh re-issues the access URL for the newest stored photo and saves
// it on the record.
func (s *photoServiceImpl) Refresh(ctx context.Context, caller *auth.Identity, identity string) (*domain.PhotoRefreshResponse, error) {
	l := log.Ctx(ctx)

	if caller.Subject != identity {
		return nil, ErrForbidden
	}

	if _, err := s.repo.Get(ctx, identity); err != nil {
		return nil, err
	}

	key, err := s.assets.Current(ctx, identity)
	if err != nil {
		if errors.Is(err, assets.ErrNoAssets) {
			return nil, ErrNoPhoto
		}
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to find current photo")
		return nil, err
	}

	// Presigning is local computation; verify the object is really there
	// before handing out a URL to nothing.
	ok, err := s.assets.Exists(ctx, key)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAssetKey, key).Msg("failed to check photo existence")
		return nil, err
	}
	if !ok {
		return nil, ErrNoPhoto
	}

	url, err := s.assets.AccessURL(ctx, key)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAssetKey, key).Msg("failed to issue photo url")
		return nil, err
	}

	updated, err := s.repo.SetImageURL(ctx, identity, url)
	if err != nil {
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to store refreshed url")
		return nil, err
	}

	invalidateUser(ctx, s.cache, updated)

	audit.LogWithDetail(ctx, audit.ActionPhotoRefresh, identity, key, "photo url refreshed")

	return &domain.PhotoRefreshResponse{
		User:      updated.ToResponse(),
		Key:       key,
		ExpiresAt: time.Now().UTC().Add(s.assets.URLTTL()),
	}, nil
}

// getOrCreateOwner loads the caller's record, creating it on the fly when
// a nickname came with the upload. First-time users can set a photo in one
// round trip that way.
func (s *photoServiceImpl) getOrCreateOwner(ctx context.Context, caller *auth.Identity, nick string) (*domain.User, error) {
	user, err := s.repo.Get(ctx, caller.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldIdentity, caller.Subject).Msg("failed to load user for photo attach")
		return nil, err
	}

	nick = strings.TrimSpace(nick)
	if nick == "" {
		return nil, err
	}
	if err := s.rules.Validate(nick); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateIfAbsent(ctx, caller.Subject, nick)
	if err != nil {
		// Lost a race against our own parallel create: the record exists
		// now, use it.
		if errors.Is(err, repository.ErrUserExists) {
			return s.repo.Get(ctx, caller.Subject)
		}
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionUserCreate, created.Identity, created.Nickname, "user created during photo attach")
	return created, nil
}

func (s *photoServiceImpl) compensate(ctx context.Context, key string) {
	if _, err := s.assets.DeleteKeys(ctx, []string{key}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldAssetKey, key).Msg("failed to remove orphaned photo object")
	}
}
