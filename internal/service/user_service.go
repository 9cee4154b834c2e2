package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/araozmd/ancdotario-user-service/internal/assets"
	"github.com/araozmd/ancdotario-user-service/internal/audit"
	"github.com/araozmd/ancdotario-user-service/internal/auth"
	"github.com/araozmd/ancdotario-user-service/internal/cache"
	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
	"github.com/araozmd/ancdotario-user-service/internal/repository"
	"github.com/araozmd/ancdotario-user-service/pkg/log"
)

const (
	// DefaultDeletionReason is recorded when the caller gives none.
	DefaultDeletionReason = "User requested deletion"
	// DeletionWarning is returned with every successful deletion.
	DeletionWarning = "This action cannot be undone"

	maxBatchDelete     = 50
	batchDeleteWorkers = 5
)

// userServiceImpl implements UserService.
type userServiceImpl struct {
	repo     repository.UserRepository
	assets   *assets.Store
	cache    cache.UserCache
	rules    nickname.Rules
	cacheTTL time.Duration
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, store *assets.Store, userCache cache.UserCache, rules nickname.Rules, cacheTTL time.Duration) UserService {
	return &userServiceImpl{
		repo:     repo,
		assets:   store,
		cache:    userCache,
		rules:    rules,
		cacheTTL: cacheTTL,
	}
}

// Create claims the nickname and writes the caller's record. A duplicate
// create returns a ConflictError carrying the existing record.
func (s *userServiceImpl) Create(ctx context.Context, caller *auth.Identity, req *domain.CreateUserRequest) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	nick := strings.TrimSpace(req.Nickname)
	if err := s.rules.Validate(nick); err != nil {
		return nil, err
	}

	user, err := s.repo.CreateIfAbsent(ctx, caller.Subject, nick)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserExists):
			existing, getErr := s.repo.Get(ctx, caller.Subject)
			if getErr != nil {
				l.Error().Err(getErr).Str(log.FieldIdentity, caller.Subject).Msg("failed to load existing user after create conflict")
				return nil, getErr
			}
			resp := existing.ToResponse()
			return nil, newConflictError(repository.ErrUserExists, &resp)
		case errors.Is(err, repository.ErrNicknameTaken):
			return nil, err
		default:
			l.Error().Err(err).Str(log.FieldIdentity, caller.Subject).Msg("failed to create user")
			return nil, err
		}
	}

	// A re-claimed nickname may still be cached against its old owner.
	invalidateUser(ctx, s.cache, user)

	audit.LogWithDetail(ctx, audit.ActionUserCreate, user.Identity, user.Nickname, "user created")

	resp := user.ToResponse()
	return &resp, nil
}

// Lookup resolves a user by nickname. Validation is format-only: reserved
// words cannot be registered, so they simply come back as not found.
func (s *userServiceImpl) Lookup(ctx context.Context, nick string) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	nick = strings.TrimSpace(nick)
	if err := s.rules.ValidateFormat(nick); err != nil {
		return nil, err
	}

	key := s.cache.KeyByNickname(nick)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		resp := cached.User.ToResponse()
		return &resp, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("nickname cache read failed")
	}

	user, err := s.repo.GetByNickname(ctx, nick)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		l.Error().Err(err).Str(log.FieldNickname, nick).Msg("failed to look up user by nickname")
		return nil, err
	}

	if err := s.cache.Set(ctx, key, &cache.UserCacheResult{User: *user}, s.cacheTTL); err != nil {
		l.Warn().Err(err).Msg("nickname cache write failed")
	}

	resp := user.ToResponse()
	return &resp, nil
}

// Availability answers whether the nickname could be claimed right now.
// Invalid or reserved nicknames are reported as unavailable rather than as
// request errors.
func (s *userServiceImpl) Availability(ctx context.Context, nick string) (*domain.NicknameAvailabilityResponse, error) {
	l := log.Ctx(ctx)

	nick = strings.TrimSpace(nick)
	resp := &domain.NicknameAvailabilityResponse{Nickname: nick}

	if err := s.rules.ValidateFormat(nick); err != nil {
		resp.Reason = "invalid format"
		return resp, nil
	}
	if nickname.IsReserved(nick) {
		resp.Reason = "reserved"
		return resp, nil
	}

	_, err := s.repo.GetByNickname(ctx, nick)
	switch {
	case err == nil:
		resp.Reason = "taken"
		return resp, nil
	case errors.Is(err, repository.ErrUserNotFound):
		resp.Available = true
		return resp, nil
	default:
		l.Error().Err(err).Str(log.FieldNickname, nick).Msg("failed to check nickname availability")
		return nil, err
	}
}

// Delete removes the caller's own record. The confirmation flag must be
// set; photo objects are removed best-effort after the record is gone.
func (s *userServiceImpl) Delete(ctx context.Context, caller *auth.Identity, identity string, confirmed bool, reason string) (*domain.DeleteUserResponse, error) {
	if caller.Subject != identity {
		return nil, ErrForbidden
	}
	if !confirmed {
		return nil, ErrDeleteNotConfirmed
	}

	reason = resolveReason(reason)
	user, removed, err := s.deleteRecord(ctx, identity, reason)
	if err != nil {
		return nil, err
	}

	return &domain.DeleteUserResponse{
		User:        user.ToResponse(),
		RemovedKeys: removed,
		Reason:      reason,
		Warning:     DeletionWarning,
	}, nil
}

// BatchDelete removes several users concurrently. Only admins may call it,
// and per-identity failures never abort the rest of the batch.
func (s *userServiceImpl) BatchDelete(ctx context.Context, caller *auth.Identity, req *domain.BatchDeleteRequest) (*domain.BatchDeleteResponse, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if !req.Confirmed {
		return nil, ErrDeleteNotConfirmed
	}

	identities := dedupe(req.Identities)
	if len(identities) == 0 {
		return nil, fmt.Errorf("%w: no identities given", ErrInvalidBatch)
	}
	if len(identities) > maxBatchDelete {
		return nil, fmt.Errorf("%w: at most %d identities per request", ErrInvalidBatch, maxBatchDelete)
	}

	reason := resolveReason(req.Reason)
	outcomes := make([]error, len(identities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchDeleteWorkers)
	for i, identity := range identities {
		i, identity := i, identity
		g.Go(func() error {
			_, _, outcomes[i] = s.deleteRecord(gctx, identity, reason)
			return nil
		})
	}
	// Workers stash their outcome instead of returning it, so Wait cannot
	// fail and no sibling gets cancelled.
	_ = g.Wait()

	resp := &domain.BatchDeleteResponse{}
	for i, identity := range identities {
		switch err := outcomes[i]; {
		case err == nil:
			resp.Deleted = append(resp.Deleted, identity)
		case errors.Is(err, repository.ErrUserNotFound):
			resp.Failed = append(resp.Failed, domain.BatchDeleteFailure{Identity: identity, Error: "user not found"})
		default:
			resp.Failed = append(resp.Failed, domain.BatchDeleteFailure{Identity: identity, Error: "deletion failed"})
		}
	}

	audit.LogWithDetail(ctx, audit.ActionBatchDelete, caller.Subject,
		fmt.Sprintf("deleted=%d failed=%d", len(resp.Deleted), len(resp.Failed)), "batch delete finished")

	return resp, nil
}

// deleteRecord removes one user and then their photo objects. The record
// delete decides success; storage failures after it are logged and the
// surviving keys stay out of the removed list.
func (s *userServiceImpl) deleteRecord(ctx context.Context, identity, reason string) (*domain.User, []string, error) {
	l := log.Ctx(ctx)

	keys, err := s.assets.ListKeys(ctx, identity)
	if err != nil {
		l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to list photos before delete")
		return nil, nil, err
	}

	user, err := s.repo.Delete(ctx, identity)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			l.Error().Err(err).Str(log.FieldIdentity, identity).Msg("failed to delete user")
		}
		return nil, nil, err
	}

	var removed []string
	if result, err := s.assets.DeleteKeys(ctx, keys); err != nil {
		l.Warn().Err(err).Str(log.FieldIdentity, identity).Msg("photo cleanup failed after delete")
	} else {
		removed = result.Deleted
		for _, failure := range result.Failed {
			l.Warn().Err(failure.Err).Str(log.FieldAssetKey, failure.Key).Msg("photo object survived delete")
		}
	}

	invalidateUser(ctx, s.cache, user)

	audit.LogWithDetail(ctx, audit.ActionUserDelete, identity, reason, "user deleted")
	return user, removed, nil
}

// invalidateUser drops both cache entries for the record. Best-effort: a
// failed invalidation only shortens nothing, entries still expire by TTL.
func invalidateUser(ctx context.Context, c cache.UserCache, user *domain.User) {
	keys := []string{
		c.KeyByIdentity(user.Identity),
		c.KeyByNickname(user.Nickname),
	}
	if err := c.Delete(ctx, keys...); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
	}
}

func resolveReason(reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return DefaultDeletionReason
}

func dedupe(identities []string) []string {
	seen := make(map[string]struct{}, len(identities))
	out := identities[:0:0]
	for _, identity := range identities {
		identity = strings.TrimSpace(identity)
		if identity == "" {
			continue
		}
		if _, ok := seen[identity]; ok {
			continue
		}
		seen[identity] = struct{}{}
		out = append(out, identity)
	}
	return out
}
