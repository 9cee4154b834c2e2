package service

import (
	"context"

	"github.com/araozmd/ancdotario-user-service/internal/auth"
	"github.com/araozmd/ancdotario-user-service/internal/domain"
)

// UserService defines the interface for user lifecycle logic.
type UserService interface {
	// Create claims a nickname for the caller and writes the record.
	Create(ctx context.Context, caller *auth.Identity, req *domain.CreateUserRequest) (*domain.UserResponse, error)
	// Lookup resolves a user by nickname, case-insensitively.
	Lookup(ctx context.Context, nickname string) (*domain.UserResponse, error)
	// Availability reports whether a nickname can still be claimed.
	Availability(ctx context.Context, nickname string) (*domain.NicknameAvailabilityResponse, error)
	// Delete removes the caller's own record and photos. Requires the
	// confirmation flag.
	Delete(ctx context.Context, caller *auth.Identity, identity string, confirmed bool, reason string) (*domain.DeleteUserResponse, error)
	// BatchDelete removes up to maxBatchDelete users. Admin only.
	BatchDelete(ctx context.Context, caller *auth.Identity, req *domain.BatchDeleteRequest) (*domain.BatchDeleteResponse, error)
}

// PhotoService defines the interface for profile photo logic.
type PhotoService interface {
	// Attach normalizes the uploaded image, stores it and points the
	// caller's record at it. Old photo objects are cleaned up after the
	// record switch.
	Attach(ctx context.Context, caller *auth.Identity, identity string, req *domain.PhotoUploadRequest) (*domain.PhotoUploadResponse, error)
	// Detach clears the caller's photo and removes the stored objects.
	Detach(ctx context.Context, caller *auth.Identity, identity string) (*domain.PhotoDetachResponse, error)
	// Refresh re-issues the access URL for the caller's current photo.
	Refresh(ctx context.Context, caller *auth.Identity, identity string) (*domain.PhotoRefreshResponse, error)
}
