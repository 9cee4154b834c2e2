package service

import (
	"errors"

	"github.com/araozmd/ancdotario-user-service/internal/domain"
)

var (
	ErrForbidden          = errors.New("operation not permitted")
	ErrDeleteNotConfirmed = errors.New("deletion not confirmed")
	ErrNoPhoto            = errors.New("user has no photo")
	ErrInvalidBatch       = errors.New("invalid batch request")
)

// ConflictError carries the already-existing record alongside the conflict
// sentinel, so the transport layer can answer a duplicate create with the
// current state instead of a bare error.
type ConflictError struct {
	Existing *domain.UserResponse
	err      error
}

func (e *ConflictError) Error() string { return e.err.Error() }

func (e *ConflictError) Unwrap() error { return e.err }

func newConflictError(sentinel error, existing *domain.UserResponse) *ConflictError {
	return &ConflictError{Existing: existing, err: sentinel}
}
