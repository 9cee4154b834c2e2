package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/araozmd/ancdotario-user-service/internal/auth"
	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
	"github.com/araozmd/ancdotario-user-service/internal/photo"
	"github.com/araozmd/ancdotario-user-service/internal/repository"
	"github.com/araozmd/ancdotario-user-service/internal/service"
	"github.com/araozmd/ancdotario-user-service/pkg/log"
	"github.com/araozmd/ancdotario-user-service/pkg/response"
)

const confirmHint = "retry with ?confirm=true to acknowledge the deletion is permanent"

// Handler handles HTTP requests for the user service.
type Handler struct {
	users    service.UserService
	photos   service.PhotoService
	provider auth.ContextProvider
}

// NewHandler creates a new HTTP handler.
func NewHandler(users service.UserService, photos service.PhotoService, provider auth.ContextProvider) *Handler {
	return &Handler{
		users:    users,
		photos:   photos,
		provider: provider,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Availability checks run before signup, so they stay public.
	r.GET("/nicknames/:nickname/availability", h.CheckNickname)

	users := r.Group("/users")
	users.Use(auth.RequireAuth(h.provider))
	{
		users.POST("", h.CreateUser)
		users.GET("/:nickname", h.LookupUser)
		// Alias kept for clients built against the explicit form.
		users.GET("/by-nickname/:nickname", h.LookupUser)
		users.DELETE("/:identity", h.DeleteUser)
		users.POST("/batch-delete", h.BatchDelete)

		users.POST("/:identity/photo", h.UploadPhoto)
		users.DELETE("/:identity/photo", h.DeletePhoto)
		users.POST("/:identity/photo/refresh", h.RefreshPhotoURL)
	}
}

// CreateUser registers the caller under the requested nickname.
func (h *Handler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.IdentityFromGin(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create user request")
		response.BadRequest(c, bindingMessage(err))
		return
	}

	result, err := h.users.Create(ctx, ident, &req)
	if err != nil {
		var conflict *service.ConflictError
		switch {
		case errors.As(err, &conflict):
			response.ConflictWithData(c, response.CodeUserExists, "user already exists", conflict.Existing)
		case errors.Is(err, repository.ErrNicknameTaken):
			response.Conflict(c, response.CodeNicknameTaken, "nickname already taken")
		case isInvalidInput(err):
			response.BadRequest(c, err.Error())
		default:
			l.Error().Err(err).Msg("create user failed")
			response.InternalError(c, "failed to create user")
		}
		return
	}

	response.Created(c, result)
}

// LookupUser resolves a user by nickname.
func (h *Handler) LookupUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	result, err := h.users.Lookup(ctx, c.Param("nickname"))
	if err != nil {
		switch {
		case errors.Is(err, nickname.ErrInvalidFormat):
			response.BadRequest(c, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Msg("lookup user failed")
			response.InternalError(c, "failed to look up user")
		}
		return
	}

	response.Success(c, result)
}

// CheckNickname reports whether a nickname can still be claimed.
func (h *Handler) CheckNickname(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	result, err := h.users.Availability(ctx, c.Param("nickname"))
	if err != nil {
		l.Error().Err(err).Msg("nickname availability check failed")
		response.InternalError(c, "failed to check nickname")
		return
	}

	response.Success(c, result)
}

// DeleteUser removes the caller's account. Requires ?confirm=true.
func (h *Handler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.IdentityFromGin(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.DeleteUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			l.Warn().Err(err).Msg("invalid delete request body")
			response.BadRequest(c, bindingMessage(err))
			return
		}
	}

	confirmed := c.Query("confirm") == "true"
	result, err := h.users.Delete(ctx, ident, c.Param("identity"), confirmed, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeleteNotConfirmed):
			response.BadRequestWithHint(c, "deletion requires confirmation", confirmHint)
		case errors.Is(err, service.ErrForbidden):
			response.Forbidden(c, "users can only delete their own account")
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Msg("delete user failed")
			response.InternalError(c, "failed to delete user")
		}
		return
	}

	response.Success(c, result)
}

// BatchDelete removes several users in one call. Admin only.
func (h *Handler) BatchDelete(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.IdentityFromGin(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid batch delete request")
		response.BadRequest(c, bindingMessage(err))
		return
	}

	result, err := h.users.BatchDelete(ctx, ident, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Forbidden(c, "admin group required")
		case errors.Is(err, service.ErrDeleteNotConfirmed):
			response.BadRequestWithHint(c, "batch deletion requires confirmation", `set "confirmed": true to acknowledge the deletion is permanent`)
		case errors.Is(err, service.ErrInvalidBatch):
			response.BadRequest(c, err.Error())
		default:
			l.Error().Err(err).Msg("batch delete failed")
			response.InternalError(c, "failed to delete users")
		}
		return
	}

	if len(result.Failed) > 0 {
		response.MultiStatus(c, result)
		return
	}
	response.Success(c, result)
}

// UploadPhoto attaches a profile photo to the caller's record.
func (h *Handler) UploadPhoto(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.IdentityFromGin(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.PhotoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid photo upload request")
		response.BadRequest(c, bindingMessage(err))
		return
	}

	result, err := h.photos.Attach(ctx, ident, c.Param("identity"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Forbidden(c, "users can only manage their own photo")
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, "user not found")
		case errors.Is(err, repository.ErrNicknameTaken):
			response.Conflict(c, response.CodeNicknameTaken, "nickname already taken")
		case isInvalidInput(err):
			response.BadRequest(c, err.Error())
		default:
			l.Error().Err(err).Msg("photo upload failed")
			response.InternalError(c, "failed to upload photo")
		}
		return
	}

	response.Success(c, result)
}

// DeletePhoto removes the caller's profile photo.
func (h *Handler) DeletePhoto(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.IdentityFromGin(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.photos.Detach(ctx, ident, c.Param("identity"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Forbidden(c, "users can only manage their own photo")
		case errors.Is(err, service.ErrNoPhoto):
			response.NotFound(c, "user has no photo")
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Msg("photo detach failed")
			response.InternalError(c, "failed to remove photo")
		}
		return
	}

	response.Success(c, result)
}

// RefreshPhotoURL re-issues the access URL for the caller's current photo.
func (h *Handler) RefreshPhotoURL(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.IdentityFromGin(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.photos.Refresh(ctx, ident, c.Param("identity"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Forbidden(c, "users can only manage their own photo")
		case errors.Is(err, service.ErrNoPhoto):
			response.NotFound(c, "user has no photo")
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Msg("photo refresh failed")
			response.InternalError(c, "failed to refresh photo url")
		}
		return
	}

	response.Success(c, result)
}

// isInvalidInput collects the validation failures that map to 400.
func isInvalidInput(err error) bool {
	return errors.Is(err, nickname.ErrInvalidFormat) ||
		errors.Is(err, nickname.ErrReserved) ||
		errors.Is(err, photo.ErrBadEncoding) ||
		errors.Is(err, photo.ErrUnsupportedFormat) ||
		errors.Is(err, photo.ErrTooLarge) ||
		errors.Is(err, service.ErrInvalidBatch)
}

// bindingMessage renders a request binding failure for the client. Field
// validation failures name the offending field; anything else is reported
// as malformed JSON.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid JSON body"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s entries", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
