package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/araozmd/ancdotario-user-service/internal/auth"
	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
	"github.com/araozmd/ancdotario-user-service/internal/repository"
	"github.com/araozmd/ancdotario-user-service/internal/service"
	"github.com/araozmd/ancdotario-user-service/pkg/lambdaevent"
	"github.com/araozmd/ancdotario-user-service/pkg/log"
	"github.com/araozmd/ancdotario-user-service/pkg/response"
)

// LambdaHandler serves the same operations as Handler, one method per
// API Gateway endpoint. Methods are shaped for lambda.Start: they always
// return a rendered envelope and a nil error so the gateway never converts
// handler failures into opaque 502s.
type LambdaHandler struct {
	users    service.UserService
	photos   service.PhotoService
	provider auth.ContextProvider
}

// NewLambdaHandler creates a handler for the Lambda entrypoints.
func NewLambdaHandler(users service.UserService, photos service.PhotoService, provider auth.ContextProvider) *LambdaHandler {
	return &LambdaHandler{
		users:    users,
		photos:   photos,
		provider: provider,
	}
}

// authenticate resolves the caller identity and enriches the context logger
// with the actor fields.
func (h *LambdaHandler) authenticate(ctx context.Context, event events.APIGatewayProxyRequest) (context.Context, *auth.Identity, error) {
	ident, err := h.provider.FromLambdaRequest(event)
	if err != nil {
		return ctx, nil, err
	}

	l := log.Ctx(ctx).With().
		Str(log.FieldIdentity, ident.Subject).
		Str(log.FieldNickname, ident.Nickname).
		Logger()
	return log.WithLogger(ctx, l), ident, nil
}

// CreateUser handles POST /users.
func (h *LambdaHandler) CreateUser(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)

	ctx, ident, err := h.authenticate(ctx, event)
	if err != nil {
		return lambdaevent.Error(http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized"), nil
	}
	l := log.Ctx(ctx)

	var req domain.CreateUserRequest
	if err := lambdaevent.ParseJSON(event, &req); err != nil {
		l.Warn().Err(err).Msg("invalid create user request")
		return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
	}
	if req.Nickname == "" {
		return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, "nickname is required"), nil
	}

	result, err := h.users.Create(ctx, ident, &req)
	if err != nil {
		var conflict *service.ConflictError
		switch {
		case errors.As(err, &conflict):
			return lambdaevent.ConflictWithData(response.CodeUserExists, "user already exists", conflict.Existing), nil
		case errors.Is(err, repository.ErrNicknameTaken):
			return lambdaevent.Error(http.StatusConflict, response.CodeNicknameTaken, "nickname already taken"), nil
		case isInvalidInput(err):
			return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
		default:
			l.Error().Err(err).Msg("create user failed")
			return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to create user"), nil
		}
	}

	return lambdaevent.Created(result), nil
}

// LookupUser handles GET /users/{nickname} and its by-nickname alias.
func (h *LambdaHandler) LookupUser(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)

	ctx, _, err := h.authenticate(ctx, event)
	if err != nil {
		return lambdaevent.Error(http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized"), nil
	}
	l := log.Ctx(ctx)

	result, err := h.users.Lookup(ctx, lambdaevent.PathParam(event, "nickname"))
	if err != nil {
		switch {
		case errors.Is(err, nickname.ErrInvalidFormat):
			return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
		case errors.Is(err, repository.ErrUserNotFound):
			return lambdaevent.Error(http.StatusNotFound, response.CodeNotFound, "user not found"), nil
		default:
			l.Error().Err(err).Msg("lookup user failed")
			return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to look up user"), nil
		}
	}

	return lambdaevent.Ok(result), nil
}

// CheckNickname handles GET /nicknames/{nickname}/availability. Public.
func (h *LambdaHandler) CheckNickname(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)
	l := log.Ctx(ctx)

	result, err := h.users.Availability(ctx, lambdaevent.PathParam(event, "nickname"))
	if err != nil {
		l.Error().Err(err).Msg("nickname availability check failed")
		return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to check nickname"), nil
	}

	return lambdaevent.Ok(result), nil
}

// DeleteUser handles DELETE /users/{identity}. Requires ?confirm=true.
func (h *LambdaHandler) DeleteUser(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)

	ctx, ident, err := h.authenticate(ctx, event)
	if err != nil {
		return lambdaevent.Error(http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized"), nil
	}
	l := log.Ctx(ctx)

	var req domain.DeleteUserRequest
	if event.Body != "" {
		if err := lambdaevent.ParseJSON(event, &req); err != nil {
			l.Warn().Err(err).Msg("invalid delete request body")
			return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
		}
	}

	confirmed := lambdaevent.QueryParam(event, "confirm") == "true"
	result, err := h.users.Delete(ctx, ident, lambdaevent.PathParam(event, "identity"), confirmed, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeleteNotConfirmed):
			return lambdaevent.ErrorWithHint(http.StatusBadRequest, response.CodeBadRequest, "deletion requires confirmation", confirmHint), nil
		case errors.Is(err, service.ErrForbidden):
			return lambdaevent.Error(http.StatusForbidden, response.CodeForbidden, "users can only delete their own account"), nil
		case errors.Is(err, repository.ErrUserNotFound):
			return lambdaevent.Error(http.StatusNotFound, response.CodeNotFound, "user not found"), nil
		default:
			l.Error().Err(err).Msg("delete user failed")
			return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to delete user"), nil
		}
	}

	return lambdaevent.Ok(result), nil
}

// BatchDelete handles POST /users/batch-delete. Admin only.
func (h *LambdaHandler) BatchDelete(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)

	ctx, ident, err := h.authenticate(ctx, event)
	if err != nil {
		return lambdaevent.Error(http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized"), nil
	}
	l := log.Ctx(ctx)

	var req domain.BatchDeleteRequest
	if err := lambdaevent.ParseJSON(event, &req); err != nil {
		l.Warn().Err(err).Msg("invalid batch delete request")
		return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
	}

	result, err := h.users.BatchDelete(ctx, ident, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return lambdaevent.Error(http.StatusForbidden, response.CodeForbidden, "admin group required"), nil
		case errors.Is(err, service.ErrDeleteNotConfirmed):
			return lambdaevent.ErrorWithHint(http.StatusBadRequest, response.CodeBadRequest, "batch deletion requires confirmation", `set "confirmed": true to acknowledge the deletion is permanent`), nil
		case errors.Is(err, service.ErrInvalidBatch):
			return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
		default:
			l.Error().Err(err).Msg("batch delete failed")
			return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to delete users"), nil
		}
	}

	if len(result.Failed) > 0 {
		return lambdaevent.MultiStatus(result), nil
	}
	return lambdaevent.Ok(result), nil
}

// UploadPhoto handles POST /users/{identity}/photo.
func (h *LambdaHandler) UploadPhoto(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)

	ctx, ident, err := h.authenticate(ctx, event)
	if err != nil {
		return lambdaevent.Error(http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized"), nil
	}
	l := log.Ctx(ctx)

	var req domain.PhotoUploadRequest
	if err := lambdaevent.ParseJSON(event, &req); err != nil {
		l.Warn().Err(err).Msg("invalid photo upload request")
		return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
	}
	if req.Image == "" {
		return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, "image is required"), nil
	}

	result, err := h.photos.Attach(ctx, ident, lambdaevent.PathParam(event, "identity"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return lambdaevent.Error(http.StatusForbidden, response.CodeForbidden, "users can only manage their own photo"), nil
		case errors.Is(err, repository.ErrUserNotFound):
			return lambdaevent.Error(http.StatusNotFound, response.CodeNotFound, "user not found"), nil
		case errors.Is(err, repository.ErrNicknameTaken):
			return lambdaevent.Error(http.StatusConflict, response.CodeNicknameTaken, "nickname already taken"), nil
		case isInvalidInput(err):
			return lambdaevent.Error(http.StatusBadRequest, response.CodeBadRequest, err.Error()), nil
		default:
			l.Error().Err(err).Msg("photo upload failed")
			return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to upload photo"), nil
		}
	}

	return lambdaevent.Ok(result), nil
}

// DeletePhoto handles DELETE /users/{identity}/photo.
func (h *LambdaHandler) DeletePhoto(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)

	ctx, ident, err := h.authenticate(ctx, event)
	if err != nil {
		return lambdaevent.Error(http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized"), nil
	}
	l := log.Ctx(ctx)

	result, err := h.photos.Detach(ctx, ident, lambdaevent.PathParam(event, "identity"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return lambdaevent.Error(http.StatusForbidden, response.CodeForbidden, "users can only manage their own photo"), nil
		case errors.Is(err, service.ErrNoPhoto):
			return lambdaevent.Error(http.StatusNotFound, response.CodeNotFound, "user has no photo"), nil
		case errors.Is(err, repository.ErrUserNotFound):
			return lambdaevent.Error(http.StatusNotFound, response.CodeNotFound, "user not found"), nil
		default:
			l.Error().Err(err).Msg("photo detach failed")
			return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to remove photo"), nil
		}
	}

	return lambdaevent.Ok(result), nil
}

// RefreshPhotoURL handles POST /users/{identity}/photo/refresh.
func (h *LambdaHandler) RefreshPhotoURL(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = lambdaevent.WithRequestLogger(ctx, event)

	ctx, ident, err := h.authenticate(ctx, event)
	if err != nil {
		return lambdaevent.Error(http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized"), nil
	}
	l := log.Ctx(ctx)

	result, err := h.photos.Refresh(ctx, ident, lambdaevent.PathParam(event, "identity"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return lambdaevent.Error(http.StatusForbidden, response.CodeForbidden, "users can only manage their own photo"), nil
		case errors.Is(err, service.ErrNoPhoto):
			return lambdaevent.Error(http.StatusNotFound, response.CodeNotFound, "user has no photo"), nil
		case errors.Is(err, repository.ErrUserNotFound):
			return lambdaevent.Error(http.StatusNotFound, response.CodeNotFound, "user not found"), nil
		default:
			l.Error().Err(err).Msg("photo refresh failed")
			return lambdaevent.Error(http.StatusInternalServerError, response.CodeInternal, "failed to refresh photo url"), nil
		}
	}

	return lambdaevent.Ok(result), nil
}
