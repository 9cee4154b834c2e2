package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response. The same envelope is written
// by the Gin handlers and the Lambda entrypoints.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details. Hint carries an optional human-readable
// usage hint (e.g. how to supply the delete confirmation flag).
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Error codes shared across transports.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeUserExists      = "USER_EXISTS"
	CodeNicknameTaken   = "NICKNAME_TAKEN"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
)

// Ok builds a success envelope.
func Ok(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// Err builds an error envelope.
func Err(code, message string) Response {
	return Response{Success: false, Error: &ErrorInfo{Code: code, Message: message}}
}

// ErrWithHint builds an error envelope with a usage hint.
func ErrWithHint(code, message, hint string) Response {
	return Response{Success: false, Error: &ErrorInfo{Code: code, Message: message, Hint: hint}}
}

// Success sends a successful response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Ok(data))
}

// Created sends a 201 created response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Ok(data))
}

// MultiStatus sends a 207 response for partially successful batch operations.
// The payload still carries Success=true: per-item outcomes live in data.
func MultiStatus(c *gin.Context, data interface{}) {
	c.JSON(http.StatusMultiStatus, Ok(data))
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Err(code, message))
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// BadRequestWithHint sends a 400 error response with a usage hint.
func BadRequestWithHint(c *gin.Context, message, hint string) {
	c.JSON(http.StatusBadRequest, ErrWithHint(CodeBadRequest, message, hint))
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// Conflict sends a 409 error response with a conflict-specific code so
// callers can tell USER_EXISTS from NICKNAME_TAKEN.
func Conflict(c *gin.Context, code, message string) {
	Error(c, http.StatusConflict, code, message)
}

// PayloadTooLarge sends a 413 error response.
func PayloadTooLarge(c *gin.Context, message string) {
	Error(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, message)
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, CodeRateLimited, message)
}

// ConflictWithData sends a 409 carrying both the conflict code and a data
// payload (e.g. the already-existing record for idempotent-read clients).
func ConflictWithData(c *gin.Context, code, message string, data interface{}) {
	c.JSON(http.StatusConflict, Response{
		Success: false,
		Data:    data,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternal, message)
}
