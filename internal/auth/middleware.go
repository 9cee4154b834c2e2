package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/araozmd/ancdotario-user-service/pkg/log"
	"github.com/araozmd/ancdotario-user-service/pkg/response"
)

// IdentityKey is the gin context key holding the resolved *Identity.
const IdentityKey = "auth_identity"

// RequireAuth returns a Gin middleware that resolves the caller identity
// through the configured provider and aborts unauthenticated requests.
func RequireAuth(provider ContextProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := provider.FromHTTPRequest(c.Request)
		if err != nil {
			response.Unauthorized(c, authErrorMessage(err))
			c.Abort()
			return
		}

		c.Set(IdentityKey, ident)
		// Plain strings for the request logger.
		c.Set(log.FieldIdentity, ident.Subject)
		c.Set(log.FieldNickname, ident.Nickname)

		c.Next()
	}
}

// IdentityFromGin returns the identity stored by RequireAuth, or nil.
func IdentityFromGin(c *gin.Context) *Identity {
	if v, exists := c.Get(IdentityKey); exists {
		if ident, ok := v.(*Identity); ok {
			return ident
		}
	}
	return nil
}

func authErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case err == ErrExpiredToken:
		return "token has expired"
	case err == ErrInvalidToken:
		return "invalid token"
	default:
		return "authentication required"
	}
}
