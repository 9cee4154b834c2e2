// Package auth resolves the caller's identity from incoming requests.
//
// Two providers exist: the gateway provider trusts claims the API gateway
// authorizer already validated, the jwt provider verifies bearer tokens
// in-process. Exactly one is selected at startup from configuration; the
// rest of the service only sees the ContextProvider interface.
package auth

import (
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

var (
	ErrUnauthenticated = errors.New("request is not authenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token has expired")
)

const adminGroup = "admin"

// Identity is the authenticated caller as asserted by the identity
// provider. Subject is the stable identifier records are keyed by.
type Identity struct {
	Subject  string
	Nickname string
	Groups   []string
}

// HasGroup reports membership in an identity-provider group.
func (i *Identity) HasGroup(group string) bool {
	for _, g := range i.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller may use administrative operations.
func (i *Identity) IsAdmin() bool {
	return i.HasGroup(adminGroup)
}

// ContextProvider extracts the caller identity from a request. Both
// transport shapes are covered: API Gateway proxy events for the Lambda
// deployment and plain HTTP requests for the dev server.
type ContextProvider interface {
	FromLambdaRequest(req events.APIGatewayProxyRequest) (*Identity, error)
	FromHTTPRequest(r *http.Request) (*Identity, error)
}
