package auth

import (
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Header names used when the gateway forwards identity over plain HTTP.
// Only trustworthy when the upstream proxy strips client-supplied values.
const (
	headerAuthSubject  = "X-Auth-Subject"
	headerAuthNickname = "X-Auth-Nickname"
	headerAuthGroups   = "X-Auth-Groups"
)

// GatewayProvider trusts identity claims already validated upstream: the
// API Gateway authorizer for Lambda events, forwarded headers for HTTP.
// No cryptography happens here; the deployment guarantees the claims.
type GatewayProvider struct{}

func NewGatewayProvider() *GatewayProvider { return &GatewayProvider{} }

func (p *GatewayProvider) FromLambdaRequest(req events.APIGatewayProxyRequest) (*Identity, error) {
	claims := authorizerClaims(req.RequestContext.Authorizer)
	if claims == nil {
		return nil, ErrUnauthenticated
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrUnauthenticated
	}

	nickname, _ := claims["nickname"].(string)
	if nickname == "" {
		nickname, _ = claims["cognito:username"].(string)
	}

	return &Identity{
		Subject:  subject,
		Nickname: nickname,
		Groups:   claimGroups(claims["cognito:groups"]),
	}, nil
}

func (p *GatewayProvider) FromHTTPRequest(r *http.Request) (*Identity, error) {
	subject := r.Header.Get(headerAuthSubject)
	if subject == "" {
		return nil, ErrUnauthenticated
	}

	var groups []string
	if raw := r.Header.Get(headerAuthGroups); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}
	}

	return &Identity{
		Subject:  subject,
		Nickname: r.Header.Get(headerAuthNickname),
		Groups:   groups,
	}, nil
}

// authorizerClaims digs the claims map out of the authorizer context.
// Cognito authorizers nest them under "claims"; custom authorizers put
// them at the top level.
func authorizerClaims(authorizer map[string]interface{}) map[string]interface{} {
	if len(authorizer) == 0 {
		return nil
	}
	if nested, ok := authorizer["claims"].(map[string]interface{}); ok {
		return nested
	}
	return authorizer
}

// claimGroups normalizes the cognito:groups claim. API Gateway renders the
// group list as a string like "[admin users]"; custom authorizers may pass
// a comma-separated string or a real array.
func claimGroups(raw interface{}) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []interface{}:
		groups := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok && s != "" {
				groups = append(groups, s)
			}
		}
		return groups
	case string:
		s := strings.Trim(v, "[]")
		if s == "" {
			return nil
		}
		fields := strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' '
		})
		groups := make([]string, 0, len(fields))
		for _, g := range fields {
			if g != "" {
				groups = append(groups, g)
			}
		}
		return groups
	default:
		return nil
	}
}
