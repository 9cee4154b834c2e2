package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// Claims are the token claims the service cares about. Group membership
// follows the cognito claim name so the same tokens work against both
// providers.
type Claims struct {
	jwt.RegisteredClaims
	Nickname string   `json:"nickname"`
	Groups   []string `json:"cognito:groups"`
}

// JWTProvider verifies HS256 bearer tokens in-process. Used by the dev
// server where no gateway authorizer sits in front of the service.
type JWTProvider struct {
	secret []byte
	issuer string
}

func NewJWTProvider(secret, issuer string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), issuer: issuer}
}

func (p *JWTProvider) FromLambdaRequest(req events.APIGatewayProxyRequest) (*Identity, error) {
	header := req.Headers["Authorization"]
	if header == "" {
		header = req.Headers["authorization"]
	}
	return p.fromHeader(header)
}

func (p *JWTProvider) FromHTTPRequest(r *http.Request) (*Identity, error) {
	return p.fromHeader(r.Header.Get("Authorization"))
}

func (p *JWTProvider) fromHeader(header string) (*Identity, error) {
	if header == "" {
		return nil, ErrUnauthenticated
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, ErrInvalidToken
	}

	claims, err := p.validate(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		Subject:  claims.Subject,
		Nickname: claims.Nickname,
		Groups:   claims.Groups,
	}, nil
}

func (p *JWTProvider) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if p.issuer != "" && claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
