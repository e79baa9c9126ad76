// Package auth resolves the caller's identity from a bearer token.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/form3tech-oss/jwt-go"
	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/domain"
)

// Identity is the authenticated caller
type Identity struct {
	ID      string
	Name    string
	Picture string
}

// Verifier validates HS256 bearer tokens
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a verifier for cfg
func NewVerifier(cfg *config.AuthConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

// FromHeader verifies the token in an Authorization header value
func (v *Verifier) FromHeader(header string) (Identity, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Identity{}, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}
	return v.Verify(strings.TrimSpace(header[len(prefix):]))
}

// Verify validates a token and returns the identity it carries. Any failure
// is domain.ErrUnauthenticated.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Identity{}, fmt.Errorf("%w: wrong issuer", domain.ErrUnauthenticated)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return Identity{}, fmt.Errorf("%w: wrong audience", domain.ErrUnauthenticated)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	return Identity{ID: sub, Name: name, Picture: picture}, nil
}
