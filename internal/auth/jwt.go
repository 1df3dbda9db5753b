// Package auth provides bearer-token issuance and validation, password
// hashing and the GitHub sign-in flow for the Code Compass API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A user registers or logs in (email + password, or GitHub OAuth)
//  2. The server issues a signed JWT carrying the user ID and role
//  3. The client sends it back as "Authorization: Bearer <jwt>" on every
//     protected request (or as ?token=<jwt> when opening the websocket)
//  4. RequireAuth validates the token and stores the Identity in the
//     request context
//
// The server verifies the signature with the shared secret alone; no
// session table is consulted.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/code-compass/internal/model"
)

const issuer = "code-compass"

// DefaultTokenTTL is used when NewTokenService receives a zero TTL.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrTokenExpired is returned by Validate for a well-formed token whose
	// exp claim is in the past.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrInvalidToken covers every other validation failure.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is what a valid token proves about its bearer.
type Identity struct {
	UserID string
	Role   model.Role
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the standard registered claims ("sub" holds
// the user ID) plus the user's role.
type claims struct {
	Role model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a token for id with the configured lifetime.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// A negative duration yields an already-expired token, which tests use.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its Identity.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired and carries an exp claim at all
//   - Issuer matches "code-compass"
//   - Algorithm is HS256 (no "none", no algorithm confusion)
//
// Expired tokens yield ErrTokenExpired; everything else wraps
// ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	role := c.Role
	if role == "" {
		role = model.RoleUser
	}
	return Identity{UserID: c.Subject, Role: role}, nil
}
