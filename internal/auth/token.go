// Package auth issues and verifies the signed tokens that carry a
// user's identity between requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token fails parsing or
	// signature verification.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired is returned when a token's validity window has passed.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Identity is the claim set carried inside an issued token.
type Identity struct {
	UserID      string
	DisplayName string
	Email       string
	Role        string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// TokenManager signs and verifies HMAC-SHA256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a manager signing with the given secret. The
// TTL bounds every issued token's validity window.
func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth: signing secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: secret, ttl: ttl}, nil
}

type claims struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for the identity. The token ID is fresh on every
// call so individual tokens can be revoked.
func (m *TokenManager) Issue(identity Identity, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
		Role:        identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token's signature and validity window and returns
// the identity it carries.
func (m *TokenManager) Parse(tokenString string, now time.Time) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	identity := Identity{
		UserID:      c.Subject,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		Role:        c.Role,
		TokenID:     c.ID,
	}
	if c.IssuedAt != nil {
		identity.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		identity.ExpiresAt = c.ExpiresAt.Time
	}
	return identity, nil
}
