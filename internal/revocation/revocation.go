// Package revocation tracks tokens that must be rejected before their
// natural expiry, such as tokens surrendered by logout.
package revocation

import (
	"context"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

// Store is the blacklist consulted on every authenticated request.
type Store interface {
	// Revoke blacklists a token until it expires. Revoking twice is not
	// an error.
	Revoke(ctx context.Context, token, userID string, revokedAt, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// CleanupExpired drops entries whose token has expired on its own
	// and reports how many were removed.
	CleanupExpired(ctx context.Context, reference time.Time) (int, error)
}

// RepositoryStore keeps the blacklist in the relational store, which
// survives restarts without extra infrastructure.
type RepositoryStore struct {
	repo persistence.RevokedTokenRepository
}

// NewRepositoryStore wraps a revoked token repository as a Store.
func NewRepositoryStore(repo persistence.RevokedTokenRepository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

// Revoke records the token on the blacklist.
func (s *RepositoryStore) Revoke(ctx context.Context, token, userID string, revokedAt, expiresAt time.Time) error {
	return s.repo.RevokeToken(ctx, persistence.RevokedToken{
		Token:     token,
		UserID:    userID,
		RevokedAt: revokedAt,
		ExpiresAt: expiresAt,
	})
}

// IsRevoked reports whether the token is blacklisted.
func (s *RepositoryStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.repo.IsTokenRevoked(ctx, token)
}

// CleanupExpired drops entries for tokens that have expired on their own.
func (s *RepositoryStore) CleanupExpired(ctx context.Context, reference time.Time) (int, error) {
	return s.repo.DeleteExpiredTokens(ctx, reference)
}
