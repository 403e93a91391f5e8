package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

// RevokedTokenRepository implements persistence.RevokedTokenRepository
// using SQLite.
type RevokedTokenRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRevokedTokenRepository creates a new SQLite revoked token repository.
func NewRevokedTokenRepository(pool *ConnectionPool) *RevokedTokenRepository {
	return &RevokedTokenRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// RevokeToken records a token on the blacklist. Revoking the same token
// twice is not an error.
func (r *RevokedTokenRepository) RevokeToken(ctx context.Context, token persistence.RevokedToken) error {
	if token.Token == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (token, user_id, revoked_at, expires_at) VALUES (?, ?, ?, ?)`,
		token.Token,
		token.UserID,
		token.RevokedAt.UTC().Format(time.RFC3339),
		token.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// IsTokenRevoked reports whether the token is on the blacklist.
func (r *RevokedTokenRepository) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	var count int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE token = ?`, token,
	).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return count > 0, nil
}

// DeleteExpiredTokens drops blacklist entries whose token has expired.
// An expired token fails signature-era validation on its own, so the
// blacklist row is dead weight.
func (r *RevokedTokenRepository) DeleteExpiredTokens(ctx context.Context, reference time.Time) (int, error) {
	result, err := r.helper.Exec(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`,
		reference.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}
