package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "revoked:"

// RedisStore keeps the blacklist in Redis, sized for deployments where
// several instances share the revocation state. Entries carry a TTL
// matching the token's remaining lifetime, so Redis expires them itself.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a Redis client as a Store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Revoke records the token with a TTL reaching its natural expiry.
func (s *RedisStore) Revoke(ctx context.Context, token, userID string, revokedAt, expiresAt time.Time) error {
	ttl := expiresAt.Sub(revokedAt)
	if ttl <= 0 {
		// Already expired; nothing to blacklist.
		return nil
	}
	if err := s.client.Set(ctx, redisKeyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("revocation: storing token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token is blacklisted.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: checking token: %w", err)
	}
	return n > 0, nil
}

// CleanupExpired is a no-op; Redis expires entries via their TTL.
func (s *RedisStore) CleanupExpired(ctx context.Context, reference time.Time) (int, error) {
	return 0, nil
}
