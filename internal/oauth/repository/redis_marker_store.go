package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/authd/internal/errors"
)

// markerKeyPrefix namespaces revocation marker keys in Redis.
const markerKeyPrefix = "revoked:"

// RedisMarkerStore holds refresh token revocation markers. Markers outlive
// the SQL rows they shadow: a marker hit is authoritative even after the
// record itself has been garbage collected.
//
// IsRevoked fails closed: when Redis is unreachable the answer is
// ErrUnavailable, never "not revoked".
type RedisMarkerStore struct {
	client *redis.Client
}

// MarkRevoked writes a marker for the token that lives for the given TTL.
func (r *RedisMarkerStore) MarkRevoked(ctx context.Context, tokenID uuid.UUID, ttl time.Duration) error {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	if err := r.client.Set(ctx, markerKeyPrefix+tokenID.String(), timestamp, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// IsRevoked reports whether a marker exists for the token.
func (r *RedisMarkerStore) IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	err := r.client.Get(ctx, markerKeyPrefix+tokenID.String()).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return true, nil
}

// NewRedisMarkerStore creates a new RedisMarkerStore.
func NewRedisMarkerStore(client *redis.Client) *RedisMarkerStore {
	return &RedisMarkerStore{client: client}
}
