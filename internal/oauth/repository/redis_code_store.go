package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/authd/internal/errors"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// codeKeyPrefix namespaces authorization code keys in Redis.
const codeKeyPrefix = "authcode:"

// RedisCodeStore holds authorization code records in Redis with a TTL.
// Consumption uses GETDEL so a code can be redeemed exactly once no matter
// how many exchanges race for it.
type RedisCodeStore struct {
	client *redis.Client
}

// Save stores the record under the opaque code for the given TTL.
func (r *RedisCodeStore) Save(
	ctx context.Context,
	code string,
	record *oauthDomain.AuthorizationCode,
	ttl time.Duration,
) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal authorization code")
	}

	if err := r.client.Set(ctx, codeKeyPrefix+code, payload, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// Consume atomically retrieves and deletes the record. Returns
// ErrCodeNotFound when the code is unknown, expired, or already consumed.
func (r *RedisCodeStore) Consume(ctx context.Context, code string) (*oauthDomain.AuthorizationCode, error) {
	payload, err := r.client.GetDel(ctx, codeKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, oauthDomain.ErrCodeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}

	var record oauthDomain.AuthorizationCode
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal authorization code")
	}
	return &record, nil
}

// NewRedisCodeStore creates a new RedisCodeStore.
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}
