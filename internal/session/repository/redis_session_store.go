// Package repository provides the Redis-backed session store.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/authd/internal/errors"
	sessionDomain "github.com/allisson/authd/internal/session/domain"
)

// sessionKeyPrefix namespaces session keys in Redis.
const sessionKeyPrefix = "session:"

// RedisSessionStore holds BFF sessions in Redis with a sliding TTL. Every
// save resets the TTL, so a session stays alive as long as it is used.
type RedisSessionStore struct {
	client *redis.Client
}

// Save stores the session under its identifier with the given TTL.
func (r *RedisSessionStore) Save(ctx context.Context, session *sessionDomain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session")
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// Get retrieves a session by identifier. Returns ErrSessionNotFound when the
// session is unknown or expired.
func (r *RedisSessionStore) Get(ctx context.Context, sessionID string) (*sessionDomain.Session, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessionDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}

	var session sessionDomain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal session")
	}
	return &session, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// NewRedisSessionStore creates a new RedisSessionStore.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}
