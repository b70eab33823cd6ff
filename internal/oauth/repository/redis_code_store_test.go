package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/authd/internal/errors"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func testCodeRecord() *oauthDomain.AuthorizationCode {
	return &oauthDomain.AuthorizationCode{
		SubjectID:           uuid.Must(uuid.NewV7()),
		ClientID:            uuid.Must(uuid.NewV7()),
		TenantID:            uuid.Must(uuid.NewV7()),
		GrantID:             uuid.Must(uuid.NewV7()),
		Scopes:              []string{"openid", "profile"},
		RedirectURI:         "https://app.example.com/callback",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: oauthDomain.CodeChallengeMethodS256,
		CreatedAt:           time.Now().UTC(),
	}
}

func TestRedisCodeStore_SaveAndConsume(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisCodeStore(client)
	ctx := context.Background()

	record := testCodeRecord()
	require.NoError(t, store.Save(ctx, "test-code", record, 5*time.Minute))

	consumed, err := store.Consume(ctx, "test-code")
	require.NoError(t, err)
	assert.Equal(t, record.SubjectID, consumed.SubjectID)
	assert.Equal(t, record.GrantID, consumed.GrantID)
	assert.Equal(t, record.Scopes, consumed.Scopes)
	assert.Equal(t, record.CodeChallenge, consumed.CodeChallenge)
}

func TestRedisCodeStore_Consume_SingleUse(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisCodeStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "test-code", testCodeRecord(), 5*time.Minute))

	_, err := store.Consume(ctx, "test-code")
	require.NoError(t, err)

	// Second redemption fails
	_, err = store.Consume(ctx, "test-code")
	assert.ErrorIs(t, err, oauthDomain.ErrCodeNotFound)
}

func TestRedisCodeStore_Consume_ConcurrentSingleWinner(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisCodeStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "test-code", testCodeRecord(), 5*time.Minute))

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "test-code"); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load())
}

func TestRedisCodeStore_Consume_Expired(t *testing.T) {
	server, client := setupRedis(t)
	store := NewRedisCodeStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "test-code", testCodeRecord(), time.Minute))
	server.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "test-code")
	assert.ErrorIs(t, err, oauthDomain.ErrCodeNotFound)
}

func TestRedisCodeStore_Consume_Unknown(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisCodeStore(client)

	_, err := store.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, oauthDomain.ErrCodeNotFound)
}

func TestRedisCodeStore_StoreUnavailable(t *testing.T) {
	server, client := setupRedis(t)
	store := NewRedisCodeStore(client)
	ctx := context.Background()

	server.Close()

	err := store.Save(ctx, "test-code", testCodeRecord(), time.Minute)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	_, err = store.Consume(ctx, "test-code")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
