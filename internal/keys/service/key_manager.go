package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	keysDomain "github.com/allisson/authd/internal/keys/domain"
)

// currentKeyCacheTTL bounds how stale a cached current key may get. Rotation
// through this process invalidates the cache directly, the TTL only covers
// rotations performed by another process against the same database.
const currentKeyCacheTTL = 1 * time.Minute

type cachedKey struct {
	key       *keysDomain.SigningKey
	expiresAt time.Time
}

// KeyManagerService implements the KeyManager interface.
type KeyManagerService struct {
	signingKeyRepo SigningKeyRepository
	txManager      database.TxManager
	keyLifetime    time.Duration
	gracePeriod    time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]cachedKey
}

// NewKeyManager creates a new KeyManagerService.
//
// keyLifetime is the signing window of each key, gracePeriod is how long a
// key remains in the validation set after rotation.
func NewKeyManager(
	signingKeyRepo SigningKeyRepository,
	txManager database.TxManager,
	keyLifetime time.Duration,
	gracePeriod time.Duration,
) *KeyManagerService {
	return &KeyManagerService{
		signingKeyRepo: signingKeyRepo,
		txManager:      txManager,
		keyLifetime:    keyLifetime,
		gracePeriod:    gracePeriod,
		cache:          make(map[string]cachedKey),
	}
}

// cacheScope mirrors the repository scope so both layers agree on what a
// "scope" is.
func cacheScope(tenantID *uuid.UUID) string {
	if tenantID == nil {
		return "global"
	}
	return tenantID.String()
}

// CurrentSigningKey returns the active signer for the scope.
//
// The first call for a scope provisions its key. When two instances race the
// insert, the unique marker lets one win and the loser reads back the
// winner's key, so both end up signing with the same key.
func (k *KeyManagerService) CurrentSigningKey(
	ctx context.Context,
	tenantID *uuid.UUID,
) (*keysDomain.SigningKey, error) {
	scope := cacheScope(tenantID)

	k.mu.RLock()
	entry, ok := k.cache[scope]
	k.mu.RUnlock()
	if ok && time.Now().UTC().Before(entry.expiresAt) && !entry.key.IsExpired(time.Now().UTC()) {
		return entry.key, nil
	}

	result, err, _ := k.group.Do(scope, func() (any, error) {
		return k.loadOrCreateCurrent(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}

	key := result.(*keysDomain.SigningKey)
	k.storeInCache(scope, key)
	return key, nil
}

func (k *KeyManagerService) loadOrCreateCurrent(
	ctx context.Context,
	tenantID *uuid.UUID,
) (*keysDomain.SigningKey, error) {
	key, err := k.signingKeyRepo.GetCurrent(ctx, tenantID)
	if err == nil {
		if key.IsExpired(time.Now().UTC()) {
			return k.rotate(ctx, tenantID)
		}
		return key, nil
	}
	if !apperrors.Is(err, keysDomain.ErrKeyNotFound) {
		return nil, err
	}

	newKey, err := keysDomain.NewSigningKey(tenantID, k.keyLifetime)
	if err != nil {
		return nil, err
	}
	if err := k.signingKeyRepo.CreateCurrent(ctx, newKey); err != nil {
		if apperrors.Is(err, keysDomain.ErrCurrentKeyExists) {
			return k.signingKeyRepo.GetCurrent(ctx, tenantID)
		}
		return nil, err
	}

	slog.Info("signing key provisioned",
		"key_id", newKey.ID,
		"scope", cacheScope(tenantID),
		"expires_at", newKey.ExpiresAt,
	)
	return newKey, nil
}

// ValidationKeys returns the keys whose signatures must still be accepted.
func (k *KeyManagerService) ValidationKeys(
	ctx context.Context,
	tenantID *uuid.UUID,
) ([]*keysDomain.SigningKey, error) {
	cutoff := time.Now().UTC().Add(-k.gracePeriod)
	return k.signingKeyRepo.ListValidation(ctx, tenantID, cutoff)
}

// JWKS returns the public half of the validation keys for the scope.
func (k *KeyManagerService) JWKS(
	ctx context.Context,
	tenantID *uuid.UUID,
) (*jose.JSONWebKeySet, error) {
	keys, err := k.ValidationKeys(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	set := &jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(keys))}
	for _, key := range keys {
		publicKey, err := key.PublicKey()
		if err != nil {
			return nil, err
		}
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       publicKey,
			KeyID:     key.ID.String(),
			Algorithm: string(key.Algorithm),
			Use:       "sig",
		})
	}
	return set, nil
}

// Rotate retires the scope's current key and installs a fresh one. Both
// writes happen in one transaction so the scope never observes zero or two
// current keys.
func (k *KeyManagerService) Rotate(
	ctx context.Context,
	tenantID *uuid.UUID,
) (*keysDomain.SigningKey, error) {
	return k.rotate(ctx, tenantID)
}

func (k *KeyManagerService) rotate(
	ctx context.Context,
	tenantID *uuid.UUID,
) (*keysDomain.SigningKey, error) {
	newKey, err := keysDomain.NewSigningKey(tenantID, k.keyLifetime)
	if err != nil {
		return nil, err
	}

	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		current, err := k.signingKeyRepo.GetCurrent(txCtx, tenantID)
		if err != nil && !apperrors.Is(err, keysDomain.ErrKeyNotFound) {
			return err
		}
		if current != nil {
			if err := k.signingKeyRepo.Retire(txCtx, current.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
		return k.signingKeyRepo.CreateCurrent(txCtx, newKey)
	})
	if err != nil {
		return nil, err
	}

	k.invalidateCache(cacheScope(tenantID))
	k.storeInCache(cacheScope(tenantID), newKey)

	slog.Info("signing key rotated",
		"key_id", newKey.ID,
		"scope", cacheScope(tenantID),
		"expires_at", newKey.ExpiresAt,
	)
	return newKey, nil
}

// RotateDue rotates every current key whose signing window has ended.
// Failures on one scope do not stop the sweep, the last error is returned.
func (k *KeyManagerService) RotateDue(ctx context.Context) error {
	current, err := k.signingKeyRepo.ListCurrent(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var lastErr error
	for _, key := range current {
		if !key.IsExpired(now) {
			continue
		}
		if _, err := k.rotate(ctx, key.TenantID); err != nil {
			slog.Error("failed to rotate signing key",
				"key_id", key.ID,
				"scope", cacheScope(key.TenantID),
				"error", err,
			)
			lastErr = err
		}
	}
	return lastErr
}

// Revoke deletes a key immediately. If the revoked key was the scope's
// current signer, the next CurrentSigningKey call provisions a replacement.
func (k *KeyManagerService) Revoke(
	ctx context.Context,
	tenantID *uuid.UUID,
	keyID uuid.UUID,
) error {
	if err := k.signingKeyRepo.Delete(ctx, keyID); err != nil {
		return err
	}
	k.invalidateCache(cacheScope(tenantID))

	slog.Warn("signing key revoked", "key_id", keyID, "scope", cacheScope(tenantID))
	return nil
}

// PurgeExpired removes non-current keys that left their validation window.
func (k *KeyManagerService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-k.gracePeriod)
	return k.signingKeyRepo.DeleteExpired(ctx, cutoff)
}

func (k *KeyManagerService) storeInCache(scope string, key *keysDomain.SigningKey) {
	k.mu.Lock()
	k.cache[scope] = cachedKey{key: key, expiresAt: time.Now().UTC().Add(currentKeyCacheTTL)}
	k.mu.Unlock()
}

func (k *KeyManagerService) invalidateCache(scope string) {
	k.mu.Lock()
	delete(k.cache, scope)
	k.mu.Unlock()
}
