// Package service implements signing key lifecycle management.
//
// The KeyManagerService owns the rotation workflow and the hot path lookup of
// the current signing key. Lookups are cached in memory and deduplicated with
// singleflight so concurrent token issuance does not stampede the database.
package service

import (
	"context"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	keysDomain "github.com/allisson/authd/internal/keys/domain"
)

// SigningKeyRepository defines the interface for signing key persistence.
//
// Implementations must enforce that at most one current key exists per scope:
// CreateCurrent returns keysDomain.ErrCurrentKeyExists when another writer
// already holds the scope, and callers read back the winner's key instead of
// retrying.
//
// Available implementations:
//   - PostgreSQLSigningKeyRepository
//   - MySQLSigningKeyRepository
type SigningKeyRepository interface {
	// CreateCurrent stores a new key as the current signer for its scope.
	CreateCurrent(ctx context.Context, key *keysDomain.SigningKey) error

	// GetCurrent retrieves the current key for the scope, or ErrKeyNotFound.
	GetCurrent(ctx context.Context, tenantID *uuid.UUID) (*keysDomain.SigningKey, error)

	// ListCurrent retrieves the current key of every scope.
	ListCurrent(ctx context.Context) ([]*keysDomain.SigningKey, error)

	// ListValidation retrieves keys for the scope with expires_at after the
	// cutoff, including retired keys.
	ListValidation(ctx context.Context, tenantID *uuid.UUID, cutoff time.Time) ([]*keysDomain.SigningKey, error)

	// Retire marks the key retired and releases its current marker.
	Retire(ctx context.Context, keyID uuid.UUID, at time.Time) error

	// Delete removes the key immediately, skipping the grace period.
	Delete(ctx context.Context, keyID uuid.UUID) error

	// DeleteExpired purges non-current keys with expires_at before the cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// KeyManager defines the interface for signing key lifecycle operations.
type KeyManager interface {
	// CurrentSigningKey returns the active signer for the scope, creating the
	// first key on demand when none exists.
	CurrentSigningKey(ctx context.Context, tenantID *uuid.UUID) (*keysDomain.SigningKey, error)

	// ValidationKeys returns every key still inside its validation window,
	// newest first. Retired keys remain until the grace period elapses.
	ValidationKeys(ctx context.Context, tenantID *uuid.UUID) ([]*keysDomain.SigningKey, error)

	// JWKS returns the public validation keys for the scope as a JSON Web Key Set.
	JWKS(ctx context.Context, tenantID *uuid.UUID) (*jose.JSONWebKeySet, error)

	// Rotate retires the current key and installs a fresh one atomically.
	Rotate(ctx context.Context, tenantID *uuid.UUID) (*keysDomain.SigningKey, error)

	// RotateDue rotates every current key whose signing window has ended.
	RotateDue(ctx context.Context) error

	// Revoke deletes a key immediately. Tokens signed with it stop validating
	// at once, overriding the grace period.
	Revoke(ctx context.Context, tenantID *uuid.UUID, keyID uuid.UUID) error

	// PurgeExpired removes keys that left their validation window.
	PurgeExpired(ctx context.Context) (int64, error)
}
