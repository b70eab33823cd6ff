// Package usecase implements the authorization engine: the authorize and
// token endpoint flows, refresh token rotation, revocation, and client
// registration.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// ClientRepository defines persistence operations for OAuth clients.
type ClientRepository interface {
	// Create inserts a new client.
	Create(ctx context.Context, client *oauthDomain.Client) error

	// Get retrieves a client by ID. Returns ErrClientNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error)

	// SetActive enables or disables a client.
	SetActive(ctx context.Context, id uuid.UUID, isActive bool) error
}

// GrantRepository defines persistence operations for grants.
type GrantRepository interface {
	// Create inserts a new grant.
	Create(ctx context.Context, grant *oauthDomain.Grant) error

	// Get retrieves a grant by ID. Returns ErrGrantNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Grant, error)

	// GetPermanent retrieves the valid permanent grant between the subject
	// and the client within the tenant. Returns ErrGrantNotFound if absent.
	GetPermanent(ctx context.Context, tenantID, subjectID, clientID uuid.UUID) (*oauthDomain.Grant, error)

	// UpdateStatus transitions the grant's status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status oauthDomain.GrantStatus) error
}

// RefreshTokenRepository defines persistence operations for refresh token
// rotation chains.
type RefreshTokenRepository interface {
	// Create stores a new record as the live row of its chain.
	Create(ctx context.Context, token *oauthDomain.RefreshToken) error

	// GetByTokenHash retrieves a record by its token hash, live or revoked.
	// Returns ErrRefreshTokenNotFound if no record matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (*oauthDomain.RefreshToken, error)

	// Revoke marks a single record revoked and releases its chain's live slot.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error

	// RevokeByGrant revokes every live record descended from the grant,
	// returning the affected IDs.
	RevokeByGrant(ctx context.Context, grantID uuid.UUID, at time.Time) ([]uuid.UUID, error)

	// RevokeByChain revokes every live record in the rotation chain,
	// returning the affected IDs.
	RevokeByChain(ctx context.Context, chainID uuid.UUID, at time.Time) ([]uuid.UUID, error)

	// ListActiveByUser retrieves the user's live records within the tenant.
	ListActiveByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*oauthDomain.RefreshToken, error)

	// RevokeAllForUser revokes every live record of the user within the
	// tenant in a single statement, returning the affected IDs.
	RevokeAllForUser(ctx context.Context, tenantID, userID uuid.UUID, at time.Time) ([]uuid.UUID, error)

	// DeleteExpired removes records past their retention cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// CodeStore defines the authorization code store. Codes live in Redis with a
// TTL and are consumed atomically so each code is redeemable at most once.
type CodeStore interface {
	// Save stores the record under the opaque code for the given TTL.
	Save(ctx context.Context, code string, record *oauthDomain.AuthorizationCode, ttl time.Duration) error

	// Consume atomically retrieves and deletes the record. Returns
	// ErrCodeNotFound when the code is unknown, expired, or already consumed.
	Consume(ctx context.Context, code string) (*oauthDomain.AuthorizationCode, error)
}

// MarkerStore defines the refresh token revocation marker store. A marker hit
// is authoritative even after the SQL record has been garbage collected.
type MarkerStore interface {
	// MarkRevoked writes a marker for the token that lives for the given TTL.
	MarkRevoked(ctx context.Context, tokenID uuid.UUID, ttl time.Duration) error

	// IsRevoked reports whether a marker exists for the token. Fails closed:
	// store errors surface as ErrUnavailable, never as "not revoked".
	IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error)
}

// AuthorizeUseCase defines the authorization endpoint flow.
type AuthorizeUseCase interface {
	// Authorize validates the request against the client registration,
	// reuses or creates the permanent grant, and issues a single-use
	// authorization code.
	Authorize(ctx context.Context, input *oauthDomain.AuthorizeInput) (*oauthDomain.AuthorizeOutput, error)
}

// TokenUseCase defines the token endpoint flows: issuance for the four grant
// types, RFC 7009 revocation, and user logout.
type TokenUseCase interface {
	// Token dispatches on grant_type and mints the token response.
	Token(ctx context.Context, input *oauthDomain.TokenInput) (*oauthDomain.TokenOutput, error)

	// Revoke invalidates a refresh token. Unknown tokens are not an error;
	// revocation is idempotent.
	Revoke(ctx context.Context, input *oauthDomain.RevokeInput) error

	// Logout revokes every live refresh token of the user within the tenant.
	Logout(ctx context.Context, tenantID, userID uuid.UUID) error
}

// ClientUseCase defines OAuth client registration and management.
type ClientUseCase interface {
	// Create registers a client, returning the plaintext secret once.
	Create(ctx context.Context, input *oauthDomain.CreateClientInput) (*oauthDomain.CreateClientOutput, error)

	// Get retrieves a client by ID.
	Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error)

	// SetActive enables or disables a client.
	SetActive(ctx context.Context, id uuid.UUID, isActive bool) error
}
