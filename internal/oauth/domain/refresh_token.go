package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one record in a rotation chain. The plaintext token is
// returned to the client once and only its SHA-256 hash is stored.
//
// Chain invariants:
//   - every record shares the ChainID of the chain's first token
//   - RotationCount increases by exactly one per hop
//   - at most one record per chain is live (not revoked, not expired)
//   - revoked records are immutable and retained past ExpiresAt for auditing
type RefreshToken struct {
	ID              uuid.UUID
	TokenHash       string
	TenantID        uuid.UUID
	GrantID         uuid.UUID
	UserID          *uuid.UUID
	ClientID        uuid.UUID
	ChainID         uuid.UUID
	PreviousTokenID *uuid.UUID
	RotationCount   int
	Scopes          []string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	RevokedAt       *time.Time
}

// IsLive reports whether the token can still be redeemed.
func (r *RefreshToken) IsLive(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// NewRefreshToken starts a new rotation chain. The new record is its own
// chain head: ChainID equals ID, RotationCount is zero.
func NewRefreshToken(
	tokenHash string,
	tenantID, grantID uuid.UUID,
	userID *uuid.UUID,
	clientID uuid.UUID,
	scopes []string,
	ttl time.Duration,
) *RefreshToken {
	id := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	return &RefreshToken{
		ID:            id,
		TokenHash:     tokenHash,
		TenantID:      tenantID,
		GrantID:       grantID,
		UserID:        userID,
		ClientID:      clientID,
		ChainID:       id,
		RotationCount: 0,
		Scopes:        scopes,
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
	}
}

// Successor builds the next record in the chain for a rotation hop. Identity
// fields carry over, the counter advances, and the back-pointer links to the
// rotated record.
func (r *RefreshToken) Successor(tokenHash string, ttl time.Duration) *RefreshToken {
	now := time.Now().UTC()
	previousID := r.ID
	return &RefreshToken{
		ID:              uuid.Must(uuid.NewV7()),
		TokenHash:       tokenHash,
		TenantID:        r.TenantID,
		GrantID:         r.GrantID,
		UserID:          r.UserID,
		ClientID:        r.ClientID,
		ChainID:         r.ChainID,
		PreviousTokenID: &previousID,
		RotationCount:   r.RotationCount + 1,
		Scopes:          r.Scopes,
		IssuedAt:        now,
		ExpiresAt:       now.Add(ttl),
	}
}
