package domain

import (
	"time"

	"github.com/google/uuid"
)

// GrantKind distinguishes long-lived consent records from single-issuance ones.
type GrantKind string

const (
	// GrantKindPermanent is a reusable consent between a subject and a
	// client, looked up on later authorization requests.
	GrantKindPermanent GrantKind = "permanent"

	// GrantKindAdhoc covers single issuances with no subject consent record
	// to reuse (client_credentials, password).
	GrantKindAdhoc GrantKind = "adhoc"
)

// GrantStatus is the lifecycle state of a grant.
type GrantStatus string

const (
	GrantStatusValid   GrantStatus = "valid"
	GrantStatusRevoked GrantStatus = "revoked"
)

// Grant records an authorization of a client, optionally on behalf of a
// subject. Revoking a grant invalidates every refresh token descended from it.
type Grant struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	SubjectID *uuid.UUID
	ClientID  uuid.UUID
	Kind      GrantKind
	Scopes    []string
	Status    GrantStatus
	CreatedAt time.Time
}

// IsValid reports whether the grant can back new issuances.
func (g *Grant) IsValid() bool {
	return g.Status == GrantStatusValid
}

// NewGrant creates a grant in the valid state.
func NewGrant(tenantID uuid.UUID, subjectID *uuid.UUID, clientID uuid.UUID, kind GrantKind, scopes []string) *Grant {
	return &Grant{
		ID:        uuid.Must(uuid.NewV7()),
		TenantID:  tenantID,
		SubjectID: subjectID,
		ClientID:  clientID,
		Kind:      kind,
		Scopes:    scopes,
		Status:    GrantStatusValid,
		CreatedAt: time.Now().UTC(),
	}
}
