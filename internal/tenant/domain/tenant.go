// Package domain defines the tenant model. A tenant is the isolation boundary
// for every other entity: users, clients, grants, tokens and signing keys all
// belong to exactly one tenant.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated namespace sharing one authorization server
// deployment. Tenants are soft-disabled only, never hard-deleted, so audit and
// revocation history stays intact.
type Tenant struct {
	ID           uuid.UUID  // Unique identifier (UUIDv7)
	Name         string     // Human-readable tenant name
	Domain       string     // Subdomain label used for host-based resolution
	IsActive     bool       // Whether the tenant can be resolved for new requests
	SigningKeyID *uuid.UUID // Current signing key, nil when the tenant uses the global key
	CreatedAt    time.Time
}

// CreateTenantInput contains the parameters for provisioning a new tenant.
type CreateTenantInput struct {
	Name     string // Human-readable tenant name
	Domain   string // Subdomain label, unique across tenants
	IsActive bool   // Whether the tenant is resolvable immediately
}
