// Package domain defines the principal (user) model. A principal is always
// owned by exactly one tenant and has no existence outside a tenant context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a resource owner within a tenant.
// (tenantID, username) is unique.
type User struct {
	ID           uuid.UUID  // Unique identifier (UUIDv7)
	Username     string     // Login name, unique within the tenant
	Email        string     // Contact address, backs the email claim (empty if never set)
	PasswordHash string     // Argon2id hash, never the plaintext
	TenantID     uuid.UUID  // Owning tenant
	CreatedAt    time.Time
	LastLoginAt  *time.Time // Last successful credential verification (nil if never)
}

// CreateUserInput contains the parameters for creating a new principal.
type CreateUserInput struct {
	Username string
	Email    string // Optional
	Password string // Plaintext, hashed before persistence and never stored
	TenantID uuid.UUID
}
