package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Client represents a registered OAuth client within a tenant.
// The secret is stored as an Argon2id hash, never in plaintext.
type Client struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Name           string
	SecretHash     string //nolint:gosec // hashed client secret (not plaintext)
	RedirectURIs   []string
	GrantTypes     []string
	IsConfidential bool
	IsActive       bool
	CreatedAt      time.Time
}

// AllowsGrantType reports whether the client is registered for the grant type.
func (c *Client) AllowsGrantType(grantType string) bool {
	return slices.Contains(c.GrantTypes, grantType)
}

// AllowsRedirectURI reports whether the redirect URI exactly matches one of
// the registered URIs. No prefix or pattern matching.
func (c *Client) AllowsRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// CreateClientInput represents the data needed to register a client.
type CreateClientInput struct {
	TenantID       uuid.UUID
	Name           string
	Secret         string
	RedirectURIs   []string
	GrantTypes     []string
	IsConfidential bool
}
