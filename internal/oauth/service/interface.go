// Package service provides the token-issuance services of the authorization
// server: opaque token generation and hashing, client secret handling, and
// JWT signing against the current tenant signing key.
package service

import (
	"context"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// SecretService defines operations for client secret generation and validation.
// Implementations must use cryptographically secure random generation and a
// memory-hard hashing algorithm.
type SecretService interface {
	// GenerateSecret creates a new cryptographically secure random secret.
	// Returns the plain secret (shown to the operator once) and its hash
	// (stored in the database).
	GenerateSecret() (plainSecret string, hashedSecret string, error error)

	// HashSecret hashes a plain text secret for storage.
	HashSecret(plainSecret string) (hashedSecret string, error error)

	// CompareSecret compares a plain text secret against a hashed secret.
	// Constant-time to prevent timing attacks.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenService defines operations for opaque token generation and hashing.
// Opaque tokens (refresh tokens, authorization codes) are random values
// stored server-side only as SHA-256 hashes.
type TokenService interface {
	// GenerateToken creates a new cryptographically secure random token.
	// Returns the plain token and its SHA-256 hash.
	GenerateToken() (plainToken string, tokenHash string, error error)

	// HashToken hashes a plain text token using SHA-256.
	HashToken(plainToken string) string
}

// TokenSigner signs claim sets into JWTs with the tenant's current signing
// key. The kid header identifies the key so resource servers can pick the
// matching JWKS entry.
type TokenSigner interface {
	// Sign produces a signed compact JWT from the claim set.
	Sign(ctx context.Context, tenantID uuid.UUID, claims oauthDomain.TokenClaims) (string, error)
}
