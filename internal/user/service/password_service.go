// Package service provides the credential hashing contract for principals.
// Implemented with Argon2id, a memory-hard one-way derivation.
package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/authd/internal/errors"
)

// PasswordService defines operations for password hashing and verification.
// Implementations must use a memory-hard hashing algorithm and constant-time
// comparison.
type PasswordService interface {
	// Hash hashes a plaintext password for storage.
	Hash(plainPassword string) (string, error)

	// Verify compares a plaintext password against a stored hash.
	// Returns true on match; constant-time to prevent timing attacks.
	Verify(plainPassword string, passwordHash string) bool
}

// passwordService implements PasswordService using Argon2id.
type passwordService struct {
	hasher *pwdhash.PasswordHasher
}

// Hash hashes a plaintext password using Argon2id.
func (p *passwordService) Hash(plainPassword string) (string, error) {
	hash, err := p.hasher.Hash([]byte(plainPassword))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash password")
	}
	return hash, nil
}

// Verify performs a constant-time comparison between a plaintext password and its hash.
func (p *passwordService) Verify(plainPassword string, passwordHash string) bool {
	ok, err := p.hasher.Verify([]byte(plainPassword), passwordHash)
	if err != nil {
		return false
	}
	return ok
}

// NewPasswordService creates a new PasswordService instance using Argon2id hashing.
// Uses the Moderate policy for a balance between security and performance.
func NewPasswordService() PasswordService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &passwordService{hasher: hasher}
}
