// Package usecase implements business logic orchestration for principal operations.
package usecase

import (
	"context"

	"github.com/google/uuid"

	userDomain "github.com/allisson/authd/internal/user/domain"
)

// UserRepository defines persistence operations for principals.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *userDomain.User) error

	// Get retrieves a user by ID. Returns ErrUserNotFound if absent.
	Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error)

	// GetByUsername retrieves a user by (tenantID, username).
	// Returns ErrUserNotFound if absent.
	GetByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*userDomain.User, error)

	// UpdateLastLogin records a successful credential verification.
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

// UserUseCase defines principal management and credential verification.
type UserUseCase interface {
	// Create provisions a new principal, hashing the supplied password.
	Create(ctx context.Context, input *userDomain.CreateUserInput) (*userDomain.User, error)

	// Get retrieves a principal by ID.
	Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error)

	// VerifyCredentials validates a principal's password within a tenant.
	// Returns ErrInvalidCredentials for unknown users and wrong passwords alike.
	VerifyCredentials(
		ctx context.Context,
		tenantID uuid.UUID,
		username string,
		password string,
	) (*userDomain.User, error)
}
