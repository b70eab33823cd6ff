package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	userDomain "github.com/allisson/authd/internal/user/domain"
	userService "github.com/allisson/authd/internal/user/service"
	appValidation "github.com/allisson/authd/internal/validation"
)

// userUseCase implements UserUseCase.
type userUseCase struct {
	userRepo        UserRepository
	passwordService userService.PasswordService

	// dummyHash is verified against when the username is unknown, so both
	// failure paths cost one Argon2id verification.
	dummyHashOnce sync.Once
	dummyHash     string
}

// dummyPasswordHash lazily hashes a random value that no caller can know.
func (u *userUseCase) dummyPasswordHash() string {
	u.dummyHashOnce.Do(func() {
		u.dummyHash, _ = u.passwordService.Hash(uuid.Must(uuid.NewV7()).String())
	})
	return u.dummyHash
}

// validateCreateUserInput validates user creation input including:
// - Username presence and length
// - Email format when one is provided (the field is optional)
// - Password strength requirements (min 8 chars, uppercase, lowercase, number, special char)
func (u *userUseCase) validateCreateUserInput(input *userDomain.CreateUserInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("username must be between 1 and 255 characters"),
		),
		validation.Field(&input.Email,
			appValidation.Email,
			validation.Length(0, 255).Error("email must be at most 255 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:      8,
				RequireUpper:   true,
				RequireLower:   true,
				RequireNumber:  true,
				RequireSpecial: true,
			},
		),
	)
	return appValidation.WrapValidationError(err)
}

// Create provisions a new principal within its tenant, hashing the password
// before persistence. The plaintext is never stored.
func (u *userUseCase) Create(
	ctx context.Context,
	input *userDomain.CreateUserInput,
) (*userDomain.User, error) {
	if err := u.validateCreateUserInput(input); err != nil {
		return nil, err
	}

	passwordHash, err := u.passwordService.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &userDomain.User{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		TenantID:     input.TenantID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Get retrieves a principal by ID.
func (u *userUseCase) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	return u.userRepo.Get(ctx, userID)
}

// VerifyCredentials validates a principal's password within the given tenant.
//
// Security notes:
//   - Returns ErrInvalidCredentials for both unknown users and wrong passwords
//     to prevent user enumeration. The unknown-user path still runs one
//     Argon2id verification so response timing does not reveal which case hit.
//   - A successful verification updates LastLoginAt; a failure to record that
//     timestamp does not fail the authentication.
func (u *userUseCase) VerifyCredentials(
	ctx context.Context,
	tenantID uuid.UUID,
	username string,
	password string,
) (*userDomain.User, error) {
	user, err := u.userRepo.GetByUsername(ctx, tenantID, username)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			u.passwordService.Verify(password, u.dummyPasswordHash())
			return nil, userDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.passwordService.Verify(password, user.PasswordHash) {
		return nil, userDomain.ErrInvalidCredentials
	}

	// Best effort: the login already succeeded
	_ = u.userRepo.UpdateLastLogin(ctx, user.ID)

	return user, nil
}

// NewUserUseCase creates a new UserUseCase with the provided dependencies.
func NewUserUseCase(
	userRepo UserRepository,
	passwordService userService.PasswordService,
) UserUseCase {
	return &userUseCase{
		userRepo:        userRepo,
		passwordService: passwordService,
	}
}
