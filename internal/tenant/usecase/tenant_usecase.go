package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
	appValidation "github.com/allisson/authd/internal/validation"
)

// tenantUseCase implements TenantUseCase.
type tenantUseCase struct {
	tenantRepo TenantRepository
}

// validateCreateTenantInput validates tenant creation input. The domain is
// matched against incoming Host headers, so it must not contain whitespace.
func (t *tenantUseCase) validateCreateTenantInput(input *tenantDomain.CreateTenantInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Domain,
			validation.Required.Error("domain is required"),
			appValidation.NoWhitespace,
			validation.Length(1, 255).Error("domain must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Create provisions a new tenant with a generated UUIDv7 identifier.
func (t *tenantUseCase) Create(
	ctx context.Context,
	input *tenantDomain.CreateTenantInput,
) (*tenantDomain.Tenant, error) {
	if err := t.validateCreateTenantInput(input); err != nil {
		return nil, err
	}

	tenant := &tenantDomain.Tenant{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      input.Name,
		Domain:    input.Domain,
		IsActive:  input.IsActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := t.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	return tenant, nil
}

// Get retrieves a tenant by ID.
func (t *tenantUseCase) Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	return t.tenantRepo.Get(ctx, tenantID)
}

// Disable soft-disables a tenant. The tenant row and everything owned by it
// stays in place so revocation history remains auditable.
func (t *tenantUseCase) Disable(ctx context.Context, tenantID uuid.UUID) error {
	// Ensure the tenant exists before flipping the flag
	if _, err := t.tenantRepo.Get(ctx, tenantID); err != nil {
		return err
	}
	return t.tenantRepo.SetActive(ctx, tenantID, false)
}

// NewTenantUseCase creates a new TenantUseCase with the provided repository.
func NewTenantUseCase(tenantRepo TenantRepository) TenantUseCase {
	return &tenantUseCase{tenantRepo: tenantRepo}
}
