// Package usecase implements business logic orchestration for tenant operations.
package usecase

import (
	"context"

	"github.com/google/uuid"

	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
)

// TenantRepository defines persistence operations for tenants.
type TenantRepository interface {
	// Create inserts a new tenant.
	Create(ctx context.Context, tenant *tenantDomain.Tenant) error

	// Get retrieves a tenant by ID. Returns ErrTenantNotFound if absent.
	Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)

	// GetByDomain retrieves a tenant by its subdomain label.
	// Returns ErrTenantNotFound if absent.
	GetByDomain(ctx context.Context, domain string) (*tenantDomain.Tenant, error)

	// SetActive flips the tenant's active flag. The only mutation tenants support.
	SetActive(ctx context.Context, tenantID uuid.UUID, isActive bool) error
}

// TenantUseCase defines tenant provisioning and lookup operations.
type TenantUseCase interface {
	// Create provisions a new tenant.
	Create(ctx context.Context, input *tenantDomain.CreateTenantInput) (*tenantDomain.Tenant, error)

	// Get retrieves a tenant by ID.
	Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)

	// Disable soft-disables a tenant. Existing entities are retained.
	Disable(ctx context.Context, tenantID uuid.UUID) error
}
