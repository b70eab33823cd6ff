// Package repository implements tenant persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
)

// PostgreSQLTenantRepository implements tenant persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLTenantRepository struct {
	db *sql.DB
}

// Create inserts a new Tenant into the PostgreSQL database.
func (p *PostgreSQLTenantRepository) Create(ctx context.Context, tenant *tenantDomain.Tenant) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO tenants (id, name, domain, is_active, signing_key_id, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		tenant.ID,
		tenant.Name,
		tenant.Domain,
		tenant.IsActive,
		tenant.SigningKeyID,
		tenant.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create tenant")
	}
	return nil
}

// Get retrieves a Tenant by ID. Returns ErrTenantNotFound if the tenant doesn't exist.
func (p *PostgreSQLTenantRepository) Get(
	ctx context.Context,
	tenantID uuid.UUID,
) (*tenantDomain.Tenant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, domain, is_active, signing_key_id, created_at
			  FROM tenants WHERE id = $1`

	var tenant tenantDomain.Tenant

	err := querier.QueryRowContext(ctx, query, tenantID).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Domain,
		&tenant.IsActive,
		&tenant.SigningKeyID,
		&tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenantDomain.ErrTenantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get tenant")
	}

	return &tenant, nil
}

// GetByDomain retrieves a Tenant by its subdomain label.
// Returns ErrTenantNotFound if no tenant owns the domain.
func (p *PostgreSQLTenantRepository) GetByDomain(
	ctx context.Context,
	domain string,
) (*tenantDomain.Tenant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, domain, is_active, signing_key_id, created_at
			  FROM tenants WHERE domain = $1`

	var tenant tenantDomain.Tenant

	err := querier.QueryRowContext(ctx, query, domain).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Domain,
		&tenant.IsActive,
		&tenant.SigningKeyID,
		&tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenantDomain.ErrTenantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get tenant by domain")
	}

	return &tenant, nil
}

// SetActive flips the tenant's active flag.
func (p *PostgreSQLTenantRepository) SetActive(
	ctx context.Context,
	tenantID uuid.UUID,
	isActive bool,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tenants SET is_active = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, isActive, tenantID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update tenant")
	}
	return nil
}

// NewPostgreSQLTenantRepository creates a new PostgreSQL Tenant repository.
func NewPostgreSQLTenantRepository(db *sql.DB) *PostgreSQLTenantRepository {
	return &PostgreSQLTenantRepository{db: db}
}
