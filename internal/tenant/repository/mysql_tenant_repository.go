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

// MySQLTenantRepository implements tenant persistence for MySQL.
// Stores UUIDs as strings with transaction support via database.GetTx().
type MySQLTenantRepository struct {
	db *sql.DB
}

// Create inserts a new Tenant into the MySQL database.
func (m *MySQLTenantRepository) Create(ctx context.Context, tenant *tenantDomain.Tenant) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO tenants (id, name, domain, is_active, signing_key_id, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	var signingKeyID any
	if tenant.SigningKeyID != nil {
		signingKeyID = tenant.SigningKeyID.String()
	}

	_, err := querier.ExecContext(
		ctx,
		query,
		tenant.ID.String(),
		tenant.Name,
		tenant.Domain,
		tenant.IsActive,
		signingKeyID,
		tenant.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create tenant")
	}
	return nil
}

// Get retrieves a Tenant by ID. Returns ErrTenantNotFound if the tenant doesn't exist.
func (m *MySQLTenantRepository) Get(
	ctx context.Context,
	tenantID uuid.UUID,
) (*tenantDomain.Tenant, error) {
	return m.getByField(ctx, "id", tenantID.String())
}

// GetByDomain retrieves a Tenant by its subdomain label.
func (m *MySQLTenantRepository) GetByDomain(
	ctx context.Context,
	domain string,
) (*tenantDomain.Tenant, error) {
	return m.getByField(ctx, "domain", domain)
}

func (m *MySQLTenantRepository) getByField(
	ctx context.Context,
	field string,
	value string,
) (*tenantDomain.Tenant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, name, domain, is_active, signing_key_id, created_at
			  FROM tenants WHERE ` + field + ` = ?`

	var (
		tenant       tenantDomain.Tenant
		id           string
		signingKeyID sql.NullString
	)

	err := querier.QueryRowContext(ctx, query, value).Scan(
		&id,
		&tenant.Name,
		&tenant.Domain,
		&tenant.IsActive,
		&signingKeyID,
		&tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenantDomain.ErrTenantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get tenant")
	}

	tenant.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse tenant id")
	}

	if signingKeyID.Valid {
		parsed, err := uuid.Parse(signingKeyID.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse signing key id")
		}
		tenant.SigningKeyID = &parsed
	}

	return &tenant, nil
}

// SetActive flips the tenant's active flag.
func (m *MySQLTenantRepository) SetActive(
	ctx context.Context,
	tenantID uuid.UUID,
	isActive bool,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE tenants SET is_active = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, isActive, tenantID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update tenant")
	}
	return nil
}

// NewMySQLTenantRepository creates a new MySQL Tenant repository.
func NewMySQLTenantRepository(db *sql.DB) *MySQLTenantRepository {
	return &MySQLTenantRepository{db: db}
}
