package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// PostgreSQLGrantRepository implements grant persistence for PostgreSQL.
type PostgreSQLGrantRepository struct {
	db *sql.DB
}

// Create stores a new grant.
func (p *PostgreSQLGrantRepository) Create(ctx context.Context, grant *oauthDomain.Grant) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO grants
			  (id, tenant_id, subject_id, client_id, grant_type, scopes, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		grant.ID,
		grant.TenantID,
		grant.SubjectID,
		grant.ClientID,
		string(grant.Kind),
		oauthDomain.JoinScopes(grant.Scopes),
		string(grant.Status),
		grant.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create grant")
	}
	return nil
}

// Get retrieves a grant by ID. Returns ErrGrantNotFound if it does not exist.
func (p *PostgreSQLGrantRepository) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, subject_id, client_id, grant_type, scopes, status, created_at
			  FROM grants WHERE id = $1`

	return scanPostgresGrant(querier.QueryRowContext(ctx, query, id))
}

// GetPermanent retrieves the valid permanent grant between the subject and
// the client within the tenant, if one exists.
func (p *PostgreSQLGrantRepository) GetPermanent(
	ctx context.Context,
	tenantID, subjectID, clientID uuid.UUID,
) (*oauthDomain.Grant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, subject_id, client_id, grant_type, scopes, status, created_at
			  FROM grants
			  WHERE tenant_id = $1 AND subject_id = $2 AND client_id = $3
			  AND grant_type = $4 AND status = $5
			  ORDER BY created_at DESC LIMIT 1`

	return scanPostgresGrant(querier.QueryRowContext(
		ctx,
		query,
		tenantID,
		subjectID,
		clientID,
		string(oauthDomain.GrantKindPermanent),
		string(oauthDomain.GrantStatusValid),
	))
}

// UpdateStatus transitions the grant's status.
func (p *PostgreSQLGrantRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status oauthDomain.GrantStatus,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE grants SET status = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update grant status")
	}
	return nil
}

func scanPostgresGrant(row rowScanner) (*oauthDomain.Grant, error) {
	var (
		grant  oauthDomain.Grant
		kind   string
		scopes string
		status string
	)
	err := row.Scan(
		&grant.ID,
		&grant.TenantID,
		&grant.SubjectID,
		&grant.ClientID,
		&kind,
		&scopes,
		&status,
		&grant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrGrantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan grant")
	}

	grant.Kind = oauthDomain.GrantKind(kind)
	grant.Scopes = oauthDomain.SplitScopes(scopes)
	grant.Status = oauthDomain.GrantStatus(status)
	return &grant, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// NewPostgreSQLGrantRepository creates a new PostgreSQL grant repository.
func NewPostgreSQLGrantRepository(db *sql.DB) *PostgreSQLGrantRepository {
	return &PostgreSQLGrantRepository{db: db}
}
