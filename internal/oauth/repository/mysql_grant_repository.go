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

// MySQLGrantRepository implements grant persistence for MySQL.
type MySQLGrantRepository struct {
	db *sql.DB
}

// Create stores a new grant.
func (m *MySQLGrantRepository) Create(ctx context.Context, grant *oauthDomain.Grant) error {
	querier := database.GetTx(ctx, m.db)

	var subjectID sql.NullString
	if grant.SubjectID != nil {
		subjectID = sql.NullString{String: grant.SubjectID.String(), Valid: true}
	}

	query := `INSERT INTO grants
			  (id, tenant_id, subject_id, client_id, grant_type, scopes, status, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		grant.ID.String(),
		grant.TenantID.String(),
		subjectID,
		grant.ClientID.String(),
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
func (m *MySQLGrantRepository) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, subject_id, client_id, grant_type, scopes, status, created_at
			  FROM grants WHERE id = ?`

	return scanMySQLGrant(querier.QueryRowContext(ctx, query, id.String()))
}

// GetPermanent retrieves the valid permanent grant between the subject and
// the client within the tenant, if one exists.
func (m *MySQLGrantRepository) GetPermanent(
	ctx context.Context,
	tenantID, subjectID, clientID uuid.UUID,
) (*oauthDomain.Grant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, subject_id, client_id, grant_type, scopes, status, created_at
			  FROM grants
			  WHERE tenant_id = ? AND subject_id = ? AND client_id = ?
			  AND grant_type = ? AND status = ?
			  ORDER BY created_at DESC LIMIT 1`

	return scanMySQLGrant(querier.QueryRowContext(
		ctx,
		query,
		tenantID.String(),
		subjectID.String(),
		clientID.String(),
		string(oauthDomain.GrantKindPermanent),
		string(oauthDomain.GrantStatusValid),
	))
}

// UpdateStatus transitions the grant's status.
func (m *MySQLGrantRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status oauthDomain.GrantStatus,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE grants SET status = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, string(status), id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update grant status")
	}
	return nil
}

func scanMySQLGrant(row rowScanner) (*oauthDomain.Grant, error) {
	var (
		grant     oauthDomain.Grant
		id        string
		tenantID  string
		subjectID sql.NullString
		clientID  string
		kind      string
		scopes    string
		status    string
	)
	err := row.Scan(
		&id,
		&tenantID,
		&subjectID,
		&clientID,
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

	grant.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse grant id")
	}
	grant.TenantID, err = uuid.Parse(tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse grant tenant id")
	}
	if subjectID.Valid {
		parsed, err := uuid.Parse(subjectID.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse grant subject id")
		}
		grant.SubjectID = &parsed
	}
	grant.ClientID, err = uuid.Parse(clientID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse grant client id")
	}

	grant.Kind = oauthDomain.GrantKind(kind)
	grant.Scopes = oauthDomain.SplitScopes(scopes)
	grant.Status = oauthDomain.GrantStatus(status)
	return &grant, nil
}

// NewMySQLGrantRepository creates a new MySQL grant repository.
func NewMySQLGrantRepository(db *sql.DB) *MySQLGrantRepository {
	return &MySQLGrantRepository{db: db}
}
