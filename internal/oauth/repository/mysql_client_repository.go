package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// MySQLClientRepository implements OAuth client persistence for MySQL.
type MySQLClientRepository struct {
	db *sql.DB
}

// Create stores a new OAuth client.
func (m *MySQLClientRepository) Create(ctx context.Context, client *oauthDomain.Client) error {
	querier := database.GetTx(ctx, m.db)

	redirectURIs, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal redirect uris")
	}
	grantTypes, err := json.Marshal(client.GrantTypes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal grant types")
	}

	query := `INSERT INTO oauth_clients
			  (id, tenant_id, name, secret_hash, redirect_uris, grant_types,
			   is_confidential, is_active, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		client.ID.String(),
		client.TenantID.String(),
		client.Name,
		client.SecretHash,
		redirectURIs,
		grantTypes,
		client.IsConfidential,
		client.IsActive,
		client.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create oauth client")
	}
	return nil
}

// Get retrieves a client by ID. Returns ErrClientNotFound if it does not exist.
func (m *MySQLClientRepository) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, name, secret_hash, redirect_uris, grant_types,
			  is_confidential, is_active, created_at
			  FROM oauth_clients WHERE id = ?`

	var (
		client       oauthDomain.Client
		clientID     string
		tenantID     string
		redirectURIs []byte
		grantTypes   []byte
	)
	err := querier.QueryRowContext(ctx, query, id.String()).Scan(
		&clientID,
		&tenantID,
		&client.Name,
		&client.SecretHash,
		&redirectURIs,
		&grantTypes,
		&client.IsConfidential,
		&client.IsActive,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get oauth client")
	}

	client.ID, err = uuid.Parse(clientID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse oauth client id")
	}
	client.TenantID, err = uuid.Parse(tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse oauth client tenant id")
	}
	if err := json.Unmarshal(redirectURIs, &client.RedirectURIs); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal redirect uris")
	}
	if err := json.Unmarshal(grantTypes, &client.GrantTypes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal grant types")
	}
	return &client, nil
}

// SetActive enables or disables a client.
func (m *MySQLClientRepository) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE oauth_clients SET is_active = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, isActive, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update oauth client")
	}
	return nil
}

// NewMySQLClientRepository creates a new MySQL client repository.
func NewMySQLClientRepository(db *sql.DB) *MySQLClientRepository {
	return &MySQLClientRepository{db: db}
}
