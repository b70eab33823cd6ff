// Package repository implements authorization data persistence: SQL
// repositories for clients, grants, and refresh token chains, plus Redis
// stores for authorization codes and revocation markers.
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

// PostgreSQLClientRepository implements OAuth client persistence for PostgreSQL.
type PostgreSQLClientRepository struct {
	db *sql.DB
}

// Create stores a new OAuth client.
func (p *PostgreSQLClientRepository) Create(ctx context.Context, client *oauthDomain.Client) error {
	querier := database.GetTx(ctx, p.db)

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
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = querier.ExecContext(
		ctx,
		query,
		client.ID,
		client.TenantID,
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
func (p *PostgreSQLClientRepository) Get(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, name, secret_hash, redirect_uris, grant_types,
			  is_confidential, is_active, created_at
			  FROM oauth_clients WHERE id = $1`

	var (
		client       oauthDomain.Client
		redirectURIs []byte
		grantTypes   []byte
	)
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.TenantID,
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

	if err := json.Unmarshal(redirectURIs, &client.RedirectURIs); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal redirect uris")
	}
	if err := json.Unmarshal(grantTypes, &client.GrantTypes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal grant types")
	}
	return &client, nil
}

// SetActive enables or disables a client.
func (p *PostgreSQLClientRepository) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE oauth_clients SET is_active = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, isActive, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update oauth client")
	}
	return nil
}

// NewPostgreSQLClientRepository creates a new PostgreSQL client repository.
func NewPostgreSQLClientRepository(db *sql.DB) *PostgreSQLClientRepository {
	return &PostgreSQLClientRepository{db: db}
}
