package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	oauthDomain "github.com/allisson/authd/internal/oauth/domain"
)

// PostgreSQLRefreshTokenRepository implements refresh token chain persistence
// for PostgreSQL.
//
// Live rows carry live_marker = TRUE and a unique index over
// (chain_id, live_marker) admits one live row per chain. Revocation clears
// the marker, so revoked rows never collide.
type PostgreSQLRefreshTokenRepository struct {
	db *sql.DB
}

// Create stores a new refresh token record as the live row of its chain.
func (p *PostgreSQLRefreshTokenRepository) Create(ctx context.Context, token *oauthDomain.RefreshToken) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO refresh_tokens
			  (id, token_hash, tenant_id, grant_id, user_id, client_id, chain_id,
			   previous_token_id, rotation_count, scopes, issued_at, expires_at,
			   revoked_at, live_marker)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL, TRUE)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.TokenHash,
		token.TenantID,
		token.GrantID,
		token.UserID,
		token.ClientID,
		token.ChainID,
		token.PreviousTokenID,
		token.RotationCount,
		oauthDomain.JoinScopes(token.Scopes),
		token.IssuedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create refresh token")
	}
	return nil
}

// GetByTokenHash retrieves a record by its token hash, live or revoked.
// Returns ErrRefreshTokenNotFound if no record matches.
func (p *PostgreSQLRefreshTokenRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*oauthDomain.RefreshToken, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, token_hash, tenant_id, grant_id, user_id, client_id, chain_id,
			  previous_token_id, rotation_count, scopes, issued_at, expires_at, revoked_at
			  FROM refresh_tokens WHERE token_hash = $1`

	return scanPostgresRefreshToken(querier.QueryRowContext(ctx, query, tokenHash))
}

// Revoke marks a single record revoked and releases its chain's live slot.
// Already revoked records are left untouched.
func (p *PostgreSQLRefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE refresh_tokens SET revoked_at = $1, live_marker = NULL
			  WHERE id = $2 AND revoked_at IS NULL`

	_, err := querier.ExecContext(ctx, query, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke refresh token")
	}
	return nil
}

// RevokeByGrant revokes every live record descended from the grant.
// Returns the IDs of the records that were revoked by this call.
func (p *PostgreSQLRefreshTokenRepository) RevokeByGrant(
	ctx context.Context,
	grantID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE refresh_tokens SET revoked_at = $1, live_marker = NULL
			  WHERE grant_id = $2 AND revoked_at IS NULL
			  RETURNING id`

	rows, err := querier.QueryContext(ctx, query, at, grantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to revoke refresh tokens by grant")
	}
	defer rows.Close()

	return collectIDs(rows)
}

// RevokeByChain revokes every live record in the rotation chain.
// Returns the IDs of the records that were revoked by this call.
func (p *PostgreSQLRefreshTokenRepository) RevokeByChain(
	ctx context.Context,
	chainID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE refresh_tokens SET revoked_at = $1, live_marker = NULL
			  WHERE chain_id = $2 AND revoked_at IS NULL
			  RETURNING id`

	rows, err := querier.QueryContext(ctx, query, at, chainID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to revoke refresh tokens by chain")
	}
	defer rows.Close()

	return collectIDs(rows)
}

// ListActiveByUser retrieves the user's live records within the tenant.
func (p *PostgreSQLRefreshTokenRepository) ListActiveByUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
) ([]*oauthDomain.RefreshToken, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, token_hash, tenant_id, grant_id, user_id, client_id, chain_id,
			  previous_token_id, rotation_count, scopes, issued_at, expires_at, revoked_at
			  FROM refresh_tokens
			  WHERE tenant_id = $1 AND user_id = $2 AND revoked_at IS NULL AND expires_at > $3
			  ORDER BY issued_at DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID, userID, time.Now().UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active refresh tokens")
	}
	defer rows.Close()

	var tokens []*oauthDomain.RefreshToken
	for rows.Next() {
		token, err := scanPostgresRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate refresh tokens")
	}
	return tokens, nil
}

// RevokeAllForUser revokes every live record of the user within the tenant in
// a single statement. Returns the IDs of the records that were revoked.
func (p *PostgreSQLRefreshTokenRepository) RevokeAllForUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE refresh_tokens SET revoked_at = $1, live_marker = NULL
			  WHERE tenant_id = $2 AND user_id = $3 AND revoked_at IS NULL
			  RETURNING id`

	rows, err := querier.QueryContext(ctx, query, at, tenantID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to revoke refresh tokens for user")
	}
	defer rows.Close()

	return collectIDs(rows)
}

// DeleteExpired removes records whose retention window ended before the
// cutoff. The caller computes the cutoff as expiry plus the retention period.
func (p *PostgreSQLRefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired refresh tokens")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted refresh tokens")
	}
	return deleted, nil
}

func scanPostgresRefreshToken(row rowScanner) (*oauthDomain.RefreshToken, error) {
	var (
		token  oauthDomain.RefreshToken
		scopes string
	)
	err := row.Scan(
		&token.ID,
		&token.TokenHash,
		&token.TenantID,
		&token.GrantID,
		&token.UserID,
		&token.ClientID,
		&token.ChainID,
		&token.PreviousTokenID,
		&token.RotationCount,
		&scopes,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrRefreshTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan refresh token")
	}

	token.Scopes = oauthDomain.SplitScopes(scopes)
	return &token, nil
}

func collectIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan refresh token id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate refresh token ids")
	}
	return ids, nil
}

// NewPostgreSQLRefreshTokenRepository creates a new PostgreSQL refresh token repository.
func NewPostgreSQLRefreshTokenRepository(db *sql.DB) *PostgreSQLRefreshTokenRepository {
	return &PostgreSQLRefreshTokenRepository{db: db}
}
