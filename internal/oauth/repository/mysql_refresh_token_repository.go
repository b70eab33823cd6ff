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

// MySQLRefreshTokenRepository implements refresh token chain persistence for
// MySQL. Bulk revocations select the affected IDs before updating because
// MySQL has no RETURNING clause; callers run them inside a transaction.
type MySQLRefreshTokenRepository struct {
	db *sql.DB
}

// Create stores a new refresh token record as the live row of its chain.
func (m *MySQLRefreshTokenRepository) Create(ctx context.Context, token *oauthDomain.RefreshToken) error {
	querier := database.GetTx(ctx, m.db)

	var userID, previousTokenID sql.NullString
	if token.UserID != nil {
		userID = sql.NullString{String: token.UserID.String(), Valid: true}
	}
	if token.PreviousTokenID != nil {
		previousTokenID = sql.NullString{String: token.PreviousTokenID.String(), Valid: true}
	}

	query := `INSERT INTO refresh_tokens
			  (id, token_hash, tenant_id, grant_id, user_id, client_id, chain_id,
			   previous_token_id, rotation_count, scopes, issued_at, expires_at,
			   revoked_at, live_marker)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, TRUE)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID.String(),
		token.TokenHash,
		token.TenantID.String(),
		token.GrantID.String(),
		userID,
		token.ClientID.String(),
		token.ChainID.String(),
		previousTokenID,
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
func (m *MySQLRefreshTokenRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*oauthDomain.RefreshToken, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, token_hash, tenant_id, grant_id, user_id, client_id, chain_id,
			  previous_token_id, rotation_count, scopes, issued_at, expires_at, revoked_at
			  FROM refresh_tokens WHERE token_hash = ?`

	return scanMySQLRefreshToken(querier.QueryRowContext(ctx, query, tokenHash))
}

// Revoke marks a single record revoked and releases its chain's live slot.
// Already revoked records are left untouched.
func (m *MySQLRefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE refresh_tokens SET revoked_at = ?, live_marker = NULL
			  WHERE id = ? AND revoked_at IS NULL`

	_, err := querier.ExecContext(ctx, query, at, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke refresh token")
	}
	return nil
}

// RevokeByGrant revokes every live record descended from the grant.
// Returns the IDs of the records that were revoked by this call.
func (m *MySQLRefreshTokenRepository) RevokeByGrant(
	ctx context.Context,
	grantID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	return m.revokeWhere(ctx, "grant_id = ?", grantID.String(), at)
}

// RevokeByChain revokes every live record in the rotation chain.
// Returns the IDs of the records that were revoked by this call.
func (m *MySQLRefreshTokenRepository) RevokeByChain(
	ctx context.Context,
	chainID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	return m.revokeWhere(ctx, "chain_id = ?", chainID.String(), at)
}

// ListActiveByUser retrieves the user's live records within the tenant.
func (m *MySQLRefreshTokenRepository) ListActiveByUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
) ([]*oauthDomain.RefreshToken, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, token_hash, tenant_id, grant_id, user_id, client_id, chain_id,
			  previous_token_id, rotation_count, scopes, issued_at, expires_at, revoked_at
			  FROM refresh_tokens
			  WHERE tenant_id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?
			  ORDER BY issued_at DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID.String(), userID.String(), time.Now().UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active refresh tokens")
	}
	defer rows.Close()

	var tokens []*oauthDomain.RefreshToken
	for rows.Next() {
		token, err := scanMySQLRefreshToken(rows)
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

// RevokeAllForUser revokes every live record of the user within the tenant.
// Returns the IDs of the records that were revoked.
func (m *MySQLRefreshTokenRepository) RevokeAllForUser(
	ctx context.Context,
	tenantID, userID uuid.UUID,
	at time.Time,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, m.db)

	selectQuery := `SELECT id FROM refresh_tokens
					WHERE tenant_id = ? AND user_id = ? AND revoked_at IS NULL`

	ids, err := m.collectIDs(ctx, selectQuery, tenantID.String(), userID.String())
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	updateQuery := `UPDATE refresh_tokens SET revoked_at = ?, live_marker = NULL
					WHERE tenant_id = ? AND user_id = ? AND revoked_at IS NULL`

	if _, err := querier.ExecContext(ctx, updateQuery, at, tenantID.String(), userID.String()); err != nil {
		return nil, apperrors.Wrap(err, "failed to revoke refresh tokens for user")
	}
	return ids, nil
}

// DeleteExpired removes records whose retention window ended before the cutoff.
func (m *MySQLRefreshTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM refresh_tokens WHERE expires_at < ?`

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

func (m *MySQLRefreshTokenRepository) revokeWhere(
	ctx context.Context,
	condition, value string,
	at time.Time,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, m.db)

	selectQuery := `SELECT id FROM refresh_tokens WHERE ` + condition + ` AND revoked_at IS NULL`

	ids, err := m.collectIDs(ctx, selectQuery, value)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	updateQuery := `UPDATE refresh_tokens SET revoked_at = ?, live_marker = NULL
					WHERE ` + condition + ` AND revoked_at IS NULL`

	if _, err := querier.ExecContext(ctx, updateQuery, at, value); err != nil {
		return nil, apperrors.Wrap(err, "failed to revoke refresh tokens")
	}
	return ids, nil
}

func (m *MySQLRefreshTokenRepository) collectIDs(
	ctx context.Context,
	query string,
	args ...any,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to select refresh token ids")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan refresh token id")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse refresh token id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate refresh token ids")
	}
	return ids, nil
}

func scanMySQLRefreshToken(row rowScanner) (*oauthDomain.RefreshToken, error) {
	var (
		token           oauthDomain.RefreshToken
		id              string
		tenantID        string
		grantID         string
		userID          sql.NullString
		clientID        string
		chainID         string
		previousTokenID sql.NullString
		scopes          string
	)
	err := row.Scan(
		&id,
		&token.TokenHash,
		&tenantID,
		&grantID,
		&userID,
		&clientID,
		&chainID,
		&previousTokenID,
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

	if token.ID, err = uuid.Parse(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse refresh token id")
	}
	if token.TenantID, err = uuid.Parse(tenantID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse refresh token tenant id")
	}
	if token.GrantID, err = uuid.Parse(grantID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse refresh token grant id")
	}
	if token.ClientID, err = uuid.Parse(clientID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse refresh token client id")
	}
	if token.ChainID, err = uuid.Parse(chainID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse refresh token chain id")
	}
	if userID.Valid {
		parsed, err := uuid.Parse(userID.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse refresh token user id")
		}
		token.UserID = &parsed
	}
	if previousTokenID.Valid {
		parsed, err := uuid.Parse(previousTokenID.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse previous token id")
		}
		token.PreviousTokenID = &parsed
	}

	token.Scopes = oauthDomain.SplitScopes(scopes)
	return &token, nil
}

// NewMySQLRefreshTokenRepository creates a new MySQL refresh token repository.
func NewMySQLRefreshTokenRepository(db *sql.DB) *MySQLRefreshTokenRepository {
	return &MySQLRefreshTokenRepository{db: db}
}
