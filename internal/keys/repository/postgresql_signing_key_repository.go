// Package repository implements signing key persistence for PostgreSQL and MySQL.
//
// Both implementations enforce the single-current-key invariant with a unique
// index over (scope, current_marker): exactly one writer wins a race to create
// the current key for a scope, losers get ErrCurrentKeyExists and read back
// the winner's key.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	keysDomain "github.com/allisson/authd/internal/keys/domain"
)

// globalScope is the scope value for keys not owned by a tenant.
const globalScope = "global"

// pqUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pqUniqueViolation = "23505"

// scopeOf maps an optional tenant to its scope column value.
func scopeOf(tenantID *uuid.UUID) string {
	if tenantID == nil {
		return globalScope
	}
	return tenantID.String()
}

// PostgreSQLSigningKeyRepository implements signing key persistence for PostgreSQL.
type PostgreSQLSigningKeyRepository struct {
	db *sql.DB
}

// CreateCurrent inserts a new signing key marked as current for its scope.
// Returns ErrCurrentKeyExists if another current key already holds the scope.
func (p *PostgreSQLSigningKeyRepository) CreateCurrent(
	ctx context.Context,
	key *keysDomain.SigningKey,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO signing_keys
			  (id, tenant_id, scope, algorithm, private_key_pem, public_key_pem,
			   created_at, expires_at, retired_at, current_marker)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, TRUE)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.TenantID,
		scopeOf(key.TenantID),
		key.Algorithm,
		key.PrivateKeyPEM,
		key.PublicKeyPEM,
		key.CreatedAt,
		key.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return keysDomain.ErrCurrentKeyExists
		}
		return apperrors.Wrap(err, "failed to create signing key")
	}
	return nil
}

// GetCurrent retrieves the current signing key for the scope.
// Returns ErrKeyNotFound if no current key exists.
func (p *PostgreSQLSigningKeyRepository) GetCurrent(
	ctx context.Context,
	tenantID *uuid.UUID,
) (*keysDomain.SigningKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, algorithm, private_key_pem, public_key_pem,
			  created_at, expires_at, retired_at
			  FROM signing_keys WHERE scope = $1 AND current_marker IS TRUE`

	key, err := scanPostgresKey(querier.QueryRowContext(ctx, query, scopeOf(tenantID)))
	if err != nil {
		return nil, err
	}
	return key, nil
}

// ListCurrent retrieves the current signing key of every scope.
// Used by the rotation worker to find keys due for rotation.
func (p *PostgreSQLSigningKeyRepository) ListCurrent(
	ctx context.Context,
) ([]*keysDomain.SigningKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, algorithm, private_key_pem, public_key_pem,
			  created_at, expires_at, retired_at
			  FROM signing_keys WHERE current_marker IS TRUE`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list current signing keys")
	}
	defer rows.Close()

	return collectPostgresKeys(rows)
}

// ListValidation retrieves every key for the scope whose signing window ended
// after the cutoff, including retired keys. Passing now minus the grace period
// as cutoff yields the JWKS validation set.
func (p *PostgreSQLSigningKeyRepository) ListValidation(
	ctx context.Context,
	tenantID *uuid.UUID,
	cutoff time.Time,
) ([]*keysDomain.SigningKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, algorithm, private_key_pem, public_key_pem,
			  created_at, expires_at, retired_at
			  FROM signing_keys WHERE scope = $1 AND expires_at > $2
			  ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, scopeOf(tenantID), cutoff)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list validation keys")
	}
	defer rows.Close()

	return collectPostgresKeys(rows)
}

// Retire marks a key retired and drops its current marker, freeing the scope
// for a successor.
func (p *PostgreSQLSigningKeyRepository) Retire(
	ctx context.Context,
	keyID uuid.UUID,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE signing_keys SET retired_at = $1, current_marker = NULL WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, at, keyID)
	if err != nil {
		return apperrors.Wrap(err, "failed to retire signing key")
	}
	return nil
}

// Delete removes a key outright. Used for the operator escape hatch after a
// suspected compromise, overriding the grace period.
func (p *PostgreSQLSigningKeyRepository) Delete(ctx context.Context, keyID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM signing_keys WHERE id = $1`

	_, err := querier.ExecContext(ctx, query, keyID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete signing key")
	}
	return nil
}

// DeleteExpired purges keys whose signing window ended before the cutoff.
// Never touches current keys.
func (p *PostgreSQLSigningKeyRepository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM signing_keys WHERE expires_at < $1 AND current_marker IS NULL`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired signing keys")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted signing keys")
	}
	return deleted, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresKey(row rowScanner) (*keysDomain.SigningKey, error) {
	var key keysDomain.SigningKey

	err := row.Scan(
		&key.ID,
		&key.TenantID,
		&key.Algorithm,
		&key.PrivateKeyPEM,
		&key.PublicKeyPEM,
		&key.CreatedAt,
		&key.ExpiresAt,
		&key.RetiredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keysDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan signing key")
	}
	return &key, nil
}

func collectPostgresKeys(rows *sql.Rows) ([]*keysDomain.SigningKey, error) {
	var keys []*keysDomain.SigningKey
	for rows.Next() {
		key, err := scanPostgresKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate signing keys")
	}
	return keys, nil
}

// NewPostgreSQLSigningKeyRepository creates a new PostgreSQL signing key repository.
func NewPostgreSQLSigningKeyRepository(db *sql.DB) *PostgreSQLSigningKeyRepository {
	return &PostgreSQLSigningKeyRepository{db: db}
}
