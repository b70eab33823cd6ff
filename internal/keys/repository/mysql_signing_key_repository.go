package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	keysDomain "github.com/allisson/authd/internal/keys/domain"
)

// mysqlDuplicateEntry is the MySQL error number for duplicate key violations.
const mysqlDuplicateEntry = 1062

// MySQLSigningKeyRepository implements signing key persistence for MySQL.
type MySQLSigningKeyRepository struct {
	db *sql.DB
}

// CreateCurrent inserts a new signing key marked as current for its scope.
// Returns ErrCurrentKeyExists if another current key already holds the scope.
func (m *MySQLSigningKeyRepository) CreateCurrent(
	ctx context.Context,
	key *keysDomain.SigningKey,
) error {
	querier := database.GetTx(ctx, m.db)

	var tenantID sql.NullString
	if key.TenantID != nil {
		tenantID = sql.NullString{String: key.TenantID.String(), Valid: true}
	}

	query := `INSERT INTO signing_keys
			  (id, tenant_id, scope, algorithm, private_key_pem, public_key_pem,
			   created_at, expires_at, retired_at, current_marker)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, TRUE)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID.String(),
		tenantID,
		scopeOf(key.TenantID),
		key.Algorithm,
		key.PrivateKeyPEM,
		key.PublicKeyPEM,
		key.CreatedAt,
		key.ExpiresAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return keysDomain.ErrCurrentKeyExists
		}
		return apperrors.Wrap(err, "failed to create signing key")
	}
	return nil
}

// GetCurrent retrieves the current signing key for the scope.
// Returns ErrKeyNotFound if no current key exists.
func (m *MySQLSigningKeyRepository) GetCurrent(
	ctx context.Context,
	tenantID *uuid.UUID,
) (*keysDomain.SigningKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, algorithm, private_key_pem, public_key_pem,
			  created_at, expires_at, retired_at
			  FROM signing_keys WHERE scope = ? AND current_marker IS TRUE`

	key, err := scanMySQLKey(querier.QueryRowContext(ctx, query, scopeOf(tenantID)))
	if err != nil {
		return nil, err
	}
	return key, nil
}

// ListCurrent retrieves the current signing key of every scope.
func (m *MySQLSigningKeyRepository) ListCurrent(
	ctx context.Context,
) ([]*keysDomain.SigningKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, algorithm, private_key_pem, public_key_pem,
			  created_at, expires_at, retired_at
			  FROM signing_keys WHERE current_marker IS TRUE`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list current signing keys")
	}
	defer rows.Close()

	return collectMySQLKeys(rows)
}

// ListValidation retrieves every key for the scope whose signing window ended
// after the cutoff, including retired keys.
func (m *MySQLSigningKeyRepository) ListValidation(
	ctx context.Context,
	tenantID *uuid.UUID,
	cutoff time.Time,
) ([]*keysDomain.SigningKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, algorithm, private_key_pem, public_key_pem,
			  created_at, expires_at, retired_at
			  FROM signing_keys WHERE scope = ? AND expires_at > ?
			  ORDER BY created_at DESC`

	rows, err := querier.QueryContext(ctx, query, scopeOf(tenantID), cutoff)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list validation keys")
	}
	defer rows.Close()

	return collectMySQLKeys(rows)
}

// Retire marks a key retired and drops its current marker.
func (m *MySQLSigningKeyRepository) Retire(
	ctx context.Context,
	keyID uuid.UUID,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE signing_keys SET retired_at = ?, current_marker = NULL WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, at, keyID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to retire signing key")
	}
	return nil
}

// Delete removes a key outright.
func (m *MySQLSigningKeyRepository) Delete(ctx context.Context, keyID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM signing_keys WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, keyID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete signing key")
	}
	return nil
}

// DeleteExpired purges keys whose signing window ended before the cutoff.
// Never touches current keys.
func (m *MySQLSigningKeyRepository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM signing_keys WHERE expires_at < ? AND current_marker IS NULL`

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

func scanMySQLKey(row rowScanner) (*keysDomain.SigningKey, error) {
	var (
		key      keysDomain.SigningKey
		id       string
		tenantID sql.NullString
	)

	err := row.Scan(
		&id,
		&tenantID,
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

	key.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse signing key id")
	}
	if tenantID.Valid {
		parsed, err := uuid.Parse(tenantID.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse signing key tenant id")
		}
		key.TenantID = &parsed
	}
	return &key, nil
}

func collectMySQLKeys(rows *sql.Rows) ([]*keysDomain.SigningKey, error) {
	var keys []*keysDomain.SigningKey
	for rows.Next() {
		key, err := scanMySQLKey(rows)
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

// NewMySQLSigningKeyRepository creates a new MySQL signing key repository.
func NewMySQLSigningKeyRepository(db *sql.DB) *MySQLSigningKeyRepository {
	return &MySQLSigningKeyRepository{db: db}
}
