// Package repository implements principal persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/database"
	apperrors "github.com/allisson/authd/internal/errors"
	userDomain "github.com/allisson/authd/internal/user/domain"
)

// PostgreSQLUserRepository implements user persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// Create inserts a new User into the PostgreSQL database.
func (p *PostgreSQLUserRepository) Create(ctx context.Context, user *userDomain.User) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO users (id, username, email, password_hash, tenant_id, created_at, last_login_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.TenantID,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Get retrieves a User by ID. Returns ErrUserNotFound if the user doesn't exist.
func (p *PostgreSQLUserRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
) (*userDomain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, username, email, password_hash, tenant_id, created_at, last_login_at
			  FROM users WHERE id = $1`

	var user userDomain.User

	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.TenantID,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}

	return &user, nil
}

// GetByUsername retrieves a User by (tenantID, username).
// Returns ErrUserNotFound if the user doesn't exist.
func (p *PostgreSQLUserRepository) GetByUsername(
	ctx context.Context,
	tenantID uuid.UUID,
	username string,
) (*userDomain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, username, email, password_hash, tenant_id, created_at, last_login_at
			  FROM users WHERE tenant_id = $1 AND username = $2`

	var user userDomain.User

	err := querier.QueryRowContext(ctx, query, tenantID, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.TenantID,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by username")
	}

	return &user, nil
}

// UpdateLastLogin records a successful credential verification timestamp.
func (p *PostgreSQLUserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update last login")
	}
	return nil
}

// NewPostgreSQLUserRepository creates a new PostgreSQL User repository.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}
