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

// MySQLUserRepository implements user persistence for MySQL.
// Stores UUIDs as strings with transaction support via database.GetTx().
type MySQLUserRepository struct {
	db *sql.DB
}

// Create inserts a new User into the MySQL database.
func (m *MySQLUserRepository) Create(ctx context.Context, user *userDomain.User) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO users (id, username, email, password_hash, tenant_id, created_at, last_login_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.TenantID.String(),
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Get retrieves a User by ID. Returns ErrUserNotFound if the user doesn't exist.
func (m *MySQLUserRepository) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, username, email, password_hash, tenant_id, created_at, last_login_at
			  FROM users WHERE id = ?`

	return m.scanUser(querier.QueryRowContext(ctx, query, userID.String()))
}

// GetByUsername retrieves a User by (tenantID, username).
func (m *MySQLUserRepository) GetByUsername(
	ctx context.Context,
	tenantID uuid.UUID,
	username string,
) (*userDomain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, username, email, password_hash, tenant_id, created_at, last_login_at
			  FROM users WHERE tenant_id = ? AND username = ?`

	return m.scanUser(querier.QueryRowContext(ctx, query, tenantID.String(), username))
}

func (m *MySQLUserRepository) scanUser(row *sql.Row) (*userDomain.User, error) {
	var (
		user     userDomain.User
		id       string
		tenantID string
	)

	err := row.Scan(
		&id,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&tenantID,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse user id")
	}
	user.TenantID, err = uuid.Parse(tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse tenant id")
	}

	return &user, nil
}

// UpdateLastLogin records a successful credential verification timestamp.
func (m *MySQLUserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE users SET last_login_at = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, time.Now().UTC(), userID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update last login")
	}
	return nil
}

// NewMySQLUserRepository creates a new MySQL User repository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}
