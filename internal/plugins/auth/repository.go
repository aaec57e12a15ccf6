package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/userservice/internal/apperror"
)

// mysqlErrDuplicateEntry is ER_DUP_ENTRY, raised by uq_users_user_name.
const mysqlErrDuplicateEntry = 1062

// UserRepository defines the data access contract for accounts.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	// FindByUsername returns apperror UserNotFound when no row matches.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByID returns apperror UserNotFound when no row matches.
	FindByID(ctx context.Context, id int64) (*Account, error)

	// Create inserts the account, sets its ID, and returns rows affected.
	// A unique-index violation surfaces as apperror DuplicateUsername.
	Create(ctx context.Context, account *Account) (int64, error)

	// UpdatePassword replaces the stored hash and returns rows affected.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (int64, error)

	Ping(ctx context.Context) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const selectAccount = `SELECT id, user_name, password_hash, salt, created_at, updated_at FROM users`

// FindByUsername retrieves an account by its exact username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE user_name = ?`, username))
	if err != nil {
		return nil, fmt.Errorf("querying user by name: %w", err)
	}
	return account, nil
}

// FindByID retrieves an account by primary key.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return account, nil
}

func scanAccount(row *sql.Row) (*Account, error) {
	a := &Account{}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Salt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewUserNotFound()
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new account row. Timestamps are set by the caller.
func (r *userRepository) Create(ctx context.Context, account *Account) (int64, error) {
	query := `INSERT INTO users (user_name, password_hash, salt, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		account.Username,
		account.PasswordHash,
		account.Salt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
			return 0, apperror.NewDuplicateUsername()
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted user id: %w", err)
	}
	account.ID = id

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}

// UpdatePassword sets a new password hash. The salt column is left untouched.
func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (int64, error) {
	query := `UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return 0, fmt.Errorf("updating password: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity for the health endpoint.
func (r *userRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
