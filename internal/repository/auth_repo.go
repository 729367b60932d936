package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"asthma_shield/internal/models"
)

var (
	// ErrUserExists is returned by Create when the username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned by GetByUsername for an unknown username.
	ErrUserNotFound = errors.New("user not found")
)

// OperatorSQLite stores API operators in the users table.
type OperatorSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite {
	return &OperatorSQLite{db: db, now: time.Now}
}

var _ OperatorStore = (*OperatorSQLite)(nil)

const (
	insertUserSQL           = `INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`
	selectUserByUsernameSQL = `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`
)

// Create inserts an operator and returns its ID.
func (r *OperatorSQLite) Create(ctx context.Context, username, passwordHash string) (int, error) {
	res, err := r.db.ExecContext(ctx, insertUserSQL, username, passwordHash, r.now().UTC().Format(sqliteTimestamp))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user %q: %w", username, ErrUserExists)
		}
		return 0, fmt.Errorf("insert user %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for user %q: %w", username, err)
	}
	return int(id), nil
}

// GetByUsername returns ErrUserNotFound when no row matches.
func (r *OperatorSQLite) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, selectUserByUsernameSQL, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// modernc reports constraint failures only through the message text.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
