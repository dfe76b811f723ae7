package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pimonitor"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrUsernameTaken is returned by Create when the name is already registered.
var ErrUsernameTaken = errors.New("username already taken")

// UserRepository stores the operators allowed to call the mutating API.
// Usernames are compared case-insensitively.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ Authorization = (*UserRepository)(nil)

const (
	insertOperatorSQL = `INSERT INTO users (username, password_hash) VALUES (?, ?)`
	selectOperatorSQL = `SELECT id, username, password_hash FROM users WHERE username = ? COLLATE NOCASE`
)

func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (int, error) {
	name := normalizeUsername(username)
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, name, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("register operator %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("operator %q id: %w", name, err)
	}
	return int(id), nil
}

// GetByUsername returns (nil, nil) for an unknown name.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*pimonitor.User, error) {
	name := normalizeUsername(username)
	var u pimonitor.User
	err := r.db.QueryRowContext(ctx, selectOperatorSQL, name).Scan(&u.ID, &u.Username, &u.PasswordHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("lookup operator %q: %w", name, err)
	}
	return &u, nil
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
