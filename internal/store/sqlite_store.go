package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/ender-portal/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore keeps users in a SQLite table. Username uniqueness is
// enforced by the schema, so concurrent registrations cannot both succeed.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// FindByUsername retrieves a user by username, ignoring case.
func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		"SELECT id, firstname, lastname, email, username, password_hash FROM users WHERE username_key = ?",
		models.UsernameKey(username))
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("query user %q: %w", username, err)
	}
	return user, nil
}

// Create inserts a new user.
func (s *SQLiteStore) Create(ctx context.Context, user models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO users(id, firstname, lastname, email, username, username_key, password_hash) VALUES(?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, user.ID, user.FirstName, user.LastName, user.Email, user.Username, models.UsernameKey(user.Username), user.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user %q: %w", user.Username, err)
	}
	return nil
}

// List returns every user in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, firstname, lastname, email, username, password_hash FROM users ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Username, &user.PasswordHash); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
