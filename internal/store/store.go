package store

import (
	"context"
	"errors"

	"github.com/isdelr/ender-portal/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches a username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a username already exists, ignoring case.
	ErrUsernameTaken = errors.New("username already exists")
)

// UserStore defines persistence for user records.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
	Create(ctx context.Context, user models.User) error
	List(ctx context.Context) ([]models.User, error)
}
