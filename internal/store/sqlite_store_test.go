package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/isdelr/ender-portal/internal/database"
	"github.com/isdelr/ender-portal/internal/models"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewSQLiteStore(db)
}

func TestSQLiteStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	in := models.User{FirstName: "Ola", LastName: "Nordmann", Email: "ola@example.com", Username: "Ola", PasswordHash: "h"}
	require.NoError(t, s.Create(ctx, in))

	got, err := s.FindByUsername(ctx, "ola")
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	got.ID = ""
	require.Equal(t, in, got)
}

func TestSQLiteStore_FindMissing(t *testing.T) {
	_, err := newSQLiteStore(t).FindByUsername(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLiteStore_CreateRejectsDuplicate(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		second string
	}{
		{name: "ascii", first: "Ola", second: "OLA"},
		{name: "norwegian letters", first: "Øyvind", second: "øyvind"},
		{name: "mixed", first: "Ærlig Åse", second: "æRLIG åSE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newSQLiteStore(t)

			require.NoError(t, s.Create(ctx, models.User{Username: tt.first, PasswordHash: "h1"}))
			err := s.Create(ctx, models.User{Username: tt.second, PasswordHash: "h2"})
			require.ErrorIs(t, err, ErrUsernameTaken)

			users, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, users, 1)
			require.Equal(t, "h1", users[0].PasswordHash)

			got, err := s.FindByUsername(ctx, tt.second)
			require.NoError(t, err)
			require.Equal(t, tt.first, got.Username)
		})
	}
}

func TestSQLiteStore_ListInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, s.Create(ctx, models.User{Username: name, PasswordHash: "h"}))
	}

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, "c", users[0].Username)
	require.Equal(t, "a", users[1].Username)
	require.Equal(t, "b", users[2].Username)
}
