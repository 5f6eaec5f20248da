package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndMigrate(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	// Migrations are idempotent.
	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	require.Zero(t, n)
}

func TestMigrate_UsernameUniqueIgnoringCase(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec("INSERT INTO users(id, username, username_key, password_hash) VALUES('1', 'Ola', 'ola', 'h')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO users(id, username, username_key, password_hash) VALUES('2', 'ola', 'ola', 'h')")
	require.Error(t, err)
}

func TestMigrate_UsernameKeyFoldsUnicode(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec("INSERT INTO users(id, username, username_key, password_hash) VALUES('1', 'Øyvind', 'øyvind', 'h')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO users(id, username, username_key, password_hash) VALUES('2', 'øyvind', 'øyvind', 'h')")
	require.Error(t, err)
}

func TestMigrate_UpgradesTableWithoutUsernameKey(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
	CREATE TABLE users (
		id TEXT NOT NULL PRIMARY KEY,
		firstname TEXT NOT NULL DEFAULT '',
		lastname TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	INSERT INTO users(id, username, password_hash) VALUES('1', 'Øyvind', 'h');
	`)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var key string
	require.NoError(t, db.QueryRow("SELECT username_key FROM users WHERE id = '1'").Scan(&key))
	require.Equal(t, "øyvind", key)

	_, err = db.Exec("INSERT INTO users(id, username, username_key, password_hash) VALUES('2', 'ØYVIND', 'øyvind', 'h')")
	require.Error(t, err)
}
