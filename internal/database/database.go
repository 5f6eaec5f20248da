package database

import (
	"database/sql"
	"fmt"

	"github.com/isdelr/ender-portal/internal/models"
	_ "modernc.org/sqlite" // SQLite driver
)

// New opens the SQLite database at path and checks the connection.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection keeps writes ordered.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
//
// username_key holds models.UsernameKey(username). SQLite's NOCASE only
// folds ASCII, so uniqueness and lookups go through the folded key.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		firstname TEXT NOT NULL DEFAULT '',
		lastname TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		username_key TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(sqlStmt); err != nil {
		return err
	}
	return addUsernameKey(db)
}

// addUsernameKey upgrades a users table created before username_key existed.
func addUsernameKey(db *sql.DB) error {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('users') WHERE name = 'username_key'").Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("ALTER TABLE users ADD COLUMN username_key TEXT"); err != nil {
		return fmt.Errorf("add username_key: %w", err)
	}

	rows, err := tx.Query("SELECT id, username FROM users")
	if err != nil {
		return err
	}
	keys := map[string]string{}
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			rows.Close()
			return err
		}
		keys[id] = models.UsernameKey(username)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for id, key := range keys {
		if _, err := tx.Exec("UPDATE users SET username_key = ? WHERE id = ?", key, id); err != nil {
			return fmt.Errorf("backfill username_key for %s: %w", id, err)
		}
	}
	if _, err := tx.Exec("CREATE UNIQUE INDEX users_username_key ON users(username_key)"); err != nil {
		return fmt.Errorf("index username_key: %w", err)
	}
	return tx.Commit()
}
