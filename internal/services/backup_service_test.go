package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/ender-portal/internal/models"
	"github.com/isdelr/ender-portal/internal/store"
	"github.com/stretchr/testify/require"
)

func TestCreateBackup_WritesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, s.Save([]models.User{{Username: "ola"}, {Username: "kari"}}))

	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(s, dir, 0)
	svc.now = func() time.Time { return time.Date(2024, 5, 17, 12, 30, 0, 0, time.Local) }

	backup, err := svc.CreateBackup(ctx)
	require.NoError(t, err)
	require.Equal(t, "users_20240517123000.000000.json", backup.Name)
	require.Equal(t, 2, backup.Users)

	raw, err := os.ReadFile(backup.Path)
	require.NoError(t, err)
	var users []models.User
	require.NoError(t, json.Unmarshal(raw, &users))
	require.Len(t, users, 2)
	require.Equal(t, "kari", users[1].Username)
}

func TestCreateBackup_PrunesOldSnapshots(t *testing.T) {
	ctx := context.Background()
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "users.json"))
	dir := t.TempDir()
	svc := NewBackupService(s, dir, 2)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		_, err := svc.CreateBackup(ctx)
		require.NoError(t, err)
	}

	backups, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	require.Equal(t, "users_20240101030000.000000.json", backups[0].Name)
	require.Equal(t, "users_20240101020000.000000.json", backups[1].Name)
}

func TestCreateBackup_SameSecondKeepsBoth(t *testing.T) {
	ctx := context.Background()
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "users.json"))
	svc := NewBackupService(s, t.TempDir(), 0)

	base := time.Date(2024, 5, 17, 12, 30, 0, 0, time.Local)
	svc.now = func() time.Time { return base.Add(100 * time.Millisecond) }
	first, err := svc.CreateBackup(ctx)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(900 * time.Millisecond) }
	second, err := svc.CreateBackup(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first.Name, second.Name)

	backups, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	require.Equal(t, second.Name, backups[0].Name)
}

func TestCreateBackup_RefusesToOverwrite(t *testing.T) {
	ctx := context.Background()
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, s.Save([]models.User{{Username: "ola"}}))
	svc := NewBackupService(s, t.TempDir(), 0)
	svc.now = func() time.Time { return time.Date(2024, 5, 17, 12, 30, 0, 0, time.Local) }

	first, err := svc.CreateBackup(ctx)
	require.NoError(t, err)
	before, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	require.NoError(t, s.Save(nil))
	_, err = svc.CreateBackup(ctx)
	require.ErrorIs(t, err, os.ErrExist)

	after, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestListBackups_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users_bogus.json"), []byte("[]"), 0o600))

	backups, err := NewBackupService(nil, dir, 0).ListBackups()
	require.NoError(t, err)
	require.Empty(t, backups)
}

func TestListBackups_MissingDirectory(t *testing.T) {
	backups, err := NewBackupService(nil, filepath.Join(t.TempDir(), "nope"), 0).ListBackups()
	require.NoError(t, err)
	require.Empty(t, backups)
}
