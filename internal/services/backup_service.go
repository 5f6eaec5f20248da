package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/isdelr/ender-portal/internal/models"
	"github.com/isdelr/ender-portal/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	backupPrefix = "users_"
	// Fixed width so names sort by time.
	backupStamp = "20060102150405.000000"
)

// BackupServiceProvider defines the interface for backup services.
type BackupServiceProvider interface {
	CreateBackup(ctx context.Context) (models.Backup, error)
}

// BackupService writes snapshots of the user store to a directory.
type BackupService struct {
	store      store.UserStore
	backupPath string
	keep       int
	now        func() time.Time
}

// NewBackupService creates a new BackupService. keep is the number of
// snapshots retained after each backup; zero keeps all of them.
func NewBackupService(s store.UserStore, backupPath string, keep int) *BackupService {
	return &BackupService{
		store:      s,
		backupPath: backupPath,
		keep:       keep,
		now:        time.Now,
	}
}

// CreateBackup snapshots every user into a timestamped JSON file.
func (s *BackupService) CreateBackup(ctx context.Context) (models.Backup, error) {
	if err := os.MkdirAll(s.backupPath, 0755); err != nil {
		return models.Backup{}, fmt.Errorf("could not create backup directory: %w", err)
	}

	users, err := s.store.List(ctx)
	if err != nil {
		return models.Backup{}, fmt.Errorf("could not read users: %w", err)
	}

	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return models.Backup{}, fmt.Errorf("could not encode users: %w", err)
	}

	created := s.now()
	name := fmt.Sprintf("%s%s.json", backupPrefix, created.Format(backupStamp))
	backup := models.Backup{
		Name:      name,
		Path:      filepath.Join(s.backupPath, name),
		Users:     len(users),
		Size:      int64(len(data)),
		CreatedAt: created,
	}

	// O_EXCL refuses to overwrite a snapshot taken at the same instant.
	f, err := os.OpenFile(backup.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return models.Backup{}, fmt.Errorf("could not create backup file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(backup.Path) // Clean up partial file
		return models.Backup{}, fmt.Errorf("could not write backup file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(backup.Path)
		return models.Backup{}, fmt.Errorf("could not close backup file: %w", err)
	}

	log.Info().Str("path", backup.Path).Int("users", backup.Users).Msg("User store backup created")

	if err := s.prune(); err != nil {
		log.Warn().Err(err).Msg("Failed to prune old backups")
	}
	return backup, nil
}

// ListBackups returns existing snapshots, newest first.
func (s *BackupService) ListBackups() ([]models.Backup, error) {
	entries, err := os.ReadDir(s.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []models.Backup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), ".json")
		created, err := time.ParseInLocation(backupStamp, stamp, time.Local)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		backups = append(backups, models.Backup{
			Name:      name,
			Path:      filepath.Join(s.backupPath, name),
			Size:      info.Size(),
			CreatedAt: created,
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Name > backups[j].Name })
	return backups, nil
}

func (s *BackupService) prune() error {
	if s.keep <= 0 {
		return nil
	}
	backups, err := s.ListBackups()
	if err != nil {
		return err
	}
	for _, b := range backups[min(s.keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not delete backup %s: %w", b.Name, err)
		}
	}
	return nil
}
