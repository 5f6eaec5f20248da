package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/isdelr/ender-portal/internal/models"
	"github.com/rs/zerolog/log"
)

// JSONStore keeps all users in a single JSON array on disk. Every lookup
// reads the whole file and every write replaces it.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore creates a store backed by the file at path. The file does
// not need to exist yet.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the location of the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads every user from disk. A missing, blank or malformed file is
// treated as an empty store.
func (s *JSONStore) Load() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the whole store with users.
func (s *JSONStore) Save(users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(users)
}

// Find returns the first user whose username matches, ignoring case.
func (s *JSONStore) Find(username string) (models.User, error) {
	users, err := s.Load()
	if err != nil {
		return models.User{}, err
	}
	if i := indexOf(users, username); i >= 0 {
		return users[i], nil
	}
	return models.User{}, ErrUserNotFound
}

// FindByUsername implements UserStore.
func (s *JSONStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	return s.Find(username)
}

// Create appends user unless the username is already taken. The check and
// the write happen under one lock.
func (s *JSONStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(users, user.Username) >= 0 {
		return ErrUsernameTaken
	}
	return s.save(append(users, user))
}

// List implements UserStore.
func (s *JSONStore) List(_ context.Context) ([]models.User, error) {
	return s.Load()
}

func (s *JSONStore) load() ([]models.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.User{}, nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Users file is malformed, treating it as empty")
		return []models.User{}, nil
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// save writes to a temporary file next to the store and renames it into
// place so readers never observe a partial file.
func (s *JSONStore) save(users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create users directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp users file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp users file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp users file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

func indexOf(users []models.User, username string) int {
	key := models.UsernameKey(username)
	for i, u := range users {
		if models.UsernameKey(u.Username) == key {
			return i
		}
	}
	return -1
}
