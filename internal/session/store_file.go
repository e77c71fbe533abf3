package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the slots in a per-profile JSON document, readable only
// by the current user.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(dir, profile string) *FileStore {
	if profile == "" {
		profile = "default"
	}
	return &FileStore{path: filepath.Join(dir, profile+".json")}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: read %s: %v", ErrStoreUnavailable, s.path, err)
	}

	var slots map[string]string
	if err := json.Unmarshal(data, &slots); err != nil {
		return Credentials{}, fmt.Errorf("%w: decode %s: %v", ErrStoreUnavailable, s.path, err)
	}
	return Credentials{Token: slots[slotToken], RefreshToken: slots[slotRefreshToken]}, nil
}

func (s *FileStore) Save(_ context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := map[string]string{slotToken: creds.Token}
	if creds.RefreshToken != "" {
		slots[slotRefreshToken] = creds.RefreshToken
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: chmod: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", ErrStoreUnavailable, s.path, err)
	}
	return nil
}
