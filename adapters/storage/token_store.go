// Package storage persists the session token in the user's config directory,
// the client-side equivalent of the browser's single well-known storage key.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/repositories"
)

const tokenFileName = "token"

// FileTokenStore keeps the bearer token in a single file.
type FileTokenStore struct {
	path   string
	logger *zap.Logger
}

// Ensure FileTokenStore implements the TokenStore interface
var _ repositories.TokenStore = (*FileTokenStore)(nil)

// NewFileTokenStore creates a token store under dir. An empty dir selects
// <user config dir>/gramvaani.
func NewFileTokenStore(dir string, logger *zap.Logger) (*FileTokenStore, error) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
		dir = filepath.Join(configDir, "gramvaani")
	}
	return &FileTokenStore{
		path:   filepath.Join(dir, tokenFileName),
		logger: logger,
	}, nil
}

// Load returns the persisted token, or "" when none is stored.
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	s.logger.Debug("Token persisted", zap.String("path", s.path))
	return nil
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
