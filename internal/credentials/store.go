// Package credentials stores the operator's gateway token on disk.
package credentials

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/fileutil"
)

// maxTokenSize caps the token file read.
const maxTokenSize = 16 * 1024

// ConfigDir returns the jwctl configuration directory, ~/.config/jwctl.
// XDG_CONFIG_HOME is honoured when set.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "jwctl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", rperrors.ConfigWrap(err, "credentials.ConfigDir", "unable to find home directory")
	}
	return filepath.Join(home, ".config", "jwctl"), nil
}

// Store reads and writes the token file.
type Store struct {
	path string
}

// NewStore creates a store for the token file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the store at ~/.config/jwctl/token.
func DefaultStore() (*Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStore(filepath.Join(dir, "token")), nil
}

// Path returns the token file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored token, or "" when none has been stored.
func (s *Store) Load() (string, error) {
	data, err := fileutil.ReadCapped(s.path, maxTokenSize)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", rperrors.IOWrap(err, "credentials.Load", "failed to read token file")
	}
	return strings.TrimSpace(string(data)), nil
}

// Save stores token with owner-only permissions.
func (s *Store) Save(token string) error {
	const op = "credentials.Save"

	token = strings.TrimSpace(token)
	if token == "" {
		return rperrors.Validation(op, "token is empty")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return rperrors.Validation(op, "token must not contain whitespace")
	}
	if err := fileutil.SavePrivate(s.path, []byte(token+"\n")); err != nil {
		return rperrors.IOWrap(err, op, "failed to write token file")
	}
	return nil
}
