// Package fileutil reads and replaces the small private files jwctl keeps
// under the user's config directory.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Permissions for files holding credentials and their directory.
const (
	PrivateFileMode os.FileMode = 0o600
	PrivateDirMode  os.FileMode = 0o700
)

// ErrTooLarge is returned by ReadCapped for files over the limit.
var ErrTooLarge = errors.New("file too large")

// ReadCapped returns the contents of the regular file at path, failing with
// ErrTooLarge rather than reading more than limit bytes.
func ReadCapped(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the config layer
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}

	// One extra byte tells a file of exactly limit bytes from a longer one,
	// even if it grew after Stat.
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", path, ErrTooLarge, limit)
	}
	return data, nil
}

// SavePrivate replaces the file at path with data, mode PrivateFileMode.
// Readers see either the old or the new contents, never a partial write.
// Missing parent directories are created with PrivateDirMode.
func SavePrivate(path string, data []byte) error {
	return replace(path, data, osFS{})
}

// staged is a temp file being filled before it takes the target's place.
type staged interface {
	Name() string
	Chmod(os.FileMode) error
	Write([]byte) (int, error)
	Sync() error
	Close() error
}

// fs is the part of the filesystem replace touches.
type fs interface {
	MkdirAll(path string, perm os.FileMode) error
	CreateTemp(dir, pattern string) (staged, error)
	Rename(oldpath, newpath string) error
	Remove(path string) error
}

type osFS struct{}

func (osFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (osFS) CreateTemp(dir, pattern string) (staged, error) {
	return os.CreateTemp(dir, pattern)
}
func (osFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (osFS) Remove(path string) error             { return os.Remove(path) }

func replace(path string, data []byte, fsys fs) (err error) {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, PrivateDirMode); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	// The rename is only atomic within one directory.
	tmp, err := fsys.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = tmp.Close()
		}
		_ = fsys.Remove(tmp.Name())
	}()

	if err := tmp.Chmod(PrivateFileMode); err != nil {
		return fmt.Errorf("restrict %s: %w", tmp.Name(), err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := fsys.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
