// Package avatars persists generated avatar images under their nickname.
package avatars

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/creachadair/atomicfile"
)

var validNickname = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

// FileStore writes avatars as <dir>/<nickname>.png
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create avatar directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory avatars are written to
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns where the avatar for nickname lives
func (s *FileStore) Path(nickname string) (string, error) {
	if !validNickname.MatchString(nickname) {
		return "", fmt.Errorf("invalid nickname %q", nickname)
	}
	return filepath.Join(s.dir, nickname+".png"), nil
}

// Save atomically replaces the avatar for nickname. Avatars are derived
// deterministically, so rewriting an existing file is harmless.
func (s *FileStore) Save(nickname string, png []byte) error {
	path, err := s.Path(nickname)
	if err != nil {
		return err
	}
	if _, err := atomicfile.WriteAll(path, bytes.NewReader(png), 0o644); err != nil {
		return fmt.Errorf("failed to write avatar: %w", err)
	}
	return nil
}

// Delete removes the avatar for nickname. A missing file is not an error.
func (s *FileStore) Delete(nickname string) error {
	path, err := s.Path(nickname)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	return nil
}
