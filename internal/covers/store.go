// Package covers keeps book cover images in a directory and implements the
// byte-copy contract between cover files and archive entries.
package covers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/bookvault/internal/backup"
)

// Store handles cover images on the local filesystem.
type Store struct {
	dir string
}

// NewStore creates a cover store at the specified directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the covers directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path of a cover file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Stat returns the cover's info, or nil if the file does not exist.
func (s *Store) Stat(name string) (*backup.CoverInfo, error) {
	fi, err := os.Stat(s.Path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &backup.CoverInfo{Name: fi.Name(), ModTime: fi.ModTime(), Size: fi.Size()}, nil
}

func (s *Store) Open(name string) (io.ReadCloser, error) {
	return os.Open(s.Path(name))
}

// Write stores a cover atomically and stamps it with modTime.
func (s *Store) Write(name string, r io.Reader, modTime time.Time) error {
	target := s.Path(name)

	// Create temp file in same directory for atomic write
	tmpFile, err := os.CreateTemp(s.dir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(tmpPath, modTime, modTime); err != nil {
			return err
		}
	}

	return os.Rename(tmpPath, target)
}

// Slot returns which cover slot a file name belongs to.
func Slot(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if strings.HasSuffix(base, "_1") {
		return 1
	}
	return 0
}
