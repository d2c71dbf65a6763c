// Package storage owns the on-disk layout: a flat directory of
// full-resolution files plus a flat directory of thumbnails. Storage
// names are random tokens generated here, never derived from user
// input, so collisions and path traversal are impossible by
// construction.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrFileMissing reports a read of a path with no backing file.
var ErrFileMissing = errors.New("stored file missing")

const thumbPrefix = "thumb_"

type DiskStore struct {
	uploadDir string
	thumbDir  string
}

// NewDiskStore creates both storage roots if needed, mirroring how the
// upload and thumbnail directories are provisioned lazily on first use.
func NewDiskStore(uploadDir, thumbDir string) (*DiskStore, error) {
	for _, dir := range []string{uploadDir, thumbDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
		}
	}
	return &DiskStore{uploadDir: uploadDir, thumbDir: thumbDir}, nil
}

// SaveOriginal writes data under a freshly generated storage name with
// the given (already normalized) extension and reports the stored byte
// size.
func (s *DiskStore) SaveOriginal(data []byte, ext string) (storageName, path string, size int64, err error) {
	storageName = fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	path = filepath.Join(s.uploadDir, storageName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", 0, fmt.Errorf("failed to write file %s: %w", storageName, err)
	}
	return storageName, path, int64(len(data)), nil
}

// SaveThumbnail writes the thumbnail bytes for the asset stored under
// storageName. The on-disk name is derived deterministically, so
// thumbnails can be looked up by their owning asset's storage name with
// no extra mapping.
func (s *DiskStore) SaveThumbnail(data []byte, storageName string) (string, error) {
	path := s.ThumbnailPath(storageName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail for %s: %w", storageName, err)
	}
	return path, nil
}

// Read returns the stored bytes at path, or ErrFileMissing if the file
// is gone.
func (s *DiskStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, path)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether a file is present at path.
func (s *DiskStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the file at path. An already-absent file is not an
// error.
func (s *DiskStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file %s: %w", path, err)
	}
	return nil
}

// FilePath returns the full-resolution path for a storage name.
func (s *DiskStore) FilePath(storageName string) string {
	return filepath.Join(s.uploadDir, storageName)
}

// ThumbnailPath returns the thumbnail path for a storage name.
func (s *DiskStore) ThumbnailPath(storageName string) string {
	return filepath.Join(s.thumbDir, thumbPrefix+storageName)
}
