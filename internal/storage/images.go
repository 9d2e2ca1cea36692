package storage

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"feedstream/internal/apperror"

	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// ValidExtension reports whether the filename carries an accepted
// image extension. Checked at the upload boundary before anything is
// written to disk.
func ValidExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ImageStore persists uploaded post images on the local filesystem
// under uuid-derived, collision-free names.
type ImageStore struct {
	dir string
}

// NewImageStore creates the storage directory if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}
	return &ImageStore{dir: dir}, nil
}

// Save writes the uploaded file to disk and returns its reference, a
// slash-separated path relative to the working directory. The original
// extension is preserved; the rest of the name is a fresh uuid.
func (s *ImageStore) Save(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", apperror.Validation("Only images are allowed", nil)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file %s: %w", path, err)
	}

	return filepath.ToSlash(path), nil
}

// Remove deletes a stored image. Best-effort: the database record is
// the source of truth, so a failure here is logged and swallowed.
func (s *ImageStore) Remove(ref string) {
	if ref == "" {
		return
	}
	if err := os.Remove(filepath.FromSlash(ref)); err != nil {
		log.Printf("Failed to remove image %s: %v", ref, err)
	}
}
