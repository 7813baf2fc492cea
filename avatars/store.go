package avatars

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

const maxSize = 5 << 20 // 5 MiB

var (
	// ErrNotImage is returned for uploads without an image content type.
	ErrNotImage = errors.New("avatars: file must be an image")
	// ErrTooLarge is returned for uploads over the size limit.
	ErrTooLarge = errors.New("avatars: file exceeds 5MB limit")
)

// Store writes avatar files into a single scoped directory. Object names are
// generated server-side, so client-supplied names never touch the
// filesystem.
type Store struct {
	dir       string
	publicURL string
}

// NewStore creates the avatar directory if needed.
func NewStore(dir, publicURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("avatars: create directory: %w", err)
	}
	return &Store{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Dir returns the directory files are written to, for static serving.
func (s *Store) Dir() string { return s.dir }

// Save validates and writes the upload, returning the public URL.
func (s *Store) Save(data []byte, contentType, originalName string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}
	if len(data) > maxSize {
		return "", ErrTooLarge
	}
	name := objectName(originalName)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("avatars: write file: %w", err)
	}
	return s.publicURL + "/" + name, nil
}

// objectName derives a compact unique filename, keeping only a sanitized
// extension from the original upload.
func objectName(originalName string) string {
	id := uuid.New()
	name := base58.Encode(id[:])
	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return name + ext
	}
	return name + ".jpg"
}
