package local

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/jartrack/internal/domain"
	"github.com/vbonduro/jartrack/internal/imagestore"
)

// DefaultMaxBytes caps a single image.
const DefaultMaxBytes = 10 << 20

// Store keeps images as files in one directory. Keys are bare file names.
type Store struct {
	dir      string
	maxBytes int64
}

func New(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	ext, ok := imagestore.Extensions[strings.ToLower(mimeType)]
	if !ok {
		return "", domain.Validationf("unsupported image type %q", mimeType)
	}
	key := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
	path := filepath.Join(s.dir, key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if err == nil && n > s.maxBytes {
		err = domain.Validationf("image exceeds %d bytes", s.maxBytes)
	}
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close image after write error", "error", cerr)
		}
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove partial image", "path", path, "error", rerr)
		}
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove image after close error", "path", path, "error", rerr)
		}
		return "", fmt.Errorf("failed to close image: %w", err)
	}
	return key, nil
}

// Open returns the image for key and its MIME type.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", domain.NotFound("image", key)
		}
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	return f, mimeTypeFor(path), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return domain.NotFound("image", key)
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// resolve maps key to a path inside dir, refusing anything that would
// escape it.
func (s *Store) resolve(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", domain.InvalidArgumentf("invalid image key %q", key)
	}
	absDir, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("invalid image directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("invalid image path: %w", err)
	}
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", domain.InvalidArgumentf("invalid image key %q", key)
	}
	return absPath, nil
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for mime, e := range imagestore.Extensions {
		if e == ext {
			return mime
		}
	}
	return "application/octet-stream"
}
