package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/photodrop/pkg/photodrop"
)

var (
	// ErrNotFound is returned when deleting a missing object
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for keys that resolve outside the base directory
	ErrInvalidKey = errors.New("invalid object key")
)

// Backend is a filesystem implementation of the photodrop.BlobStore interface
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	baseDir, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: baseDir}, nil
}

var _ photodrop.BlobStore = (*Backend)(nil)

// UploadWithParams writes the object atomically: content goes to a temporary file
// that is renamed into place only after a complete write.
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params photodrop.UploadParams) error {
	filePath, err := b.resolve(params.ObjectKey)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &contextReader{ctx: ctx, r: reader}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath, err := b.resolve(objectKey)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// resolve maps an object key to a path, refusing anything outside baseDir
func (b *Backend) resolve(objectKey string) (string, error) {
	if objectKey == "" {
		return "", ErrInvalidKey
	}
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
	rel, err := filepath.Rel(b.baseDir, filePath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, objectKey)
	}
	return filePath, nil
}

// cleanupEmptyDirectories removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	for dir != b.baseDir && strings.HasPrefix(dir, b.baseDir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
