// Package imagestore persists extracted diagram images and hands out the
// references stored on drills.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
)

// Store saves PNG bytes under a key and returns a reference that Get
// understands.
type Store interface {
	Put(ctx context.Context, key string, png []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// ObjectKey builds the storage key of an image within a plan.
func ObjectKey(planID, imageKey string) string {
	return planID + "/" + imageKey + ".png"
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: image key %q", internalerr.ErrInvalidInput, key)
	}
	return nil
}

const fileScheme = "file://"

// FS stores images below a root directory. References are file:// URIs.
type FS struct {
	Root string
}

// NewFS creates the root directory if needed.
func NewFS(root string) (*FS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("imagestore: root directory required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: %w", err)
	}
	return &FS{Root: abs}, nil
}

func (s *FS) Put(ctx context.Context, key string, png []byte) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("imagestore: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, png, 0o644); err != nil {
		return "", fmt.Errorf("imagestore: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("imagestore: %w", err)
	}
	return fileScheme + filepath.ToSlash(path), nil
}

func (s *FS) Get(ctx context.Context, ref string) ([]byte, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("image %s: %w", ref, internalerr.ErrNotFound)
	}
	return data, err
}

func (s *FS) Delete(ctx context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps a reference back to a path and refuses anything outside Root.
func (s *FS) resolve(ref string) (string, error) {
	path := filepath.FromSlash(strings.TrimPrefix(ref, fileScheme))
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, path)
	}
	rel, err := filepath.Rel(s.Root, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: image ref %q outside store", internalerr.ErrInvalidInput, ref)
	}
	return filepath.Join(s.Root, rel), nil
}
