package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFS archives reports under a directory on the local filesystem.
// It is the default backend for single-machine deployments.
type LocalFS struct {
	root string
}

// NewLocalFS creates the root directory if needed and returns the backend.
func NewLocalFS(root string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive root: %w", err)
	}
	return &LocalFS{root: root}, nil
}

func (l *LocalFS) resolve(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	target := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(target, data, 0o644)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(l.resolve(path))
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	err := os.Remove(l.resolve(path))
	if os.IsNotExist(err) {
		// Deleting an already-gone report is fine; pruning retries on
		// the next startup.
		return nil
	}
	return err
}
