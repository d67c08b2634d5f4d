package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirDestination writes archives as files in a local directory.
type DirDestination struct {
	dir string
}

// NewDirDestination creates the directory if needed.
func NewDirDestination(dir string) (*DirDestination, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &DirDestination{dir: dir}, nil
}

// Write replaces dir/name atomically.
func (d *DirDestination) Write(_ context.Context, name string, data []byte) error {
	return writeFileAtomic(filepath.Join(d.dir, name), data)
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never see a partial archive.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
