// internal/storage/prefs/file.go
package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File stores preferences as a JSON document on the local filesystem
type File struct {
	path string
}

// NewFile creates a File store, creating the parent directory if needed
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the document location.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context) (map[string]float64, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]float64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}
	return decode(data)
}

// Save writes to a temp file in the same directory and renames it over the
// document, so readers never observe a half-written file.
func (f *File) Save(ctx context.Context, targets map[string]float64) error {
	data, err := encode(targets)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".prefs-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}
