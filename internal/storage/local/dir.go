// Package local writes JSON artifacts and run reports to the local filesystem.
package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a directory of JSON documents addressed by relative name.
type Dir struct {
	baseDir string
}

// New ensures baseDir exists and is writable.
func New(baseDir string) (*Dir, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(baseDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}
	return &Dir{baseDir: baseDir}, nil
}

// Path is the base directory.
func (d *Dir) Path() string {
	return d.baseDir
}

// WriteJSON marshals v with indentation into name and returns the full path.
func (d *Dir) WriteJSON(name string, v any) (string, error) {
	full, err := d.resolve(name)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return full, nil
}

// ReadJSON decodes name into v.
func (d *Dir) ReadJSON(name string, v any) error {
	full, err := d.resolve(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(full) //nolint:gosec // path checked by resolve
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Remove deletes name. Missing files are not an error.
func (d *Dir) Remove(name string) error {
	full, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Latest returns the lexically greatest file name with the given prefix and suffix.
func (d *Dir) Latest(prefix, suffix string) (string, error) {
	entries, err := os.ReadDir(d.baseDir)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", d.baseDir, err)
	}
	latest := ""
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		if name > latest {
			latest = name
		}
	}
	if latest == "" {
		return "", fs.ErrNotExist
	}
	return latest, nil
}

func (d *Dir) resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}
	full := filepath.Clean(filepath.Join(d.baseDir, name))
	if !strings.HasPrefix(full, filepath.Clean(d.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return full, nil
}
