package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bastiangx/frecency/internal/utils"
)

// Dir stores each key as a file inside a directory. Keys are path-escaped
// so any string is a valid key.
type Dir struct {
	path string
}

// NewDir creates dir if needed, checks it is writable and returns a
// Provider rooted there.
func NewDir(dir string) (*Dir, error) {
	if dir == "" {
		return nil, errors.New("storage: dir path is empty")
	}
	status := utils.CheckDirStatus(dir)
	if status.Error != nil {
		return nil, fmt.Errorf("storage: create dir %s: %w", dir, status.Error)
	}
	if !status.Writable {
		return nil, fmt.Errorf("storage: dir %s is not writable", dir)
	}
	return &Dir{path: dir}, nil
}

// Path returns the root directory.
func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) file(key string) string {
	return filepath.Join(d.path, url.PathEscape(key)+".json")
}

func (d *Dir) GetItem(key string) (string, bool, error) {
	data, err := os.ReadFile(d.file(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return string(data), true, nil
}

// SetItem writes through a temp file and rename so readers never observe a
// partially written value.
func (d *Dir) SetItem(key, value string) error {
	target := d.file(key)
	tmp, err := os.CreateTemp(d.path, ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	return nil
}

func (d *Dir) RemoveItem(key string) error {
	err := os.Remove(d.file(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %q: %w", key, err)
	}
	return nil
}
