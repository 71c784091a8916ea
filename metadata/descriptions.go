package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DescriptionStore keeps one text file per asset id. A missing file means
// "no description", which is distinct from an empty string: setting an
// empty description removes the file.
type DescriptionStore struct {
	dir string
}

func NewDescriptionStore(dir string) (*DescriptionStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create description directory '%s': %w", dir, err)
	}
	return &DescriptionStore{dir: dir}, nil
}

func (d *DescriptionStore) path(id string) string {
	// ids are validated upstream; Base guards against anything path-like
	return filepath.Join(d.dir, filepath.Base(id)+".txt")
}

// Get returns the description for id and whether one exists
func (d *DescriptionStore) Get(id string) (string, bool, error) {
	raw, err := os.ReadFile(d.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read description for %s: %w", id, err)
	}
	return string(raw), true, nil
}

// Set stores the description for id; a blank text removes it
func (d *DescriptionStore) Set(id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return d.Remove(id)
	}

	path := d.path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write description temp file for %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish description for %s: %w", id, err)
	}
	return nil
}

// Remove deletes the description for id; missing files are ignored
func (d *DescriptionStore) Remove(id string) error {
	err := os.Remove(d.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete description for %s: %w", id, err)
	}
	return nil
}
