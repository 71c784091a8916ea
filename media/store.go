package media

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// PrimaryExt is the extension of the canonical stored representation
	PrimaryExt = ".webp"
	// SecondaryExt is the extension of the optional modern-format encode
	SecondaryExt = ".avif"
)

// PhotoStore manages the on-disk photo tree: year/month partitions holding
// the stored representations, plus the thumb and download cache
// directories. Filesystem presence is the source of truth for asset
// existence and for which formats are available.
type PhotoStore struct {
	baseDir     string
	thumbDir    string
	downloadDir string
}

// NewPhotoStore creates the store rooted at baseDir, ensuring the base and
// cache directories exist
func NewPhotoStore(baseDir, thumbDir, downloadDir string) (*PhotoStore, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid photo directory '%s': %w", baseDir, err)
	}

	ps := &PhotoStore{baseDir: absBase, thumbDir: thumbDir, downloadDir: downloadDir}
	for _, dir := range []string{absBase, thumbDir, downloadDir} {
		cleaned := filepath.Clean(dir)
		// prefix alone would admit siblings like "photo-old" next to "photo"
		if cleaned != absBase && !strings.HasPrefix(cleaned, absBase+string(os.PathSeparator)) {
			return nil, fmt.Errorf("directory '%s' resolves outside photo directory '%s'", dir, absBase)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory '%s': %w", dir, err)
		}
	}

	log.Printf("media.store: Initialized photo store at %s", absBase)
	return ps, nil
}

func (ps *PhotoStore) BaseDir() string { return ps.baseDir }

// PartitionDir returns the absolute directory for a partition
func (ps *PhotoStore) PartitionDir(p Partition) string {
	return filepath.Join(ps.baseDir, fmt.Sprintf("%04d", p.Year), fmt.Sprintf("%02d", int(p.Month)))
}

// EnsurePartition creates the partition directory if absent (idempotent)
func (ps *PhotoStore) EnsurePartition(p Partition) (string, error) {
	dir := ps.PartitionDir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure partition directory '%s': %w", dir, err)
	}
	return dir, nil
}

// PrimaryPath returns the absolute path of the asset's primary
// representation; the partition is recovered from the id itself
func (ps *PhotoStore) PrimaryPath(id string) (string, error) {
	return ps.representationPath(id, PrimaryExt)
}

// SecondaryPath returns the absolute path of the asset's secondary
// representation (the file may not exist)
func (ps *PhotoStore) SecondaryPath(id string) (string, error) {
	return ps.representationPath(id, SecondaryExt)
}

func (ps *PhotoStore) representationPath(id, ext string) (string, error) {
	part, err := PartitionFromID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(ps.PartitionDir(part), id+ext), nil
}

// HasPrimary reports whether the asset exists at all: an asset with no
// primary representation is not considered to exist
func (ps *PhotoStore) HasPrimary(id string) bool {
	path, err := ps.PrimaryPath(id)
	if err != nil {
		return false
	}
	return fileExists(path)
}

// HasSecondary reports whether the optional modern-format encode is present
func (ps *PhotoStore) HasSecondary(id string) bool {
	path, err := ps.SecondaryPath(id)
	if err != nil {
		return false
	}
	return fileExists(path)
}

// ReadPrimary loads the primary representation, failing with ErrNotFound
// when the asset has none
func (ps *PhotoStore) ReadPrimary(id string) ([]byte, error) {
	path, err := ps.PrimaryPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read primary for %s: %w", id, err)
	}
	return data, nil
}

// ThumbPath returns the cache path of the asset's thumbnail
func (ps *PhotoStore) ThumbPath(id string) string {
	return filepath.Join(ps.thumbDir, id+PrimaryExt)
}

// DownloadPath returns the cache path of a download conversion
func (ps *PhotoStore) DownloadPath(id, ext string) string {
	return filepath.Join(ps.downloadDir, id+ext)
}

// DownloadGlob returns every cached download conversion for the asset
func (ps *PhotoStore) DownloadGlob(id string) []string {
	if !ValidID(id) {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(ps.downloadDir, id+".*"))
	if err != nil {
		return nil
	}
	return matches
}

// ResolveOriginal maps a partition-relative path (e.g. "2023/06/x.webp")
// to an absolute path, rejecting anything that escapes the photo tree
func (ps *PhotoStore) ResolveOriginal(relativePath string) (string, error) {
	cleaned := filepath.Clean(relativePath)
	full, err := filepath.Abs(filepath.Join(ps.baseDir, cleaned))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", relativePath, err)
	}
	if full != ps.baseDir && !strings.HasPrefix(full, ps.baseDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}
	return full, nil
}

// WriteAtomic publishes data at path via a temporary file in the same
// directory followed by a rename, so readers never observe a partial file
func (ps *PhotoStore) WriteAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file for '%s': %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish '%s': %w", path, err)
	}
	return nil
}

// Remove deletes a file, treating an already-missing file as success so
// deletion stays idempotent
func (ps *PhotoStore) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete '%s': %w", path, err)
	}
	if err == nil {
		log.Printf("media.store: Deleted %s", path)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
