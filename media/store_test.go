package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOriginalRejectsSiblingPrefix(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "photo")
	store, err := NewPhotoStore(base, filepath.Join(base, "thumb"), filepath.Join(base, "download"))
	require.NoError(t, err)

	// sibling directory sharing the base dir as a name prefix
	sibling := filepath.Join(root, "photo-old")
	require.NoError(t, os.MkdirAll(sibling, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sibling, "secret.txt"), []byte("x"), 0644))

	_, err = store.ResolveOriginal("../photo-old/secret.txt")
	assert.Error(t, err, "paths escaping into a prefix-sharing sibling must be refused")

	// in-tree paths still resolve
	full, err := store.ResolveOriginal("2023/06/a.webp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "2023", "06", "a.webp"), full)
}

func TestNewPhotoStoreRejectsOutsideCacheDirs(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "photo")

	_, err := NewPhotoStore(base, filepath.Join(root, "photo-old-thumb"), filepath.Join(base, "download"))
	assert.Error(t, err)
}
