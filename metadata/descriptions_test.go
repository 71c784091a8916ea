package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionRoundTrip(t *testing.T) {
	store, err := NewDescriptionStore(t.TempDir())
	require.NoError(t, err)

	const id = "20230601_100000_1a2b3c4d5e6f"

	_, ok, err := store.Get(id)
	require.NoError(t, err)
	assert.False(t, ok, "no file means no description")

	require.NoError(t, store.Set(id, "a sunset"))
	text, ok, err := store.Get(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a sunset", text)

	// blank text removes the description entirely
	require.NoError(t, store.Set(id, "   "))
	_, ok, err = store.Get(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDescriptionRemoveIdempotent(t *testing.T) {
	store, err := NewDescriptionStore(t.TempDir())
	require.NoError(t, err)

	const id = "20230601_100000_1a2b3c4d5e6f"
	require.NoError(t, store.Set(id, "x"))
	require.NoError(t, store.Remove(id))
	require.NoError(t, store.Remove(id))
}
