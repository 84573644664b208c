package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryNavigation(t *testing.T) {
	h, err := New("", 0)
	require.NoError(t, err)

	_, ok := h.Previous("draft")
	assert.False(t, ok)

	require.NoError(t, h.Add("first"))
	require.NoError(t, h.Add("second"))
	require.NoError(t, h.Add("second"))
	require.NoError(t, h.Add("   "))
	assert.Equal(t, 2, h.Len())

	entry, ok := h.Previous("typing")
	require.True(t, ok)
	assert.Equal(t, "second", entry)

	entry, ok = h.Previous("ignored")
	require.True(t, ok)
	assert.Equal(t, "first", entry)

	entry, ok = h.Previous("ignored")
	assert.False(t, ok)
	assert.Equal(t, "first", entry)

	entry, ok = h.Next()
	require.True(t, ok)
	assert.Equal(t, "second", entry)

	entry, ok = h.Next()
	require.True(t, ok)
	assert.Equal(t, "typing", entry)

	_, ok = h.Next()
	assert.False(t, ok)
}

func TestHistoryReset(t *testing.T) {
	h, err := New("", 0)
	require.NoError(t, err)
	require.NoError(t, h.Add("q"))

	h.Previous("draft")
	h.Reset()
	_, ok := h.Next()
	assert.False(t, ok)
}

func TestHistoryPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history")
	h, err := New(path, 2)
	require.NoError(t, err)

	require.NoError(t, h.Add("one"))
	require.NoError(t, h.Add("two\nlines"))
	require.NoError(t, h.Add(`back\slash`))
	assert.Equal(t, 2, h.Len())

	reloaded, err := New(path, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	entry, ok := reloaded.Previous("")
	require.True(t, ok)
	assert.Equal(t, `back\slash`, entry)
	entry, ok = reloaded.Previous("")
	require.True(t, ok)
	assert.Equal(t, "two\nlines", entry)
}
