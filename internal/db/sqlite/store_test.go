package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	var name string
	err = store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='media_metadata'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "media_metadata", name)
}

func TestOpenIsIdempotentOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	var count int
	err = second.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestQueryAndCloseExposeUnderlyingHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(path)
	require.NoError(t, err)

	assert.NotNil(t, store.Query())
	assert.NotNil(t, store.DB())
	assert.NoError(t, store.Close())
}
