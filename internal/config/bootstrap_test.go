package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBootstrapDefaults(t *testing.T) {
	b, err := NewBootstrap("test-version")
	require.NoError(t, err)
	assert.Equal(t, "./data/archivist.db", b.SQLite.Path)
	assert.Equal(t, "info", b.Log.Level)
	assert.Equal(t, 120, b.Scheduler.DefaultMaxRuntimeMinutes)
	assert.Equal(t, "test-version", b.Version)
}

func TestNewBootstrapEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/override.db")
	t.Setenv("LOG_LEVEL", "debug")

	b, err := NewBootstrap("v2")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", b.SQLite.Path)
	assert.Equal(t, "debug", b.Log.Level)
}
