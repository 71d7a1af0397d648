package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql":  {Data: []byte("SELECT 1;")},
		"migrations/001_first.sql":  {Data: []byte("SELECT 1;")},
		"migrations/002_second.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":      {Data: []byte("not a migration")},
	}

	files, err := MigrationFiles(fsys, "migrations")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"migrations/001_first.sql",
		"migrations/002_second.sql",
		"migrations/010_later.sql",
	}, files)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := MigrationFiles(embeddedMigrations, "migrations")
	require.NoError(t, err)

	require.NotEmpty(t, files)
	assert.Equal(t, "migrations/001_create_planets.sql", files[0])
}

func TestMigrationFilesMissingDir(t *testing.T) {
	_, err := MigrationFiles(fstest.MapFS{}, "migrations")
	assert.Error(t, err)
}
