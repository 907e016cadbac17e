package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsOrdersAndSkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_b.sql": {Data: []byte("SELECT 2;")},
		"m/0001_a.sql": {Data: []byte("SELECT 1;")},
		"m/README.md":  {Data: []byte("docs")},
		"m/0003_c.sql": {Data: []byte("SELECT 3;")},
		"m/sub/x.sql":  {Data: []byte("ignored")},
	}

	got, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "0001_a", got[0].Version)
	assert.Equal(t, "0002_b", got[1].Version)
	assert.Equal(t, "0003_c", got[2].Version)
	assert.Equal(t, "SELECT 1;", got[0].SQL)
}

func TestPendingSkipsApplied(t *testing.T) {
	all := []Migration{{Version: "0001_a"}, {Version: "0002_b"}, {Version: "0003_c"}}

	pending := Pending(all, map[string]bool{"0001_a": true, "0003_c": true})
	require.Len(t, pending, 1)
	assert.Equal(t, "0002_b", pending[0].Version)

	assert.Empty(t, Pending(all, map[string]bool{"0001_a": true, "0002_b": true, "0003_c": true}))
}

func TestEmbeddedMigrationsCreateRegistryTables(t *testing.T) {
	all, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, "0001_registry", all[0].Version)
	assert.Contains(t, all[0].SQL, "ON DELETE CASCADE")
	assert.Contains(t, all[0].SQL, "NUMERIC(19, 4)")
}
