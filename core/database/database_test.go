package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Driver: "SQLite", Path: "/tmp/x.db", MaxConnections: 8}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, 1, cfg.MaxConnections)
	assert.Equal(t, "sqlite:///tmp/x.db", cfg.MigrateURL())

	pg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "tutor"}
	require.NoError(t, pg.Normalize())
	assert.Equal(t, DriverPostgres, pg.Driver)
	assert.Equal(t, "disable", pg.SSLMode)
	assert.Equal(t, 10, pg.MaxConnections)
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/tutor?sslmode=disable", pg.MigrateURL())

	bad := Config{Driver: "mysql"}
	assert.Error(t, bad.Normalize())
	assert.Error(t, (&Config{Driver: DriverSQLite}).Normalize())
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_init.up.sql", "000002_prefs.up.sql", "000003_idx.up.sql"}
	assert.Equal(t, []string{"000002_prefs.up.sql", "000003_idx.up.sql"}, selectApplied(files, 1, 3))
	assert.Nil(t, selectApplied(files, 3, 3))
}

func TestSQLiteMigrateAndConnect(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "tutor.db")}
	require.NoError(t, RunMigrations(cfg))
	// second run is a no-op
	require.NoError(t, RunMigrations(cfg))

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM events`))
	assert.Zero(t, n)
}

func TestUpMigrationsSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"sqlite/000002_b.up.sql":   {},
		"sqlite/000001_a.up.sql":   {},
		"sqlite/000001_a.down.sql": {},
		"postgres/000009_x.up.sql": {},
	}
	names, err := upMigrations(fsys, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, names)
	assert.Equal(t, uint64(2), fileVersion(names[1]))
	assert.Zero(t, fileVersion("init.up.sql"))
}

func TestMigrationsFromCustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"sqlite/000001_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"sqlite/000001_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	}
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "notes.db")}
	require.NoError(t, RunMigrationsFS(cfg, fsys))

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO notes (id) VALUES (1)`)
	assert.NoError(t, err)
}

func TestTargetOmitsCredentials(t *testing.T) {
	cfg := Config{Host: "db", User: "bot", Password: "secret", Name: "tutor"}
	require.NoError(t, cfg.Normalize())
	assert.Contains(t, cfg.DSN(), "secret")
	assert.Equal(t, "db:5432/tutor", cfg.target())
	assert.NotContains(t, cfg.target(), "secret")
}
