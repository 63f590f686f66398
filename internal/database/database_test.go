package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/internal/model"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host: "db", Port: "5432", Username: "u", Password: "p", Database: "spacecenter",
	})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=spacecenter sslmode=disable", dsn)
}

func TestMigrateAndDump(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenSqlite(filepath.Join(dir, "live.sqlite"))
	require.NoError(t, err)

	require.NoError(t, Migrate(db, zerolog.Nop()))
	// second run keeps the single info row
	require.NoError(t, Migrate(db, zerolog.Nop()))

	var count int64
	require.NoError(t, db.Model(&model.ServerInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.True(t, db.Migrator().HasTable(&model.FlightSample{}))

	dump := filepath.Join(dir, "backup", "flights.db")
	require.NoError(t, DumpMemoryDBToDisk(db, dump))
	// dumping again overwrites
	require.NoError(t, DumpMemoryDBToDisk(db, dump))

	paths, err := GetBackupDBPaths(filepath.Dir(dump))
	require.NoError(t, err)
	assert.Equal(t, []string{dump}, paths)
}

func TestDumpRequiresPath(t *testing.T) {
	assert.Error(t, DumpMemoryDBToDisk(nil, ""))
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.txt", "c.db"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.db"), 0755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "c.db")}, paths)

	_, err = GetBackupDBPaths(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestManager_FallsBackToSqlite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	m.SqliteFilePath = filepath.Join(t.TempDir(), "fallback.sqlite")

	// nothing listens on port 1
	require.NoError(t, m.Connect(config.DBConfig{Host: "127.0.0.1", Port: "1", Database: "x"}))
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup())
}
