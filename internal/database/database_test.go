package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/saucerdefense/internal/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{
		Host:     "db.local",
		Port:     "5433",
		Username: "saucer",
		Password: "secret",
		Database: "scores",
	})
	assert.Equal(t, "host=db.local port=5433 user=saucer password=secret dbname=scores sslmode=disable", dsn)
}

func TestOpenSqlite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "s.db")

	db, err := OpenSqlite(path)
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (v INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO t (v) VALUES (7)").Error)

	var v int
	require.NoError(t, db.Raw("SELECT v FROM t").Scan(&v).Error)
	assert.Equal(t, 7, v)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestDumpToDisk(t *testing.T) {
	db, err := OpenSqlite(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (v INTEGER)").Error)

	dump := filepath.Join(t.TempDir(), "out", "dump.db")
	require.NoError(t, DumpToDisk(db, dump))
	// a second dump replaces the first
	require.NoError(t, DumpToDisk(db, dump))

	info, err := os.Stat(dump)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestDumpToDisk_NoPath(t *testing.T) {
	assert.ErrorIs(t, DumpToDisk(nil, ""), errNoDumpPath)
}
