package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hiroki-koketsu/task-tracker/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	db, dialect, err := Open(context.Background(), Options{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "tasks.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, repository.DialectSQLite, dialect)
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Driver: "mysql", DSN: "root@/todo_db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDialectFor(t *testing.T) {
	d, err := dialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, repository.DialectPostgres, d)
}
