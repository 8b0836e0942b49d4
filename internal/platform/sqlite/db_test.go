package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 4, opts.MaxOpenConns)
	assert.Equal(t, 1, opts.MaxIdleConns)
	assert.Equal(t, 5*time.Second, opts.PingTimeout)
	assert.True(t, opts.WALMode)
	assert.True(t, opts.ImmediateTx)
	assert.Equal(t, 5*time.Second, opts.BusyTimeout)
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("/tmp/cron.db", DefaultOptions())

	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/cron.db?"))
	assert.Contains(t, dsn, "busy_timeout%285000%29")
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "_txlock=immediate")

	bare := buildDSN(MemoryPath, Options{})
	assert.NotContains(t, bare, "busy_timeout")
	assert.NotContains(t, bare, "_txlock")
}

func TestNewInMemoryDB(t *testing.T) {
	ctx := context.Background()
	db, err := NewInMemoryDB(ctx)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 1, n)

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestNewDB_CreatesDirectoryAndUsesWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cron.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	assert.FileExists(t, path)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	db, err := NewInMemoryDB(ctx)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE t (k TEXT NOT NULL UNIQUE)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO t (k) VALUES ('a')")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "INSERT INTO t (k) VALUES ('a')")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsBusy(err))
	assert.Equal(t, "Conflict", kindName(Classify(err)))

	err = db.QueryRowContext(ctx, "SELECT k FROM t WHERE k = 'b'").Scan(new(string))
	assert.Equal(t, "NotFound", kindName(Classify(err)))

	_, err = db.ExecContext(ctx, "SELECT * FROM missing_table")
	assert.Equal(t, "DependencyFailure", kindName(Classify(err)))

	assert.NoError(t, Classify(nil))
}
