package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(t.TempDir(), DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func openRawConn(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), FileName)
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func tableExists(t *testing.T, conn *sql.DB, name string) bool {
	t.Helper()
	var got string
	err := conn.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&got)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "versions are contiguous")
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		in      string
		version int
		name    string
		up      bool
		wantErr bool
	}{
		{in: "0001_kv_store.up.sql", version: 1, name: "kv_store", up: true},
		{in: "0012_add_index.down.sql", version: 12, name: "add_index"},
		{in: "0001_kv_store.sql", wantErr: true},
		{in: "kv_store.up.sql", wantErr: true},
		{in: "0000_zero.up.sql", wantErr: true},
		{in: "0001_.up.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			version, name, up, err := parseFilename(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.up, up)
		})
	}
}

func TestOpen_AppliesMigrations(t *testing.T) {
	database := openTestDB(t)

	assert.True(t, tableExists(t, database.Conn(), "kv_store"))
	assert.Equal(t, FileName, filepath.Base(database.Path()))

	var count int
	require.NoError(t, database.Conn().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Positive(t, count)
}

func TestMigrateUp_Idempotent(t *testing.T) {
	conn := openRawConn(t)
	ctx := context.Background()

	require.NoError(t, migrateUp(ctx, conn, DefaultOpenOptions().Logger))
	require.NoError(t, migrateUp(ctx, conn, DefaultOpenOptions().Logger))

	applied, err := appliedVersions(ctx, conn)
	require.NoError(t, err)
	migrations, err := loadMigrations()
	require.NoError(t, err)
	assert.Len(t, applied, len(migrations))
}

func TestMigrateDown(t *testing.T) {
	conn := openRawConn(t)
	ctx := context.Background()

	require.NoError(t, migrateUp(ctx, conn, DefaultOpenOptions().Logger))
	require.NoError(t, MigrateDown(ctx, conn, 1))
	assert.False(t, tableExists(t, conn, "kv_store"))

	require.Error(t, MigrateDown(ctx, conn, 1))
	require.Error(t, MigrateDown(ctx, conn, 0))
}

func TestWithTx_RollsBack(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	err := database.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO kv_store (key, value, created_at, updated_at) VALUES ('k', 'v', 0, 0)")
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, database.Conn().QueryRow("SELECT COUNT(*) FROM kv_store").Scan(&count))
	assert.Zero(t, count)
}
