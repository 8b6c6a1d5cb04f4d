package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db := testDB(t)
	assert.Equal(t, ":memory:", db.Path)
}

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestTablesExist(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"schema_versions", "items", "gaps", "pulses"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}
}

func TestItemsConstraints(t *testing.T) {
	db := testDB(t)

	_, err := db.Exec(`
		INSERT INTO items (id, raw, strength, last_seen, next_review, status)
		VALUES ('a', 'raw', 0.5, 1000, 2000, 'active')
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO items (id, raw, strength, last_seen, next_review, status)
		VALUES ('b', 'raw', 0.5, 1000, 2000, 'composted')
	`)
	assert.Error(t, err, "invalid status should be rejected")

	_, err = db.Exec(`
		INSERT INTO items (id, raw, strength, last_seen, next_review, status)
		VALUES ('c', 'raw', 1.5, 1000, 2000, 'active')
	`)
	assert.Error(t, err, "strength above 1 should be rejected")

	_, err = db.Exec(`
		INSERT INTO items (id, raw, strength, last_seen, next_review, status)
		VALUES ('a', 'dup', 0.5, 1000, 2000, 'active')
	`)
	assert.Error(t, err, "duplicate id should be rejected")
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.migrate())

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestForeignKeysEnabled(t *testing.T) {
	db := testDB(t)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/nested/seedsoil.db"
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.InsertItem(&Item{ID: "x", Raw: "persisted", Soil: Soil{Strength: 1, Status: StatusActive}}))
	db.Close()

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()

	it, err := db2.GetItem("x")
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, "persisted", it.Raw)
}

func TestDSN(t *testing.T) {
	mem := dsn(memoryPath)
	assert.Contains(t, mem, "foreign_keys%281%29")
	assert.NotContains(t, mem, "journal_mode")

	file := dsn("/tmp/x.db")
	assert.True(t, strings.HasPrefix(file, "file:/tmp/x.db?"))
	assert.Contains(t, file, "journal_mode%28WAL%29")
}

func TestOpenFileUsesWAL(t *testing.T) {
	db, err := Open(t.TempDir() + "/wal.db")
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
