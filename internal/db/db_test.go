package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/jartrack/internal/domain"
)

func TestOpenInMemory(t *testing.T) {
	h, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, h.Close()) })

	assert.NoError(t, h.DB().Ping())
}

func TestMigrationsApply(t *testing.T) {
	h, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, h.Close()) })

	for _, table := range []string{"item_types", "jars", "categories", "jar_sizes", "recipes", "batch_recipes"} {
		var name string
		err := h.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	for _, c := range additiveColumns {
		exists, err := columnExists(h.DB(), c.table, c.column)
		require.NoError(t, err)
		assert.True(t, exists, "%s.%s", c.table, c.column)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	h, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, h.Close()) })

	require.NoError(t, runMigrations(h.DB()))
	require.NoError(t, runMigrations(h.DB()))

	var version int
	require.NoError(t, h.DB().QueryRow("SELECT version FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestMigrationsUpgradeLegacySchema(t *testing.T) {
	d, err := openConn(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	// Shape written by releases that predate batch ids.
	_, err = d.Exec(`
		CREATE TABLE item_types (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT    NOT NULL COLLATE NOCASE UNIQUE,
			category     TEXT,
			recipe       TEXT,
			recipe_image TEXT
		);
		CREATE TABLE jars (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			item_type_id INTEGER NOT NULL REFERENCES item_types(id) ON DELETE CASCADE,
			fill_date    TEXT    NOT NULL,
			used         INTEGER NOT NULL DEFAULT 0,
			used_date    TEXT,
			jar_size     TEXT,
			location     TEXT
		);
		INSERT INTO item_types (id, name) VALUES (1, 'Peach Jam'), (2, 'Salsa');
		INSERT INTO jars (item_type_id, fill_date) VALUES
			(1, '2023-08-01'), (1, '2023-08-01'), (1, '2023-09-10'), (2, '2023-08-01');
	`)
	require.NoError(t, err)

	require.NoError(t, runMigrations(d))

	rows, err := d.Query("SELECT id, batch_id FROM jars ORDER BY id")
	require.NoError(t, err)
	batchIDs := map[int64]string{}
	for rows.Next() {
		var id int64
		var batchID sql.NullString
		require.NoError(t, rows.Scan(&id, &batchID))
		require.True(t, batchID.Valid, "jar %d has no batch id", id)
		batchIDs[id] = batchID.String
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())

	assert.Equal(t, batchIDs[1], batchIDs[2], "same item type and date share a batch")
	assert.NotEqual(t, batchIDs[1], batchIDs[3], "different date is a different batch")
	assert.NotEqual(t, batchIDs[1], batchIDs[4], "different item type is a different batch")

	// Running again must not reassign anything.
	require.NoError(t, runMigrations(d))
	var again string
	require.NoError(t, d.QueryRow("SELECT batch_id FROM jars WHERE id = 1").Scan(&again))
	assert.Equal(t, batchIDs[1], again)
}

func TestUsedDateInvariantEnforcedBySchema(t *testing.T) {
	h, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, h.Close()) })

	_, err = h.DB().Exec("INSERT INTO item_types (id, name) VALUES (1, 'Pickles')")
	require.NoError(t, err)

	_, err = h.DB().Exec("INSERT INTO jars (item_type_id, fill_date, used, used_date) VALUES (1, '2024-01-01', 1, NULL)")
	assert.Error(t, err)
	_, err = h.DB().Exec("INSERT INTO jars (item_type_id, fill_date, used, used_date) VALUES (1, '2024-01-01', 0, '2024-02-01')")
	assert.Error(t, err)
}

func TestHandleWriteRollsBackOnError(t *testing.T) {
	h, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, h.Close()) })
	ctx := context.Background()

	boom := errors.New("boom")
	err = h.Write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO item_types (name) VALUES ('Relish')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, h.Read(ctx, func(q Queryer) error {
		return q.QueryRowContext(ctx, "SELECT COUNT(*) FROM item_types").Scan(&count)
	}))
	assert.Zero(t, count)
}

func TestHandleReopensAfterInvalidation(t *testing.T) {
	h, err := Open(filepath.Join(t.TempDir(), "jars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, h.Close()) })
	ctx := context.Background()

	reopened := 0
	h.OnReopen(func() { reopened++ })

	require.NoError(t, h.Write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO item_types (name) VALUES ('Chutney')")
		return err
	}))

	// Simulate the platform invalidating the handle underneath us.
	require.NoError(t, h.DB().Close())

	var count int
	err = h.Read(ctx, func(q Queryer) error {
		return q.QueryRowContext(ctx, "SELECT COUNT(*) FROM item_types").Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, reopened)

	require.NoError(t, h.DB().Close())
	require.NoError(t, h.Write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO item_types (name) VALUES ('Marmalade')")
		return err
	}))
	assert.Equal(t, 2, reopened)
}

func TestHandleReopenFailureIsStorageUnavailable(t *testing.T) {
	h, err := Open(filepath.Join(t.TempDir(), "jars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	ctx := context.Background()

	h.path = filepath.Join(t.TempDir(), "missing", "dir", "jars.db")
	require.NoError(t, h.DB().Close())

	err = h.Read(ctx, func(q Queryer) error {
		var n int
		return q.QueryRowContext(ctx, "SELECT 1").Scan(&n)
	})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
