package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/vbonduro/jartrack/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// additiveColumns are nullable/defaulted columns added after the original
// tables shipped. SQLite has no ADD COLUMN IF NOT EXISTS, so each one is
// checked against PRAGMA table_info first.
var additiveColumns = []struct {
	table      string
	column     string
	definition string
}{
	{"item_types", "notes", "TEXT"},
	{"jars", "batch_id", "TEXT"},
	{"jars", "recipe_id", "INTEGER"},
	{"jar_sizes", "hidden", "INTEGER NOT NULL DEFAULT 0"},
	{"jar_sizes", "sort_order", "INTEGER NOT NULL DEFAULT 0"},
}

// indexes depend on additive columns and so run after them.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_jars_batch_id ON jars(batch_id)`,
	`CREATE INDEX IF NOT EXISTS idx_jars_fill_date ON jars(fill_date)`,
	`CREATE INDEX IF NOT EXISTS idx_jars_used_date ON jars(used_date)`,
}

func runMigrations(db *sql.DB) error {
	if err := applyVersioned(db); err != nil {
		return err
	}

	for _, c := range additiveColumns {
		if err := addColumnIfNotExists(db, c.table, c.column, c.definition); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", c.table, c.column, err)
		}
	}

	if err := backfillBatchIDs(db); err != nil {
		return fmt.Errorf("failed to backfill batch ids: %w", err)
	}

	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func applyVersioned(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	// m.Close would also close db through the driver, so only the source is
	// released here.
	defer func() { _ = source.Close() }()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	found := false
	for rows.Next() {
		var (
			cid          int
			name, typ    string
			notNull, pk  int
			defaultValue any
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			found = true
		}
	}
	return found, rows.Err()
}

func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil || exists {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// backfillBatchIDs assigns batch ids to jars written before batches had
// explicit identifiers. Those jars were displayed grouped by item type and
// fill date, so each such group becomes one batch.
func backfillBatchIDs(db *sql.DB) error {
	type groupKey struct {
		itemTypeID int64
		fillDate   string
	}

	rows, err := db.Query(`SELECT id, item_type_id, fill_date FROM jars WHERE batch_id IS NULL ORDER BY id`)
	if err != nil {
		return err
	}
	assigned := make(map[groupKey]string)
	type pending struct {
		id      int64
		batchID string
	}
	var updates []pending
	for rows.Next() {
		var (
			id  int64
			key groupKey
		)
		if err := rows.Scan(&id, &key.itemTypeID, &key.fillDate); err != nil {
			_ = rows.Close()
			return err
		}
		batchID, ok := assigned[key]
		if !ok {
			batchID = domain.NewBatchID()
			assigned[key] = batchID
		}
		updates = append(updates, pending{id: id, batchID: batchID})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, u := range updates {
		if _, err := tx.Exec(`UPDATE jars SET batch_id = ? WHERE id = ?`, u.batchID, u.id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
