package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

// DefaultJarSizes in display order.
var DefaultJarSizes = []string{
	"4 oz",
	"8 oz",
	"12 oz",
	"16 oz (pint)",
	"24 oz",
	"32 oz (quart)",
	"64 oz (half gallon)",
}

const jarSizesTable = "jar_sizes"

type JarSizeStore struct {
	h *db.Handle
}

func NewJarSizeStore(h *db.Handle) *JarSizeStore {
	return &JarSizeStore{h: h}
}

func (s *JarSizeStore) SeedDefaults(ctx context.Context) (int, error) {
	var added int
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		n, err := seedJarSizes(ctx, tx)
		added = n
		return err
	})
	return added, err
}

func seedJarSizes(ctx context.Context, q db.Queryer) (int, error) {
	added := 0
	for i, name := range DefaultJarSizes {
		res, err := q.ExecContext(ctx, `
			INSERT INTO jar_sizes (name, is_default, hidden, sort_order)
			SELECT ?, 1, 0, ?
			WHERE NOT EXISTS (SELECT 1 FROM jar_sizes WHERE name = ? COLLATE NOCASE)
		`, name, i, name)
		if err != nil {
			return 0, fmt.Errorf("failed to seed jar size %q: %w", name, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return 0, err
		}
		added += int(n)
	}
	return added, nil
}

// List returns jar sizes in display order. Hidden sizes are only included
// when includeHidden is set.
func (s *JarSizeStore) List(ctx context.Context, includeHidden bool) ([]*domain.JarSize, error) {
	var sizes []*domain.JarSize
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `
			SELECT id, name, is_default, hidden, sort_order FROM jar_sizes
			WHERE ? OR hidden = 0
			ORDER BY sort_order ASC, id ASC
		`, includeHidden)
		if err != nil {
			return fmt.Errorf("failed to list jar sizes: %w", err)
		}
		defer rows.Close()

		sizes = nil
		for rows.Next() {
			js := &domain.JarSize{}
			if err := rows.Scan(&js.ID, &js.Name, &js.IsDefault, &js.Hidden, &js.SortOrder); err != nil {
				return fmt.Errorf("failed to scan jar size: %w", err)
			}
			sizes = append(sizes, js)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating jar sizes: %w", err)
		}
		return nil
	})
	return sizes, err
}

func (s *JarSizeStore) GetByID(ctx context.Context, id int64) (*domain.JarSize, error) {
	var js *domain.JarSize
	err := s.h.Read(ctx, func(q db.Queryer) error {
		var err error
		js, err = getJarSize(ctx, q, id)
		return err
	})
	return js, err
}

func getJarSize(ctx context.Context, q db.Queryer, id int64) (*domain.JarSize, error) {
	js := &domain.JarSize{}
	err := q.QueryRowContext(ctx, `
		SELECT id, name, is_default, hidden, sort_order FROM jar_sizes WHERE id = ?
	`, id).Scan(&js.ID, &js.Name, &js.IsDefault, &js.Hidden, &js.SortOrder)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jar size: %w", err)
	}
	return js, nil
}

// jarSizeName returns the stored spelling of name, or "" if it is unknown.
func jarSizeName(ctx context.Context, q db.Queryer, name string) (string, error) {
	var stored string
	err := q.QueryRowContext(ctx, `
		SELECT name FROM jar_sizes WHERE name = ? COLLATE NOCASE
	`, name).Scan(&stored)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up jar size: %w", err)
	}
	return stored, nil
}

// Add appends a custom jar size after the existing ones.
func (s *JarSizeStore) Add(ctx context.Context, name string) (*domain.JarSize, error) {
	name, err := cleanName("jar size", name)
	if err != nil {
		return nil, err
	}

	var created *domain.JarSize
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		taken, err := nameTaken(ctx, tx, jarSizesTable, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateName("jar size", name)
		}

		var next int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(sort_order), -1) + 1 FROM jar_sizes
		`).Scan(&next); err != nil {
			return fmt.Errorf("failed to compute sort order: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO jar_sizes (name, is_default, hidden, sort_order) VALUES (?, 0, 0, ?)
		`, name, next)
		if err != nil {
			return fmt.Errorf("failed to create jar size: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		created = &domain.JarSize{ID: id, Name: name, SortOrder: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update renames a custom jar size. Jars recorded with the old name are
// renamed with it.
func (s *JarSizeStore) Update(ctx context.Context, id int64, name string) (*domain.JarSize, error) {
	name, err := cleanName("jar size", name)
	if err != nil {
		return nil, err
	}

	var updated *domain.JarSize
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := s.mutable(ctx, tx, id)
		if err != nil {
			return err
		}
		taken, err := nameTaken(ctx, tx, jarSizesTable, name, id)
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateName("jar size", name)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE jar_sizes SET name = ? WHERE id = ?`, name, id); err != nil {
			return fmt.Errorf("failed to update jar size: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE jars SET jar_size = ? WHERE jar_size = ? COLLATE NOCASE
		`, name, current.Name); err != nil {
			return fmt.Errorf("failed to rename jar size on jars: %w", err)
		}
		current.Name = name
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleHidden flips whether a size is offered for new batches. Defaults may
// be hidden; existing jars keep their size either way.
func (s *JarSizeStore) ToggleHidden(ctx context.Context, id int64) (*domain.JarSize, error) {
	var toggled *domain.JarSize
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := getJarSize(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NotFound("jar size", id)
		}
		current.Hidden = !current.Hidden
		if _, err := tx.ExecContext(ctx, `
			UPDATE jar_sizes SET hidden = ? WHERE id = ?
		`, current.Hidden, id); err != nil {
			return fmt.Errorf("failed to toggle jar size: %w", err)
		}
		toggled = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toggled, nil
}

// Delete removes a custom jar size that no jar refers to.
func (s *JarSizeStore) Delete(ctx context.Context, id int64) error {
	return s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := s.mutable(ctx, tx, id)
		if err != nil {
			return err
		}
		var refs int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM jars WHERE jar_size = ? COLLATE NOCASE
		`, current.Name).Scan(&refs); err != nil {
			return fmt.Errorf("failed to count jar size references: %w", err)
		}
		if refs > 0 {
			return domain.InUse("jar size", current.Name, refs)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jar_sizes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete jar size: %w", err)
		}
		return nil
	})
}

// ReassignAndDelete moves jars of size id to targetID and removes id. It
// returns the number of jars moved.
func (s *JarSizeStore) ReassignAndDelete(ctx context.Context, id, targetID int64) (int, error) {
	if id == targetID {
		return 0, domain.InvalidArgumentf("cannot reassign a jar size to itself")
	}

	var moved int
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := s.mutable(ctx, tx, id)
		if err != nil {
			return err
		}
		target, err := getJarSize(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.NotFound("jar size", targetID)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE jars SET jar_size = ? WHERE jar_size = ? COLLATE NOCASE
		`, target.Name, current.Name)
		if err != nil {
			return fmt.Errorf("failed to reassign jars: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		moved = int(n)
		if _, err := tx.ExecContext(ctx, `DELETE FROM jar_sizes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete jar size: %w", err)
		}
		return nil
	})
	return moved, err
}

func (s *JarSizeStore) mutable(ctx context.Context, q db.Queryer, id int64) (*domain.JarSize, error) {
	current, err := getJarSize(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.NotFound("jar size", id)
	}
	if current.IsDefault {
		return nil, domain.Protected("jar size", current.Name)
	}
	return current, nil
}
