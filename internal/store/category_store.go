package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

// DefaultCategories are seeded on first start and cannot be renamed or
// removed.
var DefaultCategories = []domain.Category{
	{Name: "fruits", Icon: "🍓"},
	{Name: "vegetables", Icon: "🥕"},
	{Name: "jams", Icon: "🍯"},
	{Name: "pickles", Icon: "🥒"},
	{Name: "sauces", Icon: "🍅"},
	{Name: "soups", Icon: "🍲"},
	{Name: "meats", Icon: "🍖"},
	{Name: domain.DefaultCategory, Icon: "📦"},
}

const categoriesTable = "categories"

type CategoryStore struct {
	h *db.Handle
}

func NewCategoryStore(h *db.Handle) *CategoryStore {
	return &CategoryStore{h: h}
}

// SeedDefaults inserts any missing default categories and returns how many
// were added. Running it again is a no-op.
func (s *CategoryStore) SeedDefaults(ctx context.Context) (int, error) {
	var added int
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		n, err := seedCategories(ctx, tx)
		added = n
		return err
	})
	return added, err
}

func seedCategories(ctx context.Context, q db.Queryer) (int, error) {
	added := 0
	for _, c := range DefaultCategories {
		res, err := q.ExecContext(ctx, `
			INSERT INTO categories (name, icon, is_default)
			SELECT ?, ?, 1
			WHERE NOT EXISTS (SELECT 1 FROM categories WHERE name = ? COLLATE NOCASE)
		`, c.Name, c.Icon, c.Name)
		if err != nil {
			return 0, fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return 0, err
		}
		added += int(n)
	}
	return added, nil
}

func (s *CategoryStore) List(ctx context.Context) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `
			SELECT id, name, icon, is_default FROM categories
			ORDER BY is_default DESC, id ASC
		`)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}
		defer rows.Close()

		categories = nil
		for rows.Next() {
			c := &domain.Category{}
			if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.IsDefault); err != nil {
				return fmt.Errorf("failed to scan category: %w", err)
			}
			categories = append(categories, c)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating categories: %w", err)
		}
		return nil
	})
	return categories, err
}

func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var c *domain.Category
	err := s.h.Read(ctx, func(q db.Queryer) error {
		var err error
		c, err = getCategory(ctx, q, id)
		return err
	})
	return c, err
}

func getCategory(ctx context.Context, q db.Queryer, id int64) (*domain.Category, error) {
	c := &domain.Category{}
	err := q.QueryRowContext(ctx, `
		SELECT id, name, icon, is_default FROM categories WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Icon, &c.IsDefault)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// categoryName returns the stored spelling of name, or "" when no such
// category exists.
func categoryName(ctx context.Context, q db.Queryer, name string) (string, error) {
	var stored string
	err := q.QueryRowContext(ctx, `
		SELECT name FROM categories WHERE name = ? COLLATE NOCASE
	`, name).Scan(&stored)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up category: %w", err)
	}
	return stored, nil
}

func (s *CategoryStore) Add(ctx context.Context, name, icon string) (*domain.Category, error) {
	name, err := cleanName("category", name)
	if err != nil {
		return nil, err
	}

	var created *domain.Category
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		taken, err := nameTaken(ctx, tx, categoriesTable, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateName("category", name)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, icon, is_default) VALUES (?, ?, 0)
		`, name, icon)
		if err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		created = &domain.Category{ID: id, Name: name, Icon: icon}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update renames a custom category and changes its icon. Item types filed
// under the old name follow the rename.
func (s *CategoryStore) Update(ctx context.Context, id int64, name, icon string) (*domain.Category, error) {
	name, err := cleanName("category", name)
	if err != nil {
		return nil, err
	}

	var updated *domain.Category
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := getCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NotFound("category", id)
		}
		if current.IsDefault {
			return domain.Protected("category", current.Name)
		}

		taken, err := nameTaken(ctx, tx, categoriesTable, name, id)
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateName("category", name)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET name = ?, icon = ? WHERE id = ?
		`, name, icon, id); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		if name != current.Name {
			if _, err := tx.ExecContext(ctx, `
				UPDATE item_types SET category = ? WHERE category = ? COLLATE NOCASE
			`, name, current.Name); err != nil {
				return fmt.Errorf("failed to rename category on item types: %w", err)
			}
		}
		updated = &domain.Category{ID: id, Name: name, Icon: icon}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a custom category. It is refused while any item type is
// filed under it; use ReassignAndDelete to move them first.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	return s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := s.deletable(ctx, tx, id)
		if err != nil {
			return err
		}
		refs, err := countCategoryRefs(ctx, tx, current.Name)
		if err != nil {
			return err
		}
		if refs > 0 {
			return domain.InUse("category", current.Name, refs)
		}
		return deleteCategory(ctx, tx, id)
	})
}

// ReassignAndDelete moves every item type in category id to targetID and
// then removes id. It returns the number of item types moved.
func (s *CategoryStore) ReassignAndDelete(ctx context.Context, id, targetID int64) (int, error) {
	if id == targetID {
		return 0, domain.InvalidArgumentf("cannot reassign a category to itself")
	}

	var moved int
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := s.deletable(ctx, tx, id)
		if err != nil {
			return err
		}
		target, err := getCategory(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.NotFound("category", targetID)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE item_types SET category = ? WHERE category = ? COLLATE NOCASE
		`, target.Name, current.Name)
		if err != nil {
			return fmt.Errorf("failed to reassign item types: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		moved = int(n)
		return deleteCategory(ctx, tx, id)
	})
	return moved, err
}

func (s *CategoryStore) deletable(ctx context.Context, q db.Queryer, id int64) (*domain.Category, error) {
	current, err := getCategory(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.NotFound("category", id)
	}
	if current.IsDefault {
		return nil, domain.Protected("category", current.Name)
	}
	return current, nil
}

func countCategoryRefs(ctx context.Context, q db.Queryer, name string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM item_types WHERE category = ? COLLATE NOCASE
	`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count category references: %w", err)
	}
	return n, nil
}

func deleteCategory(ctx context.Context, q db.Queryer, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}
