package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

const itemTypesTable = "item_types"

type ItemTypeStore struct {
	h *db.Handle
}

func NewItemTypeStore(h *db.Handle) *ItemTypeStore {
	return &ItemTypeStore{h: h}
}

const itemTypeColumns = `id, name, COALESCE(category, ''), recipe, recipe_image, notes`

func scanItemType(scan func(dest ...any) error) (*domain.ItemType, error) {
	var (
		t                          domain.ItemType
		recipe, recipeImage, notes sql.NullString
	)
	if err := scan(&t.ID, &t.Name, &t.Category, &recipe, &recipeImage, &notes); err != nil {
		return nil, err
	}
	if t.Category == "" {
		t.Category = domain.DefaultCategory
	}
	t.Recipe = recipe.String
	t.RecipeImage = recipeImage.String
	t.Notes = notes.String
	return &t, nil
}

// Upsert inserts t when its ID is zero and updates the existing row
// otherwise. It returns the row id. Names are unique regardless of case and
// an empty category is stored as the default category.
func (s *ItemTypeStore) Upsert(ctx context.Context, t *domain.ItemType) (int64, error) {
	name, err := cleanName("item type", t.Name)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		category, err := resolveCategory(ctx, tx, t.Category)
		if err != nil {
			return err
		}
		taken, err := nameTaken(ctx, tx, itemTypesTable, name, t.ID)
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateName("item type", name)
		}

		if t.ID == 0 {
			id, err = insertItemType(ctx, tx, &domain.ItemType{
				Name:        name,
				Category:    category,
				Recipe:      t.Recipe,
				RecipeImage: t.RecipeImage,
				Notes:       t.Notes,
			})
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE item_types
			SET name = ?, category = ?, recipe = ?, recipe_image = ?, notes = ?
			WHERE id = ?
		`, name, category, nullable(t.Recipe), nullable(t.RecipeImage), nullable(t.Notes), t.ID)
		if err != nil {
			return fmt.Errorf("failed to update item type: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("item type", t.ID)
		}
		id = t.ID
		return nil
	})
	return id, err
}

// FindOrCreate returns the item type called name, creating it in category
// when none exists. The category of an existing item type is left as is.
func (s *ItemTypeStore) FindOrCreate(ctx context.Context, name, category string) (*domain.ItemType, error) {
	name, err := cleanName("item type", name)
	if err != nil {
		return nil, err
	}

	var found *domain.ItemType
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		found, err = findOrCreateItemType(ctx, tx, name, category)
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// findOrCreateItemType expects name to be cleaned already.
func findOrCreateItemType(ctx context.Context, q db.Queryer, name, category string) (*domain.ItemType, error) {
	existing, err := getItemTypeByName(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	resolved, err := resolveCategory(ctx, q, category)
	if err != nil {
		return nil, err
	}
	created := &domain.ItemType{Name: name, Category: resolved}
	created.ID, err = insertItemType(ctx, q, created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func insertItemType(ctx context.Context, q db.Queryer, t *domain.ItemType) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO item_types (name, category, recipe, recipe_image, notes)
		VALUES (?, ?, ?, ?, ?)
	`, t.Name, t.Category, nullable(t.Recipe), nullable(t.RecipeImage), nullable(t.Notes))
	if isUniqueViolation(err) {
		return 0, domain.DuplicateName("item type", t.Name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create item type: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// resolveCategory maps an empty category to the default and rejects names
// that are not in the taxonomy.
func resolveCategory(ctx context.Context, q db.Queryer, category string) (string, error) {
	if category == "" {
		category = domain.DefaultCategory
	}
	stored, err := categoryName(ctx, q, category)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", domain.Validationf("unknown category %q", category)
	}
	return stored, nil
}

func (s *ItemTypeStore) GetByID(ctx context.Context, id int64) (*domain.ItemType, error) {
	var t *domain.ItemType
	err := s.h.Read(ctx, func(q db.Queryer) error {
		var err error
		t, err = getItemType(ctx, q, id)
		return err
	})
	return t, err
}

func getItemType(ctx context.Context, q db.Queryer, id int64) (*domain.ItemType, error) {
	t, err := scanItemType(q.QueryRowContext(ctx,
		`SELECT `+itemTypeColumns+` FROM item_types WHERE id = ?`, id,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item type: %w", err)
	}
	return t, nil
}

func (s *ItemTypeStore) GetByName(ctx context.Context, name string) (*domain.ItemType, error) {
	var t *domain.ItemType
	err := s.h.Read(ctx, func(q db.Queryer) error {
		var err error
		t, err = getItemTypeByName(ctx, q, name)
		return err
	})
	return t, err
}

func getItemTypeByName(ctx context.Context, q db.Queryer, name string) (*domain.ItemType, error) {
	t, err := scanItemType(q.QueryRowContext(ctx,
		`SELECT `+itemTypeColumns+` FROM item_types WHERE name = ? COLLATE NOCASE`, name,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item type: %w", err)
	}
	return t, nil
}

func (s *ItemTypeStore) List(ctx context.Context) ([]*domain.ItemType, error) {
	var types []*domain.ItemType
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+itemTypeColumns+` FROM item_types ORDER BY name COLLATE NOCASE ASC`)
		if err != nil {
			return fmt.Errorf("failed to list item types: %w", err)
		}
		defer rows.Close()

		types = nil
		for rows.Next() {
			t, err := scanItemType(rows.Scan)
			if err != nil {
				return fmt.Errorf("failed to scan item type: %w", err)
			}
			types = append(types, t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating item types: %w", err)
		}
		return nil
	})
	return types, err
}

// ItemTypeDeleted counts what a cascading item type delete removed.
type ItemTypeDeleted struct {
	Jars    int
	Batches int
}

// Delete removes the item type together with every jar of it and the recipe
// overrides of the batches that disappear.
func (s *ItemTypeStore) Delete(ctx context.Context, id int64) (ItemTypeDeleted, error) {
	var removed ItemTypeDeleted
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		removed = ItemTypeDeleted{}
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*), COUNT(DISTINCT batch_id) FROM jars WHERE item_type_id = ?
		`, id).Scan(&removed.Jars, &removed.Batches); err != nil {
			return fmt.Errorf("failed to count jars: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM item_types WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete item type: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("item type", id)
		}
		return deleteOrphanedBatchRecipes(ctx, tx)
	})
	if err != nil {
		return ItemTypeDeleted{}, err
	}
	return removed, nil
}

// deleteOrphanedBatchRecipes drops overrides whose batch no longer has jars.
func deleteOrphanedBatchRecipes(ctx context.Context, q db.Queryer) error {
	if _, err := q.ExecContext(ctx, `
		DELETE FROM batch_recipes
		WHERE batch_id NOT IN (SELECT batch_id FROM jars WHERE batch_id IS NOT NULL)
	`); err != nil {
		return fmt.Errorf("failed to delete orphaned batch recipes: %w", err)
	}
	return nil
}
