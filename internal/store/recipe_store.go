package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

type RecipeStore struct {
	h   *db.Handle
	now func() time.Time
}

func NewRecipeStore(h *db.Handle) *RecipeStore {
	return &RecipeStore{h: h, now: time.Now}
}

const recipeColumns = `id, name, content, image, created_date, last_used_date`

func scanRecipe(scan func(dest ...any) error) (*domain.Recipe, error) {
	var (
		r               domain.Recipe
		image, lastUsed sql.NullString
	)
	if err := scan(&r.ID, &r.Name, &r.Content, &image, &r.CreatedDate, &lastUsed); err != nil {
		return nil, err
	}
	r.Image = image.String
	r.LastUsedDate = lastUsed.String
	return &r, nil
}

func (s *RecipeStore) Create(ctx context.Context, name, content, image string) (*domain.Recipe, error) {
	name, err := cleanName("recipe", name)
	if err != nil {
		return nil, err
	}

	r := &domain.Recipe{
		Name:        name,
		Content:     content,
		Image:       image,
		CreatedDate: domain.FormatTimestamp(s.now()),
	}
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO recipes (name, content, image, created_date) VALUES (?, ?, ?, ?)
		`, r.Name, r.Content, nullable(r.Image), r.CreatedDate)
		if err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		r.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RecipeStore) Update(ctx context.Context, id int64, name, content, image string) (*domain.Recipe, error) {
	name, err := cleanName("recipe", name)
	if err != nil {
		return nil, err
	}

	var updated *domain.Recipe
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE recipes SET name = ?, content = ?, image = ? WHERE id = ?
		`, name, content, nullable(image), id)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("recipe", id)
		}
		updated, err = getRecipe(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetImage replaces only the image reference and returns the previous one.
func (s *RecipeStore) SetImage(ctx context.Context, id int64, image string) (string, error) {
	var previous string
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		current, err := getRecipe(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NotFound("recipe", id)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE recipes SET image = ? WHERE id = ?`, nullable(image), id); err != nil {
			return fmt.Errorf("failed to set recipe image: %w", err)
		}
		previous = current.Image
		return nil
	})
	return previous, err
}

// Delete removes a recipe. Jars linked to it keep the stale id and resolve
// as if unlinked.
func (s *RecipeStore) Delete(ctx context.Context, id int64) error {
	return s.h.Write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("recipe", id)
		}
		return nil
	})
}

func (s *RecipeStore) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	var r *domain.Recipe
	err := s.h.Read(ctx, func(q db.Queryer) error {
		var err error
		r, err = getRecipe(ctx, q, id)
		return err
	})
	return r, err
}

func getRecipe(ctx context.Context, q db.Queryer, id int64) (*domain.Recipe, error) {
	r, err := scanRecipe(q.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return r, nil
}

// List returns recipes ordered by name.
func (s *RecipeStore) List(ctx context.Context) ([]*domain.Recipe, error) {
	var recipes []*domain.Recipe
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `
			SELECT `+recipeColumns+` FROM recipes
			ORDER BY name COLLATE NOCASE ASC, id ASC
		`)
		if err != nil {
			return fmt.Errorf("failed to list recipes: %w", err)
		}
		defer rows.Close()

		recipes = nil
		for rows.Next() {
			r, err := scanRecipe(rows.Scan)
			if err != nil {
				return fmt.Errorf("failed to scan recipe: %w", err)
			}
			recipes = append(recipes, r)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating recipes: %w", err)
		}
		return nil
	})
	return recipes, err
}

// SetBatchRecipe stores a per-batch override. Empty text or image means that
// field falls through to the linked recipe.
func (s *RecipeStore) SetBatchRecipe(ctx context.Context, batchID, text, image string) error {
	if text == "" && image == "" {
		return domain.InvalidArgumentf("batch recipe override needs text or an image")
	}
	return s.h.Write(ctx, func(tx *sql.Tx) error {
		first, err := firstJarOfBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if first == nil {
			return domain.NotFound("batch", batchID)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO batch_recipes (batch_id, recipe_text, recipe_image) VALUES (?, ?, ?)
			ON CONFLICT(batch_id) DO UPDATE SET
				recipe_text = excluded.recipe_text,
				recipe_image = excluded.recipe_image
		`, batchID, nullable(text), nullable(image)); err != nil {
			return fmt.Errorf("failed to set batch recipe: %w", err)
		}
		return nil
	})
}

// ClearBatchRecipe drops the override. Clearing a batch without one is a
// no-op.
func (s *RecipeStore) ClearBatchRecipe(ctx context.Context, batchID string) error {
	return s.h.Write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM batch_recipes WHERE batch_id = ?`, batchID); err != nil {
			return fmt.Errorf("failed to clear batch recipe: %w", err)
		}
		return nil
	})
}

func (s *RecipeStore) GetBatchRecipe(ctx context.Context, batchID string) (*domain.BatchRecipe, error) {
	var br *domain.BatchRecipe
	err := s.h.Read(ctx, func(q db.Queryer) error {
		var err error
		br, err = getBatchRecipe(ctx, q, batchID)
		return err
	})
	return br, err
}

func getBatchRecipe(ctx context.Context, q db.Queryer, batchID string) (*domain.BatchRecipe, error) {
	var text, image sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT recipe_text, recipe_image FROM batch_recipes WHERE batch_id = ?
	`, batchID).Scan(&text, &image)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch recipe: %w", err)
	}
	return &domain.BatchRecipe{BatchID: batchID, Text: text.String, Image: image.String}, nil
}

// ResolveForBatch picks recipe text and image for a batch, each field
// independently: the batch override, then the recipe linked from the
// batch's first jar, then the item type's own recipe fields.
func (s *RecipeStore) ResolveForBatch(ctx context.Context, batchID string) (*domain.ResolvedRecipe, error) {
	var resolved *domain.ResolvedRecipe
	err := s.h.Read(ctx, func(q db.Queryer) error {
		first, err := firstJarOfBatch(ctx, q, batchID)
		if err != nil {
			return err
		}
		if first == nil {
			return domain.NotFound("batch", batchID)
		}

		override, err := getBatchRecipe(ctx, q, batchID)
		if err != nil {
			return err
		}
		var linked *domain.Recipe
		if first.RecipeID != nil {
			if linked, err = getRecipe(ctx, q, *first.RecipeID); err != nil {
				return err
			}
		}
		itemType, err := getItemType(ctx, q, first.ItemTypeID)
		if err != nil {
			return err
		}

		resolved = resolveRecipe(batchID, override, linked, itemType)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func resolveRecipe(batchID string, override *domain.BatchRecipe, linked *domain.Recipe, itemType *domain.ItemType) *domain.ResolvedRecipe {
	r := &domain.ResolvedRecipe{
		BatchID:     batchID,
		TextSource:  domain.RecipeSourceNone,
		ImageSource: domain.RecipeSourceNone,
	}
	if linked != nil {
		id := linked.ID
		r.RecipeID = &id
		r.RecipeName = linked.Name
	}

	switch {
	case override != nil && override.Text != "":
		r.Text, r.TextSource = override.Text, domain.RecipeSourceBatch
	case linked != nil && linked.Content != "":
		r.Text, r.TextSource = linked.Content, domain.RecipeSourceRecipe
	case itemType != nil && itemType.Recipe != "":
		r.Text, r.TextSource = itemType.Recipe, domain.RecipeSourceItemType
	}

	switch {
	case override != nil && override.Image != "":
		r.Image, r.ImageSource = override.Image, domain.RecipeSourceBatch
	case linked != nil && linked.Image != "":
		r.Image, r.ImageSource = linked.Image, domain.RecipeSourceRecipe
	case itemType != nil && itemType.RecipeImage != "":
		r.Image, r.ImageSource = itemType.RecipeImage, domain.RecipeSourceItemType
	}
	return r
}
