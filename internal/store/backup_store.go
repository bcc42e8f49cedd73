package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/jartrack/internal/backup"
	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

// BackupStore reads the whole inventory into a backup document and restores
// one in a single transaction.
type BackupStore struct {
	h   *db.Handle
	now func() time.Time
}

func NewBackupStore(h *db.Handle) *BackupStore {
	return &BackupStore{h: h, now: time.Now}
}

// Export snapshots every table. All rows are read under one read lock so
// the document is consistent.
func (s *BackupStore) Export(ctx context.Context) (*backup.Document, error) {
	var doc *backup.Document
	err := s.h.Read(ctx, func(q db.Queryer) error {
		doc = &backup.Document{
			Version:    backup.Version,
			ExportedAt: domain.FormatTimestamp(s.now()),
		}
		var err error
		if doc.ItemTypes, err = exportItemTypes(ctx, q); err != nil {
			return err
		}
		if doc.Jars, err = exportJars(ctx, q); err != nil {
			return err
		}
		if doc.Categories, err = exportCategories(ctx, q); err != nil {
			return err
		}
		if doc.JarSizes, err = exportJarSizes(ctx, q); err != nil {
			return err
		}
		if doc.Recipes, err = exportRecipes(ctx, q); err != nil {
			return err
		}
		doc.BatchRecipes, err = exportBatchRecipes(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// queryEach runs query and calls scan for every row.
func queryEach(ctx context.Context, q db.Queryer, what, query string, scan func(rows *sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", what, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", what, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", what, err)
	}
	return nil
}

func exportItemTypes(ctx context.Context, q db.Queryer) ([]backup.ItemType, error) {
	out := []backup.ItemType{}
	err := queryEach(ctx, q, "item types", `SELECT `+itemTypeColumns+` FROM item_types ORDER BY id`, func(rows *sql.Rows) error {
		t, err := scanItemType(rows.Scan)
		if err != nil {
			return err
		}
		out = append(out, backup.ItemType{
			ID:          t.ID,
			Name:        t.Name,
			Category:    t.Category,
			Recipe:      t.Recipe,
			RecipeImage: t.RecipeImage,
			Notes:       t.Notes,
		})
		return nil
	})
	return out, err
}

func exportJars(ctx context.Context, q db.Queryer) ([]backup.Jar, error) {
	out := []backup.Jar{}
	err := queryEach(ctx, q, "jars", `SELECT `+jarColumns+` FROM jars ORDER BY id`, func(rows *sql.Rows) error {
		j, err := scanJar(rows.Scan)
		if err != nil {
			return err
		}
		out = append(out, backup.Jar{
			ID:          j.ID,
			ItemTypeID:  j.ItemTypeID,
			BatchID:     j.BatchID,
			FillDateISO: j.FillDate,
			Used:        j.Used,
			UsedDateISO: j.UsedDate,
			JarSize:     j.JarSize,
			Location:    j.Location,
			RecipeID:    j.RecipeID,
		})
		return nil
	})
	return out, err
}

func exportCategories(ctx context.Context, q db.Queryer) ([]backup.Category, error) {
	out := []backup.Category{}
	err := queryEach(ctx, q, "categories", `SELECT id, name, icon, is_default FROM categories ORDER BY id`, func(rows *sql.Rows) error {
		var c backup.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.IsDefault); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

func exportJarSizes(ctx context.Context, q db.Queryer) ([]backup.JarSize, error) {
	out := []backup.JarSize{}
	err := queryEach(ctx, q, "jar sizes", `SELECT id, name, is_default, hidden, sort_order FROM jar_sizes ORDER BY id`, func(rows *sql.Rows) error {
		var js backup.JarSize
		if err := rows.Scan(&js.ID, &js.Name, &js.IsDefault, &js.Hidden, &js.SortOrder); err != nil {
			return err
		}
		out = append(out, js)
		return nil
	})
	return out, err
}

func exportRecipes(ctx context.Context, q db.Queryer) ([]backup.Recipe, error) {
	out := []backup.Recipe{}
	err := queryEach(ctx, q, "recipes", `SELECT `+recipeColumns+` FROM recipes ORDER BY id`, func(rows *sql.Rows) error {
		r, err := scanRecipe(rows.Scan)
		if err != nil {
			return err
		}
		out = append(out, backup.Recipe{
			ID:           r.ID,
			Name:         r.Name,
			Content:      r.Content,
			Image:        r.Image,
			CreatedDate:  r.CreatedDate,
			LastUsedDate: r.LastUsedDate,
		})
		return nil
	})
	return out, err
}

func exportBatchRecipes(ctx context.Context, q db.Queryer) ([]backup.BatchRecipe, error) {
	out := []backup.BatchRecipe{}
	err := queryEach(ctx, q, "batch recipes", `SELECT batch_id, recipe_text, recipe_image FROM batch_recipes ORDER BY batch_id`, func(rows *sql.Rows) error {
		var (
			br          backup.BatchRecipe
			text, image sql.NullString
		)
		if err := rows.Scan(&br.BatchID, &text, &image); err != nil {
			return err
		}
		br.Text = text.String
		br.Image = image.String
		out = append(out, br)
		return nil
	})
	return out, err
}

// Import replaces the inventory with doc. Item types and jars are always
// replaced; the optional sections only when present. Defaults missing from a
// replaced taxonomy are seeded back. Any failure rolls everything back and
// leaves the previous inventory in place.
func (s *BackupStore) Import(ctx context.Context, doc *backup.Document) (backup.Result, error) {
	if err := doc.Prepare(); err != nil {
		return backup.Result{}, err
	}

	var result backup.Result
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		result = backup.Result{}
		stmts := []string{`DELETE FROM jars`, `DELETE FROM item_types`}
		if doc.Categories != nil {
			stmts = append(stmts, `DELETE FROM categories`)
		}
		if doc.JarSizes != nil {
			stmts = append(stmts, `DELETE FROM jar_sizes`)
		}
		if doc.Recipes != nil {
			stmts = append(stmts, `DELETE FROM recipes`)
		}
		if doc.BatchRecipes != nil {
			stmts = append(stmts, `DELETE FROM batch_recipes`)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear existing data: %w", err)
			}
		}

		if doc.Categories != nil {
			for _, c := range doc.Categories {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO categories (id, name, icon, is_default) VALUES (?, ?, ?, ?)
				`, c.ID, c.Name, c.Icon, c.IsDefault); err != nil {
					return fmt.Errorf("failed to restore category %q: %w", c.Name, err)
				}
			}
			result.Categories = len(doc.Categories)
			if _, err := seedCategories(ctx, tx); err != nil {
				return err
			}
		}
		if doc.JarSizes != nil {
			for _, js := range doc.JarSizes {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO jar_sizes (id, name, is_default, hidden, sort_order) VALUES (?, ?, ?, ?, ?)
				`, js.ID, js.Name, js.IsDefault, js.Hidden, js.SortOrder); err != nil {
					return fmt.Errorf("failed to restore jar size %q: %w", js.Name, err)
				}
			}
			result.JarSizes = len(doc.JarSizes)
			if _, err := seedJarSizes(ctx, tx); err != nil {
				return err
			}
		}

		for _, t := range doc.ItemTypes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO item_types (id, name, category, recipe, recipe_image, notes)
				VALUES (?, ?, ?, ?, ?, ?)
			`, t.ID, t.Name, t.Category, nullable(t.Recipe), nullable(t.RecipeImage), nullable(t.Notes)); err != nil {
				return fmt.Errorf("failed to restore item type %q: %w", t.Name, err)
			}
		}
		result.ItemTypes = len(doc.ItemTypes)

		if doc.Recipes != nil {
			for _, r := range doc.Recipes {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO recipes (id, name, content, image, created_date, last_used_date)
					VALUES (?, ?, ?, ?, ?, ?)
				`, r.ID, r.Name, r.Content, nullable(r.Image), r.CreatedDate, nullable(r.LastUsedDate)); err != nil {
					return fmt.Errorf("failed to restore recipe %q: %w", r.Name, err)
				}
			}
			result.Recipes = len(doc.Recipes)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO jars (id, item_type_id, batch_id, fill_date, used, used_date, jar_size, location, recipe_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare jar insert: %w", err)
		}
		defer stmt.Close()
		// Jars with an id go first so fresh ids never take one the
		// document still needs.
		for _, withID := range []bool{true, false} {
			for i, j := range doc.Jars {
				if (j.ID > 0) != withID {
					continue
				}
				var id any
				if withID {
					id = j.ID
				}
				if _, err := stmt.ExecContext(ctx,
					id, j.ItemTypeID, j.BatchID, j.FillDateISO, j.Used, nullable(j.UsedDateISO),
					nullable(j.JarSize), nullable(j.Location), nullableID(j.RecipeID),
				); err != nil {
					return fmt.Errorf("failed to restore jars[%d]: %w", i, err)
				}
			}
		}
		result.Jars = len(doc.Jars)

		if doc.BatchRecipes != nil {
			for _, br := range doc.BatchRecipes {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO batch_recipes (batch_id, recipe_text, recipe_image) VALUES (?, ?, ?)
				`, br.BatchID, nullable(br.Text), nullable(br.Image)); err != nil {
					return fmt.Errorf("failed to restore batch recipe %q: %w", br.BatchID, err)
				}
			}
			result.BatchRecipes = len(doc.BatchRecipes)
		}
		return deleteOrphanedBatchRecipes(ctx, tx)
	})
	if err != nil {
		return backup.Result{}, domain.TransactionFailed("import", err)
	}
	return result, nil
}
