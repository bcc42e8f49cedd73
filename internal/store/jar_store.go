package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

const DefaultMaxBatchQuantity = 100

type JarStore struct {
	h           *db.Handle
	maxQuantity int
	now         func() time.Time
}

// NewJarStore returns a JarStore that accepts at most maxQuantity jars per
// create or extend call. A non-positive maxQuantity uses the default.
func NewJarStore(h *db.Handle, maxQuantity int) *JarStore {
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxBatchQuantity
	}
	return &JarStore{h: h, maxQuantity: maxQuantity, now: time.Now}
}

// NewBatch describes the jars filled in one session. When ItemTypeID is zero
// the item type is looked up by ItemTypeName and created in Category if it
// does not exist yet, inside the same transaction as the jars.
type NewBatch struct {
	ItemTypeID   int64
	ItemTypeName string
	Category     string
	FillDate   string
	Quantity   int
	JarSize    string
	Location   string
	RecipeID   *int64
}

type BatchCreated struct {
	BatchID  string
	ItemType *domain.ItemType
	JarIDs   []int64
}

// AddJars extends an existing batch. Nil JarSize, Location and RecipeID
// inherit from the batch's first jar; an empty FillDate inherits its fill
// date.
type AddJars struct {
	ItemTypeID int64
	FillDate   string
	Quantity   int
	JarSize    *string
	Location   *string
	RecipeID   *int64
}

// BatchUpdate changes every jar of a batch. Nil fields are left alone.
type BatchUpdate struct {
	FillDate    *string
	JarSize     *string
	Location    *string
	RecipeID    *int64
	ClearRecipe bool
}

type MarkUsedResult struct {
	Success  bool
	Message  string
	UsedDate string
}

type DeleteJarResult struct {
	Success      bool
	BatchID      string
	BatchDeleted bool
}

const jarColumns = `id, item_type_id, COALESCE(batch_id, ''), fill_date, used, used_date, jar_size, location, recipe_id`

func scanJar(scan func(dest ...any) error) (*domain.Jar, error) {
	var (
		j                           domain.Jar
		usedDate, jarSize, location sql.NullString
		recipeID                    sql.NullInt64
	)
	if err := scan(&j.ID, &j.ItemTypeID, &j.BatchID, &j.FillDate, &j.Used, &usedDate, &jarSize, &location, &recipeID); err != nil {
		return nil, err
	}
	j.UsedDate = usedDate.String
	j.JarSize = jarSize.String
	j.Location = location.String
	j.RecipeID = idPtr(recipeID)
	return &j, nil
}

// CreateJar records a single jar as a batch of one.
func (s *JarStore) CreateJar(ctx context.Context, itemTypeID int64, fillDate, jarSize, location string) (int64, error) {
	created, err := s.CreateBatch(ctx, NewBatch{
		ItemTypeID: itemTypeID,
		FillDate:   fillDate,
		Quantity:   1,
		JarSize:    jarSize,
		Location:   location,
	})
	if err != nil {
		return 0, err
	}
	return created.JarIDs[0], nil
}

// CreateBatch inserts Quantity jars under a fresh batch id in one
// transaction. Either all jars are written or none are.
func (s *JarStore) CreateBatch(ctx context.Context, nb NewBatch) (*BatchCreated, error) {
	if err := s.checkQuantity(nb.Quantity); err != nil {
		return nil, err
	}
	fillDate, err := domain.NormalizeDate(nb.FillDate)
	if err != nil {
		return nil, err
	}
	var name string
	if nb.ItemTypeID == 0 {
		if name, err = cleanName("item type", nb.ItemTypeName); err != nil {
			return nil, err
		}
	}

	created := &BatchCreated{BatchID: domain.NewBatchID()}
	err = s.h.Write(ctx, func(tx *sql.Tx) error {
		var (
			t   *domain.ItemType
			err error
		)
		if nb.ItemTypeID == 0 {
			t, err = findOrCreateItemType(ctx, tx, name, nb.Category)
		} else {
			t, err = getItemType(ctx, tx, nb.ItemTypeID)
		}
		if err != nil {
			return err
		}
		if t == nil {
			return domain.NotFound("item type", nb.ItemTypeID)
		}
		created.ItemType = t
		jarSize, err := resolveJarSize(ctx, tx, nb.JarSize)
		if err != nil {
			return err
		}
		if err := s.linkRecipe(ctx, tx, nb.RecipeID); err != nil {
			return err
		}

		created.JarIDs, err = insertJars(ctx, tx, nb.Quantity, &domain.Jar{
			ItemTypeID: t.ID,
			BatchID:    created.BatchID,
			FillDate:   fillDate,
			JarSize:    jarSize,
			Location:   strings.TrimSpace(nb.Location),
			RecipeID:   nb.RecipeID,
		})
		return err
	})
	if err != nil {
		return nil, domain.TransactionFailed("create batch", err)
	}
	return created, nil
}

// AddJarsToBatch appends jars to an existing batch and returns their ids.
func (s *JarStore) AddJarsToBatch(ctx context.Context, batchID string, add AddJars) ([]int64, error) {
	if err := s.checkQuantity(add.Quantity); err != nil {
		return nil, err
	}
	var fillDate string
	if add.FillDate != "" {
		var err error
		if fillDate, err = domain.NormalizeDate(add.FillDate); err != nil {
			return nil, err
		}
	}

	var ids []int64
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		first, err := firstJarOfBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if first == nil {
			return domain.NotFound("batch", batchID)
		}
		if add.ItemTypeID != 0 && add.ItemTypeID != first.ItemTypeID {
			return domain.InvalidArgumentf("batch %s holds item type %d, not %d", batchID, first.ItemTypeID, add.ItemTypeID)
		}

		tmpl := *first
		if fillDate != "" {
			tmpl.FillDate = fillDate
		}
		if add.JarSize != nil {
			if tmpl.JarSize, err = resolveJarSize(ctx, tx, *add.JarSize); err != nil {
				return err
			}
		}
		if add.Location != nil {
			tmpl.Location = strings.TrimSpace(*add.Location)
		}
		if add.RecipeID != nil {
			if err := s.linkRecipe(ctx, tx, add.RecipeID); err != nil {
				return err
			}
			tmpl.RecipeID = add.RecipeID
		}

		ids, err = insertJars(ctx, tx, add.Quantity, &tmpl)
		return err
	})
	if err != nil {
		return nil, domain.TransactionFailed("add jars to batch", err)
	}
	return ids, nil
}

func (s *JarStore) checkQuantity(n int) error {
	if n < 1 || n > s.maxQuantity {
		return domain.InvalidArgumentf("quantity must be between 1 and %d, got %d", s.maxQuantity, n)
	}
	return nil
}

func insertJars(ctx context.Context, tx *sql.Tx, n int, tmpl *domain.Jar) ([]int64, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO jars (item_type_id, batch_id, fill_date, used, used_date, jar_size, location, recipe_id)
		VALUES (?, ?, ?, 0, NULL, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare jar insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		res, err := stmt.ExecContext(ctx,
			tmpl.ItemTypeID, tmpl.BatchID, tmpl.FillDate,
			nullable(tmpl.JarSize), nullable(tmpl.Location), nullableID(tmpl.RecipeID),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert jar %d of %d: %w", i+1, n, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get last insert id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// resolveJarSize returns the stored spelling of a known jar size. Empty
// means no size recorded.
func resolveJarSize(ctx context.Context, q db.Queryer, size string) (string, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return "", nil
	}
	stored, err := jarSizeName(ctx, q, size)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", domain.Validationf("unknown jar size %q", size)
	}
	return stored, nil
}

// linkRecipe checks that a recipe exists and stamps its last used date.
func (s *JarStore) linkRecipe(ctx context.Context, q db.Queryer, id *int64) error {
	if id == nil {
		return nil
	}
	res, err := q.ExecContext(ctx, `
		UPDATE recipes SET last_used_date = ? WHERE id = ?
	`, domain.FormatTimestamp(s.now()), *id)
	if err != nil {
		return fmt.Errorf("failed to touch recipe: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("recipe", *id)
	}
	return nil
}

// MarkUsed flips an available jar to used and stamps the used date. Marking
// a jar that is already used is not an error: the result reports
// Success=false and the original used date is kept.
func (s *JarStore) MarkUsed(ctx context.Context, jarID int64) (MarkUsedResult, error) {
	var result MarkUsedResult
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		usedDate := domain.FormatTimestamp(s.now())
		res, err := tx.ExecContext(ctx, `
			UPDATE jars SET used = 1, used_date = ? WHERE id = ? AND used = 0
		`, usedDate, jarID)
		if err != nil {
			return fmt.Errorf("failed to mark jar used: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 1 {
			result = MarkUsedResult{Success: true, Message: fmt.Sprintf("jar #%d marked as used", jarID), UsedDate: usedDate}
			return nil
		}

		var existing sql.NullString
		err = tx.QueryRowContext(ctx, `SELECT used_date FROM jars WHERE id = ?`, jarID).Scan(&existing)
		if err == sql.ErrNoRows {
			return domain.NotFound("jar", jarID)
		}
		if err != nil {
			return fmt.Errorf("failed to get jar: %w", err)
		}
		result = MarkUsedResult{
			Success:  false,
			Message:  fmt.Sprintf("jar #%d was already used on %s", jarID, existing.String),
			UsedDate: existing.String,
		}
		return nil
	})
	return result, err
}

// DeleteJar removes one jar. When it was the last jar of its batch the
// batch's recipe override goes too and BatchDeleted is set.
func (s *JarStore) DeleteJar(ctx context.Context, jarID int64) (DeleteJarResult, error) {
	var result DeleteJarResult
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		var batchID sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT batch_id FROM jars WHERE id = ?`, jarID).Scan(&batchID)
		if err == sql.ErrNoRows {
			return domain.NotFound("jar", jarID)
		}
		if err != nil {
			return fmt.Errorf("failed to get jar: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM jars WHERE id = ?`, jarID); err != nil {
			return fmt.Errorf("failed to delete jar: %w", err)
		}

		result = DeleteJarResult{Success: true, BatchID: batchID.String}
		if !batchID.Valid {
			return nil
		}
		var remaining int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM jars WHERE batch_id = ?
		`, batchID.String).Scan(&remaining); err != nil {
			return fmt.Errorf("failed to count batch jars: %w", err)
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM batch_recipes WHERE batch_id = ?`, batchID.String); err != nil {
				return fmt.Errorf("failed to delete batch recipe: %w", err)
			}
			result.BatchDeleted = true
		}
		return nil
	})
	return result, err
}

// DeleteBatch removes every jar of a batch and its recipe override. It
// returns the number of jars removed.
func (s *JarStore) DeleteBatch(ctx context.Context, batchID string) (int, error) {
	var removed int
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM jars WHERE batch_id = ?`, batchID)
		if err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("batch", batchID)
		}
		removed = int(n)
		if _, err := tx.ExecContext(ctx, `DELETE FROM batch_recipes WHERE batch_id = ?`, batchID); err != nil {
			return fmt.Errorf("failed to delete batch recipe: %w", err)
		}
		return nil
	})
	return removed, err
}

// UpdateBatch writes the given fields to every jar of the batch and returns
// how many jars changed.
func (s *JarStore) UpdateBatch(ctx context.Context, batchID string, u BatchUpdate) (int, error) {
	var (
		sets []string
		args []any
	)
	if u.FillDate != nil {
		fillDate, err := domain.NormalizeDate(*u.FillDate)
		if err != nil {
			return 0, err
		}
		sets = append(sets, "fill_date = ?")
		args = append(args, fillDate)
	}
	if u.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, nullable(strings.TrimSpace(*u.Location)))
	}
	if u.RecipeID != nil && u.ClearRecipe {
		return 0, domain.InvalidArgumentf("cannot both link and clear a recipe")
	}
	if u.FillDate == nil && u.JarSize == nil && u.Location == nil && u.RecipeID == nil && !u.ClearRecipe {
		return 0, domain.InvalidArgumentf("nothing to update")
	}

	var changed int
	err := s.h.Write(ctx, func(tx *sql.Tx) error {
		setClauses := append([]string(nil), sets...)
		setArgs := append([]any(nil), args...)

		if u.JarSize != nil {
			size, err := resolveJarSize(ctx, tx, *u.JarSize)
			if err != nil {
				return err
			}
			setClauses = append(setClauses, "jar_size = ?")
			setArgs = append(setArgs, nullable(size))
		}
		if u.RecipeID != nil {
			if err := s.linkRecipe(ctx, tx, u.RecipeID); err != nil {
				return err
			}
			setClauses = append(setClauses, "recipe_id = ?")
			setArgs = append(setArgs, *u.RecipeID)
		}
		if u.ClearRecipe {
			setClauses = append(setClauses, "recipe_id = NULL")
		}

		setArgs = append(setArgs, batchID)
		res, err := tx.ExecContext(ctx,
			"UPDATE jars SET "+strings.Join(setClauses, ", ")+" WHERE batch_id = ?",
			setArgs...,
		)
		if err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("batch", batchID)
		}
		changed = int(n)
		return nil
	})
	return changed, err
}

func (s *JarStore) GetJar(ctx context.Context, id int64) (*domain.Jar, error) {
	var j *domain.Jar
	err := s.h.Read(ctx, func(q db.Queryer) error {
		var err error
		j, err = scanJar(q.QueryRowContext(ctx, `SELECT `+jarColumns+` FROM jars WHERE id = ?`, id).Scan)
		if err == sql.ErrNoRows {
			j = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get jar: %w", err)
		}
		return nil
	})
	return j, err
}

func firstJarOfBatch(ctx context.Context, q db.Queryer, batchID string) (*domain.Jar, error) {
	j, err := scanJar(q.QueryRowContext(ctx,
		`SELECT `+jarColumns+` FROM jars WHERE batch_id = ? ORDER BY id ASC LIMIT 1`, batchID,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return j, nil
}

// ListByBatch returns the jars of a batch in id order.
func (s *JarStore) ListByBatch(ctx context.Context, batchID string) ([]*domain.Jar, error) {
	return s.listJars(ctx, `WHERE batch_id = ?`, batchID)
}

// ListByItemType returns every jar of an item type in id order.
func (s *JarStore) ListByItemType(ctx context.Context, itemTypeID int64) ([]*domain.Jar, error) {
	return s.listJars(ctx, `WHERE item_type_id = ?`, itemTypeID)
}

func (s *JarStore) listJars(ctx context.Context, where string, args ...any) ([]*domain.Jar, error) {
	var jars []*domain.Jar
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `SELECT `+jarColumns+` FROM jars `+where+` ORDER BY id ASC`, args...)
		if err != nil {
			return fmt.Errorf("failed to list jars: %w", err)
		}
		defer rows.Close()

		jars = nil
		for rows.Next() {
			j, err := scanJar(rows.Scan)
			if err != nil {
				return fmt.Errorf("failed to scan jar: %w", err)
			}
			jars = append(jars, j)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating jars: %w", err)
		}
		return nil
	})
	return jars, err
}

// ListBatches groups every jar into its batch, newest fill date first.
func (s *JarStore) ListBatches(ctx context.Context) ([]*domain.Batch, error) {
	return s.queryBatches(ctx, "")
}

// GetBatch returns the batch view for batchID, or nil when it has no jars.
func (s *JarStore) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batches, err := s.queryBatches(ctx, "WHERE j.batch_id = ?", batchID)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return batches[0], nil
}

// queryBatches reads jars joined to their item type in id order, so the
// first jar seen for each batch is its lowest-id jar and supplies the
// batch's display attributes.
func (s *JarStore) queryBatches(ctx context.Context, where string, args ...any) ([]*domain.Batch, error) {
	var batches []*domain.Batch
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `
			SELECT j.id, j.item_type_id, COALESCE(j.batch_id, ''), j.fill_date, j.used,
			       j.jar_size, j.location, j.recipe_id,
			       t.name, COALESCE(t.category, ''), t.notes
			FROM jars j
			JOIN item_types t ON t.id = j.item_type_id
			`+where+`
			ORDER BY j.id ASC
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to list batches: %w", err)
		}
		defer rows.Close()

		type key struct {
			itemTypeID int64
			batchID    string
		}
		index := make(map[key]*domain.Batch)
		batches = nil
		for rows.Next() {
			var (
				jarID, itemTypeID int64
				batchID, fillDate string
				used              bool
				jarSize, location sql.NullString
				recipeID          sql.NullInt64
				name, category    string
				notes             sql.NullString
			)
			if err := rows.Scan(&jarID, &itemTypeID, &batchID, &fillDate, &used,
				&jarSize, &location, &recipeID, &name, &category, &notes); err != nil {
				return fmt.Errorf("failed to scan batch jar: %w", err)
			}

			k := key{itemTypeID: itemTypeID, batchID: batchID}
			b, ok := index[k]
			if !ok {
				if category == "" {
					category = domain.DefaultCategory
				}
				b = &domain.Batch{
					BatchID:    batchID,
					ItemTypeID: itemTypeID,
					Name:       name,
					Category:   category,
					Notes:      notes.String,
					FillDate:   fillDate,
					JarSize:    jarSize.String,
					Location:   location.String,
					RecipeID:   idPtr(recipeID),
				}
				index[k] = b
				batches = append(batches, b)
			}
			b.TotalJars++
			if used {
				b.UsedJars++
			}
			b.JarIDs = append(b.JarIDs, jarID)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating batch jars: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, b := range batches {
		b.AvailableJars = b.TotalJars - b.UsedJars
	}
	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].FillDate != batches[j].FillDate {
			return batches[i].FillDate > batches[j].FillDate
		}
		return batches[i].JarIDs[0] > batches[j].JarIDs[0]
	})
	return batches, nil
}
