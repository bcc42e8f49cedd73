package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/jartrack/internal/domain"
)

func TestCreateBatch(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Strawberry Jam", "jams")

	created, err := s.jars.CreateBatch(ctx, NewBatch{
		ItemTypeID: it.ID,
		FillDate:   "2024-06-15",
		Quantity:   6,
		JarSize:    "8 oz",
		Location:   " Basement ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.BatchID)
	require.Len(t, created.JarIDs, 6)

	jars, err := s.jars.ListByBatch(ctx, created.BatchID)
	require.NoError(t, err)
	require.Len(t, jars, 6)
	for _, j := range jars {
		assert.Equal(t, it.ID, j.ItemTypeID)
		assert.Equal(t, "2024-06-15", j.FillDate)
		assert.Equal(t, "8 oz", j.JarSize)
		assert.Equal(t, "Basement", j.Location)
		assert.False(t, j.Used)
		assert.Empty(t, j.UsedDate)
		assert.Nil(t, j.RecipeID)
	}
}

func TestCreateBatchValidation(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Strawberry Jam", "jams")

	tests := []struct {
		name  string
		batch NewBatch
		want  error
	}{
		{"zero quantity", NewBatch{ItemTypeID: it.ID, FillDate: "2024-06-15", Quantity: 0}, domain.ErrInvalidArgument},
		{"over maximum", NewBatch{ItemTypeID: it.ID, FillDate: "2024-06-15", Quantity: DefaultMaxBatchQuantity + 1}, domain.ErrInvalidArgument},
		{"bad date", NewBatch{ItemTypeID: it.ID, FillDate: "15/06/2024", Quantity: 1}, domain.ErrValidation},
		{"unknown item type", NewBatch{ItemTypeID: 9999, FillDate: "2024-06-15", Quantity: 1}, domain.ErrNotFound},
		{"unknown jar size", NewBatch{ItemTypeID: it.ID, FillDate: "2024-06-15", Quantity: 1, JarSize: "bucket"}, domain.ErrValidation},
		{"unknown recipe", NewBatch{ItemTypeID: it.ID, FillDate: "2024-06-15", Quantity: 1, RecipeID: ptr(int64(77))}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.jars.CreateBatch(ctx, tt.batch)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stats, err := s.stats.JarStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestCreateBatchIsAtomic(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Bread and Butter Pickles", "pickles")

	s.exec(t, `
		CREATE TRIGGER fail_third_jar BEFORE INSERT ON jars
		WHEN (SELECT COUNT(*) FROM jars WHERE batch_id = NEW.batch_id) >= 2
		BEGIN SELECT RAISE(ABORT, 'simulated failure'); END
	`)

	_, err := s.jars.CreateBatch(ctx, NewBatch{ItemTypeID: it.ID, FillDate: "2024-07-04", Quantity: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionFailed)

	jars, err := s.jars.ListByItemType(ctx, it.ID)
	require.NoError(t, err)
	assert.Empty(t, jars)
}

func TestCreateBatchByItemTypeName(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()

	created, err := s.jars.CreateBatch(ctx, NewBatch{
		ItemTypeName: "Pepper Jelly",
		Category:     "jams",
		FillDate:     "2024-08-20",
		Quantity:     2,
	})
	require.NoError(t, err)
	require.NotNil(t, created.ItemType)
	assert.Equal(t, "Pepper Jelly", created.ItemType.Name)
	assert.Equal(t, "jams", created.ItemType.Category)

	again, err := s.jars.CreateBatch(ctx, NewBatch{ItemTypeName: "pepper jelly", FillDate: "2024-08-21", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, created.ItemType.ID, again.ItemType.ID)
}

func TestCreateBatchByItemTypeNameRollsBackItemType(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()

	_, err := s.jars.CreateBatch(ctx, NewBatch{
		ItemTypeName: "Bad Size Salsa",
		FillDate:     "2024-07-01",
		Quantity:     2,
		JarSize:      "gallon bucket",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	s.exec(t, `
		CREATE TRIGGER fail_jar_insert BEFORE INSERT ON jars
		BEGIN SELECT RAISE(ABORT, 'simulated failure'); END
	`)
	_, err = s.jars.CreateBatch(ctx, NewBatch{ItemTypeName: "Ghost Jam", FillDate: "2024-07-01", Quantity: 3})
	assert.ErrorIs(t, err, domain.ErrTransactionFailed)

	types, err := s.itemTypes.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestCreateJarIsBatchOfOne(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Chili", "soups")

	id, err := s.jars.CreateJar(ctx, it.ID, "2024-01-10", "", "")
	require.NoError(t, err)

	j, err := s.jars.GetJar(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, j)
	b, err := s.jars.GetBatch(ctx, j.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, b.TotalJars)
}

func TestCreateBatchTouchesLinkedRecipe(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	s.jars.now = fixedClock(t, "2024-08-20T12:00:00Z")
	it := s.itemType(t, "Salsa Verde", "sauces")
	r, err := s.recipes.Create(ctx, "Tomatillo Salsa", "tomatillos, onion", "")
	require.NoError(t, err)
	assert.Empty(t, r.LastUsedDate)

	_, err = s.jars.CreateBatch(ctx, NewBatch{ItemTypeID: it.ID, FillDate: "2024-08-20", Quantity: 2, RecipeID: &r.ID})
	require.NoError(t, err)

	got, err := s.recipes.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-08-20T12:00:00Z", got.LastUsedDate)
}

func TestAddJarsToBatchInheritsAttributes(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Peach Slices", "fruits")
	created := s.batch(t, it.ID, "2024-08-01", 2)

	ids, err := s.jars.AddJarsToBatch(ctx, created.BatchID, AddJars{ItemTypeID: it.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	other := "Garage"
	_, err = s.jars.AddJarsToBatch(ctx, created.BatchID, AddJars{Quantity: 1, Location: &other})
	require.NoError(t, err)

	b, err := s.jars.GetBatch(ctx, created.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 6, b.TotalJars)
	assert.Equal(t, 6, b.AvailableJars)
	assert.Equal(t, "Pantry", b.Location)

	jars, err := s.jars.ListByBatch(ctx, created.BatchID)
	require.NoError(t, err)
	for _, j := range jars[:5] {
		assert.Equal(t, "16 oz (pint)", j.JarSize)
		assert.Equal(t, "Pantry", j.Location)
		assert.Equal(t, "2024-08-01", j.FillDate)
	}
	assert.Equal(t, "Garage", jars[5].Location)
}

func TestAddJarsToBatchErrors(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Peach Slices", "fruits")
	other := s.itemType(t, "Pear Slices", "fruits")
	created := s.batch(t, it.ID, "2024-08-01", 2)

	_, err := s.jars.AddJarsToBatch(ctx, "missing", AddJars{Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.jars.AddJarsToBatch(ctx, created.BatchID, AddJars{ItemTypeID: other.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.jars.AddJarsToBatch(ctx, created.BatchID, AddJars{Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMarkUsed(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	s.jars.now = fixedClock(t, "2024-12-01T18:30:00Z")
	it := s.itemType(t, "Beef Stew", "meats")
	created := s.batch(t, it.ID, "2024-10-01", 1)
	jarID := created.JarIDs[0]

	res, err := s.jars.MarkUsed(ctx, jarID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "2024-12-01T18:30:00Z", res.UsedDate)

	s.jars.now = fixedClock(t, "2025-01-05T09:00:00Z")
	res, err = s.jars.MarkUsed(ctx, jarID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already used")

	j, err := s.jars.GetJar(ctx, jarID)
	require.NoError(t, err)
	assert.True(t, j.Used)
	assert.Equal(t, "2024-12-01T18:30:00Z", j.UsedDate)

	_, err = s.jars.MarkUsed(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteJarReportsBatchDeletionOnLastJar(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Corn Relish", "pickles")
	created := s.batch(t, it.ID, "2024-08-12", 3)
	require.NoError(t, s.recipes.SetBatchRecipe(ctx, created.BatchID, "half the vinegar", ""))

	for i, id := range created.JarIDs {
		res, err := s.jars.DeleteJar(ctx, id)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, created.BatchID, res.BatchID)
		assert.Equal(t, i == len(created.JarIDs)-1, res.BatchDeleted, "jar %d", i)
	}

	b, err := s.jars.GetBatch(ctx, created.BatchID)
	require.NoError(t, err)
	assert.Nil(t, b)

	override, err := s.recipes.GetBatchRecipe(ctx, created.BatchID)
	require.NoError(t, err)
	assert.Nil(t, override)

	_, err = s.jars.DeleteJar(ctx, created.JarIDs[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBatch(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Corn Relish", "pickles")
	created := s.batch(t, it.ID, "2024-08-12", 4)
	kept := s.batch(t, it.ID, "2024-08-13", 1)

	removed, err := s.jars.DeleteBatch(ctx, created.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	batches, err := s.jars.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, kept.BatchID, batches[0].BatchID)

	_, err = s.jars.DeleteBatch(ctx, created.BatchID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateBatchWritesThrough(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Grape Jelly", "jams")
	created := s.batch(t, it.ID, "2024-09-01", 3)
	r, err := s.recipes.Create(ctx, "Concord Jelly", "grapes, pectin", "")
	require.NoError(t, err)

	size, loc, fill := "8 oz", "Cellar", "2024-09-02"
	n, err := s.jars.UpdateBatch(ctx, created.BatchID, BatchUpdate{FillDate: &fill, JarSize: &size, Location: &loc, RecipeID: &r.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	jars, err := s.jars.ListByBatch(ctx, created.BatchID)
	require.NoError(t, err)
	for _, j := range jars {
		assert.Equal(t, "2024-09-02", j.FillDate)
		assert.Equal(t, "8 oz", j.JarSize)
		assert.Equal(t, "Cellar", j.Location)
		require.NotNil(t, j.RecipeID)
		assert.Equal(t, r.ID, *j.RecipeID)
	}

	_, err = s.jars.UpdateBatch(ctx, created.BatchID, BatchUpdate{ClearRecipe: true})
	require.NoError(t, err)
	b, err := s.jars.GetBatch(ctx, created.BatchID)
	require.NoError(t, err)
	assert.Nil(t, b.RecipeID)

	_, err = s.jars.UpdateBatch(ctx, created.BatchID, BatchUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = s.jars.UpdateBatch(ctx, "missing", BatchUpdate{Location: &loc})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBatchesGroupsAndOrders(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	jam := s.itemType(t, "Apricot Jam", "jams")
	soup := s.itemType(t, "Lentil Soup", "soups")

	older := s.batch(t, jam.ID, "2023-07-01", 4)
	newer := s.batch(t, soup.ID, "2024-02-10", 2)
	sameDay := s.batch(t, jam.ID, "2024-02-10", 1)

	_, err := s.jars.MarkUsed(ctx, older.JarIDs[0])
	require.NoError(t, err)
	_, err = s.jars.MarkUsed(ctx, older.JarIDs[1])
	require.NoError(t, err)

	batches, err := s.jars.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, sameDay.BatchID, batches[0].BatchID)
	assert.Equal(t, newer.BatchID, batches[1].BatchID)
	assert.Equal(t, older.BatchID, batches[2].BatchID)

	b := batches[2]
	assert.Equal(t, "Apricot Jam", b.Name)
	assert.Equal(t, "jams", b.Category)
	assert.Equal(t, 4, b.TotalJars)
	assert.Equal(t, 2, b.UsedJars)
	assert.Equal(t, 2, b.AvailableJars)
	assert.Equal(t, older.JarIDs, b.JarIDs)

	for _, b := range batches {
		assert.Equal(t, b.TotalJars, b.UsedJars+b.AvailableJars)
	}
}

func TestGetBatchMissing(t *testing.T) {
	s := openTestStores(t)
	b, err := s.jars.GetBatch(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func ptr[T any](v T) *T { return &v }
