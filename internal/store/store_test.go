package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

// testStores bundles every store over one seeded in-memory database.
type testStores struct {
	h          *db.Handle
	categories *CategoryStore
	jarSizes   *JarSizeStore
	itemTypes  *ItemTypeStore
	jars       *JarStore
	recipes    *RecipeStore
	stats      *StatsStore
	backups    *BackupStore
}

func openTestStores(t *testing.T) *testStores {
	t.Helper()
	h, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	s := &testStores{
		h:          h,
		categories: NewCategoryStore(h),
		jarSizes:   NewJarSizeStore(h),
		itemTypes:  NewItemTypeStore(h),
		jars:       NewJarStore(h, 0),
		recipes:    NewRecipeStore(h),
		stats:      NewStatsStore(h),
		backups:    NewBackupStore(h),
	}
	ctx := context.Background()
	_, err = s.categories.SeedDefaults(ctx)
	require.NoError(t, err)
	_, err = s.jarSizes.SeedDefaults(ctx)
	require.NoError(t, err)
	return s
}

// fixedClock returns a clock pinned to the given RFC 3339 instant.
func fixedClock(t *testing.T, at string) func() time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, at)
	require.NoError(t, err)
	return func() time.Time { return ts }
}

func (s *testStores) itemType(t *testing.T, name, category string) *domain.ItemType {
	t.Helper()
	it, err := s.itemTypes.FindOrCreate(context.Background(), name, category)
	require.NoError(t, err)
	return it
}

func (s *testStores) batch(t *testing.T, itemTypeID int64, fillDate string, quantity int) *BatchCreated {
	t.Helper()
	created, err := s.jars.CreateBatch(context.Background(), NewBatch{
		ItemTypeID: itemTypeID,
		FillDate:   fillDate,
		Quantity:   quantity,
		JarSize:    "16 oz (pint)",
		Location:   "Pantry",
	})
	require.NoError(t, err)
	return created
}

func (s *testStores) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := s.h.DB().Exec(query, args...)
	require.NoError(t, err)
}
