package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/jartrack/internal/domain"
)

func useJars(t *testing.T, s *testStores, at string, ids ...int64) {
	t.Helper()
	s.jars.now = fixedClock(t, at)
	for _, id := range ids {
		res, err := s.jars.MarkUsed(context.Background(), id)
		require.NoError(t, err)
		require.True(t, res.Success)
	}
}

func TestJarStatsInvariant(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()

	stats, err := s.stats.JarStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.JarStats{}, stats)

	it := s.itemType(t, "Apple Butter", "fruits")
	created := s.batch(t, it.ID, "2024-10-01", 5)
	useJars(t, s, "2024-11-01T00:00:00Z", created.JarIDs[:2]...)

	stats, err = s.stats.JarStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.JarStats{Total: 5, Available: 3, Used: 2}, stats)
}

func TestRunningLowAndOutOfStock(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()

	low := s.itemType(t, "Cherry Pie Filling", "fruits")
	gone := s.itemType(t, "Bean Soup", "soups")
	plenty := s.itemType(t, "Dill Pickles", "pickles")
	s.itemType(t, "Never Canned", "other")

	lowBatch := s.batch(t, low.ID, "2024-07-01", 5)
	goneBatch := s.batch(t, gone.ID, "2024-07-01", 2)
	s.batch(t, plenty.ID, "2024-07-01", 5)

	useJars(t, s, "2024-08-01T00:00:00Z", lowBatch.JarIDs[:4]...)
	useJars(t, s, "2024-08-01T00:00:00Z", goneBatch.JarIDs...)

	running, err := s.stats.RunningLow(ctx, 2)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "Cherry Pie Filling", running[0].Name)
	assert.Equal(t, 1, running[0].Available)

	out, err := s.stats.OutOfStock(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Bean Soup", out[0].Name)

	stock, err := s.stats.ItemStock(ctx)
	require.NoError(t, err)
	assert.Len(t, stock, 4)
	for _, is := range stock {
		assert.Equal(t, is.Total, is.Used+is.Available)
	}

	_, err = s.stats.RunningLow(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRunningLowBoundary(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()

	it := s.itemType(t, "Peach Salsa", "sauces")
	created := s.batch(t, it.ID, "2024-07-01", 5)

	useJars(t, s, "2024-08-01T00:00:00Z", created.JarIDs[:3]...)
	running, err := s.stats.RunningLow(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, running, 1)

	useJars(t, s, "2024-08-02T00:00:00Z", created.JarIDs[3:]...)
	running, err = s.stats.RunningLow(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestYearlyAndMonthlyTotals(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Corn", "vegetables")

	a := s.batch(t, it.ID, "2023-08-15", 4)
	b := s.batch(t, it.ID, "2024-08-20", 3)
	useJars(t, s, "2024-01-10T12:00:00Z", a.JarIDs[:2]...)
	useJars(t, s, "2024-09-05T12:00:00Z", b.JarIDs[0])

	yearly, err := s.stats.YearlyTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PeriodTotals{
		{Period: "2023", Canned: 4, Used: 0},
		{Period: "2024", Canned: 3, Used: 3},
	}, yearly)

	monthly, err := s.stats.MonthlyTotals(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, monthly, 12)
	assert.Equal(t, domain.PeriodTotals{Period: "2024-01", Used: 2}, monthly[0])
	assert.Equal(t, domain.PeriodTotals{Period: "2024-08", Canned: 3}, monthly[7])
	assert.Equal(t, domain.PeriodTotals{Period: "2024-09", Used: 1}, monthly[8])
	assert.Equal(t, domain.PeriodTotals{Period: "2024-12"}, monthly[11])

	_, err = s.stats.MonthlyTotals(ctx, "24")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUsedTotalsBucketByUTC(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	b := s.batch(t, s.itemType(t, "Eggnog Jam", "jams").ID, "2024-11-01", 1)

	useJars(t, s, "2024-12-31T21:30:00-05:00", b.JarIDs[0])

	jar, err := s.jars.GetJar(ctx, b.JarIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T02:30:00Z", jar.UsedDate)

	yearly, err := s.stats.YearlyTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PeriodTotals{
		{Period: "2024", Canned: 1},
		{Period: "2025", Used: 1},
	}, yearly)
}

func TestCategoryAndItemTypeBreakdown(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	jam := s.itemType(t, "Fig Jam", "jams")
	jelly := s.itemType(t, "Mint Jelly", "jams")
	soup := s.itemType(t, "Squash Soup", "soups")

	_, err := s.jars.CreateBatch(ctx, NewBatch{ItemTypeID: jam.ID, FillDate: "2024-09-01", Quantity: 3, JarSize: "8 oz"})
	require.NoError(t, err)
	_, err = s.jars.CreateBatch(ctx, NewBatch{ItemTypeID: jelly.ID, FillDate: "2024-09-02", Quantity: 2, JarSize: "4 oz"})
	require.NoError(t, err)
	soupBatch, err := s.jars.CreateBatch(ctx, NewBatch{ItemTypeID: soup.ID, FillDate: "2023-10-01", Quantity: 4, JarSize: "32 oz (quart)"})
	require.NoError(t, err)
	useJars(t, s, "2024-02-01T00:00:00Z", soupBatch.JarIDs[0])

	canned, err := s.stats.CategoryBreakdown(ctx, domain.DimensionCanned, "")
	require.NoError(t, err)
	require.Len(t, canned, 2)
	assert.Equal(t, "jams", canned[0].Key)
	assert.Equal(t, 5, canned[0].Count)
	assert.Equal(t, []domain.SizeCount{{JarSize: "8 oz", Count: 3}, {JarSize: "4 oz", Count: 2}}, canned[0].Sizes)
	assert.Equal(t, "soups", canned[1].Key)

	canned2024, err := s.stats.CategoryBreakdown(ctx, domain.DimensionCanned, "2024")
	require.NoError(t, err)
	require.Len(t, canned2024, 1)
	assert.Equal(t, "jams", canned2024[0].Key)

	used, err := s.stats.CategoryBreakdown(ctx, domain.DimensionUsed, "2024")
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.Equal(t, "soups", used[0].Key)
	assert.Equal(t, 1, used[0].Count)

	items, err := s.stats.ItemTypeBreakdown(ctx, domain.DimensionCanned, "")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Squash Soup", items[0].Key)
	assert.Equal(t, soup.ID, items[0].ItemTypeID)
	assert.Equal(t, 4, items[0].Count)

	_, err = s.stats.CategoryBreakdown(ctx, domain.Dimension("eaten"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLocations(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()
	it := s.itemType(t, "Pesto", "sauces")

	_, err := s.jars.CreateBatch(ctx, NewBatch{ItemTypeID: it.ID, FillDate: "2024-07-01", Quantity: 3, Location: "Freezer"})
	require.NoError(t, err)
	_, err = s.jars.CreateBatch(ctx, NewBatch{ItemTypeID: it.ID, FillDate: "2024-07-02", Quantity: 1})
	require.NoError(t, err)

	locations, err := s.stats.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.LocationStock{
		{Location: "Freezer", Available: 3},
		{Location: "", Available: 1},
	}, locations)
}
