package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
)

// StatsStore answers aggregate questions over jars. Dates are stored as ISO
// text, so years and months are taken as string prefixes.
type StatsStore struct {
	h *db.Handle
}

func NewStatsStore(h *db.Handle) *StatsStore {
	return &StatsStore{h: h}
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

func (s *StatsStore) JarStats(ctx context.Context) (domain.JarStats, error) {
	var stats domain.JarStats
	err := s.h.Read(ctx, func(q db.Queryer) error {
		if err := q.QueryRowContext(ctx, `
			SELECT COUNT(*), COALESCE(SUM(used), 0) FROM jars
		`).Scan(&stats.Total, &stats.Used); err != nil {
			return fmt.Errorf("failed to count jars: %w", err)
		}
		return nil
	})
	stats.Available = stats.Total - stats.Used
	return stats, err
}

// ItemStock returns stock levels for every item type, including those with
// no jars.
func (s *StatsStore) ItemStock(ctx context.Context) ([]domain.ItemStock, error) {
	var stock []domain.ItemStock
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `
			SELECT t.id, t.name, COALESCE(t.category, ''), COUNT(j.id), COALESCE(SUM(j.used), 0)
			FROM item_types t
			LEFT JOIN jars j ON j.item_type_id = t.id
			GROUP BY t.id
			ORDER BY t.name COLLATE NOCASE ASC
		`)
		if err != nil {
			return fmt.Errorf("failed to query item stock: %w", err)
		}
		defer rows.Close()

		stock = nil
		for rows.Next() {
			var is domain.ItemStock
			if err := rows.Scan(&is.ItemTypeID, &is.Name, &is.Category, &is.Total, &is.Used); err != nil {
				return fmt.Errorf("failed to scan item stock: %w", err)
			}
			if is.Category == "" {
				is.Category = domain.DefaultCategory
			}
			is.Available = is.Total - is.Used
			stock = append(stock, is)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating item stock: %w", err)
		}
		return nil
	})
	return stock, err
}

// RunningLow returns item types with some jars left but no more than
// threshold.
func (s *StatsStore) RunningLow(ctx context.Context, threshold int) ([]domain.ItemStock, error) {
	if threshold < 1 {
		return nil, domain.InvalidArgumentf("threshold must be at least 1, got %d", threshold)
	}
	return s.filterStock(ctx, func(is domain.ItemStock) bool {
		return is.Available > 0 && is.Available <= threshold
	})
}

// OutOfStock returns item types that have jars but none available.
func (s *StatsStore) OutOfStock(ctx context.Context) ([]domain.ItemStock, error) {
	return s.filterStock(ctx, func(is domain.ItemStock) bool {
		return is.Total > 0 && is.Available == 0
	})
}

func (s *StatsStore) filterStock(ctx context.Context, keep func(domain.ItemStock) bool) ([]domain.ItemStock, error) {
	stock, err := s.ItemStock(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.ItemStock
	for _, is := range stock {
		if keep(is) {
			out = append(out, is)
		}
	}
	return out, nil
}

// YearlyTotals counts jars canned (by fill year) and used (by used year),
// oldest year first. Used dates are stored in UTC and bucketed as stored.
func (s *StatsStore) YearlyTotals(ctx context.Context) ([]domain.PeriodTotals, error) {
	var totals map[string]*domain.PeriodTotals
	err := s.h.Read(ctx, func(q db.Queryer) error {
		totals = make(map[string]*domain.PeriodTotals)
		if err := countByPeriod(ctx, q, totals, false, `
			SELECT substr(fill_date, 1, 4), COUNT(*) FROM jars GROUP BY 1
		`); err != nil {
			return err
		}
		return countByPeriod(ctx, q, totals, true, `
			SELECT substr(used_date, 1, 4), COUNT(*) FROM jars WHERE used = 1 GROUP BY 1
		`)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.PeriodTotals, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

// MonthlyTotals returns twelve entries for year, January first, with zeros
// for months without activity. Used months follow UTC like YearlyTotals.
func (s *StatsStore) MonthlyTotals(ctx context.Context, year string) ([]domain.PeriodTotals, error) {
	if !yearPattern.MatchString(year) {
		return nil, domain.InvalidArgumentf("year must be four digits, got %q", year)
	}

	var totals map[string]*domain.PeriodTotals
	err := s.h.Read(ctx, func(q db.Queryer) error {
		totals = make(map[string]*domain.PeriodTotals)
		if err := countByPeriod(ctx, q, totals, false, `
			SELECT substr(fill_date, 1, 7), COUNT(*) FROM jars
			WHERE substr(fill_date, 1, 4) = ? GROUP BY 1
		`, year); err != nil {
			return err
		}
		return countByPeriod(ctx, q, totals, true, `
			SELECT substr(used_date, 1, 7), COUNT(*) FROM jars
			WHERE used = 1 AND substr(used_date, 1, 4) = ? GROUP BY 1
		`, year)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.PeriodTotals, 12)
	for m := range out {
		period := fmt.Sprintf("%s-%02d", year, m+1)
		out[m] = domain.PeriodTotals{Period: period}
		if t, ok := totals[period]; ok {
			out[m] = *t
		}
	}
	return out, nil
}

func countByPeriod(ctx context.Context, q db.Queryer, totals map[string]*domain.PeriodTotals, used bool, query string, args ...any) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query period totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			period string
			n      int
		)
		if err := rows.Scan(&period, &n); err != nil {
			return fmt.Errorf("failed to scan period totals: %w", err)
		}
		t, ok := totals[period]
		if !ok {
			t = &domain.PeriodTotals{Period: period}
			totals[period] = t
		}
		if used {
			t.Used += n
		} else {
			t.Canned += n
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating period totals: %w", err)
	}
	return nil
}

// CategoryBreakdown counts jars per category with a jar size sub-breakdown.
// An empty year covers all time.
func (s *StatsStore) CategoryBreakdown(ctx context.Context, dim domain.Dimension, year string) ([]domain.GroupTotals, error) {
	return s.breakdown(ctx, dim, year, `0, COALESCE(NULLIF(t.category, ''), '`+domain.DefaultCategory+`')`, "2, 3")
}

// ItemTypeBreakdown counts jars per item type with a jar size sub-breakdown.
func (s *StatsStore) ItemTypeBreakdown(ctx context.Context, dim domain.Dimension, year string) ([]domain.GroupTotals, error) {
	return s.breakdown(ctx, dim, year, `t.id, t.name`, "1, 2, 3")
}

func (s *StatsStore) breakdown(ctx context.Context, dim domain.Dimension, year, groupCols, groupBy string) ([]domain.GroupTotals, error) {
	if !dim.Valid() {
		return nil, domain.InvalidArgumentf("unknown dimension %q", dim)
	}
	if year != "" && !yearPattern.MatchString(year) {
		return nil, domain.InvalidArgumentf("year must be four digits, got %q", year)
	}

	dateCol := "j.fill_date"
	where := "1 = 1"
	if dim == domain.DimensionUsed {
		dateCol = "j.used_date"
		where = "j.used = 1"
	}
	var args []any
	if year != "" {
		where += " AND substr(" + dateCol + ", 1, 4) = ?"
		args = append(args, year)
	}

	var groups []domain.GroupTotals
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `
			SELECT `+groupCols+`, COALESCE(j.jar_size, ''), COUNT(*)
			FROM jars j
			JOIN item_types t ON t.id = j.item_type_id
			WHERE `+where+`
			GROUP BY `+groupBy+`
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to query breakdown: %w", err)
		}
		defer rows.Close()

		index := make(map[string]int)
		groups = nil
		for rows.Next() {
			var (
				id           int64
				key, jarSize string
				n            int
			)
			if err := rows.Scan(&id, &key, &jarSize, &n); err != nil {
				return fmt.Errorf("failed to scan breakdown: %w", err)
			}
			i, ok := index[key]
			if !ok {
				i = len(groups)
				index[key] = i
				groups = append(groups, domain.GroupTotals{Key: key, ItemTypeID: id})
			}
			groups[i].Count += n
			groups[i].Sizes = append(groups[i].Sizes, domain.SizeCount{JarSize: jarSize, Count: n})
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating breakdown: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range groups {
		sizes := groups[i].Sizes
		sort.Slice(sizes, func(a, b int) bool {
			if sizes[a].Count != sizes[b].Count {
				return sizes[a].Count > sizes[b].Count
			}
			return sizes[a].JarSize < sizes[b].JarSize
		})
	}
	sort.Slice(groups, func(a, b int) bool {
		if groups[a].Count != groups[b].Count {
			return groups[a].Count > groups[b].Count
		}
		return groups[a].Key < groups[b].Key
	})
	return groups, nil
}

// Locations returns available jar counts per storage location. Jars without
// a location are reported under the empty string.
func (s *StatsStore) Locations(ctx context.Context) ([]domain.LocationStock, error) {
	var out []domain.LocationStock
	err := s.h.Read(ctx, func(q db.Queryer) error {
		rows, err := q.QueryContext(ctx, `
			SELECT COALESCE(location, ''), COUNT(*) FROM jars
			WHERE used = 0
			GROUP BY 1
			ORDER BY 2 DESC, 1 ASC
		`)
		if err != nil {
			return fmt.Errorf("failed to query locations: %w", err)
		}
		defer rows.Close()

		out = nil
		for rows.Next() {
			var ls domain.LocationStock
			if err := rows.Scan(&ls.Location, &ls.Available); err != nil {
				return fmt.Errorf("failed to scan location: %w", err)
			}
			out = append(out, ls)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating locations: %w", err)
		}
		return nil
	})
	return out, err
}
