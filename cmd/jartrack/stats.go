package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/jartrack/internal/domain"
)

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Stock levels and canning history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.inventory.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(d, func() error {
				if err := a.printf("%d jar(s): %d available, %d used\n", d.Stats.Total, d.Stats.Available, d.Stats.Used); err != nil {
					return err
				}
				if err := a.printStock(fmt.Sprintf("Running low (%d or fewer left):", d.Threshold), d.RunningLow); err != nil {
					return err
				}
				return a.printStock("Out of stock:", d.OutOfStock)
			})
		},
	}
	cmd.AddCommand(
		newStatsLowCmd(a),
		newStatsYearsCmd(a),
		newStatsMonthsCmd(a),
		newStatsBreakdownCmd(a),
		newStatsLocationsCmd(a),
	)
	return cmd
}

func (a *app) printStock(title string, stock []domain.ItemStock) error {
	if len(stock) == 0 {
		return nil
	}
	if err := a.printf("\n%s\n", title); err != nil {
		return err
	}
	rows := make([][]string, 0, len(stock))
	for _, s := range stock {
		rows = append(rows, []string{s.Name, s.Category, itoa(s.Available)})
	}
	return a.table("NAME\tCATEGORY\tLEFT", rows)
}

func newStatsLowCmd(a *app) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "low",
		Short: "Item types running low",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			low, err := a.inventory.RunningLow(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			return a.emit(low, func() error {
				if len(low) == 0 {
					return a.printf("Nothing is running low.\n")
				}
				return a.printStock("Running low:", low)
			})
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "available jars at or below which an item is low (default: configured)")
	return cmd
}

func newStatsYearsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "Jars canned and used per year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			totals, err := a.inventory.YearlyTotals(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(totals, func() error { return a.printTotals("YEAR", totals) })
		},
	}
}

func newStatsMonthsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "months [YEAR]",
		Short: "Jars canned and used per month of a year (default: this year)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := time.Now().Format("2006")
			if len(args) == 1 {
				year = args[0]
			}
			totals, err := a.inventory.MonthlyTotals(cmd.Context(), year)
			if err != nil {
				return err
			}
			return a.emit(totals, func() error { return a.printTotals("MONTH", totals) })
		},
	}
}

func (a *app) printTotals(period string, totals []domain.PeriodTotals) error {
	if len(totals) == 0 {
		return a.printf("No jars recorded.\n")
	}
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{t.Period, itoa(t.Canned), itoa(t.Used)})
	}
	return a.table(period+"\tCANNED\tUSED", rows)
}

func newStatsBreakdownCmd(a *app) *cobra.Command {
	var (
		by   string
		dim  string
		year string
	)
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Jars canned or used grouped by category or item type, with sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := domain.Dimension(dim)
			if !d.Valid() {
				return domain.InvalidArgumentf("--dimension must be canned or used, got %q", dim)
			}
			var (
				groups []domain.GroupTotals
				err    error
			)
			switch by {
			case "category":
				groups, err = a.inventory.CategoryBreakdown(cmd.Context(), d, year)
			case "item":
				groups, err = a.inventory.ItemTypeBreakdown(cmd.Context(), d, year)
			default:
				return domain.InvalidArgumentf("--by must be category or item, got %q", by)
			}
			if err != nil {
				return err
			}
			return a.emit(groups, func() error {
				if len(groups) == 0 {
					return a.printf("No jars recorded.\n")
				}
				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					sizes := make([]string, 0, len(g.Sizes))
					for _, s := range g.Sizes {
						sizes = append(sizes, fmt.Sprintf("%s: %d", orDash(s.JarSize), s.Count))
					}
					rows = append(rows, []string{g.Key, itoa(g.Count), strings.Join(sizes, ", ")})
				}
				return a.table(strings.ToUpper(by)+"\tJARS\tSIZES", rows)
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "category", "group by category or item")
	cmd.Flags().StringVar(&dim, "dimension", string(domain.DimensionCanned), "count jars canned or used")
	cmd.Flags().StringVar(&year, "year", "", "limit to one year")
	return cmd
}

func newStatsLocationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "Available jars per storage location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := a.inventory.Locations(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(locs, func() error {
				if len(locs) == 0 {
					return a.printf("No jars available.\n")
				}
				rows := make([][]string, 0, len(locs))
				for _, l := range locs {
					rows = append(rows, []string{orDash(l.Location), itoa(l.Available)})
				}
				return a.table("LOCATION\tAVAILABLE", rows)
			})
		},
	}
}
