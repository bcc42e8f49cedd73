package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/jartrack/internal/domain"
	"github.com/vbonduro/jartrack/internal/service"
	"github.com/vbonduro/jartrack/internal/store"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Create, list and change batches of jars",
	}
	cmd.AddCommand(
		newBatchAddCmd(a),
		newBatchListCmd(a),
		newBatchShowCmd(a),
		newBatchExtendCmd(a),
		newBatchUpdateCmd(a),
		newBatchDeleteCmd(a),
	)
	return cmd
}

func newBatchAddCmd(a *app) *cobra.Command {
	var (
		req      service.CreateBatchRequest
		recipeID int64
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Record a newly filled batch",
		Long: `Add records QTY jars of NAME filled on DATE as one batch. NAME is
created as an item type in CATEGORY when it does not exist yet.

Example:
  jartrack batch add "Strawberry Jam" --qty 6 --size "8 oz" --category jams
  jartrack batch add Salsa --qty 4 --date 2024-08-01 --location Cellar --recipe 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			if req.FillDate == "" {
				req.FillDate = time.Now().Format("2006-01-02")
			}
			if cmd.Flags().Changed("recipe") {
				req.RecipeID = &recipeID
			}
			b, err := a.inventory.CreateBatch(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.emit(b, func() error {
				return a.printf("Created batch %s: %d jar(s) of %s (#%d-#%d)\n",
					b.BatchID, b.TotalJars, b.Name, b.JarIDs[0], b.JarIDs[len(b.JarIDs)-1])
			})
		},
	}
	cmd.Flags().IntVar(&req.Quantity, "qty", 1, "number of jars")
	cmd.Flags().StringVar(&req.FillDate, "date", "", "fill date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&req.Category, "category", "", "category for a new item type (default: other)")
	cmd.Flags().StringVar(&req.JarSize, "size", "", "jar size")
	cmd.Flags().StringVar(&req.Location, "location", "", "storage location")
	cmd.Flags().Int64Var(&recipeID, "recipe", 0, "recipe id to link")
	return cmd
}

func newBatchListCmd(a *app) *cobra.Command {
	var available bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches, newest fill date first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := a.inventory.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			if available {
				kept := batches[:0]
				for _, b := range batches {
					if b.AvailableJars > 0 {
						kept = append(kept, b)
					}
				}
				batches = kept
			}
			return a.emit(batches, func() error { return a.printBatches(batches) })
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "only batches with jars left")
	return cmd
}

func (a *app) printBatches(batches []*domain.Batch) error {
	if len(batches) == 0 {
		return a.printf("No batches found.\n")
	}
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			b.BatchID, b.Name, b.Category, b.FillDate, orDash(b.JarSize), orDash(b.Location),
			itoa(b.AvailableJars) + "/" + itoa(b.TotalJars),
		})
	}
	if err := a.table("BATCH\tNAME\tCATEGORY\tFILLED\tSIZE\tLOCATION\tLEFT", rows); err != nil {
		return err
	}
	return a.printf("Total: %d batch(es)\n", len(batches))
}

func newBatchShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show BATCH_ID",
		Short: "Show a batch and its jars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := a.inventory.GetBatch(ctx, args[0])
			if err != nil {
				return err
			}
			jars, err := a.inventory.ListBatchJars(ctx, b.BatchID)
			if err != nil {
				return err
			}
			out := struct {
				Batch *domain.Batch
				Jars  []*domain.Jar
			}{b, jars}
			return a.emit(out, func() error {
				if err := a.printf("%s  %s (%s)\nfilled %s, %s, %s, %d of %d left\n",
					b.BatchID, b.Name, b.Category, b.FillDate, orDash(b.JarSize), orDash(b.Location),
					b.AvailableJars, b.TotalJars); err != nil {
					return err
				}
				rows := make([][]string, 0, len(jars))
				for _, j := range jars {
					rows = append(rows, []string{"#" + itoa(j.ID), jarState(j)})
				}
				return a.table("JAR\tSTATE", rows)
			})
		},
	}
}

func newBatchExtendCmd(a *app) *cobra.Command {
	var (
		add      store.AddJars
		size     string
		location string
		recipeID int64
	)
	cmd := &cobra.Command{
		Use:   "extend BATCH_ID",
		Short: "Add jars to an existing batch",
		Long: `Extend appends QTY jars to a batch. Fields not given are copied from
the batch's first jar.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("size") {
				add.JarSize = &size
			}
			if cmd.Flags().Changed("location") {
				add.Location = &location
			}
			if cmd.Flags().Changed("recipe") {
				add.RecipeID = &recipeID
			}
			b, err := a.inventory.AddJarsToBatch(cmd.Context(), args[0], add)
			if err != nil {
				return err
			}
			return a.emit(b, func() error {
				return a.printf("Batch %s now has %d jar(s)\n", b.BatchID, b.TotalJars)
			})
		},
	}
	cmd.Flags().IntVar(&add.Quantity, "qty", 1, "number of jars to add")
	cmd.Flags().StringVar(&add.FillDate, "date", "", "fill date for the new jars")
	cmd.Flags().StringVar(&size, "size", "", "jar size for the new jars")
	cmd.Flags().StringVar(&location, "location", "", "storage location for the new jars")
	cmd.Flags().Int64Var(&recipeID, "recipe", 0, "recipe id for the new jars")
	return cmd
}

func newBatchUpdateCmd(a *app) *cobra.Command {
	var (
		fillDate, size, location string
		recipeID                 int64
		clearRecipe              bool
	)
	cmd := &cobra.Command{
		Use:   "update BATCH_ID",
		Short: "Change the fill date, size, location or recipe of every jar in a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u store.BatchUpdate
			if cmd.Flags().Changed("date") {
				u.FillDate = &fillDate
			}
			if cmd.Flags().Changed("size") {
				u.JarSize = &size
			}
			if cmd.Flags().Changed("location") {
				u.Location = &location
			}
			if cmd.Flags().Changed("recipe") {
				u.RecipeID = &recipeID
			}
			u.ClearRecipe = clearRecipe
			b, err := a.inventory.UpdateBatch(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			return a.emit(b, func() error { return a.printf("Updated batch %s\n", b.BatchID) })
		},
	}
	cmd.Flags().StringVar(&fillDate, "date", "", "new fill date")
	cmd.Flags().StringVar(&size, "size", "", "new jar size")
	cmd.Flags().StringVar(&location, "location", "", "new storage location")
	cmd.Flags().Int64Var(&recipeID, "recipe", 0, "recipe id to link")
	cmd.Flags().BoolVar(&clearRecipe, "clear-recipe", false, "unlink the recipe")
	cmd.MarkFlagsMutuallyExclusive("recipe", "clear-recipe")
	return cmd
}

func newBatchDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete BATCH_ID",
		Short: "Delete a batch and all of its jars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.inventory.DeleteBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(map[string]any{"batchId": args[0], "jarsDeleted": n}, func() error {
				return a.printf("Deleted batch %s (%d jar(s))\n", args[0], n)
			})
		},
	}
}
