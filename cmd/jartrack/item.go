package main

import (
	"github.com/spf13/cobra"

	"github.com/vbonduro/jartrack/internal/domain"
)

func newItemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "item",
		Aliases: []string{"items"},
		Short:   "Manage item types",
	}
	cmd.AddCommand(
		newItemListCmd(a),
		newItemShowCmd(a),
		newItemSaveCmd(a),
		newItemDeleteCmd(a),
	)
	return cmd
}

func newItemListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List item types with their stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stock, err := a.inventory.ItemStock(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(stock, func() error {
				if len(stock) == 0 {
					return a.printf("No item types found.\n")
				}
				rows := make([][]string, 0, len(stock))
				for _, s := range stock {
					rows = append(rows, []string{itoa(s.ItemTypeID), s.Name, s.Category, itoa(s.Available), itoa(s.Used), itoa(s.Total)})
				}
				return a.table("ID\tNAME\tCATEGORY\tLEFT\tUSED\tTOTAL", rows)
			})
		},
	}
}

func newItemShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ITEM_ID",
		Short: "Show an item type and its jars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item type", args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			t, err := a.inventory.GetItemType(ctx, id)
			if err != nil {
				return err
			}
			jars, err := a.inventory.ListItemTypeJars(ctx, id)
			if err != nil {
				return err
			}
			out := struct {
				ItemType *domain.ItemType
				Jars     []*domain.Jar
			}{t, jars}
			return a.emit(out, func() error {
				if err := a.printf("%d  %s (%s)\n", t.ID, t.Name, t.Category); err != nil {
					return err
				}
				if t.Notes != "" {
					if err := a.printf("notes: %s\n", t.Notes); err != nil {
						return err
					}
				}
				rows := make([][]string, 0, len(jars))
				for _, j := range jars {
					rows = append(rows, []string{"#" + itoa(j.ID), j.BatchID, j.FillDate, jarState(j)})
				}
				return a.table("JAR\tBATCH\tFILLED\tSTATE", rows)
			})
		},
	}
}

func newItemSaveCmd(a *app) *cobra.Command {
	var (
		id                                   int64
		category, notes, recipe, recipeImage string
	)
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Create an item type, or update it with --id",
		Long: `Save creates an item type. With --id it renames the existing item type
to NAME and changes only the fields given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := &domain.ItemType{}
			if id != 0 {
				current, err := a.inventory.GetItemType(cmd.Context(), id)
				if err != nil {
					return err
				}
				t = current
			}
			t.Name = args[0]
			flags := cmd.Flags()
			if flags.Changed("category") {
				t.Category = category
			}
			if flags.Changed("notes") {
				t.Notes = notes
			}
			if flags.Changed("recipe-text") {
				t.Recipe = recipe
			}
			if flags.Changed("recipe-image") {
				t.RecipeImage = recipeImage
			}
			saved, err := a.inventory.SaveItemType(cmd.Context(), t)
			if err != nil {
				return err
			}
			return a.emit(saved, func() error {
				return a.printf("Saved item type %d: %s (%s)\n", saved.ID, saved.Name, saved.Category)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "id of the item type to update")
	cmd.Flags().StringVar(&category, "category", "", "category (default: other)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&recipe, "recipe-text", "", "recipe text kept on the item type")
	cmd.Flags().StringVar(&recipeImage, "recipe-image", "", "recipe image reference kept on the item type")
	return cmd
}

func newItemDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ITEM_ID",
		Short: "Delete an item type and every jar of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item type", args[0])
			if err != nil {
				return err
			}
			n, err := a.inventory.DeleteItemType(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(map[string]any{"itemTypeId": id, "jarsDeleted": n}, func() error {
				return a.printf("Deleted item type %d and %d jar(s)\n", id, n)
			})
		},
	}
}
