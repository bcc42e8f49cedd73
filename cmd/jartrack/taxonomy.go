package main

import (
	"github.com/spf13/cobra"
)

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage item type categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories, defaults first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.catalog.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cats, func() error {
				rows := make([][]string, 0, len(cats))
				for _, c := range cats {
					kind := "custom"
					if c.IsDefault {
						kind = "default"
					}
					rows = append(rows, []string{itoa(c.ID), c.Icon, c.Name, kind})
				}
				return a.table("ID\tICON\tNAME\tKIND", rows)
			})
		},
	}

	var icon string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog.AddCategory(cmd.Context(), args[0], icon)
			if err != nil {
				return err
			}
			return a.emit(c, func() error { return a.printf("Added category %d: %s\n", c.ID, c.Name) })
		},
	}
	add.Flags().StringVar(&icon, "icon", "", "icon shown next to the name")

	var newName, newIcon string
	update := &cobra.Command{
		Use:   "update CATEGORY_ID",
		Short: "Rename a custom category or change its icon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("category", args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cats, err := a.catalog.ListCategories(ctx)
			if err != nil {
				return err
			}
			name, ic := newName, newIcon
			for _, c := range cats {
				if c.ID != id {
					continue
				}
				if !cmd.Flags().Changed("name") {
					name = c.Name
				}
				if !cmd.Flags().Changed("icon") {
					ic = c.Icon
				}
			}
			c, err := a.catalog.UpdateCategory(ctx, id, name, ic)
			if err != nil {
				return err
			}
			return a.emit(c, func() error { return a.printf("Updated category %d: %s\n", c.ID, c.Name) })
		},
	}
	update.Flags().StringVar(&newName, "name", "", "new name")
	update.Flags().StringVar(&newIcon, "icon", "", "new icon")

	cmd.AddCommand(list, add, update, newTaxonomyDeleteCmd(a, "category", a.catalogDeleteCategory))
	return cmd
}

func newSizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "size",
		Aliases: []string{"sizes"},
		Short:   "Manage jar sizes",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List jar sizes in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes, err := a.catalog.ListJarSizes(cmd.Context(), all)
			if err != nil {
				return err
			}
			return a.emit(sizes, func() error {
				rows := make([][]string, 0, len(sizes))
				for _, s := range sizes {
					flags := ""
					if s.IsDefault {
						flags = "default"
					}
					if s.Hidden {
						flags += " hidden"
					}
					rows = append(rows, []string{itoa(s.ID), s.Name, orDash(flags)})
				}
				return a.table("ID\tNAME\tFLAGS", rows)
			})
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include hidden sizes")

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a custom jar size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.catalog.AddJarSize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(s, func() error { return a.printf("Added jar size %d: %s\n", s.ID, s.Name) })
		},
	}

	rename := &cobra.Command{
		Use:   "rename SIZE_ID NAME",
		Short: "Rename a custom jar size and the jars that use it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("jar size", args[0])
			if err != nil {
				return err
			}
			s, err := a.catalog.RenameJarSize(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return a.emit(s, func() error { return a.printf("Renamed jar size %d to %s\n", s.ID, s.Name) })
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle SIZE_ID",
		Short: "Hide a jar size from pickers, or show it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("jar size", args[0])
			if err != nil {
				return err
			}
			s, err := a.catalog.ToggleJarSizeHidden(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(s, func() error {
				state := "visible"
				if s.Hidden {
					state = "hidden"
				}
				return a.printf("Jar size %s is now %s\n", s.Name, state)
			})
		},
	}

	cmd.AddCommand(list, add, rename, toggle, newTaxonomyDeleteCmd(a, "jar size", a.catalogDeleteJarSize))
	return cmd
}

// taxonomyDeleter deletes id, first moving its references to targetID when
// targetID is non-zero, and returns how many references moved.
type taxonomyDeleter func(cmd *cobra.Command, id, targetID int64) (int, error)

func newTaxonomyDeleteCmd(a *app, kind string, del taxonomyDeleter) *cobra.Command {
	var target int64
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a custom " + kind,
		Long: "Delete removes a custom " + kind + ". It is refused while anything still\n" +
			"uses it unless --reassign-to names where those references should move.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(kind, args[0])
			if err != nil {
				return err
			}
			moved, err := del(cmd, id, target)
			if err != nil {
				return err
			}
			return a.emit(map[string]any{"id": id, "reassigned": moved}, func() error {
				if target != 0 {
					return a.printf("Deleted %s %d after moving %d reference(s) to %d\n", kind, id, moved, target)
				}
				return a.printf("Deleted %s %d\n", kind, id)
			})
		},
	}
	cmd.Flags().Int64Var(&target, "reassign-to", 0, "id to move references to before deleting")
	return cmd
}

func (a *app) catalogDeleteCategory(cmd *cobra.Command, id, targetID int64) (int, error) {
	if targetID != 0 {
		return a.catalog.ReassignCategory(cmd.Context(), id, targetID)
	}
	return 0, a.catalog.DeleteCategory(cmd.Context(), id)
}

func (a *app) catalogDeleteJarSize(cmd *cobra.Command, id, targetID int64) (int, error) {
	if targetID != 0 {
		return a.catalog.ReassignJarSize(cmd.Context(), id, targetID)
	}
	return 0, a.catalog.DeleteJarSize(cmd.Context(), id)
}
