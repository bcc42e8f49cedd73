package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vbonduro/jartrack/internal/domain"
)

func newRecipeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recipe",
		Aliases: []string{"recipes"},
		Short:   "Manage recipes and per-batch recipe overrides",
	}
	cmd.AddCommand(
		newRecipeAddCmd(a),
		newRecipeListCmd(a),
		newRecipeShowCmd(a),
		newRecipeUpdateCmd(a),
		newRecipeDeleteCmd(a),
		newRecipeImageCmd(a),
		newRecipeResolveCmd(a),
		newRecipeOverrideCmd(a),
	)
	return cmd
}

// contentArg returns the --content value, or the file named by --file.
func contentArg(cmd *cobra.Command, content, file string) (string, error) {
	if file == "" {
		return content, nil
	}
	if cmd.Flags().Changed("content") {
		return "", domain.InvalidArgumentf("use either --content or --file")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read recipe file: %w", err)
	}
	return string(data), nil
}

func newRecipeAddCmd(a *app) *cobra.Command {
	var content, file string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := contentArg(cmd, content, file)
			if err != nil {
				return err
			}
			r, err := a.catalog.CreateRecipe(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			return a.emit(r, func() error { return a.printf("Created recipe %d: %s\n", r.ID, r.Name) })
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "recipe text")
	cmd.Flags().StringVar(&file, "file", "", "read the recipe text from a file")
	return cmd
}

func newRecipeListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recipes, err := a.catalog.ListRecipes(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(recipes, func() error {
				if len(recipes) == 0 {
					return a.printf("No recipes found.\n")
				}
				rows := make([][]string, 0, len(recipes))
				for _, r := range recipes {
					image := "no"
					if r.Image != "" {
						image = "yes"
					}
					rows = append(rows, []string{itoa(r.ID), r.Name, orDash(r.LastUsedDate), image})
				}
				return a.table("ID\tNAME\tLAST USED\tIMAGE", rows)
			})
		},
	}
}

func newRecipeShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show RECIPE_ID",
		Short: "Show a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("recipe", args[0])
			if err != nil {
				return err
			}
			r, err := a.catalog.GetRecipe(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(r, func() error { return a.printf("%d  %s\n\n%s\n", r.ID, r.Name, r.Content) })
		},
	}
}

func newRecipeUpdateCmd(a *app) *cobra.Command {
	var name, content, file string
	cmd := &cobra.Command{
		Use:   "update RECIPE_ID",
		Short: "Rename a recipe or replace its text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("recipe", args[0])
			if err != nil {
				return err
			}
			current, err := a.catalog.GetRecipe(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				name = current.Name
			}
			text := current.Content
			if cmd.Flags().Changed("content") || file != "" {
				if text, err = contentArg(cmd, content, file); err != nil {
					return err
				}
			}
			r, err := a.catalog.UpdateRecipe(cmd.Context(), id, name, text)
			if err != nil {
				return err
			}
			return a.emit(r, func() error { return a.printf("Updated recipe %d: %s\n", r.ID, r.Name) })
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&content, "content", "", "new recipe text")
	cmd.Flags().StringVar(&file, "file", "", "read the new recipe text from a file")
	return cmd
}

func newRecipeDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete RECIPE_ID",
		Short: "Delete a recipe; linked batches keep their jars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("recipe", args[0])
			if err != nil {
				return err
			}
			if err := a.catalog.DeleteRecipe(cmd.Context(), id); err != nil {
				return err
			}
			return a.emit(map[string]any{"recipeId": id, "deleted": true}, func() error {
				return a.printf("Deleted recipe %d\n", id)
			})
		},
	}
}

func newRecipeImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Attach or export a recipe image",
	}

	var mimeType string
	set := &cobra.Command{
		Use:   "set RECIPE_ID FILE",
		Short: "Attach an image file to a recipe, replacing any previous one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("recipe", args[0])
			if err != nil {
				return err
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[1]))
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer f.Close()

			r, err := a.catalog.AttachRecipeImage(cmd.Context(), id, mimeType, f)
			if err != nil {
				return err
			}
			return a.emit(r, func() error { return a.printf("Attached %s to recipe %d\n", r.Image, r.ID) })
		},
	}
	set.Flags().StringVar(&mimeType, "type", "", "MIME type (default: from the file extension)")

	get := &cobra.Command{
		Use:   "get RECIPE_ID OUTPUT",
		Short: "Write a recipe's image to OUTPUT, or stdout when OUTPUT is -",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("recipe", args[0])
			if err != nil {
				return err
			}
			rc, _, err := a.catalog.OpenRecipeImage(cmd.Context(), id)
			if err != nil {
				return err
			}
			defer rc.Close()

			if args[1] == "-" {
				_, err = io.Copy(a.out, rc)
				return err
			}
			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			if _, err := io.Copy(f, rc); err != nil {
				_ = f.Close()
				return fmt.Errorf("write image: %w", err)
			}
			return f.Close()
		},
	}

	cmd.AddCommand(set, get)
	return cmd
}

func newRecipeResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "for-batch BATCH_ID",
		Short: "Show the recipe that applies to a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.catalog.ResolveBatchRecipe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(r, func() error {
				if r.TextSource == domain.RecipeSourceNone && r.ImageSource == domain.RecipeSourceNone {
					return a.printf("No recipe for batch %s.\n", r.BatchID)
				}
				if r.RecipeName != "" {
					if err := a.printf("recipe: %s\n", r.RecipeName); err != nil {
						return err
					}
				}
				if r.Image != "" {
					if err := a.printf("image (%s): %s\n", r.ImageSource, r.Image); err != nil {
						return err
					}
				}
				return a.printf("text (%s):\n%s\n", r.TextSource, r.Text)
			})
		},
	}
}

func newRecipeOverrideCmd(a *app) *cobra.Command {
	var text, image string
	var remove bool
	cmd := &cobra.Command{
		Use:   "override BATCH_ID",
		Short: "Set or clear the recipe override for one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if remove {
				if err := a.catalog.ClearBatchRecipe(ctx, args[0]); err != nil {
					return err
				}
				return a.emit(map[string]any{"batchId": args[0], "cleared": true}, func() error {
					return a.printf("Cleared recipe override for batch %s\n", args[0])
				})
			}
			if err := a.catalog.SetBatchRecipe(ctx, args[0], text, image); err != nil {
				return err
			}
			return a.emit(map[string]any{"batchId": args[0], "text": text, "image": image}, func() error {
				return a.printf("Set recipe override for batch %s\n", args[0])
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "override text")
	cmd.Flags().StringVar(&image, "image", "", "override image reference")
	cmd.Flags().BoolVar(&remove, "clear", false, "remove the override")
	cmd.MarkFlagsMutuallyExclusive("clear", "text")
	cmd.MarkFlagsMutuallyExclusive("clear", "image")
	return cmd
}
