package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vbonduro/jartrack/internal/domain"
	"github.com/vbonduro/jartrack/internal/imagestore"
)

// categoryRepository is the subset of store.CategoryStore that CatalogService requires.
type categoryRepository interface {
	SeedDefaults(ctx context.Context) (int, error)
	List(ctx context.Context) ([]*domain.Category, error)
	Add(ctx context.Context, name, icon string) (*domain.Category, error)
	Update(ctx context.Context, id int64, name, icon string) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
	ReassignAndDelete(ctx context.Context, id, targetID int64) (int, error)
}

// jarSizeRepository is the subset of store.JarSizeStore that CatalogService requires.
type jarSizeRepository interface {
	SeedDefaults(ctx context.Context) (int, error)
	List(ctx context.Context, includeHidden bool) ([]*domain.JarSize, error)
	Add(ctx context.Context, name string) (*domain.JarSize, error)
	Update(ctx context.Context, id int64, name string) (*domain.JarSize, error)
	ToggleHidden(ctx context.Context, id int64) (*domain.JarSize, error)
	Delete(ctx context.Context, id int64) error
	ReassignAndDelete(ctx context.Context, id, targetID int64) (int, error)
}

// recipeRepository is the subset of store.RecipeStore that CatalogService requires.
type recipeRepository interface {
	Create(ctx context.Context, name, content, image string) (*domain.Recipe, error)
	Update(ctx context.Context, id int64, name, content, image string) (*domain.Recipe, error)
	SetImage(ctx context.Context, id int64, image string) (string, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Recipe, error)
	List(ctx context.Context) ([]*domain.Recipe, error)
	SetBatchRecipe(ctx context.Context, batchID, text, image string) error
	ClearBatchRecipe(ctx context.Context, batchID string) error
	ResolveForBatch(ctx context.Context, batchID string) (*domain.ResolvedRecipe, error)
}

// CatalogService manages the taxonomy and recipes.
type CatalogService struct {
	categories categoryRepository
	jarSizes   jarSizeRepository
	recipes    recipeRepository
	images     imagestore.ImageStore
	logger     *slog.Logger
}

func NewCatalogService(
	categories categoryRepository,
	jarSizes jarSizeRepository,
	recipes recipeRepository,
	images imagestore.ImageStore,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		categories: categories,
		jarSizes:   jarSizes,
		recipes:    recipes,
		images:     images,
		logger:     logger,
	}
}

// SeedDefaults inserts any missing default categories and jar sizes.
func (s *CatalogService) SeedDefaults(ctx context.Context) error {
	cats, err := s.categories.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	sizes, err := s.jarSizes.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed jar sizes: %w", err)
	}
	if cats > 0 || sizes > 0 {
		s.logger.Info("seeded default taxonomy", "categories", cats, "jar_sizes", sizes)
	}
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *CatalogService) AddCategory(ctx context.Context, name, icon string) (*domain.Category, error) {
	return s.categories.Add(ctx, name, icon)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, name, icon string) (*domain.Category, error) {
	return s.categories.Update(ctx, id, name, icon)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.categories.Delete(ctx, id)
}

// ReassignCategory moves item types from category id to targetID and
// deletes id.
func (s *CatalogService) ReassignCategory(ctx context.Context, id, targetID int64) (int, error) {
	moved, err := s.categories.ReassignAndDelete(ctx, id, targetID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("category reassigned and deleted", "category_id", id, "target_id", targetID, "item_types", moved)
	return moved, nil
}

func (s *CatalogService) ListJarSizes(ctx context.Context, includeHidden bool) ([]*domain.JarSize, error) {
	return s.jarSizes.List(ctx, includeHidden)
}

func (s *CatalogService) AddJarSize(ctx context.Context, name string) (*domain.JarSize, error) {
	return s.jarSizes.Add(ctx, name)
}

func (s *CatalogService) RenameJarSize(ctx context.Context, id int64, name string) (*domain.JarSize, error) {
	return s.jarSizes.Update(ctx, id, name)
}

func (s *CatalogService) ToggleJarSizeHidden(ctx context.Context, id int64) (*domain.JarSize, error) {
	return s.jarSizes.ToggleHidden(ctx, id)
}

func (s *CatalogService) DeleteJarSize(ctx context.Context, id int64) error {
	return s.jarSizes.Delete(ctx, id)
}

func (s *CatalogService) ReassignJarSize(ctx context.Context, id, targetID int64) (int, error) {
	moved, err := s.jarSizes.ReassignAndDelete(ctx, id, targetID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("jar size reassigned and deleted", "jar_size_id", id, "target_id", targetID, "jars", moved)
	return moved, nil
}

func (s *CatalogService) CreateRecipe(ctx context.Context, name, content string) (*domain.Recipe, error) {
	return s.recipes.Create(ctx, name, content, "")
}

// UpdateRecipe changes name and content and keeps the current image.
func (s *CatalogService) UpdateRecipe(ctx context.Context, id int64, name, content string) (*domain.Recipe, error) {
	current, err := s.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.recipes.Update(ctx, id, name, content, current.Image)
}

func (s *CatalogService) GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error) {
	r, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.NotFound("recipe", id)
	}
	return r, nil
}

func (s *CatalogService) ListRecipes(ctx context.Context) ([]*domain.Recipe, error) {
	return s.recipes.List(ctx)
}

// DeleteRecipe removes the recipe and its stored image. Batches linked to it
// keep their link and resolve without it.
func (s *CatalogService) DeleteRecipe(ctx context.Context, id int64) error {
	r, err := s.GetRecipe(ctx, id)
	if err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, id); err != nil {
		return err
	}
	s.discardImage(ctx, r.Image)
	s.logger.Info("recipe deleted", "recipe_id", id)
	return nil
}

// AttachRecipeImage stores the image and points the recipe at it, replacing
// any previous image.
func (s *CatalogService) AttachRecipeImage(ctx context.Context, id int64, mimeType string, r io.Reader) (*domain.Recipe, error) {
	if _, err := s.GetRecipe(ctx, id); err != nil {
		return nil, err
	}
	key, err := s.images.Save(ctx, fmt.Sprintf("recipe_%d", id), mimeType, r)
	if err != nil {
		return nil, err
	}
	previous, err := s.recipes.SetImage(ctx, id, key)
	if err != nil {
		s.discardImage(ctx, key)
		return nil, err
	}
	s.discardImage(ctx, previous)
	s.logger.Info("recipe image attached", "recipe_id", id, "key", key)
	return s.GetRecipe(ctx, id)
}

// OpenRecipeImage returns the recipe's stored image and its MIME type.
func (s *CatalogService) OpenRecipeImage(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	r, err := s.GetRecipe(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if r.Image == "" {
		return nil, "", domain.NotFound("image for recipe", id)
	}
	return s.images.Open(ctx, r.Image)
}

// discardImage removes an image that is no longer referenced. Image values
// that are not keys of this store, such as restored URIs, are left alone.
func (s *CatalogService) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	err := s.images.Delete(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidArgument):
		s.logger.Debug("image not in store", "key", key)
	default:
		s.logger.Warn("failed to delete image", "key", key, "error", err)
	}
}

func (s *CatalogService) SetBatchRecipe(ctx context.Context, batchID, text, image string) error {
	if err := s.recipes.SetBatchRecipe(ctx, batchID, text, image); err != nil {
		return err
	}
	s.logger.Info("batch recipe override set", "batch_id", batchID)
	return nil
}

func (s *CatalogService) ClearBatchRecipe(ctx context.Context, batchID string) error {
	return s.recipes.ClearBatchRecipe(ctx, batchID)
}

func (s *CatalogService) ResolveBatchRecipe(ctx context.Context, batchID string) (*domain.ResolvedRecipe, error) {
	return s.recipes.ResolveForBatch(ctx, batchID)
}
