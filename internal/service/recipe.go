package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/recipekeep/recipekeep-go/internal/metrics"
	"github.com/recipekeep/recipekeep-go/internal/model"
	"github.com/recipekeep/recipekeep-go/internal/repository"
	"github.com/recipekeep/recipekeep-go/internal/storage"
	"github.com/recipekeep/recipekeep-go/internal/validation"
)

const (
	msgInvalidImage = "upload a valid image. The file you uploaded was either not an image or a corrupted image"
	msgEmptyImage   = "the submitted file is empty"
)

// RecipeStore persists recipes scoped to an owner.
type RecipeStore interface {
	Create(ctx context.Context, recipe *model.Recipe) error
	GetByID(ctx context.Context, userID, id int64) (*model.Recipe, error)
	List(ctx context.Context, userID int64, filter model.RecipeFilter) ([]model.Recipe, error)
	Update(ctx context.Context, userID, id int64, mutate repository.RecipeMutation) error
	SetImage(ctx context.Context, userID, id int64, key string) (string, error)
	Delete(ctx context.Context, userID, id int64) (string, error)
}

// OwnedIDLookup reports which of a set of IDs belong to a user.
type OwnedIDLookup interface {
	OwnedIDs(ctx context.Context, userID int64, ids []int64) ([]int64, error)
}

// RecipeService implements the recipe endpoints.
type RecipeService struct {
	recipes     RecipeStore
	tags        OwnedIDLookup
	ingredients OwnedIDLookup
	images      storage.ImageStore
	newName     func() string
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(recipes RecipeStore, tags, ingredients OwnedIDLookup, images storage.ImageStore) *RecipeService {
	return &RecipeService{
		recipes:     recipes,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		newName:     uuid.NewString,
	}
}

// List returns the owner's recipes in ID order.
func (s *RecipeService) List(ctx context.Context, owner int64, filter model.RecipeFilter) ([]model.RecipeResponse, error) {
	filter.TagIDs = uniqueIDs(filter.TagIDs)
	filter.IngredientIDs = uniqueIDs(filter.IngredientIDs)

	recipes, err := s.recipes.List(ctx, owner, filter)
	if err != nil {
		return nil, err
	}

	result := make([]model.RecipeResponse, len(recipes))
	for i := range recipes {
		result[i] = recipes[i].ToResponse()
	}
	return result, nil
}

// Get returns one of the owner's recipes with tags and ingredients expanded.
func (s *RecipeService) Get(ctx context.Context, owner, id int64) (model.RecipeDetailResponse, error) {
	recipe, err := s.recipes.GetByID(ctx, owner, id)
	if err != nil {
		return model.RecipeDetailResponse{}, notFound(err)
	}
	return recipe.ToDetailResponse(s.imageURL(recipe.Image)), nil
}

// Create stores a new recipe owned by owner.
func (s *RecipeService) Create(ctx context.Context, owner int64, req model.RecipeRequest) (model.RecipeDetailResponse, error) {
	if err := validateRecipe(req, false); err != nil {
		return model.RecipeDetailResponse{}, err
	}

	recipe := &model.Recipe{UserID: owner}
	applyRecipe(recipe, req, false)

	if err := s.checkRelations(ctx, owner, recipe, true, true); err != nil {
		return model.RecipeDetailResponse{}, err
	}

	if err := s.recipes.Create(ctx, recipe); err != nil {
		return model.RecipeDetailResponse{}, err
	}
	return s.Get(ctx, owner, recipe.ID)
}

// Update modifies one of the owner's recipes. A partial update leaves omitted
// fields untouched. A full update requires title, time_minutes and price and
// resets omitted link, tags and ingredients to empty.
func (s *RecipeService) Update(ctx context.Context, owner, id int64, req model.RecipeRequest, partial bool) (model.RecipeDetailResponse, error) {
	if err := validateRecipe(req, partial); err != nil {
		return model.RecipeDetailResponse{}, err
	}

	err := s.recipes.Update(ctx, owner, id, func(recipe *model.Recipe) (bool, bool, error) {
		applyRecipe(recipe, req, partial)
		setTags := !partial || req.Tags != nil
		setIngredients := !partial || req.Ingredients != nil
		return setTags, setIngredients, s.checkRelations(ctx, owner, recipe, setTags, setIngredients)
	})
	if err != nil {
		return model.RecipeDetailResponse{}, notFound(err)
	}
	return s.Get(ctx, owner, id)
}

// Delete removes one of the owner's recipes and its stored image.
func (s *RecipeService) Delete(ctx context.Context, owner, id int64) error {
	key, err := s.recipes.Delete(ctx, owner, id)
	if err != nil {
		return notFound(err)
	}
	s.removeImage(ctx, key)
	return nil
}

// AttachImage validates and stores an uploaded image, then points the recipe
// at it. The previous image, if any, is removed.
func (s *RecipeService) AttachImage(ctx context.Context, owner, id int64, filename string, r io.Reader) (model.RecipeImageResponse, error) {
	if _, err := s.recipes.GetByID(ctx, owner, id); err != nil {
		return model.RecipeImageResponse{}, notFound(err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		metrics.ObserveImageUpload("error")
		return model.RecipeImageResponse{}, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) == 0 {
		metrics.ObserveImageUpload("invalid")
		return model.RecipeImageResponse{}, validation.Field("image", msgEmptyImage)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		metrics.ObserveImageUpload("invalid")
		return model.RecipeImageResponse{}, validation.Field("image", msgInvalidImage)
	}

	key := storage.RecipeImagePath(s.newName(), filename)
	if err := s.images.Save(ctx, key, bytes.NewReader(data), "image/"+format); err != nil {
		metrics.ObserveImageUpload("error")
		return model.RecipeImageResponse{}, fmt.Errorf("storing image: %w", err)
	}

	previous, err := s.recipes.SetImage(ctx, owner, id, key)
	if err != nil {
		metrics.ObserveImageUpload("error")
		s.removeImage(ctx, key)
		return model.RecipeImageResponse{}, notFound(err)
	}
	if previous != key {
		s.removeImage(ctx, previous)
	}

	metrics.ObserveImageUpload("success")
	return model.RecipeImageResponse{ID: id, Image: s.images.URL(key)}, nil
}

// checkRelations dedupes the recipe's relation IDs and rejects any the owner
// does not own.
func (s *RecipeService) checkRelations(ctx context.Context, owner int64, recipe *model.Recipe, tags, ingredients bool) error {
	errs := validation.Errors{}

	if tags {
		recipe.TagIDs = uniqueIDs(recipe.TagIDs)
		if err := checkOwned(ctx, s.tags, owner, recipe.TagIDs, "tags", errs); err != nil {
			return err
		}
	}
	if ingredients {
		recipe.IngredientIDs = uniqueIDs(recipe.IngredientIDs)
		if err := checkOwned(ctx, s.ingredients, owner, recipe.IngredientIDs, "ingredients", errs); err != nil {
			return err
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkOwned(ctx context.Context, lookup OwnedIDLookup, owner int64, ids []int64, field string, errs validation.Errors) error {
	if len(ids) == 0 {
		return nil
	}

	owned, err := lookup.OwnedIDs(ctx, owner, ids)
	if err != nil {
		return err
	}

	have := make(map[int64]struct{}, len(owned))
	for _, id := range owned {
		have[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			errs.Add(field, fmt.Sprintf(`invalid pk "%d" - object does not exist`, id))
		}
	}
	return nil
}

func (s *RecipeService) imageURL(key string) string {
	if key == "" {
		return ""
	}
	return s.images.URL(key)
}

// removeImage deletes a stored image. Failures are logged, not returned.
func (s *RecipeService) removeImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete recipe image", "key", key, "error", err)
	}
}

func validateRecipe(req model.RecipeRequest, partial bool) error {
	errs := validation.Errors{}
	if err := validation.Struct(req); err != nil {
		ve, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		errs = ve
	}

	if !partial {
		if req.Title == nil {
			errs.Add("title", msgRequired)
		}
		if req.TimeMinutes == nil {
			errs.Add("time_minutes", msgRequired)
		}
		if req.Price == nil {
			errs.Add("price", msgRequired)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// applyRecipe copies request fields onto recipe. Outside a partial update,
// omitted optional fields are reset to their empty values.
func applyRecipe(recipe *model.Recipe, req model.RecipeRequest, partial bool) {
	if req.Title != nil {
		recipe.Title = strings.TrimSpace(*req.Title)
	}
	if req.TimeMinutes != nil {
		recipe.TimeMinutes = *req.TimeMinutes
	}
	if req.Price != nil {
		recipe.Price = *req.Price
	}

	switch {
	case req.Link != nil:
		recipe.Link = strings.TrimSpace(*req.Link)
	case !partial:
		recipe.Link = ""
	}
	switch {
	case req.Tags != nil:
		recipe.TagIDs = *req.Tags
	case !partial:
		recipe.TagIDs = nil
	}
	switch {
	case req.Ingredients != nil:
		recipe.IngredientIDs = *req.Ingredients
	case !partial:
		recipe.IngredientIDs = nil
	}
}

// uniqueIDs drops duplicates, keeping first occurrences in order.
func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
