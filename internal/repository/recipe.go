package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/recipekeep/recipekeep-go/internal/model"
)

const recipeColumns = `id, user_id, title, time_minutes, price, link, image`

// RecipeRepository handles recipe persistence and the recipe_tags and
// recipe_ingredients relations.
type RecipeRepository struct {
	db *sql.DB
}

// NewRecipeRepository creates a new RecipeRepository.
func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create inserts the recipe and its relation rows in one transaction and sets
// the generated ID.
func (r *RecipeRepository) Create(ctx context.Context, recipe *model.Recipe) error {
	return WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		query := `INSERT INTO recipes (user_id, title, time_minutes, price, link) VALUES (?, ?, ?, ?, ?)`

		result, err := tx.ExecContext(ctx, query,
			recipe.UserID, recipe.Title, recipe.TimeMinutes, recipe.Price, recipe.Link,
		)
		if err != nil {
			return fmt.Errorf("inserting recipe: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading recipe id: %w", err)
		}
		recipe.ID = id

		if err := replaceRelation(ctx, tx, tagsTable, recipe.UserID, id, recipe.TagIDs); err != nil {
			return err
		}
		return replaceRelation(ctx, tx, ingredientsTable, recipe.UserID, id, recipe.IngredientIDs)
	})
}

// GetByID retrieves a recipe owned by userID with its tags and ingredients
// loaded.
func (r *RecipeRepository) GetByID(ctx context.Context, userID, id int64) (*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = ? AND user_id = ?`

	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying recipe: %w", err)
	}

	if recipe.Tags, err = r.loadAttributes(ctx, tagsTable, userID, id); err != nil {
		return nil, err
	}
	if recipe.Ingredients, err = r.loadAttributes(ctx, ingredientsTable, userID, id); err != nil {
		return nil, err
	}
	recipe.TagIDs = attributeIDs(recipe.Tags)
	recipe.IngredientIDs = attributeIDs(recipe.Ingredients)

	return recipe, nil
}

// List returns the user's recipes ordered by ID. Non-empty filter lists keep
// recipes linked to any of the given tags and any of the given ingredients.
func (r *RecipeRepository) List(ctx context.Context, userID int64, filter model.RecipeFilter) ([]model.Recipe, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + recipeColumns + ` FROM recipes WHERE user_id = ?`)
	args := []any{userID}

	if len(filter.TagIDs) > 0 {
		fmt.Fprintf(&sb, ` AND id IN (SELECT recipe_id FROM recipe_tags WHERE tag_id IN (%s))`, placeholders(len(filter.TagIDs)))
		args = append(args, int64Args(filter.TagIDs)...)
	}
	if len(filter.IngredientIDs) > 0 {
		fmt.Fprintf(&sb, ` AND id IN (SELECT recipe_id FROM recipe_ingredients WHERE ingredient_id IN (%s))`, placeholders(len(filter.IngredientIDs)))
		args = append(args, int64Args(filter.IngredientIDs)...)
	}
	sb.WriteString(` ORDER BY id`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	defer rows.Close()

	recipes := []model.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, *recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return recipes, nil
	}

	ids := make([]int64, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
	}

	tagIDs, err := r.loadRelationIDs(ctx, tagsTable, ids)
	if err != nil {
		return nil, err
	}
	ingredientIDs, err := r.loadRelationIDs(ctx, ingredientsTable, ids)
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].TagIDs = tagIDs[recipes[i].ID]
		recipes[i].IngredientIDs = ingredientIDs[recipes[i].ID]
	}

	return recipes, nil
}

// RecipeMutation edits a locked recipe in place and reports which relation
// lists it replaced. A non-nil error aborts the update.
type RecipeMutation func(recipe *model.Recipe) (setTags, setIngredients bool, err error)

// Update locks an owned recipe, loads it with its relation IDs, applies
// mutate and writes the result in the same transaction. Relations are
// replaced only when mutate reports them as set.
func (r *RecipeRepository) Update(ctx context.Context, userID, id int64, mutate RecipeMutation) error {
	return WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = ? AND user_id = ? FOR UPDATE`

		recipe, err := scanRecipe(tx.QueryRowContext(ctx, query, id, userID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("locking recipe: %w", err)
		}

		tagIDs, err := relationIDs(ctx, tx, tagsTable, id)
		if err != nil {
			return err
		}
		ingredientIDs, err := relationIDs(ctx, tx, ingredientsTable, id)
		if err != nil {
			return err
		}
		recipe.TagIDs = tagIDs
		recipe.IngredientIDs = ingredientIDs

		setTags, setIngredients, err := mutate(recipe)
		if err != nil {
			return err
		}

		update := `UPDATE recipes SET title = ?, time_minutes = ?, price = ?, link = ? WHERE id = ? AND user_id = ?`
		if _, err := tx.ExecContext(ctx, update,
			recipe.Title, recipe.TimeMinutes, recipe.Price, recipe.Link, id, userID,
		); err != nil {
			return fmt.Errorf("updating recipe: %w", err)
		}

		if setTags {
			if err := replaceRelation(ctx, tx, tagsTable, userID, id, recipe.TagIDs); err != nil {
				return err
			}
		}
		if setIngredients {
			if err := replaceRelation(ctx, tx, ingredientsTable, userID, id, recipe.IngredientIDs); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetImage stores a new image key on an owned recipe and returns the previous
// key, empty when there was none.
func (r *RecipeRepository) SetImage(ctx context.Context, userID, id int64, key string) (string, error) {
	var previous string
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		var err error
		if previous, err = lockImage(ctx, tx, userID, id); err != nil {
			return err
		}

		query := `UPDATE recipes SET image = ? WHERE id = ? AND user_id = ?`
		if _, err := tx.ExecContext(ctx, query, key, id, userID); err != nil {
			return fmt.Errorf("updating recipe image: %w", err)
		}
		return nil
	})
	return previous, err
}

// Delete removes an owned recipe and returns its image key so the caller can
// clean up storage. Relation rows cascade.
func (r *RecipeRepository) Delete(ctx context.Context, userID, id int64) (string, error) {
	var image string
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		var err error
		if image, err = lockImage(ctx, tx, userID, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("deleting recipe: %w", err)
		}
		return nil
	})
	return image, err
}

func (r *RecipeRepository) loadAttributes(ctx context.Context, table attributeTable, userID, recipeID int64) ([]model.Attribute, error) {
	query := fmt.Sprintf(`SELECT a.id, a.user_id, a.name FROM %[1]s a
		JOIN %[2]s rel ON rel.%[3]s = a.id
		WHERE rel.recipe_id = ? AND a.user_id = ? ORDER BY a.id`, table.name, table.relation, table.column)

	rows, err := r.db.QueryContext(ctx, query, recipeID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading recipe %s: %w", table.name, err)
	}
	defer rows.Close()

	items := []model.Attribute{}
	for rows.Next() {
		var a model.Attribute
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// loadRelationIDs maps each recipe ID to its related IDs in ascending order.
func (r *RecipeRepository) loadRelationIDs(ctx context.Context, table attributeTable, recipeIDs []int64) (map[int64][]int64, error) {
	query := fmt.Sprintf(`SELECT recipe_id, %s FROM %s WHERE recipe_id IN (%s) ORDER BY recipe_id, %s`,
		table.column, table.relation, placeholders(len(recipeIDs)), table.column)

	rows, err := r.db.QueryContext(ctx, query, int64Args(recipeIDs)...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", table.relation, err)
	}
	defer rows.Close()

	out := make(map[int64][]int64, len(recipeIDs))
	for rows.Next() {
		var recipeID, id int64
		if err := rows.Scan(&recipeID, &id); err != nil {
			return nil, err
		}
		out[recipeID] = append(out[recipeID], id)
	}
	return out, rows.Err()
}

// relationIDs returns one recipe's related IDs in ascending order.
func relationIDs(ctx context.Context, tx DBTX, table attributeTable, recipeID int64) ([]int64, error) {
	query := fmt.Sprintf(`SELECT %[1]s FROM %[2]s WHERE recipe_id = ? ORDER BY %[1]s`, table.column, table.relation)

	rows, err := tx.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", table.relation, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// replaceRelation swaps the recipe's links in table for ids. Only IDs owned
// by userID are linked.
func replaceRelation(ctx context.Context, tx DBTX, table attributeTable, userID, recipeID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = ?`, table.relation), recipeID); err != nil {
		return fmt.Errorf("clearing %s: %w", table.relation, err)
	}
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (recipe_id, %s) SELECT ?, id FROM %s WHERE user_id = ? AND id IN (%s)`,
		table.relation, table.column, table.name, placeholders(len(ids)))
	args := append([]any{recipeID, userID}, int64Args(ids)...)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("linking %s: %w", table.relation, err)
	}
	return nil
}

// lockImage locks an owned recipe row and returns its image key.
func lockImage(ctx context.Context, tx DBTX, userID, id int64) (string, error) {
	query := `SELECT image FROM recipes WHERE id = ? AND user_id = ? FOR UPDATE`

	var image sql.NullString
	if err := tx.QueryRowContext(ctx, query, id, userID).Scan(&image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("locking recipe: %w", err)
	}
	return image.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*model.Recipe, error) {
	recipe := &model.Recipe{}
	var image sql.NullString
	if err := row.Scan(
		&recipe.ID, &recipe.UserID, &recipe.Title, &recipe.TimeMinutes,
		&recipe.Price, &recipe.Link, &image,
	); err != nil {
		return nil, err
	}
	recipe.Image = image.String
	return recipe, nil
}

func attributeIDs(items []model.Attribute) []int64 {
	ids := make([]int64, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	return ids
}
