package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/recipekeep/recipekeep-go/internal/model"
)

// attributeTable names an owned attribute table and its join table to recipes.
type attributeTable struct {
	name     string // tags
	relation string // recipe_tags
	column   string // tag_id
}

var (
	tagsTable        = attributeTable{name: "tags", relation: "recipe_tags", column: "tag_id"}
	ingredientsTable = attributeTable{name: "ingredients", relation: "recipe_ingredients", column: "ingredient_id"}
)

// AttributeRepository persists tags or ingredients. Every query is scoped to
// the owning user.
type AttributeRepository struct {
	db    *sql.DB
	table attributeTable
}

// NewTagRepository creates a repository over the tags table.
func NewTagRepository(db *sql.DB) *AttributeRepository {
	return &AttributeRepository{db: db, table: tagsTable}
}

// NewIngredientRepository creates a repository over the ingredients table.
func NewIngredientRepository(db *sql.DB) *AttributeRepository {
	return &AttributeRepository{db: db, table: ingredientsTable}
}

// Create inserts a new item and sets its generated ID.
func (r *AttributeRepository) Create(ctx context.Context, item *model.Attribute) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, name) VALUES (?, ?)`, r.table.name)

	result, err := r.db.ExecContext(ctx, query, item.UserID, item.Name)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", r.table.name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading %s id: %w", r.table.name, err)
	}

	item.ID = id
	return nil
}

// GetByID retrieves an item owned by userID.
func (r *AttributeRepository) GetByID(ctx context.Context, userID, id int64) (*model.Attribute, error) {
	query := fmt.Sprintf(`SELECT id, user_id, name FROM %s WHERE id = ? AND user_id = ?`, r.table.name)

	item := &model.Attribute{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&item.ID, &item.UserID, &item.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying %s: %w", r.table.name, err)
	}
	return item, nil
}

// List returns the user's items ordered by name descending. With
// filter.AssignedOnly set, only items referenced by at least one of the
// user's recipes are returned, each once.
func (r *AttributeRepository) List(ctx context.Context, userID int64, filter model.AttributeFilter) ([]model.Attribute, error) {
	var query string
	var args []any
	if filter.AssignedOnly {
		query = fmt.Sprintf(`SELECT DISTINCT a.id, a.user_id, a.name FROM %[1]s a
		JOIN %[2]s rel ON rel.%[3]s = a.id
		JOIN recipes r ON r.id = rel.recipe_id AND r.user_id = ?
		WHERE a.user_id = ? ORDER BY a.name DESC, a.id DESC`, r.table.name, r.table.relation, r.table.column)
		args = []any{userID, userID}
	} else {
		query = fmt.Sprintf(`SELECT id, user_id, name FROM %s WHERE user_id = ? ORDER BY name DESC, id DESC`, r.table.name)
		args = []any{userID}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.table.name, err)
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

// Update renames an item owned by the given user.
func (r *AttributeRepository) Update(ctx context.Context, item *model.Attribute) error {
	return WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		if err := lockOwned(ctx, tx, r.table.name, item.UserID, item.ID); err != nil {
			return err
		}

		query := fmt.Sprintf(`UPDATE %s SET name = ? WHERE id = ? AND user_id = ?`, r.table.name)
		if _, err := tx.ExecContext(ctx, query, item.Name, item.ID, item.UserID); err != nil {
			return fmt.Errorf("updating %s: %w", r.table.name, err)
		}
		return nil
	})
}

// Delete removes an item owned by userID. Recipe links cascade.
func (r *AttributeRepository) Delete(ctx context.Context, userID, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, r.table.name)

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", r.table.name, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// OwnedIDs returns the subset of ids that exist and belong to userID.
func (r *AttributeRepository) OwnedIDs(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = ? AND id IN (%s)`, r.table.name, placeholders(len(ids)))
	args := append([]any{userID}, int64Args(ids)...)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("checking %s ownership: %w", r.table.name, err)
	}
	defer rows.Close()

	owned := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owned = append(owned, id)
	}

	return owned, rows.Err()
}

// lockOwned locks the row for update, returning ErrNotFound when it does not
// exist or belongs to someone else.
func lockOwned(ctx context.Context, tx DBTX, table string, userID, id int64) error {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE id = ? AND user_id = ? FOR UPDATE`, table)

	var got int64
	if err := tx.QueryRowContext(ctx, query, id, userID).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("locking %s row: %w", table, err)
	}
	return nil
}
