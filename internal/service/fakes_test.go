package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recipekeep/recipekeep-go/internal/crypto"
	"github.com/recipekeep/recipekeep-go/internal/model"
	"github.com/recipekeep/recipekeep-go/internal/repository"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*model.User{}}
}

func (m *memUsers) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.ID != user.ID && u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if _, ok := m.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

// memAttributes is an in-memory AttributeStore for one table. linked reports
// whether an item is referenced by one of the owner's recipes.
type memAttributes struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]model.Attribute
	linked func(owner, id int64) bool
}

func newMemAttributes() *memAttributes {
	return &memAttributes{items: map[int64]model.Attribute{}}
}

func (m *memAttributes) Create(_ context.Context, item *model.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = *item
	return nil
}

func (m *memAttributes) GetByID(_ context.Context, userID, id int64) (*model.Attribute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (m *memAttributes) List(_ context.Context, userID int64, filter model.AttributeFilter) ([]model.Attribute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Attribute{}
	for _, item := range m.items {
		if item.UserID != userID {
			continue
		}
		if filter.AssignedOnly && (m.linked == nil || !m.linked(userID, item.ID)) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name > out[j].Name
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memAttributes) Update(_ context.Context, item *model.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[item.ID]
	if !ok || cur.UserID != item.UserID {
		return repository.ErrNotFound
	}
	m.items[item.ID] = *item
	return nil
}

func (m *memAttributes) Delete(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok || cur.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memAttributes) OwnedIDs(_ context.Context, userID int64, ids []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []int64{}
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.UserID == userID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memAttributes) expand(ids []int64) []model.Attribute {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Attribute{}
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memRecipes is an in-memory RecipeStore that expands relations from the
// attribute fakes.
type memRecipes struct {
	mu          sync.Mutex
	rowMu       sync.Mutex
	nextID      int64
	recipes     map[int64]model.Recipe
	tags        *memAttributes
	ingredients *memAttributes
	updates     int
}

func newMemRecipes(tags, ingredients *memAttributes) *memRecipes {
	m := &memRecipes{recipes: map[int64]model.Recipe{}, tags: tags, ingredients: ingredients}
	tags.linked = func(owner, id int64) bool { return m.links(owner, id, true) }
	ingredients.linked = func(owner, id int64) bool { return m.links(owner, id, false) }
	return m
}

func (m *memRecipes) links(owner, id int64, tag bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recipes {
		if r.UserID != owner {
			continue
		}
		ids := r.IngredientIDs
		if tag {
			ids = r.TagIDs
		}
		for _, x := range ids {
			if x == id {
				return true
			}
		}
	}
	return false
}

func (m *memRecipes) Create(_ context.Context, recipe *model.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	recipe.ID = m.nextID
	m.recipes[recipe.ID] = cloneRecipe(*recipe)
	return nil
}

func (m *memRecipes) GetByID(_ context.Context, userID, id int64) (*model.Recipe, error) {
	m.mu.Lock()
	r, ok := m.recipes[id]
	m.mu.Unlock()
	if !ok || r.UserID != userID {
		return nil, repository.ErrNotFound
	}
	r = cloneRecipe(r)
	r.Tags = m.tags.expand(r.TagIDs)
	r.Ingredients = m.ingredients.expand(r.IngredientIDs)
	return &r, nil
}

func (m *memRecipes) List(_ context.Context, userID int64, filter model.RecipeFilter) ([]model.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Recipe{}
	for _, r := range m.recipes {
		if r.UserID != userID {
			continue
		}
		if len(filter.TagIDs) > 0 && !intersects(r.TagIDs, filter.TagIDs) {
			continue
		}
		if len(filter.IngredientIDs) > 0 && !intersects(r.IngredientIDs, filter.IngredientIDs) {
			continue
		}
		out = append(out, cloneRecipe(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update holds rowMu for the whole read-modify-write, standing in for the
// row lock the SQL repository takes.
func (m *memRecipes) Update(_ context.Context, userID, id int64, mutate repository.RecipeMutation) error {
	m.rowMu.Lock()
	defer m.rowMu.Unlock()

	m.mu.Lock()
	cur, ok := m.recipes[id]
	m.mu.Unlock()
	if !ok || cur.UserID != userID {
		return repository.ErrNotFound
	}

	next := cloneRecipe(cur)
	setTags, setIngredients, err := mutate(&next)
	if err != nil {
		return err
	}
	next.ID, next.UserID, next.Image = cur.ID, cur.UserID, cur.Image
	if !setTags {
		next.TagIDs = cur.TagIDs
	}
	if !setIngredients {
		next.IngredientIDs = cur.IngredientIDs
	}

	m.mu.Lock()
	m.recipes[id] = next
	m.updates++
	m.mu.Unlock()
	return nil
}

func (m *memRecipes) SetImage(_ context.Context, userID, id int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.recipes[id]
	if !ok || cur.UserID != userID {
		return "", repository.ErrNotFound
	}
	previous := cur.Image
	cur.Image = key
	m.recipes[id] = cur
	return previous, nil
}

func (m *memRecipes) Delete(_ context.Context, userID, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.recipes[id]
	if !ok || cur.UserID != userID {
		return "", repository.ErrNotFound
	}
	delete(m.recipes, id)
	return cur.Image, nil
}

func cloneRecipe(r model.Recipe) model.Recipe {
	r.TagIDs = append([]int64(nil), r.TagIDs...)
	r.IngredientIDs = append([]int64(nil), r.IngredientIDs...)
	r.Tags = nil
	r.Ingredients = nil
	return r
}

func intersects(a, b []int64) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// memImages is an in-memory storage.ImageStore.
type memImages struct {
	mu      sync.Mutex
	files   map[string][]byte
	types   map[string]string
	saveErr error
	deleted []string
}

func newMemImages() *memImages {
	return &memImages{files: map[string][]byte{}, types: map[string]string{}}
}

func (m *memImages) Save(_ context.Context, key string, r io.Reader, contentType string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = buf.Bytes()
	m.types[key] = contentType
	return nil
}

func (m *memImages) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; !ok {
		return errors.New("no such key")
	}
	delete(m.files, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memImages) URL(key string) string {
	return "/media/" + key
}

func newTestHasher(t *testing.T) *crypto.Hasher {
	t.Helper()
	h, err := crypto.NewHasher(crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	return h
}
