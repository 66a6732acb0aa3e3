package service

import (
	"context"
	"strings"

	"github.com/recipekeep/recipekeep-go/internal/model"
	"github.com/recipekeep/recipekeep-go/internal/validation"
)

// AttributeStore persists tags or ingredients scoped to an owner.
type AttributeStore interface {
	Create(ctx context.Context, item *model.Attribute) error
	GetByID(ctx context.Context, userID, id int64) (*model.Attribute, error)
	List(ctx context.Context, userID int64, filter model.AttributeFilter) ([]model.Attribute, error)
	Update(ctx context.Context, item *model.Attribute) error
	Delete(ctx context.Context, userID, id int64) error
}

// AttributeService implements the tag and ingredient endpoints. One instance
// serves one table.
type AttributeService struct {
	store AttributeStore
}

// NewAttributeService creates a new AttributeService.
func NewAttributeService(store AttributeStore) *AttributeService {
	return &AttributeService{store: store}
}

// List returns the owner's items, newest name first.
func (s *AttributeService) List(ctx context.Context, owner int64, filter model.AttributeFilter) ([]model.AttributeResponse, error) {
	items, err := s.store.List(ctx, owner, filter)
	if err != nil {
		return nil, err
	}
	return model.AttributesToResponse(items), nil
}

// Create stores a new item owned by owner.
func (s *AttributeService) Create(ctx context.Context, owner int64, req model.AttributeRequest) (model.AttributeResponse, error) {
	if err := validateAttribute(req, false); err != nil {
		return model.AttributeResponse{}, err
	}

	item := &model.Attribute{UserID: owner, Name: strings.TrimSpace(*req.Name)}
	if err := s.store.Create(ctx, item); err != nil {
		return model.AttributeResponse{}, err
	}
	return item.ToResponse(), nil
}

// Get returns one of the owner's items.
func (s *AttributeService) Get(ctx context.Context, owner, id int64) (model.AttributeResponse, error) {
	item, err := s.store.GetByID(ctx, owner, id)
	if err != nil {
		return model.AttributeResponse{}, notFound(err)
	}
	return item.ToResponse(), nil
}

// Update renames one of the owner's items. A partial update with no name
// leaves the item unchanged.
func (s *AttributeService) Update(ctx context.Context, owner, id int64, req model.AttributeRequest, partial bool) (model.AttributeResponse, error) {
	if err := validateAttribute(req, partial); err != nil {
		return model.AttributeResponse{}, err
	}

	item, err := s.store.GetByID(ctx, owner, id)
	if err != nil {
		return model.AttributeResponse{}, notFound(err)
	}
	if req.Name == nil {
		return item.ToResponse(), nil
	}

	item.Name = strings.TrimSpace(*req.Name)
	if err := s.store.Update(ctx, item); err != nil {
		return model.AttributeResponse{}, notFound(err)
	}
	return item.ToResponse(), nil
}

// Delete removes one of the owner's items and unlinks it from recipes.
func (s *AttributeService) Delete(ctx context.Context, owner, id int64) error {
	return notFound(s.store.Delete(ctx, owner, id))
}

func validateAttribute(req model.AttributeRequest, partial bool) error {
	errs := validation.Errors{}
	if err := validation.Struct(req); err != nil {
		ve, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		errs = ve
	}
	if !partial && req.Name == nil {
		errs.Add("name", msgRequired)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
