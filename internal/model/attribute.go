package model

// Attribute is a named, user-owned label attached to recipes. Tags and
// ingredients share this shape and live in separate tables.
type Attribute struct {
	ID     int64
	UserID int64
	Name   string
}

// Tag is a recipe label such as "Vegan" or "Breakfast".
type Tag = Attribute

// Ingredient is a recipe component such as "Kale" or "Eggs".
type Ingredient = Attribute

// AttributeRequest represents a tag or ingredient create/update payload.
// Name is a pointer so a partial update can omit it.
type AttributeRequest struct {
	Name *string `json:"name" validate:"omitnil,notblank,max=255"`
}

// AttributeFilter narrows a tag or ingredient listing.
type AttributeFilter struct {
	// AssignedOnly keeps only items referenced by at least one of the owner's recipes.
	AssignedOnly bool
}

// AttributeResponse is the wire form of a tag or ingredient.
type AttributeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ToResponse converts an Attribute for API output.
func (a Attribute) ToResponse() AttributeResponse {
	return AttributeResponse{ID: a.ID, Name: a.Name}
}

// AttributesToResponse converts a slice, never returning nil.
func AttributesToResponse(items []Attribute) []AttributeResponse {
	result := make([]AttributeResponse, len(items))
	for i, a := range items {
		result[i] = a.ToResponse()
	}
	return result
}
