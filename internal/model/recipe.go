package model

// Recipe represents a recipe row. Tags and Ingredients hold related rows when
// they have been loaded.
type Recipe struct {
	ID            int64
	UserID        int64
	Title         string
	TimeMinutes   int
	Price         Price
	Link          string
	Image         string // storage key, empty when no image is attached
	TagIDs        []int64
	IngredientIDs []int64
	Tags          []Tag
	Ingredients   []Ingredient
}

// RecipeRequest represents a recipe create or update payload. Pointer fields
// distinguish "omitted" from a zero value so partial updates leave omitted
// fields untouched.
type RecipeRequest struct {
	Title       *string  `json:"title" validate:"omitnil,notblank,max=255"`
	TimeMinutes *int     `json:"time_minutes" validate:"omitnil,gte=0,lte=2147483647"`
	Price       *Price   `json:"price" validate:"omitnil,price"`
	Link        *string  `json:"link" validate:"omitnil,max=255"`
	Tags        *[]int64 `json:"tags"`
	Ingredients *[]int64 `json:"ingredients"`
}

// RecipeFilter narrows a recipe listing by relation membership.
type RecipeFilter struct {
	TagIDs        []int64
	IngredientIDs []int64
}

// RecipeResponse is the list representation: relations as ID arrays.
type RecipeResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Ingredients []int64 `json:"ingredients"`
	Tags        []int64 `json:"tags"`
	TimeMinutes int     `json:"time_minutes"`
	Price       Price   `json:"price"`
	Link        string  `json:"link"`
}

// RecipeDetailResponse is the detail representation: relations expanded inline.
type RecipeDetailResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Ingredients []AttributeResponse `json:"ingredients"`
	Tags        []AttributeResponse `json:"tags"`
	TimeMinutes int                 `json:"time_minutes"`
	Price       Price               `json:"price"`
	Link        string              `json:"link"`
	Image       *string             `json:"image"`
}

// RecipeImageResponse is returned by the image upload endpoint.
type RecipeImageResponse struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}

// ToResponse builds the list representation.
func (r *Recipe) ToResponse() RecipeResponse {
	return RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		Ingredients: nonNilIDs(r.IngredientIDs),
		Tags:        nonNilIDs(r.TagIDs),
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
	}
}

// ToDetailResponse builds the detail representation. imageURL is the public
// URL of the stored image, empty when none is attached.
func (r *Recipe) ToDetailResponse(imageURL string) RecipeDetailResponse {
	resp := RecipeDetailResponse{
		ID:          r.ID,
		Title:       r.Title,
		Ingredients: AttributesToResponse(r.Ingredients),
		Tags:        AttributesToResponse(r.Tags),
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
	}
	if imageURL != "" {
		resp.Image = &imageURL
	}
	return resp
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
