package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/recipekeep/recipekeep-go/internal/model"
	"github.com/recipekeep/recipekeep-go/internal/validation"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// RecipeService is the recipe behaviour the handlers need.
type RecipeService interface {
	List(ctx context.Context, owner int64, filter model.RecipeFilter) ([]model.RecipeResponse, error)
	Create(ctx context.Context, owner int64, req model.RecipeRequest) (model.RecipeDetailResponse, error)
	Get(ctx context.Context, owner, id int64) (model.RecipeDetailResponse, error)
	Update(ctx context.Context, owner, id int64, req model.RecipeRequest, partial bool) (model.RecipeDetailResponse, error)
	Delete(ctx context.Context, owner, id int64) error
	AttachImage(ctx context.Context, owner, id int64, filename string, r io.Reader) (model.RecipeImageResponse, error)
}

// RecipeHandler handles HTTP requests for recipes.
type RecipeHandler struct {
	service        RecipeService
	maxUploadBytes int64
}

// NewRecipeHandler creates a new RecipeHandler. Image uploads larger than
// maxUploadBytes are rejected with 413.
func NewRecipeHandler(svc RecipeService, maxUploadBytes int64) *RecipeHandler {
	return &RecipeHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// HandleList handles GET /recipes. The tags and ingredients query parameters
// take comma-separated IDs.
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	errs := validation.Errors{}
	tagIDs, err := parseIDList(query.Get("tags"))
	if err != nil {
		errs.Add("tags", "must be a comma-separated list of integer IDs")
	}
	ingredientIDs, err := parseIDList(query.Get("ingredients"))
	if err != nil {
		errs.Add("ingredients", "must be a comma-separated list of integer IDs")
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	resp, err := h.service.List(r.Context(), userID, model.RecipeFilter{TagIDs: tagIDs, IngredientIDs: ingredientIDs})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /recipes.
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleGet handles GET /recipes/{id}.
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate handles PUT /recipes/{id}.
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePatch handles PATCH /recipes/{id}.
func (h *RecipeHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.RecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Update(r.Context(), userID, id, req, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /recipes/{id}.
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadImage handles POST /recipes/{id}/upload-image with a multipart
// "image" file field.
func (h *RecipeHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if r.ContentLength > h.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return
		}
		writeValidation(w, validation.Field("image", "no file was submitted"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeValidation(w, validation.Field("image", "no file was submitted"))
		return
	}
	defer file.Close()

	resp, err := h.service.AttachImage(r.Context(), userID, id, header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseIDList parses "1,2,3". An empty string yields no IDs.
func parseIDList(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
