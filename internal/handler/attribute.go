package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/recipekeep/recipekeep-go/internal/model"
	"github.com/recipekeep/recipekeep-go/internal/validation"
)

// AttributeService is the tag or ingredient behaviour the handlers need.
type AttributeService interface {
	List(ctx context.Context, owner int64, filter model.AttributeFilter) ([]model.AttributeResponse, error)
	Create(ctx context.Context, owner int64, req model.AttributeRequest) (model.AttributeResponse, error)
	Get(ctx context.Context, owner, id int64) (model.AttributeResponse, error)
	Update(ctx context.Context, owner, id int64, req model.AttributeRequest, partial bool) (model.AttributeResponse, error)
	Delete(ctx context.Context, owner, id int64) error
}

// AttributeHandler serves one attribute collection: tags or ingredients.
type AttributeHandler struct {
	service AttributeService
}

// NewAttributeHandler creates a new AttributeHandler.
func NewAttributeHandler(svc AttributeService) *AttributeHandler {
	return &AttributeHandler{service: svc}
}

// HandleList handles GET requests on the collection. assigned_only=1 keeps
// items used by at least one of the caller's recipes.
func (h *AttributeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	assigned, err := parseFlag(r.URL.Query().Get("assigned_only"))
	if err != nil {
		writeValidation(w, validation.Field("assigned_only", "must be 0, 1, true or false"))
		return
	}

	resp, err := h.service.List(r.Context(), userID, model.AttributeFilter{AssignedOnly: assigned})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST requests on the collection.
func (h *AttributeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.AttributeRequest
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

// HandleGet handles GET /{id} requests.
func (h *AttributeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

// HandleUpdate handles PUT /{id} requests.
func (h *AttributeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePatch handles PATCH /{id} requests.
func (h *AttributeHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *AttributeHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.AttributeRequest
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

// HandleDelete handles DELETE /{id} requests.
func (h *AttributeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

// parseFlag treats an absent value as false and otherwise accepts the
// strconv.ParseBool spellings, which include 0 and 1.
func parseFlag(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
