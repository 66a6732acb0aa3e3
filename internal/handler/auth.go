package handler

import (
	"context"
	"net/http"

	"github.com/recipekeep/recipekeep-go/internal/model"
)

// AuthService is the account behaviour the handlers need.
type AuthService interface {
	Register(ctx context.Context, req model.CreateUserRequest) (model.UserResponse, error)
	Authenticate(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error)
	GetProfile(ctx context.Context, userID int64) (model.UserResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req model.UpdateUserRequest) (model.UserResponse, error)
	IsActive(ctx context.Context, userID int64) (bool, error)
}

// AuthHandler handles HTTP requests for accounts and tokens.
type AuthHandler struct {
	service AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// HandleCreate handles POST /api/v1/user/create requests.
func (h *AuthHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleToken handles POST /api/v1/user/token requests.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Authenticate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /api/v1/user/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdateMe handles PATCH /api/v1/user/me requests.
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
