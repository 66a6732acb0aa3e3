package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/recipekeep/recipekeep-go/internal/crypto"
	"github.com/recipekeep/recipekeep-go/internal/model"
)

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
	aliceID    = int64(1)
	bobID      = int64(2)
)

type fakeTokens map[string]int64

func (f fakeTokens) Validate(token string) (*crypto.Claims, error) {
	id, ok := f[token]
	if !ok {
		return nil, crypto.ErrInvalidToken
	}
	return &crypto.Claims{UserID: id}, nil
}

type fakeAuth struct {
	register      func(model.CreateUserRequest) (model.UserResponse, error)
	authenticate  func(model.LoginRequest) (model.TokenResponse, error)
	getProfile    func(int64) (model.UserResponse, error)
	updateProfile func(int64, model.UpdateUserRequest) (model.UserResponse, error)

	// inactive lists user IDs whose accounts are deleted or deactivated.
	inactive  map[int64]bool
	statusErr error
}

func (f *fakeAuth) Register(_ context.Context, req model.CreateUserRequest) (model.UserResponse, error) {
	return f.register(req)
}

func (f *fakeAuth) Authenticate(_ context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	return f.authenticate(req)
}

func (f *fakeAuth) GetProfile(_ context.Context, userID int64) (model.UserResponse, error) {
	return f.getProfile(userID)
}

func (f *fakeAuth) IsActive(_ context.Context, userID int64) (bool, error) {
	if f.statusErr != nil {
		return false, f.statusErr
	}
	return !f.inactive[userID], nil
}

func (f *fakeAuth) UpdateProfile(_ context.Context, userID int64, req model.UpdateUserRequest) (model.UserResponse, error) {
	return f.updateProfile(userID, req)
}

type attributeCall struct {
	owner   int64
	id      int64
	req     model.AttributeRequest
	partial bool
	filter  model.AttributeFilter
}

type fakeAttributes struct {
	calls []attributeCall
	err   error
	items []model.AttributeResponse
}

func (f *fakeAttributes) List(_ context.Context, owner int64, filter model.AttributeFilter) ([]model.AttributeResponse, error) {
	f.calls = append(f.calls, attributeCall{owner: owner, filter: filter})
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeAttributes) Create(_ context.Context, owner int64, req model.AttributeRequest) (model.AttributeResponse, error) {
	f.calls = append(f.calls, attributeCall{owner: owner, req: req})
	if f.err != nil {
		return model.AttributeResponse{}, f.err
	}
	return model.AttributeResponse{ID: 10, Name: *req.Name}, nil
}

func (f *fakeAttributes) Get(_ context.Context, owner, id int64) (model.AttributeResponse, error) {
	f.calls = append(f.calls, attributeCall{owner: owner, id: id})
	if f.err != nil {
		return model.AttributeResponse{}, f.err
	}
	return model.AttributeResponse{ID: id, Name: "Vegan"}, nil
}

func (f *fakeAttributes) Update(_ context.Context, owner, id int64, req model.AttributeRequest, partial bool) (model.AttributeResponse, error) {
	f.calls = append(f.calls, attributeCall{owner: owner, id: id, req: req, partial: partial})
	if f.err != nil {
		return model.AttributeResponse{}, f.err
	}
	return model.AttributeResponse{ID: id, Name: "Renamed"}, nil
}

func (f *fakeAttributes) Delete(_ context.Context, owner, id int64) error {
	f.calls = append(f.calls, attributeCall{owner: owner, id: id})
	return f.err
}

type recipeCall struct {
	owner    int64
	id       int64
	req      model.RecipeRequest
	partial  bool
	filter   model.RecipeFilter
	filename string
	image    []byte
}

type fakeRecipes struct {
	calls []recipeCall
	err   error
}

func (f *fakeRecipes) List(_ context.Context, owner int64, filter model.RecipeFilter) ([]model.RecipeResponse, error) {
	f.calls = append(f.calls, recipeCall{owner: owner, filter: filter})
	if f.err != nil {
		return nil, f.err
	}
	return []model.RecipeResponse{{ID: 1, Title: "Soup", Tags: []int64{}, Ingredients: []int64{}, Price: 550}}, nil
}

func (f *fakeRecipes) Create(_ context.Context, owner int64, req model.RecipeRequest) (model.RecipeDetailResponse, error) {
	f.calls = append(f.calls, recipeCall{owner: owner, req: req})
	if f.err != nil {
		return model.RecipeDetailResponse{}, f.err
	}
	return detail(7), nil
}

func (f *fakeRecipes) Get(_ context.Context, owner, id int64) (model.RecipeDetailResponse, error) {
	f.calls = append(f.calls, recipeCall{owner: owner, id: id})
	if f.err != nil {
		return model.RecipeDetailResponse{}, f.err
	}
	return detail(id), nil
}

func (f *fakeRecipes) Update(_ context.Context, owner, id int64, req model.RecipeRequest, partial bool) (model.RecipeDetailResponse, error) {
	f.calls = append(f.calls, recipeCall{owner: owner, id: id, req: req, partial: partial})
	if f.err != nil {
		return model.RecipeDetailResponse{}, f.err
	}
	return detail(id), nil
}

func (f *fakeRecipes) Delete(_ context.Context, owner, id int64) error {
	f.calls = append(f.calls, recipeCall{owner: owner, id: id})
	return f.err
}

func (f *fakeRecipes) AttachImage(_ context.Context, owner, id int64, filename string, r io.Reader) (model.RecipeImageResponse, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.RecipeImageResponse{}, err
	}
	f.calls = append(f.calls, recipeCall{owner: owner, id: id, filename: filename, image: data})
	if f.err != nil {
		return model.RecipeImageResponse{}, f.err
	}
	return model.RecipeImageResponse{ID: id, Image: "/media/uploads/recipe/" + filename}, nil
}

func detail(id int64) model.RecipeDetailResponse {
	return model.RecipeDetailResponse{
		ID:          id,
		Title:       "Soup",
		Tags:        []model.AttributeResponse{},
		Ingredients: []model.AttributeResponse{},
		TimeMinutes: 10,
		Price:       550,
	}
}

type testServer struct {
	handler     http.Handler
	auth        *fakeAuth
	tags        *fakeAttributes
	ingredients *fakeAttributes
	recipes     *fakeRecipes
}

const testMaxUpload = 1 << 10

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := &testServer{
		auth:        &fakeAuth{},
		tags:        &fakeAttributes{},
		ingredients: &fakeAttributes{},
		recipes:     &fakeRecipes{},
	}
	s.handler = NewRouter(ctx, RouterConfig{
		Tokens:      fakeTokens{aliceToken: aliceID, bobToken: bobID},
		Auth:        s.auth,
		Tags:        s.tags,
		Ingredients: s.ingredients,
		Recipes:     s.recipes,
		Media: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.URL.Path))
		}),
		MediaPrefix:    "/media/",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		MaxUploadBytes: testMaxUpload,
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(t, method, path, token, r, "application/json")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(dst))
}

type validationBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

func requireValidation(t *testing.T, rec *httptest.ResponseRecorder, field string) validationBody {
	t.Helper()
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var body validationBody
	decodeBody(t, rec, &body)
	require.Equal(t, "validation failed", body.Error)
	require.Contains(t, body.Fields, field)
	return body
}
