package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recipekeep/recipekeep-go/internal/middleware"
)

// RouterConfig holds the dependencies and limits for NewRouter.
type RouterConfig struct {
	Tokens      middleware.TokenValidator
	Auth        AuthService
	Tags        AttributeService
	Ingredients AttributeService
	Recipes     RecipeService

	// Media serves stored images under MediaPrefix when non-nil.
	Media       http.Handler
	MediaPrefix string

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
}

// NewRouter builds the HTTP API. ctx bounds the lifetime of background work
// started by middleware.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Auth)
	tagHandler := NewAttributeHandler(cfg.Tags)
	ingredientHandler := NewAttributeHandler(cfg.Ingredients)
	recipeHandler := NewRecipeHandler(cfg.Recipes, cfg.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed"))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Media != nil {
		prefix := "/" + strings.Trim(cfg.MediaPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", cfg.Media))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst))
			r.Post("/user/create", authHandler.HandleCreate)
			r.Post("/user/token", authHandler.HandleToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.Tokens))
			r.Use(middleware.RequireActiveUser(cfg.Auth))

			r.Get("/user/me", authHandler.HandleMe)
			r.Patch("/user/me", authHandler.HandleUpdateMe)

			r.Route("/recipe", func(r chi.Router) {
				r.Route("/tags", attributeRoutes(tagHandler))
				r.Route("/ingredients", attributeRoutes(ingredientHandler))

				r.Route("/recipes", func(r chi.Router) {
					r.Get("/", recipeHandler.HandleList)
					r.Post("/", recipeHandler.HandleCreate)
					r.Get("/{id}", recipeHandler.HandleGet)
					r.Put("/{id}", recipeHandler.HandleUpdate)
					r.Patch("/{id}", recipeHandler.HandlePatch)
					r.Delete("/{id}", recipeHandler.HandleDelete)
					r.Post("/{id}/upload-image", recipeHandler.HandleUploadImage)
				})
			})
		})
	})

	return r
}

func attributeRoutes(h *AttributeHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Patch("/{id}", h.HandlePatch)
		r.Delete("/{id}", h.HandleDelete)
	}
}
