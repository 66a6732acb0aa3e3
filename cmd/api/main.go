package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/recipekeep/recipekeep-go/internal/config"
	"github.com/recipekeep/recipekeep-go/internal/crypto"
	"github.com/recipekeep/recipekeep-go/internal/handler"
	"github.com/recipekeep/recipekeep-go/internal/repository"
	"github.com/recipekeep/recipekeep-go/internal/service"
	"github.com/recipekeep/recipekeep-go/internal/storage"
	"github.com/recipekeep/recipekeep-go/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)})))

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, cfg.Server.Env)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := repository.NewDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
	}

	hasher, err := crypto.NewHasher(crypto.DefaultHashParams())
	if err != nil {
		return err
	}
	tokens := crypto.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	images, media, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)

	router := handler.NewRouter(ctx, handler.RouterConfig{
		Tokens:         tokens,
		Auth:           service.NewAuthService(repository.NewUserRepository(db), hasher, tokens),
		Tags:           service.NewAttributeService(tagRepo),
		Ingredients:    service.NewAttributeService(ingredientRepo),
		Recipes:        service.NewRecipeService(repository.NewRecipeRepository(db), tagRepo, ingredientRepo, images),
		Media:          media,
		MediaPrefix:    cfg.Storage.MediaURL,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           otelhttp.NewHandler(router, "recipekeep"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "env", cfg.Server.Env, "image_store", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	return nil
}

// newImageStore builds the configured image backend. The returned handler
// serves local files and is nil for remote stores.
func newImageStore(ctx context.Context, cfg config.StorageConfig) (storage.ImageStore, http.Handler, error) {
	switch cfg.Backend {
	case config.StorageS3:
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		store, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Handler(), nil
	}
}

func logLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
