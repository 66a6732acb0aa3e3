package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const defaultJWTSecret = "dev-secret-change-in-production"

// Image store backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Storage  StorageConfig  `koanf:"storage"`
	Logging  LoggingConfig  `koanf:"logging"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

type ServerConfig struct {
	Port           string   `koanf:"port"`
	Env            string   `koanf:"env"`
	CORSOrigins    []string `koanf:"cors_origins"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes"`
	RateLimitRPS   float64  `koanf:"rate_limit_rps"`
	RateLimitBurst int      `koanf:"rate_limit_burst"`
}

type DatabaseConfig struct {
	DSN            string `koanf:"dsn"`
	MigrateOnStart bool   `koanf:"migrate_on_start"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	JWTExpiry time.Duration `koanf:"jwt_expiry"`
}

type StorageConfig struct {
	Backend     string `koanf:"backend"`
	MediaRoot   string `koanf:"media_root"`
	MediaURL    string `koanf:"media_url"`
	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
	S3PublicURL string `koanf:"s3_public_url"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// TracingConfig enables OTLP export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// envKeys maps environment variable names to koanf paths. Variables not
// listed here are ignored.
var envKeys = map[string]string{
	"port":                        "server.port",
	"env":                         "server.env",
	"cors_origins":                "server.cors_origins",
	"max_upload_bytes":            "server.max_upload_bytes",
	"rate_limit_rps":              "server.rate_limit_rps",
	"rate_limit_burst":            "server.rate_limit_burst",
	"database_dsn":                "database.dsn",
	"migrate_on_start":            "database.migrate_on_start",
	"jwt_secret":                  "auth.jwt_secret",
	"jwt_expiry":                  "auth.jwt_expiry",
	"image_store":                 "storage.backend",
	"media_root":                  "storage.media_root",
	"media_url":                   "storage.media_url",
	"s3_bucket":                   "storage.s3_bucket",
	"s3_region":                   "storage.s3_region",
	"s3_endpoint":                 "storage.s3_endpoint",
	"s3_access_key":               "storage.s3_access_key",
	"s3_secret_key":               "storage.s3_secret_key",
	"s3_public_url":               "storage.s3_public_url",
	"log_level":                   "logging.level",
	"otel_exporter_otlp_endpoint": "tracing.endpoint",
	"otel_service_name":           "tracing.service_name",
}

// sliceKeys are accepted as comma-separated strings from the environment.
var sliceKeys = []string{"server.cors_origins"}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			CORSOrigins:    []string{},
			MaxUploadBytes: 10 << 20,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Database: DatabaseConfig{
			DSN:            "root:password@tcp(127.0.0.1:3306)/recipekeep?parseTime=true",
			MigrateOnStart: true,
		},
		Auth: AuthConfig{
			JWTSecret: defaultJWTSecret,
			JWTExpiry: 24 * time.Hour,
		},
		Storage: StorageConfig{
			Backend:   StorageLocal,
			MediaRoot: "./media",
			MediaURL:  "/media/",
			S3Region:  "us-east-1",
		},
		Logging: LoggingConfig{Level: "info"},
		Tracing: TracingConfig{ServiceName: "recipekeep"},
	}
}

// Load layers struct defaults, an optional YAML file named by CONFIG_PATH and
// environment variables, in increasing priority.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envTransform(key string) string {
	return envKeys[strings.ToLower(key)]
}

func splitSlices(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}

// IsProduction reports whether the server runs with ENV=production.
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production environment"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.Auth.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.MediaRoot == "" {
			errs = append(errs, errors.New("MEDIA_ROOT is required for the local image store"))
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 image store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_STORE %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}
