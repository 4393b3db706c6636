package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	EngineSQL    = "sql"
	EngineDuckDB = "duckdb"

	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Store         StoreConfig
	ObjectStore   ObjectStoreConfig
	Pagination    PaginationConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the relational engine the pipeline queries. Engine "sql" talks
// to a database/sql driver; engine "duckdb" reads the Parquet snapshot named by
// Snapshot from the object store.
type StoreConfig struct {
	Engine         string
	Driver         string
	DSN            string
	ConnectTimeout time.Duration
	Snapshot       string
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type PaginationConfig struct {
	PageSize int
}

type AIConfig struct {
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	Timeout          time.Duration
	RateLimit        float64
	RateBurst        int
	InterpretEnabled bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SHOPQA_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SHOPQA_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "SHOPQA_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SHOPQA_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "SHOPQA_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "SHOPQA_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "SHOPQA_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "SHOPQA_STORE_ENGINE", &cfg.Store.Engine) },
		func() error { return applyString(lookup, "SHOPQA_STORE_DRIVER", &cfg.Store.Driver) },
		func() error { return applyString(lookup, "SHOPQA_STORE_DSN", &cfg.Store.DSN) },
		func() error { return applyDuration(lookup, "SHOPQA_STORE_CONNECT_TIMEOUT", &cfg.Store.ConnectTimeout) },
		func() error { return applyString(lookup, "SHOPQA_STORE_SNAPSHOT", &cfg.Store.Snapshot) },
		func() error { return applyString(lookup, "SHOPQA_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "SHOPQA_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "SHOPQA_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "SHOPQA_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error { return applyString(lookup, "SHOPQA_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey) },
		func() error { return applyBool(lookup, "SHOPQA_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "SHOPQA_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "SHOPQA_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyInt(lookup, "SHOPQA_PAGE_SIZE", &cfg.Pagination.PageSize) },
		func() error { return applyString(lookup, "SHOPQA_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "SHOPQA_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "SHOPQA_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "SHOPQA_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "SHOPQA_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyFloat(lookup, "SHOPQA_AI_RATE_LIMIT", &cfg.AI.RateLimit) },
		func() error { return applyInt(lookup, "SHOPQA_AI_RATE_BURST", &cfg.AI.RateBurst) },
		func() error { return applyBool(lookup, "SHOPQA_AI_INTERPRET_ENABLED", &cfg.AI.InterpretEnabled) },
		func() error { return applyBool(lookup, "SHOPQA_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SHOPQA_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	if c.Pagination.PageSize <= 0 {
		return fmt.Errorf("invalid SHOPQA_PAGE_SIZE: %d (must be > 0)", c.Pagination.PageSize)
	}
	switch c.Store.Engine {
	case EngineSQL:
		switch c.Store.Driver {
		case DriverSQLite, DriverPostgres, DriverMySQL:
		default:
			return fmt.Errorf("invalid SHOPQA_STORE_DRIVER: %q", c.Store.Driver)
		}
		if c.Store.DSN == "" {
			return fmt.Errorf("SHOPQA_STORE_DSN is required")
		}
	case EngineDuckDB:
		if c.Store.Snapshot == "" {
			return fmt.Errorf("SHOPQA_STORE_SNAPSHOT is required for the duckdb engine")
		}
	default:
		return fmt.Errorf("invalid SHOPQA_STORE_ENGINE: %q", c.Store.Engine)
	}
	if c.AI.RateLimit < 0 {
		return fmt.Errorf("invalid SHOPQA_AI_RATE_LIMIT: %v", c.AI.RateLimit)
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "shopqa-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Engine:         EngineSQL,
			Driver:         DriverSQLite,
			DSN:            "ecommerce.db",
			ConnectTimeout: 10 * time.Second,
			Snapshot:       "current",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "shopqa",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Pagination: PaginationConfig{
			PageSize: 25,
		},
		AI: AIConfig{
			BaseURL:          "https://api.openai.com",
			Model:            "gpt-4o-mini",
			Temperature:      0,
			Timeout:          60 * time.Second,
			RateLimit:        0,
			RateBurst:        1,
			InterpretEnabled: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.AI.InterpretEnabled = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
