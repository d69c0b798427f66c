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
	StoreDriverSQLite   = "sqlite"
	StoreDriverDuckDB   = "duckdb"
	StoreDriverParquet  = "parquet"
	StoreDriverPostgres = "postgres"
)

const (
	AIProviderOpenAI = "openai"
	AIProviderOllama = "ollama"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Store         StoreConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	Pipeline      PipelineConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
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

type StoreConfig struct {
	Driver          string
	Path            string
	DSN             string
	WorkDir         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type AIConfig struct {
	Provider             string
	BaseURL              string
	APIKey               string
	Model                string
	TranslateTemperature float64
	SummarizeTemperature float64
	Timeout              time.Duration
	RetryBackoff         time.Duration
}

type PipelineConfig struct {
	RequestTimeout    time.Duration
	StatementTimeout  time.Duration
	RowCap            int
	MaxScanRows       int
	SummaryRows       int
	StrictSchema      bool
	MaxConcurrent     int
	MaxQuestionLength int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SALESASK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SALESASK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "SALESASK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_STORE_DRIVER", &cfg.Store.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_STORE_PATH", &cfg.Store.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_STORE_DSN", &cfg.Store.DSN); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_STORE_WORK_DIR", &cfg.Store.WorkDir); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESASK_STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESASK_STORE_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_STORE_CONN_MAX_IDLE_TIME", &cfg.Store.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_STORE_CONN_MAX_LIFETIME", &cfg.Store.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SALESASK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_AI_PROVIDER", &cfg.AI.Provider); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "SALESASK_AI_TRANSLATE_TEMPERATURE", &cfg.AI.TranslateTemperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "SALESASK_AI_SUMMARIZE_TEMPERATURE", &cfg.AI.SummarizeTemperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_AI_RETRY_BACKOFF", &cfg.AI.RetryBackoff); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_PIPELINE_REQUEST_TIMEOUT", &cfg.Pipeline.RequestTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESASK_PIPELINE_STATEMENT_TIMEOUT", &cfg.Pipeline.StatementTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESASK_PIPELINE_ROW_CAP", &cfg.Pipeline.RowCap); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESASK_PIPELINE_MAX_SCAN_ROWS", &cfg.Pipeline.MaxScanRows); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESASK_PIPELINE_SUMMARY_ROWS", &cfg.Pipeline.SummaryRows); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SALESASK_PIPELINE_STRICT_SCHEMA", &cfg.Pipeline.StrictSchema); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESASK_PIPELINE_MAX_CONCURRENT", &cfg.Pipeline.MaxConcurrent); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESASK_PIPELINE_MAX_QUESTION_LENGTH", &cfg.Pipeline.MaxQuestionLength); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SALESASK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "SALESASK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SALESASK_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SALESASK_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
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
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverDuckDB:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for driver %q", c.Store.Driver)
		}
	case StoreDriverParquet:
		if c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "" {
			return fmt.Errorf("object store endpoint and bucket are required for driver %q", c.Store.Driver)
		}
	case StoreDriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid SALESASK_STORE_DRIVER: %q", c.Store.Driver)
	}
	switch c.AI.Provider {
	case AIProviderOpenAI, AIProviderOllama:
	default:
		return fmt.Errorf("invalid SALESASK_AI_PROVIDER: %q", c.AI.Provider)
	}
	if c.Pipeline.RowCap <= 0 || c.Pipeline.MaxScanRows < c.Pipeline.RowCap {
		return fmt.Errorf("pipeline row cap must be positive and not exceed max scan rows")
	}
	if c.Pipeline.SummaryRows <= 0 {
		return fmt.Errorf("pipeline summary rows must be positive")
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		return fmt.Errorf("pipeline max concurrent must be positive")
	}
	if c.Pipeline.RequestTimeout <= 0 || c.Pipeline.StatementTimeout <= 0 {
		return fmt.Errorf("pipeline timeouts must be positive")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "salesask-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver:          StoreDriverSQLite,
			Path:            "data/db.sqlite",
			MaxOpenConns:    8,
			MaxIdleConns:    8,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:        "localhost:9000",
			Region:          "us-east-1",
			Bucket:          "salesask",
			AccessKeyID:     "minio",
			SecretAccessKey: "miniostorage",
			UseSSL:          false,
			Prefix:          "salesask",
		},
		AI: AIConfig{
			Provider:             AIProviderOpenAI,
			BaseURL:              "https://api.openai.com",
			Model:                "gpt-5",
			TranslateTemperature: 0,
			SummarizeTemperature: 0.3,
			Timeout:              15 * time.Second,
			RetryBackoff:         500 * time.Millisecond,
		},
		Pipeline: PipelineConfig{
			RequestTimeout:    60 * time.Second,
			StatementTimeout:  5 * time.Second,
			RowCap:            200,
			MaxScanRows:       1000,
			SummaryRows:       50,
			StrictSchema:      true,
			MaxConcurrent:     16,
			MaxQuestionLength: 2000,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
		cfg.AI.RetryBackoff = 10 * time.Millisecond
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
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
