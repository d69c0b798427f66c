package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("salesask-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Fatalf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.Store.Path != "data/db.sqlite" {
		t.Fatalf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.AI.Provider != AIProviderOpenAI {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gpt-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.TranslateTemperature != 0 {
		t.Fatalf("AI.TranslateTemperature = %v", cfg.AI.TranslateTemperature)
	}
	if cfg.AI.SummarizeTemperature <= cfg.AI.TranslateTemperature {
		t.Fatalf("AI.SummarizeTemperature = %v", cfg.AI.SummarizeTemperature)
	}
	if cfg.Pipeline.SummaryRows != 50 {
		t.Fatalf("Pipeline.SummaryRows = %d", cfg.Pipeline.SummaryRows)
	}
	if !cfg.Pipeline.StrictSchema {
		t.Fatal("Pipeline.StrictSchema should default to true")
	}
	if cfg.Pipeline.RowCap != 200 || cfg.Pipeline.MaxScanRows != 1000 {
		t.Fatalf("Pipeline row limits = %d/%d", cfg.Pipeline.RowCap, cfg.Pipeline.MaxScanRows)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"SALESASK_PROFILE": "prod"})
	cfg, err := Load("salesask-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadTestProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"SALESASK_PROFILE": "test"})
	cfg, err := Load("salesask-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":18080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"SALESASK_PROFILE":                  "test",
		"SALESASK_SERVICE_NAME":             "salesask-custom",
		"SALESASK_HTTP_ADDR":                ":19090",
		"SALESASK_HTTP_READ_TIMEOUT":        "7s",
		"SALESASK_STORE_DRIVER":             "DuckDB",
		"SALESASK_STORE_PATH":               "/data/sales.duckdb",
		"SALESASK_AI_PROVIDER":              "ollama",
		"SALESASK_AI_BASE_URL":              "http://localhost:11434",
		"SALESASK_AI_MODEL":                 "llama3",
		"SALESASK_AI_SUMMARIZE_TEMPERATURE": "0.5",
		"SALESASK_AI_RETRY_BACKOFF":         "250ms",
		"SALESASK_PIPELINE_REQUEST_TIMEOUT": "30s",
		"SALESASK_PIPELINE_ROW_CAP":         "50",
		"SALESASK_PIPELINE_STRICT_SCHEMA":   "false",
		"SALESASK_PIPELINE_MAX_CONCURRENT":  "4",
		"SALESASK_LOG_LEVEL":                "error",
		"SALESASK_LOG_JSON":                 "false",
		"SALESASK_AUTH_REQUIRED":            "true",
		"SALESASK_AUTH_STATIC_KEYS":         "k1:analyst",
	})

	cfg, err := Load("ignored", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "salesask-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":19090" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 7*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.Store.Driver != StoreDriverDuckDB || cfg.Store.Path != "/data/sales.duckdb" {
		t.Fatalf("Store = %+v", cfg.Store)
	}
	if cfg.AI.Provider != AIProviderOllama || cfg.AI.Model != "llama3" {
		t.Fatalf("AI = %+v", cfg.AI)
	}
	if cfg.AI.SummarizeTemperature != 0.5 {
		t.Fatalf("AI.SummarizeTemperature = %v", cfg.AI.SummarizeTemperature)
	}
	if cfg.AI.RetryBackoff != 250*time.Millisecond {
		t.Fatalf("AI.RetryBackoff = %v", cfg.AI.RetryBackoff)
	}
	if cfg.Pipeline.RequestTimeout != 30*time.Second {
		t.Fatalf("Pipeline.RequestTimeout = %v", cfg.Pipeline.RequestTimeout)
	}
	if cfg.Pipeline.RowCap != 50 {
		t.Fatalf("Pipeline.RowCap = %d", cfg.Pipeline.RowCap)
	}
	if cfg.Pipeline.StrictSchema {
		t.Fatal("Pipeline.StrictSchema should be false")
	}
	if cfg.Pipeline.MaxConcurrent != 4 {
		t.Fatalf("Pipeline.MaxConcurrent = %d", cfg.Pipeline.MaxConcurrent)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogJSON {
		t.Fatal("LogJSON should be false")
	}
	if !cfg.Auth.Required || cfg.Auth.StaticKeys != "k1:analyst" {
		t.Fatalf("Auth = %+v", cfg.Auth)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "profile", env: map[string]string{"SALESASK_PROFILE": "staging"}},
		{name: "duration", env: map[string]string{"SALESASK_HTTP_READ_TIMEOUT": "abc"}},
		{name: "bool", env: map[string]string{"SALESASK_AUTH_REQUIRED": "maybe"}},
		{name: "int", env: map[string]string{"SALESASK_PIPELINE_ROW_CAP": "lots"}},
		{name: "float", env: map[string]string{"SALESASK_AI_TRANSLATE_TEMPERATURE": "hot"}},
		{name: "log level", env: map[string]string{"SALESASK_LOG_LEVEL": "verbose"}},
		{name: "driver", env: map[string]string{"SALESASK_STORE_DRIVER": "oracle"}},
		{name: "provider", env: map[string]string{"SALESASK_AI_PROVIDER": "unknown"}},
		{name: "postgres without dsn", env: map[string]string{"SALESASK_STORE_DRIVER": "postgres"}},
		{name: "row cap over scan cap", env: map[string]string{"SALESASK_PIPELINE_ROW_CAP": "5000"}},
		{name: "zero concurrency", env: map[string]string{"SALESASK_PIPELINE_MAX_CONCURRENT": "0"}},
		{name: "zero statement timeout", env: map[string]string{"SALESASK_PIPELINE_STATEMENT_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load("salesask-api", mapLookup(tt.env)); err == nil {
				t.Fatalf("expected error for %v", tt.env)
			}
		})
	}
}

func TestLoadRequiresLookup(t *testing.T) {
	if _, err := Load("salesask-api", nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}
