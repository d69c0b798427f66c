package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/salesask/salesask/internal/app"
	"github.com/salesask/salesask/internal/cli/salesaskctl"
	"github.com/salesask/salesask/internal/config"
	"github.com/salesask/salesask/internal/storage"
)

func main() {
	_ = godotenv.Load()

	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("SALESASK_CLI_TIMEOUT")), 70*time.Second)
	options := salesaskctl.Options{
		BaseURL:     envOr("SALESASK_API_URL", "http://localhost:8080"),
		APIKey:      strings.TrimSpace(os.Getenv("SALESASK_API_KEY")),
		Timeout:     timeout,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		ObjectStore: openObjectStore,
	}

	code := salesaskctl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func openObjectStore(ctx context.Context) (storage.ObjectStore, error) {
	cfg, err := config.LoadFromEnv("salesaskctl")
	if err != nil {
		return nil, err
	}
	store, err := app.NewObjectStore(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid SALESASK_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
