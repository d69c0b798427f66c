package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/salesask/salesask/internal/config"
	"github.com/salesask/salesask/internal/oracle"
	"github.com/salesask/salesask/internal/seed"
)

func loadConfig(t *testing.T, values map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("salesask-api", func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.sqlite")
	sales := []seed.Sale{
		{Date: "2024-03-01", Datetime: "2024-03-01 10:15:50", CashType: "card", Money: 38.7, CoffeeName: "Latte"},
		{Date: "2024-03-01", Datetime: "2024-03-01 12:19:22", CashType: "cash", Money: 89.8, CoffeeName: "Cappuccino"},
	}
	if _, err := seed.LoadSQLite(context.Background(), path, sales); err != nil {
		t.Fatalf("LoadSQLite() error = %v", err)
	}
	return path
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"SALESASK_STORE_PATH": seedSQLite(t)})
	store, err := OpenStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := loadConfig(t, nil)
	cfg.Store.Driver = "oracle"
	if _, err := OpenStore(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenStoreMissingFile(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"SALESASK_STORE_PATH": filepath.Join(t.TempDir(), "missing.sqlite")})
	store, err := OpenStore(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("expected error for missing sqlite file")
	}
	if store != nil {
		t.Fatal("store must be nil on error")
	}
}

func TestNewOracleSelectsProvider(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"SALESASK_AI_PROVIDER": "ollama", "SALESASK_AI_BASE_URL": "http://localhost:11434", "SALESASK_AI_MODEL": "llama3"})
	o, err := NewOracle(cfg, nil)
	if err != nil {
		t.Fatalf("NewOracle() error = %v", err)
	}
	retrying, ok := o.(*oracle.Retrying)
	if !ok {
		t.Fatalf("oracle = %T, want *oracle.Retrying", o)
	}
	if _, ok := retrying.Next.(*oracle.OllamaOracle); !ok {
		t.Fatalf("provider = %T", retrying.Next)
	}

	cfg = loadConfig(t, nil)
	if _, err := NewOracle(cfg, nil); err == nil {
		t.Fatal("openai provider requires an api key")
	}
}

func TestPipelineAnswersFromSQLite(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT SUM(money) AS total FROM coffee_sales WHERE date = '2024-03-01';"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Total sales on 2024-03-01 were 128.50."}}]}`))
	}))
	defer server.Close()

	cfg := loadConfig(t, map[string]string{
		"SALESASK_STORE_PATH":  seedSQLite(t),
		"SALESASK_AI_BASE_URL": server.URL,
		"SALESASK_AI_API_KEY":  "k",
	})
	store, err := OpenStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer func() { _ = store.Close() }()
	o, err := NewOracle(cfg, nil)
	if err != nil {
		t.Fatalf("NewOracle() error = %v", err)
	}

	answer, err := NewPipeline(cfg, store, o, nil).Ask(context.Background(), "What is the total sales on 2024-03-01?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.Contains(answer.Text, "128.50") || calls.Load() != 2 {
		t.Fatalf("answer = %#v calls = %d", answer, calls.Load())
	}
}
