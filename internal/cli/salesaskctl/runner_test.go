package salesaskctl

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/salesask/salesask/internal/storage"
)

const salesCSV = "date,datetime,cash_type,card,money,coffee_name\n" +
	"2024-03-01,2024-03-01 10:15:50.520,card,ANON-0000-0000-0001,38.70,Latte\n" +
	"2024-03-01,2024-03-01 12:19:22.539,card,ANON-0000-0000-0002,89.80,Cappuccino\n" +
	"2024-03-02,,cash,,28.90,Americano\n"

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(salesCSV), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestRunHealthCommand(t *testing.T) {
	var gotMethod, gotPath, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "--api-key", "k1", "health"}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodGet || gotPath != "/v1/health" || gotAPIKey != "k1" {
		t.Fatalf("request = %s %s key=%q", gotMethod, gotPath, gotAPIKey)
	}
	if !strings.Contains(stdout.String(), `"status": "ok"`) {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunAskCommand(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/ask" {
			t.Fatalf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":"Total sales on 2024-03-01 were 128.50.","request_id":"r1"}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "What", "is", "the", "total", "sales", "on", "2024-03-01?"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got["question"] != "What is the total sales on 2024-03-01?" {
		t.Fatalf("question = %q", got["question"])
	}
	if strings.TrimSpace(stdout.String()) != "Total sales on 2024-03-01 were 128.50." {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunAskReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":"QUESTION_NOT_ANSWERABLE","message":"Sorry, that question cannot be answered from the sales data.","retryable":false}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "drop it"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "http 500: QUESTION_NOT_ANSWERABLE") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunSalesRendersTable(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":[{"date":"2024-03-02","datetime":"2024-03-02 09:01:03","cash_type":"cash","card":null,"money":28.9,"coffee_name":"Americano"}],"count":1,"limit":5,"offset":10}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "sales", "--limit", "5", "--offset", "10"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotQuery != "limit=5&offset=10" {
		t.Fatalf("query = %q", gotQuery)
	}
	out := stdout.String()
	for _, want := range []string{"coffee_name", "Americano", "28.90", "1 rows (limit 5, offset 10)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stdout missing %q: %s", want, out)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	for _, args := range [][]string{{}, {"nope"}, {"ask"}, {"health", "extra"}, {"--bogus", "health"}} {
		var stderr bytes.Buffer
		if code := Run(context.Background(), args, Options{Stderr: &stderr}); code != 2 {
			t.Fatalf("args %v: exit code = %d, stderr=%s", args, code, stderr.String())
		}
	}
}

func TestRunSeedCommand(t *testing.T) {
	csvPath := writeCSV(t)
	dbPath := filepath.Join(t.TempDir(), "db.sqlite")

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"seed", "--csv", csvPath, "--db", dbPath}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "inserted 2 rows, skipped 1, total 2") {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "row 4") {
		t.Fatalf("skipped row not reported: %q", stdout.String())
	}

	stdout.Reset()
	if code := Run(context.Background(), []string{"seed", "--csv", csvPath, "--db", dbPath}, Options{Stdout: &stdout}); code != 0 {
		t.Fatalf("second run exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "already holds 2 rows") {
		t.Fatalf("stdout = %q", stdout.String())
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM coffee_sales`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("count = %d err = %v", n, err)
	}
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryObjects) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.ObjectInfo, 0)
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func TestRunPublishCommand(t *testing.T) {
	objects := &memoryObjects{}
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"publish", "--csv", writeCSV(t)}, Options{
		Stdout:      &stdout,
		ObjectStore: func(context.Context) (storage.ObjectStore, error) { return objects, nil },
		Clock:       func() time.Time { return time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC) },
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	want := "coffee_sales/snapshot=20240302T080000Z/part-00000.parquet"
	if _, ok := objects.objects[want]; !ok {
		t.Fatalf("objects = %v", objects.objects)
	}
	if !strings.Contains(stdout.String(), "published 2 rows to "+want) {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunPublishRequiresObjectStore(t *testing.T) {
	var stderr bytes.Buffer
	if code := Run(context.Background(), []string{"publish", "--csv", writeCSV(t)}, Options{Stderr: &stderr}); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
}
