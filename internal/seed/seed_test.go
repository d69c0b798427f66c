package seed

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/salesask/salesask/internal/storage"
)

const sampleCSV = "date;datetime;cash_type;card;money;coffee_name\n" +
	"2024-03-01;2024-03-01 10:15:50.520;card;ANON-0000-0000-0001;38,70;Latte\n" +
	"01/03/2024;2024-03-01 12:19:22.539;CARD;ANON-0000-0000-0002;89.80;Cappuccino\n" +
	"2024-03-02;2024-03-02 09:01:03.000;cash;;28.90;Americano\n" +
	"2024-03-02;;cash;;28.90;Americano\n" +
	"2024-03-02;2024-03-02 09:05:00.000;voucher;;28.90;Americano\n" +
	"not-a-date;2024-03-02 09:06:00.000;cash;;28.90;Americano\n" +
	"2024-03-02;2024-03-02 09:07:00.000;cash;;28.90;\n"

func TestParseAppliesRowRules(t *testing.T) {
	report, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(report.Sales) != 3 {
		t.Fatalf("sales = %d, want 3", len(report.Sales))
	}
	if len(report.Skipped) != 4 {
		t.Fatalf("skipped = %+v", report.Skipped)
	}
	if report.Skipped[0].Row != 5 || report.Skipped[0].Reason != "missing datetime" {
		t.Fatalf("first skipped = %+v", report.Skipped[0])
	}

	latte := report.Sales[0]
	if latte.Money != 38.7 || latte.Card == nil || *latte.Card != "ANON-0000-0000-0001" {
		t.Fatalf("latte = %+v", latte)
	}
	cappuccino := report.Sales[1]
	if cappuccino.Date != "2024-03-01" || cappuccino.CashType != "card" {
		t.Fatalf("cappuccino = %+v", cappuccino)
	}
	if report.Sales[2].Card != nil {
		t.Fatal("cash sale should have no card")
	}
}

func TestParseDateLayouts(t *testing.T) {
	tests := map[string]string{
		"2024-01-15": "2024-01-15",
		"15/01/2024": "2024-01-15",
		"01/15/2024": "2024-01-15",
		"15-01-2024": "2024-01-15",
		"2024/01/15": "2024-01-15",
	}
	for input, want := range tests {
		got, err := ParseDate(input)
		if err != nil {
			t.Fatalf("ParseDate(%q) error = %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseDate(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseDate("yesterday"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseCommaDelimited(t *testing.T) {
	input := "date,datetime,cash_type,card,money,coffee_name\n2024-03-01,2024-03-01 10:15:50,cash,,\"38,70\",Latte\n"
	report, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(report.Sales) != 1 || report.Sales[0].Money != 38.7 {
		t.Fatalf("report = %+v", report)
	}
}

func TestLoadSQLiteSeedsOnlyEmptyTable(t *testing.T) {
	report, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "db.sqlite")

	result, err := LoadSQLite(context.Background(), path, report.Sales)
	if err != nil {
		t.Fatalf("LoadSQLite() error = %v", err)
	}
	if result.Inserted != 3 || result.Total != 3 || result.Existing != 0 {
		t.Fatalf("result = %+v", result)
	}

	result, err = LoadSQLite(context.Background(), path, report.Sales)
	if err != nil {
		t.Fatalf("LoadSQLite() second run error = %v", err)
	}
	if result.Inserted != 0 || result.Existing != 3 || result.Total != 3 {
		t.Fatalf("second result = %+v", result)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()
	var total float64
	if err := db.QueryRow(`SELECT SUM(money) FROM coffee_sales WHERE date = '2024-03-01'`).Scan(&total); err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total < 128.49 || total > 128.51 {
		t.Fatalf("total = %v", total)
	}
}

func TestPublishUploadsParquetSnapshot(t *testing.T) {
	report, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	objects := &memoryStore{objects: map[string][]byte{}}
	at := time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)

	info, err := Publish(context.Background(), objects, report.Sales, at)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if info.Key != "coffee_sales/snapshot=20240303T080000Z/part-00000.parquet" {
		t.Fatalf("key = %q", info.Key)
	}
	if objects.contentType != storage.ContentTypeParquet {
		t.Fatalf("content type = %q", objects.contentType)
	}
	if objects.metadata["rows"] != "3" || objects.metadata["table"] != "coffee_sales" {
		t.Fatalf("metadata = %v", objects.metadata)
	}

	rows, err := parquet.Read[Sale](bytes.NewReader(objects.objects[info.Key]), int64(len(objects.objects[info.Key])))
	if err != nil {
		t.Fatalf("parquet.Read() error = %v", err)
	}
	if len(rows) != 3 || rows[1].CoffeeName != "Cappuccino" || rows[2].Card != nil {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestPublishRequiresSales(t *testing.T) {
	if _, err := Publish(context.Background(), &memoryStore{objects: map[string][]byte{}}, nil, time.Now()); err == nil {
		t.Fatal("expected error for empty snapshot")
	}
}

type memoryStore struct {
	objects     map[string][]byte
	contentType string
	metadata    map[string]string
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.objects[key] = data
	m.contentType = opts.ContentType
	m.metadata = opts.Metadata
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}
