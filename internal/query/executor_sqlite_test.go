package query_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/salesask/salesask/internal/query"
	"github.com/salesask/salesask/internal/query/sqlite"
	"github.com/salesask/salesask/internal/schema"
	"github.com/salesask/salesask/internal/seed"
	"github.com/salesask/salesask/internal/sqlguard"
)

func cashSalesStore(t *testing.T, n int) *sqlite.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.sqlite")
	sales := make([]seed.Sale, 0, n)
	for i := 0; i < n; i++ {
		sales = append(sales, seed.Sale{
			Date:       "2024-03-01",
			Datetime:   fmt.Sprintf("2024-03-01 %02d:%02d:%02d", 8+i/3600, (i/60)%60, i%60),
			CashType:   "cash",
			Money:      28.9,
			CoffeeName: "Latte",
		})
	}
	if _, err := seed.LoadSQLite(context.Background(), path, sales); err != nil {
		t.Fatalf("LoadSQLite() error = %v", err)
	}
	store, err := sqlite.Open(context.Background(), sqlite.Config{Path: path})
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestExecuteMarksRowCapTruncation(t *testing.T) {
	executor := query.NewExecutor(cashSalesStore(t, 300), query.ExecutorConfig{RowCap: 200, MaxScanRows: 1000})
	q := sqlguard.NewValidator(schema.CoffeeSales(), true).Validate("SELECT coffee_name FROM coffee_sales WHERE cash_type = 'cash'")
	if !q.Valid() {
		t.Fatalf("Validate() = %s/%s", q.Reason, q.Detail)
	}

	result, err := executor.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 200 || !result.Truncated {
		t.Fatalf("rows = %d truncated = %v, want 200/true", len(result.Rows), result.Truncated)
	}
}

func TestExecuteExactlyRowCapIsComplete(t *testing.T) {
	executor := query.NewExecutor(cashSalesStore(t, 200), query.ExecutorConfig{RowCap: 200, MaxScanRows: 1000})
	q := sqlguard.NewValidator(schema.CoffeeSales(), true).Validate("SELECT coffee_name FROM coffee_sales")

	result, err := executor.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 200 || result.Truncated {
		t.Fatalf("rows = %d truncated = %v, want 200/false", len(result.Rows), result.Truncated)
	}
}
