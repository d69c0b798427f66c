package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/salesask/salesask/internal/schema"
)

func salesTable(t *testing.T) schema.Table {
	t.Helper()
	table, ok := schema.CoffeeSales().Table(schema.SalesTable)
	if !ok {
		t.Fatal("coffee_sales missing from descriptor")
	}
	return table
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		in   Page
		want Page
	}{
		{in: Page{}, want: Page{Limit: 25}},
		{in: Page{Limit: 10, Offset: 5}, want: Page{Limit: 10, Offset: 5}},
		{in: Page{Limit: 5000, Offset: -1}, want: Page{Limit: 500}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestListRecentBuildsNewestFirstQuery(t *testing.T) {
	store := &fakeStore{result: Result{
		Columns: []string{"date", "coffee_name"},
		Rows:    [][]any{{"2024-03-02", "Americano"}},
	}}

	result, err := ListRecent(context.Background(), store, salesTable(t), Page{Limit: 2, Offset: 4}, time.Second)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(store.requests) != 1 {
		t.Fatalf("requests = %d", len(store.requests))
	}
	want := "SELECT date, datetime, cash_type, card, money, coffee_name FROM coffee_sales ORDER BY datetime DESC LIMIT 2 OFFSET 4"
	if store.requests[0].SQL != want {
		t.Fatalf("SQL = %q", store.requests[0].SQL)
	}
	if store.requests[0].MaxRows != 2 || !store.deadline {
		t.Fatalf("request = %+v deadline = %v", store.requests[0], store.deadline)
	}
	if store.closed != 1 {
		t.Fatalf("sessions closed = %d", store.closed)
	}
	records := result.Records()
	if len(records) != 1 || records[0]["coffee_name"] != "Americano" {
		t.Fatalf("records = %#v", records)
	}
}

func TestListRecentWrapsStoreErrors(t *testing.T) {
	store := &fakeStore{runErr: errors.New("disk I/O error")}
	_, err := ListRecent(context.Background(), store, salesTable(t), Page{}, 0)
	var execErr *ExecutionError
	if !errors.As(err, &execErr) || execErr.Op != "list" {
		t.Fatalf("error = %v", err)
	}
}
