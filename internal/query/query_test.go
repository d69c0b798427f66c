package query

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCollectNormalizesAndCaps(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2024, 3, 1, 10, 15, 50, 0, time.UTC)
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"date", "datetime", "coffee_name", "money"}).
			AddRow(day, at, []byte("Latte"), 38.7).
			AddRow(day, at, []byte("Cappuccino"), 89.8).
			AddRow(day, at, []byte("Americano"), 28.9),
	)

	rows, err := db.Query("SELECT date, datetime, coffee_name, money FROM coffee_sales")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := Collect(rows, 2, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !result.Truncated {
		t.Fatal("expected truncated result")
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	first := result.Rows[0]
	if first[0] != "2024-03-01" || first[1] != "2024-03-01 10:15:50" || first[2] != "Latte" || first[3] != 38.7 {
		t.Fatalf("first row = %#v", first)
	}
}

func TestCollectWithoutCapReadsEverything(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)).AddRow(int64(2)))
	rows, err := db.Query("SELECT n")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := Collect(rows, 2, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if result.Truncated || len(result.Rows) != 2 {
		t.Fatalf("result = %+v", result)
	}
}
