package seed

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createSalesTable = `CREATE TABLE IF NOT EXISTS coffee_sales (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date DATE NOT NULL,
	datetime DATETIME NOT NULL,
	cash_type TEXT NOT NULL CHECK(cash_type IN ('card', 'cash')),
	card TEXT,
	money REAL NOT NULL,
	coffee_name TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

type LoadResult struct {
	Inserted int
	Existing int
	Total    int
}

func LoadSQLite(ctx context.Context, path string, sales []Sale) (LoadResult, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, createSalesTable); err != nil {
		return LoadResult{}, fmt.Errorf("create coffee_sales: %w", err)
	}

	existing, err := countSales(ctx, db)
	if err != nil {
		return LoadResult{}, err
	}
	if existing > 0 {
		return LoadResult{Existing: existing, Total: existing}, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO coffee_sales (date, datetime, cash_type, card, money, coffee_name) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return LoadResult{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, sale := range sales {
		if _, err := stmt.ExecContext(ctx, sale.Date, sale.Datetime, sale.CashType, sale.Card, sale.Money, sale.CoffeeName); err != nil {
			return LoadResult{}, fmt.Errorf("insert sale %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	total, err := countSales(ctx, db)
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Inserted: len(sales), Total: total}, nil
}

func countSales(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coffee_sales`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coffee_sales: %w", err)
	}
	return count, nil
}
