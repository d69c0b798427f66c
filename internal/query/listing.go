package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salesask/salesask/internal/schema"
)

const (
	DefaultPageLimit = 25
	MaxPageLimit     = 500
)

type Page struct {
	Limit  int
	Offset int
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func ListRecent(ctx context.Context, store Store, table schema.Table, page Page, timeout time.Duration) (Result, error) {
	page = page.Normalize()
	if !table.HasColumn("datetime") {
		return Result{}, fmt.Errorf("table %s has no datetime column", table.Name)
	}

	session, err := store.OpenReadOnly(ctx)
	if err != nil {
		return Result{}, &ExecutionError{Op: "open session", Err: err}
	}
	defer func() { _ = session.Close() }()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := session.Run(ctx, Request{
		SQL:     listingSQL(table, page),
		MaxRows: page.Limit,
		Timeout: timeout,
	})
	if err != nil {
		return Result{}, &ExecutionError{Op: "list", Err: err}
	}
	return result, nil
}

func listingSQL(table schema.Table, page Page) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY datetime DESC LIMIT %d OFFSET %d",
		strings.Join(table.ColumnNames(), ", "), table.Name, page.Limit, page.Offset)
}

func (r Result) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}
