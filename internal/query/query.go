package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotValidated = errors.New("query has not been validated")

type Request struct {
	SQL string
	MaxRows int
	Timeout time.Duration
}

type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
	Duration  time.Duration
}

// Session is a read-only view of the store. Implementations enforce
// read-only access themselves, independent of query validation.
type Session interface {
	Run(ctx context.Context, request Request) (Result, error)
	Close() error
}

type Store interface {
	OpenReadOnly(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close() error
}

type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type ValueNormalizer func(any) any

func Collect(rows *sql.Rows, maxRows int, normalize ValueNormalizer) (Result, error) {
	if normalize == nil {
		normalize = NormalizeValue
	}
	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	result := Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		for i := range values {
			values[i] = normalize(values[i])
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func NormalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case time.Time:
		return FormatTime(typed)
	default:
		return typed
	}
}

func FormatTime(value time.Time) string {
	if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
		return value.Format("2006-01-02")
	}
	return value.Format("2006-01-02 15:04:05")
}
