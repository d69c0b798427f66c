package query

import (
	"context"
	"fmt"
	"time"

	"github.com/salesask/salesask/internal/sqlguard"
)

type ExecutorConfig struct {
	RowCap           int
	MaxScanRows      int
	StatementTimeout time.Duration
}

type Executor struct {
	store Store
	cfg   ExecutorConfig
}

func NewExecutor(store Store, cfg ExecutorConfig) *Executor {
	if cfg.RowCap <= 0 {
		cfg.RowCap = 200
	}
	if cfg.MaxScanRows < cfg.RowCap {
		cfg.MaxScanRows = cfg.RowCap
	}
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = 5 * time.Second
	}
	return &Executor{store: store, cfg: cfg}
}

func (e *Executor) Execute(ctx context.Context, q sqlguard.GeneratedQuery) (Result, error) {
	if !q.Valid() || q.Text == "" {
		return Result{}, ErrNotValidated
	}

	statement, capped := Statement(q, e.cfg.RowCap)
	maxRows := e.cfg.MaxScanRows
	if capped {
		maxRows = e.cfg.RowCap
	}
	start := time.Now()

	session, err := e.store.OpenReadOnly(ctx)
	if err != nil {
		return Result{}, &ExecutionError{Op: "open session", Err: err}
	}
	defer func() { _ = session.Close() }()

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.StatementTimeout)
	defer cancel()

	result, err := session.Run(runCtx, Request{
		SQL:     statement,
		MaxRows: maxRows,
		Timeout: e.cfg.StatementTimeout,
	})
	if err != nil {
		return Result{}, &ExecutionError{Op: "run", Err: err}
	}
	result.Duration = time.Since(start)
	return result, nil
}

// Statement returns the SQL to run for q. Unless q has a top-level LIMIT or
// is aggregate-only it is wrapped in LIMIT rowCap+1 and reported as capped.
func Statement(q sqlguard.GeneratedQuery, rowCap int) (string, bool) {
	if q.HasLimit || q.AggregateOnly || rowCap <= 0 {
		return q.Text, false
	}
	return fmt.Sprintf("SELECT * FROM (\n%s\n) AS capped LIMIT %d", q.Text, rowCap+1), true
}
