package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/salesask/salesask/internal/query"
)

type Config struct {
	Path         string
	MaxOpenConns int
}

type Store struct {
	db       *sql.DB
	snapshot string
	cleanup  func() error
}

func ReadOnlyDSN(path string) string {
	return path + "?access_mode=READ_ONLY"
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("duckdb path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat duckdb file: %w", err)
	}

	db, err := sql.Open("duckdb", ReadOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Snapshot() string {
	return s.snapshot
}

func (s *Store) OpenReadOnly(ctx context.Context) (query.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire duckdb connection: %w", err)
	}
	return &session{conn: conn}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	err := s.db.Close()
	if s.cleanup != nil {
		if cleanupErr := s.cleanup(); err == nil {
			err = cleanupErr
		}
	}
	return err
}

type session struct {
	conn *sql.Conn
}

func (s *session) Run(ctx context.Context, request query.Request) (query.Result, error) {
	if strings.TrimSpace(request.SQL) == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, request.SQL)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := query.Collect(rows, request.MaxRows, normalizeValue)
	if err != nil {
		return query.Result{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case duckdb.Decimal:
		return typed.Float64()
	case *big.Int:
		if typed.IsInt64() {
			return typed.Int64()
		}
		return typed.String()
	default:
		return query.NormalizeValue(value)
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
