package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/salesask/salesask/internal/schema"
	"github.com/salesask/salesask/internal/storage"
)

type SnapshotConfig struct {
	Objects      storage.SnapshotReader
	Table        schema.Table
	WorkDir      string
	Concurrency  int
	MaxOpenConns int
}

func OpenSnapshot(ctx context.Context, cfg SnapshotConfig) (*Store, error) {
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	table := cfg.Table
	if table.Name == "" {
		table, _ = schema.CoffeeSales().Table(schema.SalesTable)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	objects, err := cfg.Objects.List(ctx, table.Name)
	if err != nil {
		return nil, fmt.Errorf("list snapshot objects: %w", err)
	}
	snapshot, parts, err := storage.LatestSnapshot(table.Name, objects)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(cfg.WorkDir, "salesask-snapshot-")
	if err != nil {
		return nil, fmt.Errorf("create snapshot work dir: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(workDir) }

	localPaths, err := downloadParts(ctx, cfg.Objects, parts, workDir, concurrency)
	if err != nil {
		_ = cleanup()
		return nil, err
	}

	catalogPath := filepath.Join(workDir, "catalog.duckdb")
	if err := buildCatalog(ctx, catalogPath, table, localPaths); err != nil {
		_ = cleanup()
		return nil, err
	}

	store, err := Open(ctx, Config{Path: catalogPath, MaxOpenConns: cfg.MaxOpenConns})
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	store.snapshot = snapshot
	store.cleanup = cleanup
	return store, nil
}

func downloadParts(ctx context.Context, objects storage.SnapshotReader, parts []storage.ObjectInfo, workDir string, concurrency int) ([]string, error) {
	localPaths := make([]string, len(parts))
	errs := make([]error, len(parts))
	sem := semaphore.NewWeighted(int64(concurrency))
	var wg sync.WaitGroup

	for i, part := range parts {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = fmt.Errorf("acquire download slot: %w", err)
			break
		}
		localPaths[i] = filepath.Join(workDir, fmt.Sprintf("part-%05d.parquet", i))

		wg.Add(1)
		go func(i int, key string) {
			defer sem.Release(1)
			defer wg.Done()
			errs[i] = download(ctx, objects, key, localPaths[i])
		}(i, part.Key)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return localPaths, nil
}

func download(ctx context.Context, objects storage.SnapshotReader, key, localPath string) error {
	reader, err := objects.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local parquet file %q: %w", localPath, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	return file.Close()
}

func buildCatalog(ctx context.Context, catalogPath string, table schema.Table, localPaths []string) error {
	db, err := sql.Open("duckdb", catalogPath)
	if err != nil {
		return fmt.Errorf("open snapshot catalog: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, viewSQL(table, localPaths)); err != nil {
		return fmt.Errorf("create view for table %q: %w", table.Name, err)
	}
	return db.Close()
}

func viewSQL(table schema.Table, localPaths []string) string {
	projection := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		name := quoteIdent(column.Name)
		switch column.Type {
		case schema.TypeDate:
			projection = append(projection, fmt.Sprintf("CAST(%s AS DATE) AS %s", name, name))
		case schema.TypeTimestamp:
			projection = append(projection, fmt.Sprintf("CAST(%s AS TIMESTAMP) AS %s", name, name))
		case schema.TypeDecimal:
			projection = append(projection, fmt.Sprintf("CAST(%s AS DECIMAL(18,2)) AS %s", name, name))
		default:
			projection = append(projection, name)
		}
	}
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT %s FROM read_parquet(%s)`,
		quoteIdent(table.Name), strings.Join(projection, ", "), quoteStringArray(localPaths))
}
