package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/salesask/salesask/internal/config"
	"github.com/salesask/salesask/internal/oracle"
	"github.com/salesask/salesask/internal/pipeline"
	"github.com/salesask/salesask/internal/prompt"
	"github.com/salesask/salesask/internal/query"
	duckdbstore "github.com/salesask/salesask/internal/query/duckdb"
	postgresstore "github.com/salesask/salesask/internal/query/postgres"
	sqlitestore "github.com/salesask/salesask/internal/query/sqlite"
	"github.com/salesask/salesask/internal/schema"
	"github.com/salesask/salesask/internal/sqlguard"
	s3store "github.com/salesask/salesask/internal/storage/s3"
	"github.com/salesask/salesask/internal/summarize"
)

func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (query.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		store, err := sqlitestore.Open(ctx, sqlitestore.Config{
			Path:            cfg.Store.Path,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreDriverDuckDB:
		store, err := duckdbstore.Open(ctx, duckdbstore.Config{
			Path:         cfg.Store.Path,
			MaxOpenConns: cfg.Store.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreDriverParquet:
		objects, err := NewObjectStore(ctx, cfg, false)
		if err != nil {
			return nil, err
		}
		if err := objects.Ping(ctx); err != nil {
			return nil, fmt.Errorf("snapshot bucket: %w", err)
		}
		table, _ := schema.CoffeeSales().Table(schema.SalesTable)
		store, err := duckdbstore.OpenSnapshot(ctx, duckdbstore.SnapshotConfig{
			Objects:      objects,
			Table:        table,
			WorkDir:      cfg.Store.WorkDir,
			MaxOpenConns: cfg.Store.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("loaded parquet snapshot", slog.String("snapshot", store.Snapshot()))
		}
		return store, nil
	case config.StoreDriverPostgres:
		store, err := postgresstore.Open(ctx, postgresstore.Config{
			DSN:             cfg.Store.DSN,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func NewObjectStore(ctx context.Context, cfg config.Config, autoCreateBucket bool) (*s3store.Store, error) {
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: autoCreateBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize object store: %w", err)
	}
	return store, nil
}

func NewOracle(cfg config.Config, logger *slog.Logger) (oracle.Oracle, error) {
	params := oracle.DefaultParams()
	params.Translate.Temperature = cfg.AI.TranslateTemperature
	params.Summarize.Temperature = cfg.AI.SummarizeTemperature

	var provider oracle.Oracle
	switch cfg.AI.Provider {
	case config.AIProviderOpenAI:
		o, err := oracle.NewOpenAIOracle(oracle.OpenAIConfig{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Params:  params,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize openai oracle: %w", err)
		}
		provider = o
	case config.AIProviderOllama:
		o, err := oracle.NewOllamaOracle(oracle.OllamaConfig{
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Params:  params,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize ollama oracle: %w", err)
		}
		provider = o
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
	return oracle.NewRetrying(provider, cfg.AI.RetryBackoff, logger), nil
}

func NewPipeline(cfg config.Config, store query.Store, o oracle.Oracle, logger *slog.Logger) *pipeline.Pipeline {
	descriptor := schema.CoffeeSales()
	return pipeline.New(pipeline.Deps{
		Prompts:   prompt.NewBuilder(descriptor, prompt.DefaultExamples()),
		Oracle:    o,
		Validator: sqlguard.NewValidator(descriptor, cfg.Pipeline.StrictSchema),
		Executor: query.NewExecutor(store, query.ExecutorConfig{
			RowCap:           cfg.Pipeline.RowCap,
			MaxScanRows:      cfg.Pipeline.MaxScanRows,
			StatementTimeout: cfg.Pipeline.StatementTimeout,
		}),
		Summarizer: summarize.New(o, cfg.Pipeline.SummaryRows, logger),
		Logger:     logger,
	}, pipeline.Config{
		RequestTimeout:    cfg.Pipeline.RequestTimeout,
		MaxConcurrent:     int64(cfg.Pipeline.MaxConcurrent),
		MaxQuestionLength: cfg.Pipeline.MaxQuestionLength,
	})
}
