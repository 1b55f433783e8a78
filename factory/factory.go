package factory

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/studiokit"
	"github.com/lychee-technology/studiokit/internal"
	"go.uber.org/zap"
)

type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// test hooks
var (
	tableCollector   = collectTablesFromPool
	postgresConnect  = internal.ConnectPostgres
	mongoConnect     = internal.ConnectMongo
	s3ClientProvider = internal.NewS3Client
)

// NewToolkitWithConfig creates a Toolkit over store with the provided configuration.
// This is the primary way for external projects to create a Toolkit instance.
//
// Usage:
//
//	import (
//	    "github.com/lychee-technology/studiokit"
//	    "github.com/lychee-technology/studiokit/factory"
//	)
//
//	config := studiokit.DefaultConfig()
//	store, err := factory.NewStore(ctx, config)
//	if err != nil {
//	    // handle error
//	}
//	defer store.Close(ctx)
//	tk, err := factory.NewToolkitWithConfig(config, store)
func NewToolkitWithConfig(config *studiokit.Config, store studiokit.Store) (studiokit.Toolkit, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return internal.NewToolkit(store, config, studiokit.NewID), nil
}

// NewStore opens the document store selected by config.Store.Driver.
func NewStore(ctx context.Context, config *studiokit.Config) (studiokit.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Store.Driver {
	case studiokit.StoreDriverMemory:
		zap.S().Warn("using in-memory store, nothing will be persisted")
		return internal.NewMemoryStore(nil), nil
	case studiokit.StoreDriverMongo:
		store, err := mongoConnect(ctx, config.Mongo.URI, config.Mongo.Database, config.Mongo.UseTransactions)
		if err != nil {
			return nil, err
		}
		zap.S().Infow("connected to mongodb", "database", config.Mongo.Database, "transactions", config.Mongo.UseTransactions)
		return store, nil
	case studiokit.StoreDriverPostgres:
		pool, err := postgresConnect(ctx, config.Postgres, nil, config.Store.Timeout)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		zap.S().Infow("connected to postgres", "host", config.Postgres.Host, "database", config.Postgres.Database)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", config.Store.Driver)
	}
}

// NewPostgresStore verifies that the studio tables exist and wraps pool in a Store.
// Run the init-db command first on an empty database.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (studiokit.Store, error) {
	tables := internal.DefaultPostgresTables()
	found, err := tableCollector(ctx, pool)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{tables.Sites, tables.Blocks, tables.Partials, tables.Pages} {
		if !slices.Contains(found, required) {
			return nil, fmt.Errorf("required tables are missing in the database: %s", required)
		}
	}
	return internal.NewPostgresStore(pool, tables)
}

func collectTablesFromPool(ctx context.Context, pool queryPool) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
	if err != nil {
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	zap.S().Debugw("database tables", "tables", tables)
	return tables, nil
}

// NewExportSink returns a DirSink when dir is set and an S3Sink built from
// config.Export otherwise. The bucket is created when missing.
func NewExportSink(ctx context.Context, config *studiokit.Config, dir string) (studiokit.FileSink, error) {
	if dir != "" {
		return internal.NewDirSink(dir), nil
	}
	if err := internal.ValidateExportConfig(config.Export); err != nil {
		return nil, err
	}
	client, err := s3ClientProvider(ctx, config.Export)
	if err != nil {
		return nil, err
	}
	if err := internal.EnsureBucket(ctx, client, config.Export.S3Bucket); err != nil {
		return nil, err
	}
	return internal.NewS3Sink(manager.NewUploader(client), config.Export.S3Bucket, config.Export.S3Prefix), nil
}
