package factory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/studiokit"
	"github.com/lychee-technology/studiokit/internal"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

func withTableCollector(t *testing.T, collector func(context.Context, queryPool) ([]string, error)) {
	t.Helper()
	original := tableCollector
	tableCollector = collector
	t.Cleanup(func() {
		tableCollector = original
	})
}

func memoryConfig() *studiokit.Config {
	config := studiokit.DefaultConfig()
	config.Store.Driver = studiokit.StoreDriverMemory
	return config
}

// ---------------------------------------------------------------------------
// Unit tests for collectTablesFromPool (uses pgxmock)
// ---------------------------------------------------------------------------

func TestCollectTablesFromPool_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT table_name FROM information_schema.tables`).WillReturnError(assert.AnError)

	_, err = collectTablesFromPool(t.Context(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to verify database connection")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectTablesFromPool_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"table_name"}).
		AddRow("sites").
		AddRow("pages")
	mock.ExpectQuery(`SELECT table_name FROM information_schema.tables`).WillReturnRows(rows)

	tables, err := collectTablesFromPool(t.Context(), mock)
	require.NoError(t, err)
	assert.Equal(t, []string{"sites", "pages"}, tables)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Unit tests for NewPostgresStore (uses test hooks)
// ---------------------------------------------------------------------------

func TestNewPostgresStore_Unit_TableCollectorError(t *testing.T) {
	withTableCollector(t, func(context.Context, queryPool) ([]string, error) {
		return nil, assert.AnError
	})

	store, err := NewPostgresStore(t.Context(), nil)
	assert.Nil(t, store)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewPostgresStore_Unit_MissingRequiredTables(t *testing.T) {
	withTableCollector(t, func(context.Context, queryPool) ([]string, error) {
		return []string{"sites", "blocks"}, nil
	})

	store, err := NewPostgresStore(t.Context(), nil)
	assert.Nil(t, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required tables are missing")
	assert.Contains(t, err.Error(), "partials")
}

func TestNewPostgresStore_Unit_Success(t *testing.T) {
	withTableCollector(t, func(context.Context, queryPool) ([]string, error) {
		return []string{"pages", "partials", "blocks", "sites", "other"}, nil
	})

	store, err := NewPostgresStore(t.Context(), nil)
	assert.NoError(t, err)
	assert.IsType(t, &internal.PostgresStore{}, store)
}

// ---------------------------------------------------------------------------
// Unit tests for NewStore and NewToolkitWithConfig
// ---------------------------------------------------------------------------

func TestNewStore_Memory(t *testing.T) {
	store, err := NewStore(t.Context(), memoryConfig())
	require.NoError(t, err)
	assert.IsType(t, &internal.MemoryStore{}, store)
}

func TestNewStore_InvalidConfig(t *testing.T) {
	config := studiokit.DefaultConfig()
	config.Store.Driver = "sqlite"

	_, err := NewStore(t.Context(), config)
	var cfgErr *studiokit.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store.driver", cfgErr.Field)
}

func TestNewStore_ConnectErrors(t *testing.T) {
	originalPostgres, originalMongo := postgresConnect, mongoConnect
	t.Cleanup(func() {
		postgresConnect, mongoConnect = originalPostgres, originalMongo
	})
	postgresConnect = func(context.Context, studiokit.PostgresConfig, internal.TokenGenerator, time.Duration) (*pgxpool.Pool, error) {
		return nil, assert.AnError
	}
	mongoConnect = func(context.Context, string, string, bool) (*internal.MongoStore, error) {
		return nil, assert.AnError
	}

	config := studiokit.DefaultConfig()
	config.Store.Driver = studiokit.StoreDriverPostgres
	_, err := NewStore(t.Context(), config)
	assert.ErrorIs(t, err, assert.AnError)

	config.Store.Driver = studiokit.StoreDriverMongo
	_, err = NewStore(t.Context(), config)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewToolkitWithConfig(t *testing.T) {
	config := memoryConfig()
	store, err := NewStore(t.Context(), config)
	require.NoError(t, err)

	tk, err := NewToolkitWithConfig(config, store)
	require.NoError(t, err)
	assert.NotNil(t, tk)

	_, err = NewToolkitWithConfig(nil, store)
	assert.Error(t, err)
	_, err = NewToolkitWithConfig(config, nil)
	assert.Error(t, err)

	config.Transform.ItemIDPolicy = "sequential"
	_, err = NewToolkitWithConfig(config, store)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Unit tests for NewExportSink
// ---------------------------------------------------------------------------

func TestNewExportSink_Directory(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewExportSink(t.Context(), memoryConfig(), dir)
	require.NoError(t, err)
	require.IsType(t, &internal.DirSink{}, sink)
	assert.Equal(t, dir, sink.(*internal.DirSink).Root())
}

func TestNewExportSink_S3(t *testing.T) {
	_, err := NewExportSink(t.Context(), memoryConfig(), "")
	assert.Error(t, err, "bucket is required")

	original := s3ClientProvider
	t.Cleanup(func() { s3ClientProvider = original })
	s3ClientProvider = func(context.Context, studiokit.ExportConfig) (*s3.Client, error) {
		return nil, assert.AnError
	}

	config := memoryConfig()
	config.Export.S3Bucket = "exports"
	_, err = NewExportSink(t.Context(), config, "")
	assert.ErrorIs(t, err, assert.AnError)
}

// ---------------------------------------------------------------------------
// Integration Tests
// ---------------------------------------------------------------------------

func TestNewStore_Integration_Postgres(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)

	pgStore, err := internal.NewPostgresStore(pool, internal.DefaultPostgresTables())
	require.NoError(t, err)
	require.NoError(t, pgStore.Migrate(ctx))

	store, err := NewPostgresStore(ctx, pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	site, err := store.SaveSite(ctx, &studiokit.Site{Name: "integration"})
	require.NoError(t, err)
	got, err := store.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "integration", got.Name)
}
