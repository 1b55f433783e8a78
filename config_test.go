package studiokit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, StoreDriverMongo, config.Store.Driver)
	assert.Equal(t, 30*time.Second, config.Store.Timeout)
	assert.Equal(t, "makestudio", config.Mongo.Database)
	assert.Equal(t, 5432, config.Postgres.Port)
	assert.Equal(t, UnknownTypeLenient, config.Transform.UnknownTypePolicy)
	assert.Equal(t, ItemIDRandom, config.Transform.ItemIDPolicy)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"empty mongo uri", func(c *Config) { c.Mongo.URI = "" }, "mongo.uri"},
		{"zero timeout", func(c *Config) { c.Store.Timeout = 0 }, "store.timeout"},
		{"postgres pool", func(c *Config) {
			c.Store.Driver = StoreDriverPostgres
			c.Postgres.MaxConnections = 0
		}, "postgres.maxConnections"},
		{"iam without region", func(c *Config) {
			c.Store.Driver = StoreDriverPostgres
			c.Postgres.UseIAM = true
			c.Postgres.Region = ""
		}, "postgres.region"},
		{"bad unknown type policy", func(c *Config) { c.Transform.UnknownTypePolicy = "loose" }, "transform.unknownTypePolicy"},
		{"bad item id policy", func(c *Config) { c.Transform.ItemIDPolicy = "stable" }, "transform.itemIdPolicy"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestConfigValidate_MemoryDriverNeedsNoConnection(t *testing.T) {
	config := DefaultConfig()
	config.Store.Driver = StoreDriverMemory
	config.Mongo.URI = ""
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"store": {"driver": "postgres"},
		"postgres": {"host": "db.internal", "useIAM": true},
		"transform": {"itemIdPolicy": "keyed"}
	}`), 0o644))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, config.Store.Driver)
	assert.Equal(t, "db.internal", config.Postgres.Host)
	assert.True(t, config.Postgres.UseIAM)
	assert.Equal(t, ItemIDKeyed, config.Transform.ItemIDPolicy)
	// untouched keys keep their defaults
	assert.Equal(t, 5432, config.Postgres.Port)
	assert.Equal(t, UnknownTypeLenient, config.Transform.UnknownTypePolicy)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFile_Errors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store":`), 0o644))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)
}
