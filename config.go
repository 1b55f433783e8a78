package studiokit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Store drivers.
const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds the settings of every toolkit command.
type Config struct {
	Store     StoreConfig     `json:"store"`
	Mongo     MongoConfig     `json:"mongo"`
	Postgres  PostgresConfig  `json:"postgres"`
	Transform TransformConfig `json:"transform"`
	Export    ExportConfig    `json:"export"`
	Logging   LoggingConfig   `json:"logging"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver  string        `json:"driver"`
	Timeout time.Duration `json:"timeout"`
}

// MongoConfig contains MongoDB connection settings
type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
	// UseTransactions runs page creation in a session transaction. Requires a replica set.
	UseTransactions bool `json:"useTransactions"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Database       string `json:"database"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	SSLMode        string `json:"sslMode"`
	MaxConnections int    `json:"maxConnections"`
	// UseIAM replaces the password with an Aurora DSQL auth token.
	UseIAM bool   `json:"useIAM"`
	Region string `json:"region"`
}

// TransformConfig contains field transform policies
type TransformConfig struct {
	UnknownTypePolicy UnknownTypePolicy `json:"unknownTypePolicy"`
	ItemIDPolicy      ItemIDPolicy      `json:"itemIdPolicy"`
}

// ExportConfig contains S3 export settings
type ExportConfig struct {
	S3Bucket     string `json:"s3Bucket"`
	S3Prefix     string `json:"s3Prefix"`
	S3Region     string `json:"s3Region"`
	S3Endpoint   string `json:"s3Endpoint"`
	S3AccessKey  string `json:"s3AccessKey"`
	S3SecretKey  string `json:"s3SecretKey"`
	UsePathStyle bool   `json:"usePathStyle"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:  StoreDriverMongo,
			Timeout: 30 * time.Second,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "makestudio",
		},
		Postgres: PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "makestudio",
			SSLMode:        "disable",
			MaxConnections: 10,
			Region:         "us-east-1",
		},
		Transform: TransformConfig{
			UnknownTypePolicy: UnknownTypeLenient,
			ItemIDPolicy:      ItemIDRandom,
		},
		Export: ExportConfig{
			S3Region: "us-east-1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfigFile overlays the JSON file at path on the defaults. Durations are
// written in nanoseconds, as encoding/json does for time.Duration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			return &ConfigError{Field: "mongo.uri", Message: "must not be empty"}
		}
		if c.Mongo.Database == "" {
			return &ConfigError{Field: "mongo.database", Message: "must not be empty"}
		}
	case StoreDriverPostgres:
		if c.Postgres.Host == "" {
			return &ConfigError{Field: "postgres.host", Message: "must not be empty"}
		}
		if c.Postgres.MaxConnections <= 0 {
			return &ConfigError{Field: "postgres.maxConnections", Message: "must be greater than 0"}
		}
		if c.Postgres.UseIAM && c.Postgres.Region == "" {
			return &ConfigError{Field: "postgres.region", Message: "is required when useIAM is set"}
		}
	case StoreDriverMemory:
	default:
		return &ConfigError{Field: "store.driver", Message: fmt.Sprintf("unsupported driver %q", c.Store.Driver)}
	}

	if c.Store.Timeout <= 0 {
		return &ConfigError{Field: "store.timeout", Message: "must be greater than 0"}
	}

	switch c.Transform.UnknownTypePolicy {
	case UnknownTypeLenient, UnknownTypeStrict:
	default:
		return &ConfigError{Field: "transform.unknownTypePolicy", Message: "must be lenient or strict"}
	}

	switch c.Transform.ItemIDPolicy {
	case ItemIDRandom, ItemIDKeyed:
	default:
		return &ConfigError{Field: "transform.itemIdPolicy", Message: "must be random or keyed"}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be json or console"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
