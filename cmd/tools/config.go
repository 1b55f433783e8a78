package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newFlagSet returns a flag set with the -config flag every command accepts.
func newFlagSet(name, usage string, configPath *string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: studiokit-tools " + name + " " + usage)
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}
	flags.StringVar(configPath, "config", getenvDefault("STUDIO_CONFIG", ""), "JSON config file (optional)")
	return flags
}

// parseFlags returns done=true when -h was requested.
func parseFlags(flags *flag.FlagSet, args []string) (done bool, err error) {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return true, err
	}
	return false, nil
}

// loadConfig reads .env, the optional config file and STUDIO_* variables, in that
// order of precedence from lowest to highest, then installs the configured logger.
func loadConfig(path string) (*studiokit.Config, error) {
	envErr := godotenv.Load()

	cfg := studiokit.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = studiokit.LoadConfigFile(path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setupLogger(cfg.Logging); err != nil {
		return nil, err
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		zap.S().Warnw("ignoring unreadable .env file", "error", envErr)
	}
	return cfg, nil
}

func applyEnv(cfg *studiokit.Config) error {
	cfg.Store.Driver = getenvDefault("STUDIO_STORE", cfg.Store.Driver)
	if v := os.Getenv("STUDIO_STORE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STUDIO_STORE_TIMEOUT: %w", err)
		}
		cfg.Store.Timeout = d
	}

	cfg.Mongo.URI = getenvDefault("STUDIO_MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getenvDefault("STUDIO_MONGO_DB", cfg.Mongo.Database)
	cfg.Mongo.UseTransactions = getenvDefaultBool("STUDIO_MONGO_TRANSACTIONS", cfg.Mongo.UseTransactions)

	cfg.Postgres.Host = getenvDefault("STUDIO_PG_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getenvDefaultInt("STUDIO_PG_PORT", cfg.Postgres.Port)
	cfg.Postgres.Database = getenvDefault("STUDIO_PG_DB", cfg.Postgres.Database)
	cfg.Postgres.Username = getenvDefault("STUDIO_PG_USER", cfg.Postgres.Username)
	cfg.Postgres.Password = getenvDefault("STUDIO_PG_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.SSLMode = getenvDefault("STUDIO_PG_SSL_MODE", cfg.Postgres.SSLMode)
	cfg.Postgres.MaxConnections = getenvDefaultInt("STUDIO_PG_MAX_CONNECTIONS", cfg.Postgres.MaxConnections)
	cfg.Postgres.UseIAM = getenvDefaultBool("STUDIO_PG_IAM", cfg.Postgres.UseIAM)
	cfg.Postgres.Region = getenvDefault("STUDIO_PG_REGION", cfg.Postgres.Region)

	cfg.Transform.UnknownTypePolicy = studiokit.UnknownTypePolicy(
		getenvDefault("STUDIO_UNKNOWN_TYPES", string(cfg.Transform.UnknownTypePolicy)))
	cfg.Transform.ItemIDPolicy = studiokit.ItemIDPolicy(
		getenvDefault("STUDIO_ITEM_IDS", string(cfg.Transform.ItemIDPolicy)))

	cfg.Export.S3Bucket = getenvDefault("STUDIO_S3_BUCKET", cfg.Export.S3Bucket)
	cfg.Export.S3Prefix = getenvDefault("STUDIO_S3_PREFIX", cfg.Export.S3Prefix)
	cfg.Export.S3Region = getenvDefault("STUDIO_S3_REGION", cfg.Export.S3Region)
	cfg.Export.S3Endpoint = getenvDefault("STUDIO_S3_ENDPOINT", cfg.Export.S3Endpoint)
	cfg.Export.S3AccessKey = getenvDefault("STUDIO_S3_ACCESS_KEY", cfg.Export.S3AccessKey)
	cfg.Export.S3SecretKey = getenvDefault("STUDIO_S3_SECRET_KEY", cfg.Export.S3SecretKey)
	cfg.Export.UsePathStyle = getenvDefaultBool("STUDIO_S3_PATH_STYLE", cfg.Export.UsePathStyle)

	cfg.Logging.Level = getenvDefault("STUDIO_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getenvDefault("STUDIO_LOG_FORMAT", cfg.Logging.Format)
	return nil
}

func setupLogger(cfg studiokit.LoggingConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getenvDefaultBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}
