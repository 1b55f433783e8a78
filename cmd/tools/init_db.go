package main

import (
	"context"
	"fmt"

	"github.com/lychee-technology/studiokit"
	"github.com/lychee-technology/studiokit/internal"
)

type initDBResult struct {
	Host     string                  `json:"host"`
	Database string                  `json:"database"`
	Tables   internal.PostgresTables `json:"tables"`
}

func runInitDB(args []string) error {
	var configPath string
	flags := newFlagSet("init-db", "[options]", &configPath)
	if done, err := parseFlags(flags, args); done {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != studiokit.StoreDriverPostgres {
		return fmt.Errorf("init-db requires the postgres store, configured driver is %q", cfg.Store.Driver)
	}
	return initDatabase(context.Background(), cfg)
}

func initDatabase(ctx context.Context, cfg *studiokit.Config) error {
	pool, err := internal.ConnectPostgres(ctx, cfg.Postgres, nil, cfg.Store.Timeout)
	if err != nil {
		return err
	}
	store, err := internal.NewPostgresStore(pool, internal.DefaultPostgresTables())
	if err != nil {
		pool.Close()
		return err
	}
	defer store.Close(ctx)

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return printResult(initDBResult{
		Host:     cfg.Postgres.Host,
		Database: cfg.Postgres.Database,
		Tables:   internal.DefaultPostgresTables(),
	})
}
