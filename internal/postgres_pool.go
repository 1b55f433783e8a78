package internal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

// TokenGenerator returns a short-lived password for an IAM authenticated connection.
type TokenGenerator func(ctx context.Context, cfg studiokit.PostgresConfig) (string, error)

// DSQLToken generates an Aurora DSQL connect token with the default AWS credential chain.
func DSQLToken(ctx context.Context, cfg studiokit.PostgresConfig) (string, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
}

// PostgresDSN builds a connection string from cfg with password in place of the configured one.
func PostgresDSN(cfg studiokit.PostgresConfig, password string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// ConnectPostgres opens a pool and pings it. tokens is consulted only when cfg.UseIAM is set.
func ConnectPostgres(ctx context.Context, cfg studiokit.PostgresConfig, tokens TokenGenerator, timeout time.Duration) (*pgxpool.Pool, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	password := cfg.Password
	if cfg.UseIAM {
		if tokens == nil {
			tokens = DSQLToken
		}
		token, err := tokens(ctx, cfg)
		if err != nil {
			return nil, studiokit.NewStorageError("generate iam auth token", err)
		}
		password = token
		zap.S().Infow("generated IAM auth token for postgres connection", "host", cfg.Host)
	}

	poolCfg, err := pgxpool.ParseConfig(PostgresDSN(cfg, password))
	if err != nil {
		return nil, studiokit.NewStorageError("parse postgres dsn", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, studiokit.NewStorageError("connect postgres", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, studiokit.NewStorageError("postgres ping failed", err)
	}
	return pool, nil
}
