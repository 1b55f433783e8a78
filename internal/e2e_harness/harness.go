package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgUser     = "postgres"
	pgPassword = "password"
	pgDatabase = "postgres"

	S3AccessKey = "minioadmin"
	S3SecretKey = "minioadmin"
)

// TestHarness holds lightweight runners for dependencies used by E2E tests.
type TestHarness struct {
	PGContainer testcontainers.Container
	PGHost      string
	PGPort      int
	PGDB        *sql.DB

	MongoContainer testcontainers.Container
	MongoURI       string

	S3Container testcontainers.Container
	S3Endpoint  string
}

func startContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return container, "", err
	}
	return container, host, nil
}

// StartPostgres starts a postgres container and waits until it accepts queries.
// Caller is responsible for calling StopPostgres.
func (h *TestHarness) StartPostgres(ctx context.Context) error {
	container, host, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_USER":     pgUser,
			"POSTGRES_DB":       pgDatabase,
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	})
	h.PGContainer = container
	if err != nil {
		return err
	}
	mapped, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return err
	}
	port := mapped.Port()
	h.PGHost = host
	if h.PGPort, err = strconv.Atoi(port); err != nil {
		return fmt.Errorf("parse postgres port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", pgUser, pgPassword, host, port, pgDatabase)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(20 * time.Second)
	for {
		if err := db.PingContext(ctx); err == nil {
			h.PGDB = db
			return nil
		}
		if time.Now().After(deadline) {
			db.Close()
			return fmt.Errorf("postgres did not become ready: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// StopPostgres stops the Postgres container and closes the DB handle.
func (h *TestHarness) StopPostgres(ctx context.Context) error {
	if h.PGDB != nil {
		h.PGDB.Close()
		h.PGDB = nil
	}
	return terminate(ctx, &h.PGContainer)
}

// StartMongo starts a standalone MongoDB. Transactions are unavailable without a
// replica set, so stores built on it use compensating writes.
func (h *TestHarness) StartMongo(ctx context.Context) error {
	container, host, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(30 * time.Second),
	})
	h.MongoContainer = container
	if err != nil {
		return err
	}
	mapped, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return err
	}
	h.MongoURI = fmt.Sprintf("mongodb://%s:%s", host, mapped.Port())
	return nil
}

func (h *TestHarness) StopMongo(ctx context.Context) error {
	return terminate(ctx, &h.MongoContainer)
}

// StartS3 starts a MinIO container and records its endpoint.
func (h *TestHarness) StartS3(ctx context.Context) error {
	container, host, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     S3AccessKey,
			"MINIO_ROOT_PASSWORD": S3SecretKey,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	})
	h.S3Container = container
	if err != nil {
		return err
	}
	mapped, err := container.MappedPort(ctx, "9000")
	if err != nil {
		return err
	}
	h.S3Endpoint = fmt.Sprintf("http://%s:%s", host, mapped.Port())
	return nil
}

func (h *TestHarness) StopS3(ctx context.Context) error {
	return terminate(ctx, &h.S3Container)
}

func terminate(ctx context.Context, c *testcontainers.Container) error {
	if *c == nil {
		return nil
	}
	if err := (*c).Terminate(ctx); err != nil {
		return err
	}
	*c = nil
	return nil
}
