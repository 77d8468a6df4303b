//go:build integration

// Package testutil starts throwaway stores for integration tests.
package testutil

import (
	"context"
	"net/url"
	"testing"
	"time"

	mongoMigration "reservo/internal/migrations/mongo"
	pgMigration "reservo/internal/migrations/postgres"
	"reservo/pkg/client"
	"reservo/pkg/config"
	"reservo/pkg/logger"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const startupTimeout = 2 * time.Minute

func baseConfig(backend string) *config.Config {
	return &config.Config{
		StoreBackend:      backend,
		MongoDatabaseName: "reservo_test",
		MongoConnTimeout:  30 * time.Second,
		ConnTimeout:       30 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		CancelBaseURL:     "http://localhost:8080",
		Log:               logger.New(logger.Config{Level: logger.WARN, Service: "integration"}),
		Client:            client.NewClient(),
	}
}

func terminate(t *testing.T, c testcontainers.Container) {
	t.Helper()
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
}

// StartMongo runs a single-node MongoDB replica set, so transactions are
// available, with the schema applied and returns a config whose client is
// connected to it.
func StartMongo(t *testing.T) *config.Config {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		t.Fatalf("failed to start mongo: %v", err)
	}
	terminate(t, container)

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to read mongo uri: %v", err)
	}
	if uri, err = directConnection(uri); err != nil {
		t.Fatalf("bad mongo uri: %v", err)
	}

	cfg := baseConfig(config.BackendMongo)
	cfg.MongoURI = uri
	cfg.Client.SetMongo(cfg.Log, uri, cfg.MongoConnTimeout)
	t.Cleanup(cfg.GracefulShutdown)

	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		t.Fatalf("mongo migration failed: %v", err)
	}
	return cfg
}

// directConnection pins the client to the mapped port. The replica set
// advertises the container's internal address, which the host cannot reach.
func directConnection(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set("directConnection", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// StartPostgres runs PostgreSQL with the schema applied.
func StartPostgres(t *testing.T) *config.Config {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("reservo"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}
	terminate(t, container)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to read postgres dsn: %v", err)
	}

	cfg := baseConfig(config.BackendPostgres)
	cfg.PostgresDSN = dsn
	cfg.Client.SetPostgres(cfg.Log, dsn, cfg.ConnTimeout)
	t.Cleanup(cfg.GracefulShutdown)

	if err := pgMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
		t.Fatalf("postgres migration failed: %v", err)
	}
	return cfg
}

// Backends starts every persistent backend so a test can run once per
// store.
func Backends(t *testing.T) map[string]*config.Config {
	t.Helper()
	return map[string]*config.Config{
		config.BackendMongo:    StartMongo(t),
		config.BackendPostgres: StartPostgres(t),
	}
}

// StartKafka runs a single-node broker and returns its addresses.
func StartKafka(t *testing.T) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("reservo-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka: %v", err)
	}
	terminate(t, container)

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to read kafka brokers: %v", err)
	}
	return brokers
}
