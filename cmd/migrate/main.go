package main

import (
	"context"
	"time"

	mongoMigration "reservo/internal/migrations/mongo"
	pgMigration "reservo/internal/migrations/postgres"
	"reservo/pkg/config"
)

const JobName = "migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.Connect()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job", "store_backend", cfg.StoreBackend)

	var err error
	switch cfg.StoreBackend {
	case config.BackendMongo:
		err = mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	case config.BackendPostgres:
		err = pgMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log)
	default:
		cfg.Log.Info("Nothing to migrate for backend", "store_backend", cfg.StoreBackend)
		return
	}
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
