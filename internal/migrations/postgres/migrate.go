package postgres

import (
	"context"
	"fmt"

	"reservo/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements are idempotent so the job can run on every deploy.
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS slots (
		id          TEXT PRIMARY KEY,
		start_time  TIMESTAMPTZ NOT NULL,
		end_time    TIMESTAMPTZ NOT NULL,
		available   BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS slots_window_idx ON slots (start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS slots_available_idx ON slots (start_time) WHERE available`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                  TEXT PRIMARY KEY,
		slot_id             TEXT NOT NULL,
		customer_name       TEXT NOT NULL,
		customer_email      TEXT NOT NULL,
		customer_phone      TEXT NOT NULL DEFAULT '',
		location            TEXT NOT NULL DEFAULT '',
		service             TEXT NOT NULL DEFAULT '',
		account_id          TEXT NOT NULL DEFAULT '',
		cancellation_token  TEXT NOT NULL,
		start_time          TIMESTAMPTZ NOT NULL,
		end_time            TIMESTAMPTZ NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_cancellation_token_idx ON bookings (cancellation_token)`,
	`CREATE INDEX IF NOT EXISTS bookings_slot_id_idx ON bookings (slot_id)`,
	`CREATE INDEX IF NOT EXISTS bookings_account_idx ON bookings (account_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS bookings_start_idx ON bookings (start_time, id)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	log.Info("Running PostgreSQL migrations", "statements", len(Statements))
	for i, stmt := range Statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}
	log.Info("All PostgreSQL migrations applied")
	return nil
}
