package repository

import (
	"context"
	"errors"
	"fmt"
	slotserrors "reservo/internal/slots/errors"
	"reservo/pkg/config"
	pgdb "reservo/pkg/db/postgres"
	"reservo/pkg/model"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = "id, start_time, end_time, available, created_at"

type postgresSlotRepository struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	txManager pgdb.TransactionManager
}

func NewPostgresSlotRepository(cfg *config.Config) SlotRepository {
	return &postgresSlotRepository{
		cfg:       cfg,
		pool:      cfg.Client.Postgres,
		txManager: pgdb.NewTransactionManager(cfg.Client.Postgres),
	}
}

func (r *postgresSlotRepository) TryClaim(ctx context.Context, id string) (bool, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := pgdb.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE slots SET available = false WHERE id = $1 AND available = true`, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresSlotRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := pgdb.Conn(ctx, r.pool).Exec(ctx, `UPDATE slots SET available = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}

func (r *postgresSlotRepository) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var exists bool
	err := pgdb.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slot existence: %w", err)
	}
	return exists, nil
}

func (r *postgresSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	return r.queryOne(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
}

func (r *postgresSlotRepository) FindByTime(ctx context.Context, start, end time.Time) (*model.Slot, error) {
	return r.queryOne(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE start_time = $1 AND end_time = $2 LIMIT 1`,
		start.UTC().Truncate(time.Millisecond), end.UTC().Truncate(time.Millisecond))
}

func (r *postgresSlotRepository) queryOne(ctx context.Context, sql string, args ...any) (*model.Slot, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := pgdb.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	slot, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[slotRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan slot: %w", err)
	}
	return slot.model(), nil
}

func (r *postgresSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	normalizeWindow(slot)
	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := pgdb.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO slots (`+slotColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		slot.ID, slot.StartTime, slot.EndTime, slot.Available, slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *postgresSlotRepository) UpdateWindow(ctx context.Context, id string, start, end time.Time) error {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := pgdb.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE slots SET start_time = $2, end_time = $3 WHERE id = $1 AND available = true`,
		id, start.UTC().Truncate(time.Millisecond), end.UTC().Truncate(time.Millisecond))
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrClaimed(ctx, id)
	}
	return nil
}

func (r *postgresSlotRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := pgdb.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM slots WHERE id = $1 AND available = true`, id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrClaimed(ctx, id)
	}
	return nil
}

func (r *postgresSlotRepository) missOrClaimed(ctx context.Context, id string) error {
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return slotserrors.ErrClaimed
	}
	return slotserrors.ErrNotFound
}

func (r *postgresSlotRepository) FindAll(ctx context.Context, availableOnly bool, limit int, offset int64) ([]*model.Slot, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := pgdb.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE ($1 = false OR available = true)
		 ORDER BY start_time LIMIT $2 OFFSET $3`,
		availableOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	return collectSlots(rows)
}

func (r *postgresSlotRepository) Count(ctx context.Context, availableOnly bool) (int64, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var count int64
	err := pgdb.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM slots WHERE ($1 = false OR available = true)`, availableOnly).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

func (r *postgresSlotRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]*model.Slot, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := pgdb.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE start_time < $2 AND end_time > $1 AND id <> $3`,
		start.UTC(), end.UTC(), excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping slots: %w", err)
	}
	return collectSlots(rows)
}

func (r *postgresSlotRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

type slotRow struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Available bool
	CreatedAt time.Time
}

func (s *slotRow) model() *model.Slot {
	return &model.Slot{
		ID:        s.ID,
		StartTime: s.StartTime.UTC(),
		EndTime:   s.EndTime.UTC(),
		Available: s.Available,
		CreatedAt: s.CreatedAt.UTC(),
	}
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	collected, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[slotRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan slots: %w", err)
	}
	slots := make([]*model.Slot, 0, len(collected))
	for _, row := range collected {
		slots = append(slots, row.model())
	}
	return slots, nil
}
