package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/pkg/config"
	pgdb "reservo/pkg/db/postgres"
	"reservo/pkg/model"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, slot_id, customer_name, customer_email, customer_phone, location, service,
	account_id, cancellation_token, start_time, end_time, created_at`

type postgresBookingRepository struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

func NewPostgresBookingRepository(cfg *config.Config) BookingRepository {
	return &postgresBookingRepository{
		cfg:  cfg,
		pool: cfg.Client.Postgres,
	}
}

func (r *postgresBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := pgdb.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		booking.ID, booking.SlotID, booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone,
		booking.Location, booking.Service, booking.AccountID, booking.CancellationToken,
		booking.StartTime, booking.EndTime, booking.CreatedAt)
	if err != nil {
		if pgdb.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", bookingserrors.ErrDuplicateToken, err)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return r.queryOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *postgresBookingRepository) FindByCancellationToken(ctx context.Context, token string) (*model.Booking, error) {
	return r.queryOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE cancellation_token = $1`, token)
}

func (r *postgresBookingRepository) FindBySlotID(ctx context.Context, slotID string) ([]*model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE slot_id = $1 ORDER BY created_at`, slotID)
}

func (r *postgresBookingRepository) FindByAccount(ctx context.Context, query AccountQuery, limit int, offset int64) ([]*model.Booking, error) {
	where, args := accountWhere(query)
	args = append(args, limit, offset)
	return r.query(ctx,
		fmt.Sprintf(`SELECT `+bookingColumns+` FROM bookings WHERE %s ORDER BY start_time, id LIMIT $%d OFFSET $%d`,
			where, len(args)-1, len(args)),
		args...)
}

func (r *postgresBookingRepository) CountByAccount(ctx context.Context, query AccountQuery) (int64, error) {
	where, args := accountWhere(query)
	return r.count(ctx, `SELECT count(*) FROM bookings WHERE `+where, args...)
}

func (r *postgresBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY start_time, id LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *postgresBookingRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM bookings`)
}

func (r *postgresBookingRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := pgdb.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete booking: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func accountWhere(query AccountQuery) (string, []any) {
	switch query.Period {
	case model.PeriodUpcoming:
		return `account_id = $1 AND start_time >= $2`, []any{query.AccountID, query.Now}
	case model.PeriodHistory:
		return `account_id = $1 AND start_time < $2`, []any{query.AccountID, query.Now}
	default:
		return `account_id = $1`, []any{query.AccountID}
	}
}

func (r *postgresBookingRepository) queryOne(ctx context.Context, sql string, args ...any) (*model.Booking, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := pgdb.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[bookingRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	return row.model(), nil
}

func (r *postgresBookingRepository) query(ctx context.Context, sql string, args ...any) ([]*model.Booking, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := pgdb.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[bookingRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(collected))
	for _, row := range collected {
		bookings = append(bookings, row.model())
	}
	return bookings, nil
}

func (r *postgresBookingRepository) count(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := pgdb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var count int64
	if err := pgdb.Conn(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

type bookingRow struct {
	ID                string
	SlotID            string
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     string
	Location          string
	Service           string
	AccountID         string
	CancellationToken string
	StartTime         time.Time
	EndTime           time.Time
	CreatedAt         time.Time
}

func (b *bookingRow) model() *model.Booking {
	return &model.Booking{
		ID:                b.ID,
		SlotID:            b.SlotID,
		CustomerName:      b.CustomerName,
		CustomerEmail:     b.CustomerEmail,
		CustomerPhone:     b.CustomerPhone,
		Location:          b.Location,
		Service:           b.Service,
		AccountID:         b.AccountID,
		CancellationToken: b.CancellationToken,
		StartTime:         b.StartTime.UTC(),
		EndTime:           b.EndTime.UTC(),
		CreatedAt:         b.CreatedAt.UTC(),
	}
}
