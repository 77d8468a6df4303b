package repository

import (
	"context"
	"reservo/pkg/config"
	"reservo/pkg/model"
	"time"
)

const (
	CollectionName = "Bookings"
	TableName      = "bookings"
)

// BookingRepository stores booking records. Records are created once and
// deleted once; Delete reports whether this call removed the record so
// concurrent cancellers can tell who won.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByCancellationToken(ctx context.Context, token string) (*model.Booking, error)
	FindBySlotID(ctx context.Context, slotID string) ([]*model.Booking, error)
	FindByAccount(ctx context.Context, query AccountQuery, limit int, offset int64) ([]*model.Booking, error)
	CountByAccount(ctx context.Context, query AccountQuery) (int64, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// AccountQuery selects one account's bookings, optionally only those whose
// start time is at or after Now (upcoming) or before it (history).
type AccountQuery struct {
	AccountID string
	Period    model.Period
	Now       time.Time
}

func New(cfg *config.Config) BookingRepository {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return NewPostgresBookingRepository(cfg)
	case config.BackendMemory:
		return NewMemoryBookingRepository()
	default:
		return NewMongoBookingRepository(cfg)
	}
}

func (q AccountQuery) matches(b *model.Booking) bool {
	return b.AccountID == q.AccountID && q.Period.Includes(b, q.Now)
}
