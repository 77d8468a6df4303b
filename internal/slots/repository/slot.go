package repository

import (
	"context"
	"reservo/pkg/config"
	"reservo/pkg/model"
	"time"
)

const (
	CollectionName = "Slots"
	TableName      = "slots"

	// GuardCollectionName holds the document every Mongo slot
	// administration transaction writes first, so concurrent window changes
	// conflict and are retried one after another.
	GuardCollectionName = "SlotGuards"
	GuardID             = "slot-windows"
)

// SlotRepository is the single source of truth for slot availability.
//
// TryClaim is the only way to move a slot from available to claimed and is
// a single conditional write on every backend. Release is its inverse and is
// unconditional.
type SlotRepository interface {
	TryClaim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByTime(ctx context.Context, start, end time.Time) (*model.Slot, error)

	Create(ctx context.Context, slot *model.Slot) error
	UpdateWindow(ctx context.Context, id string, start, end time.Time) error
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context, availableOnly bool, limit int, offset int64) ([]*model.Slot, error)
	Count(ctx context.Context, availableOnly bool) (int64, error)
	FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]*model.Slot, error)
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// New returns the repository for cfg.StoreBackend. The matching client must
// already be connected.
func New(cfg *config.Config) SlotRepository {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return NewPostgresSlotRepository(cfg)
	case config.BackendMemory:
		return NewMemorySlotRepository()
	default:
		return NewMongoSlotRepository(cfg)
	}
}

func normalizeWindow(slot *model.Slot) {
	slot.StartTime = slot.StartTime.UTC().Truncate(time.Millisecond)
	slot.EndTime = slot.EndTime.UTC().Truncate(time.Millisecond)
}
