package repository

import (
	"context"
	slotserrors "reservo/internal/slots/errors"
	"reservo/pkg/model"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memorySlotRepository keeps slots in process memory. Every operation holds
// mu for its whole duration, which makes TryClaim a compare-and-swap.
// Transactions are serialised by txMu, which is never taken by single
// operations.
type memorySlotRepository struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	slots map[string]*model.Slot
}

func NewMemorySlotRepository() SlotRepository {
	return &memorySlotRepository{slots: make(map[string]*model.Slot)}
}

func (r *memorySlotRepository) TryClaim(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok || !slot.Available {
		return false, nil
	}
	slot.Available = false
	return true, nil
}

func (r *memorySlotRepository) Release(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot, ok := r.slots[id]; ok {
		slot.Available = true
	}
	return nil
}

func (r *memorySlotRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.slots[id]
	return ok, nil
}

func (r *memorySlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	c := *slot
	return &c, nil
}

func (r *memorySlotRepository) FindByTime(ctx context.Context, start, end time.Time) (*model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = start.UTC().Truncate(time.Millisecond)
	end = end.UTC().Truncate(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slot := range r.sortedLocked() {
		if slot.StartTime.Equal(start) && slot.EndTime.Equal(end) {
			c := *slot
			return &c, nil
		}
	}
	return nil, slotserrors.ErrNotFound
}

func (r *memorySlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	normalizeWindow(slot)
	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	c := *slot
	r.slots[slot.ID] = &c
	return nil
}

func (r *memorySlotRepository) UpdateWindow(ctx context.Context, id string, start, end time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	if !slot.Available {
		return slotserrors.ErrClaimed
	}
	slot.StartTime = start.UTC().Truncate(time.Millisecond)
	slot.EndTime = end.UTC().Truncate(time.Millisecond)
	return nil
}

func (r *memorySlotRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return slotserrors.ErrNotFound
	}
	if !slot.Available {
		return slotserrors.ErrClaimed
	}
	delete(r.slots, id)
	return nil
}

func (r *memorySlotRepository) FindAll(ctx context.Context, availableOnly bool, limit int, offset int64) ([]*model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Slot
	for _, slot := range r.sortedLocked() {
		if availableOnly && !slot.Available {
			continue
		}
		c := *slot
		out = append(out, &c)
	}
	return page(out, limit, offset), nil
}

func (r *memorySlotRepository) Count(ctx context.Context, availableOnly bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, slot := range r.slots {
		if !availableOnly || slot.Available {
			count++
		}
	}
	return count, nil
}

func (r *memorySlotRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]*model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Slot
	for _, slot := range r.sortedLocked() {
		if slot.ID != excludeID && slot.Overlaps(start, end) {
			c := *slot
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memorySlotRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(ctx)
}

func (r *memorySlotRepository) sortedLocked() []*model.Slot {
	out := make([]*model.Slot, 0, len(r.slots))
	for _, slot := range r.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func page[T any](items []T, limit int, offset int64) []T {
	if offset >= int64(len(items)) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
