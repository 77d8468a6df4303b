package repository

import (
	"context"
	"fmt"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/pkg/model"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
	byToken  map[string]string
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings: make(map[string]*model.Booking),
		byToken:  make(map[string]string),
	}
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byToken[booking.CancellationToken]; taken && booking.CancellationToken != "" {
		return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateToken, booking.ID)
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	c := *booking
	r.bookings[c.ID] = &c
	if c.CancellationToken != "" {
		r.byToken[c.CancellationToken] = c.ID
	}
	return nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	c := *booking
	return &c, nil
}

func (r *memoryBookingRepository) FindByCancellationToken(ctx context.Context, token string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	id, ok := r.byToken[token]
	r.mu.RUnlock()
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *memoryBookingRepository) FindBySlotID(ctx context.Context, slotID string) ([]*model.Booking, error) {
	return r.filter(ctx, func(b *model.Booking) bool { return b.SlotID == slotID }, 0, 0)
}

func (r *memoryBookingRepository) FindByAccount(ctx context.Context, query AccountQuery, limit int, offset int64) ([]*model.Booking, error) {
	return r.filter(ctx, query.matches, limit, offset)
}

func (r *memoryBookingRepository) CountByAccount(ctx context.Context, query AccountQuery) (int64, error) {
	all, err := r.filter(ctx, query.matches, 0, 0)
	return int64(len(all)), err
}

func (r *memoryBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return r.filter(ctx, func(*model.Booking) bool { return true }, limit, offset)
}

func (r *memoryBookingRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.bookings)), nil
}

func (r *memoryBookingRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	delete(r.bookings, id)
	delete(r.byToken, booking.CancellationToken)
	return true, nil
}

func (r *memoryBookingRepository) filter(ctx context.Context, keep func(*model.Booking) bool, limit int, offset int64) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Booking
	for _, booking := range r.bookings {
		if keep(booking) {
			c := *booking
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})

	if offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
