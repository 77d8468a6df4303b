//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "reservo/internal/bookings/errors"
	"reservo/internal/testutil"
	"reservo/pkg/model"

	"github.com/google/uuid"
)

func newBooking(slotID, account string, start time.Time) *model.Booking {
	return &model.Booking{
		SlotID:            slotID,
		CustomerName:      "Ada Lovelace",
		CustomerEmail:     "ada@example.com",
		AccountID:         account,
		CancellationToken: uuid.NewString(),
		StartTime:         start,
		EndTime:           start.Add(30 * time.Minute),
	}
}

func TestIntegration_CreateFindDelete(t *testing.T) {
	for backend, cfg := range testutil.Backends(t) {
		t.Run(backend, func(t *testing.T) {
			repo := New(cfg)
			ctx := context.Background()
			start := time.Date(2031, 3, 1, 9, 0, 0, 0, time.UTC)

			booking := newBooking(uuid.NewString(), "acc-1", start)
			if err := repo.Create(ctx, booking); err != nil {
				t.Fatalf("create: %v", err)
			}

			byToken, err := repo.FindByCancellationToken(ctx, booking.CancellationToken)
			if err != nil || byToken.ID != booking.ID {
				t.Fatalf("FindByCancellationToken = %+v, %v", byToken, err)
			}
			if !byToken.StartTime.Equal(start) {
				t.Errorf("start time round trip: got %s want %s", byToken.StartTime, start)
			}

			bySlot, err := repo.FindBySlotID(ctx, booking.SlotID)
			if err != nil || len(bySlot) != 1 {
				t.Errorf("FindBySlotID = %d, %v", len(bySlot), err)
			}

			mine, err := repo.FindByAccount(ctx, AccountQuery{AccountID: "acc-1"}, 10, 0)
			if err != nil || len(mine) != 1 {
				t.Errorf("FindByAccount = %d, %v", len(mine), err)
			}

			duplicate := newBooking(uuid.NewString(), "", start)
			duplicate.CancellationToken = booking.CancellationToken
			if err := repo.Create(ctx, duplicate); !errors.Is(err, bookingserrors.ErrDuplicateToken) {
				t.Errorf("duplicate token: expected ErrDuplicateToken, got %v", err)
			}

			if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, bookingserrors.ErrNotFound) {
				t.Errorf("FindByID(missing) error = %v", err)
			}
		})
	}
}

func TestIntegration_DeleteHasOneWinner(t *testing.T) {
	for backend, cfg := range testutil.Backends(t) {
		t.Run(backend, func(t *testing.T) {
			repo := New(cfg)
			ctx := context.Background()

			booking := newBooking(uuid.NewString(), "", time.Date(2031, 3, 2, 9, 0, 0, 0, time.UTC))
			if err := repo.Create(ctx, booking); err != nil {
				t.Fatal(err)
			}

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					deleted, err := repo.Delete(ctx, booking.ID)
					if err != nil {
						t.Errorf("Delete: %v", err)
						return
					}
					if deleted {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			if wins.Load() != 1 {
				t.Errorf("expected exactly one delete to win, got %d", wins.Load())
			}
		})
	}
}

func TestIntegration_AccountPeriods(t *testing.T) {
	for backend, cfg := range testutil.Backends(t) {
		t.Run(backend, func(t *testing.T) {
			repo := New(cfg)
			ctx := context.Background()
			account := "acc-" + uuid.NewString()
			now := time.Date(2031, 6, 1, 12, 0, 0, 0, time.UTC)

			past := newBooking(uuid.NewString(), account, now.Add(-24*time.Hour))
			future := newBooking(uuid.NewString(), account, now.Add(24*time.Hour))
			for _, b := range []*model.Booking{past, future} {
				if err := repo.Create(ctx, b); err != nil {
					t.Fatalf("create: %v", err)
				}
			}

			tests := []struct {
				period model.Period
				want   []string
			}{
				{model.PeriodAll, []string{past.ID, future.ID}},
				{model.PeriodUpcoming, []string{future.ID}},
				{model.PeriodHistory, []string{past.ID}},
			}

			for _, tt := range tests {
				query := AccountQuery{AccountID: account, Period: tt.period, Now: now}
				found, err := repo.FindByAccount(ctx, query, 10, 0)
				if err != nil {
					t.Fatalf("FindByAccount(%q): %v", tt.period, err)
				}
				count, err := repo.CountByAccount(ctx, query)
				if err != nil {
					t.Fatalf("CountByAccount(%q): %v", tt.period, err)
				}
				if count != int64(len(tt.want)) || len(found) != len(tt.want) {
					t.Fatalf("period %q: expected %d, got %d (count %d)", tt.period, len(tt.want), len(found), count)
				}
				for i, id := range tt.want {
					if found[i].ID != id {
						t.Errorf("period %q booking %d: expected %s, got %s", tt.period, i, id, found[i].ID)
					}
				}
			}
		})
	}
}
