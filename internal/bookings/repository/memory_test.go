package repository

import (
	"context"
	"errors"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/pkg/model"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryBookingRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()
	start := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	booking := &model.Booking{SlotID: "s-1", CancellationToken: "tok-1", AccountID: "acc-1", StartTime: start}
	if err := repo.Create(ctx, booking); err != nil {
		t.Fatal(err)
	}
	if booking.ID == "" || booking.CreatedAt.IsZero() {
		t.Fatal("Create should assign id and created_at")
	}

	byToken, err := repo.FindByCancellationToken(ctx, "tok-1")
	if err != nil || byToken.ID != booking.ID {
		t.Fatalf("FindByCancellationToken: %v %v", byToken, err)
	}
	bySlot, _ := repo.FindBySlotID(ctx, "s-1")
	if len(bySlot) != 1 {
		t.Errorf("expected one booking for slot, got %d", len(bySlot))
	}
	mine, _ := repo.FindByAccount(ctx, AccountQuery{AccountID: "acc-1"}, 10, 0)
	if n, _ := repo.CountByAccount(ctx, AccountQuery{AccountID: "acc-1"}); n != 1 || len(mine) != 1 {
		t.Errorf("expected one account booking, got %d/%d", n, len(mine))
	}

	dup := &model.Booking{SlotID: "s-2", CancellationToken: "tok-1"}
	if err := repo.Create(ctx, dup); !errors.Is(err, bookingserrors.ErrDuplicateToken) {
		t.Errorf("expected ErrDuplicateToken, got %v", err)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryBookingRepository_DeleteHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()
	booking := &model.Booking{SlotID: "s-1", CancellationToken: "tok"}
	_ = repo.Create(ctx, booking)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := repo.Delete(ctx, booking.ID); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one successful delete, got %d", wins.Load())
	}
	if _, err := repo.FindByCancellationToken(ctx, "tok"); !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Error("token index should be cleared with the booking")
	}
}

func TestMemoryBookingRepository_AccountPeriods(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()
	now := time.Date(2031, 6, 1, 12, 0, 0, 0, time.UTC)

	past := &model.Booking{SlotID: "s-past", AccountID: "acc-1", CancellationToken: "tok-past", StartTime: now.Add(-time.Hour)}
	future := &model.Booking{SlotID: "s-next", AccountID: "acc-1", CancellationToken: "tok-next", StartTime: now}
	for _, b := range []*model.Booking{past, future} {
		if err := repo.Create(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	upcoming, _ := repo.FindByAccount(ctx, AccountQuery{AccountID: "acc-1", Period: model.PeriodUpcoming, Now: now}, 10, 0)
	if len(upcoming) != 1 || upcoming[0].ID != future.ID {
		t.Errorf("upcoming must include a booking starting exactly now, got %+v", upcoming)
	}
	history, _ := repo.FindByAccount(ctx, AccountQuery{AccountID: "acc-1", Period: model.PeriodHistory, Now: now}, 10, 0)
	if len(history) != 1 || history[0].ID != past.ID {
		t.Errorf("expected only the past booking in history, got %+v", history)
	}
	if n, _ := repo.CountByAccount(ctx, AccountQuery{AccountID: "acc-1"}); n != 2 {
		t.Errorf("expected both bookings without a period, got %d", n)
	}
}
