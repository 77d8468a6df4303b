package repository

import (
	"context"
	"errors"
	"fmt"
	slotserrors "reservo/internal/slots/errors"
	"reservo/pkg/model"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newSlot(t *testing.T, repo SlotRepository, start time.Time) *model.Slot {
	t.Helper()
	slot := &model.Slot{StartTime: start, EndTime: start.Add(30 * time.Minute), Available: true}
	if err := repo.Create(context.Background(), slot); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot
}

func TestMemoryTryClaim_MutualExclusion(t *testing.T) {
	contenders := []int{1, 2, 10, 50, 100}
	base := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	for _, k := range contenders {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			for round := 0; round < 20; round++ {
				repo := NewMemorySlotRepository()
				slot := newSlot(t, repo, base)

				var wins atomic.Int32
				var wg sync.WaitGroup
				start := make(chan struct{})
				for i := 0; i < k; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						<-start
						ok, err := repo.TryClaim(context.Background(), slot.ID)
						if err != nil {
							t.Errorf("TryClaim: %v", err)
						}
						if ok {
							wins.Add(1)
						}
					}()
				}
				close(start)
				wg.Wait()

				if wins.Load() != 1 {
					t.Fatalf("round %d: expected exactly one winner, got %d", round, wins.Load())
				}
				stored, _ := repo.FindByID(context.Background(), slot.ID)
				if stored.Available {
					t.Fatalf("round %d: slot still available after a successful claim", round)
				}
			}
		})
	}
}

func TestMemoryTryClaim_MissingSlot(t *testing.T) {
	repo := NewMemorySlotRepository()

	ok, err := repo.TryClaim(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("expected (false, nil) for a missing slot, got (%v, %v)", ok, err)
	}
	exists, err := repo.Exists(context.Background(), "nope")
	if err != nil || exists {
		t.Fatalf("expected missing slot, got (%v, %v)", exists, err)
	}
}

func TestMemoryRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySlotRepository()
	slot := newSlot(t, repo, time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC))

	if ok, _ := repo.TryClaim(ctx, slot.ID); !ok {
		t.Fatal("first claim should succeed")
	}
	if ok, _ := repo.TryClaim(ctx, slot.ID); ok {
		t.Fatal("second claim should fail")
	}

	for i := 0; i < 2; i++ {
		if err := repo.Release(ctx, slot.ID); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if err := repo.Release(ctx, "missing"); err != nil {
		t.Fatalf("releasing a missing slot must not fail: %v", err)
	}

	if ok, _ := repo.TryClaim(ctx, slot.ID); !ok {
		t.Fatal("claim after release should succeed")
	}
}

func TestMemoryTryClaim_CancelledContext(t *testing.T) {
	repo := NewMemorySlotRepository()
	slot := newSlot(t, repo, time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.TryClaim(ctx, slot.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), slot.ID)
	if !stored.Available {
		t.Fatal("a cancelled claim must not change the slot")
	}
}

func TestMemoryFindByTime(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySlotRepository()
	start := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	slot := newSlot(t, repo, start)

	found, err := repo.FindByTime(ctx, start.In(time.FixedZone("X", 3600)), start.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("FindByTime: %v", err)
	}
	if found.ID != slot.ID {
		t.Errorf("expected %s, got %s", slot.ID, found.ID)
	}

	if _, err := repo.FindByTime(ctx, start.Add(time.Hour), start.Add(2*time.Hour)); !errors.Is(err, slotserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDeleteAndUpdate_RefuseClaimed(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySlotRepository()
	start := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	slot := newSlot(t, repo, start)

	_, _ = repo.TryClaim(ctx, slot.ID)

	if err := repo.Delete(ctx, slot.ID); !errors.Is(err, slotserrors.ErrClaimed) {
		t.Errorf("expected ErrClaimed on delete, got %v", err)
	}
	if err := repo.UpdateWindow(ctx, slot.ID, start, start.Add(time.Hour)); !errors.Is(err, slotserrors.ErrClaimed) {
		t.Errorf("expected ErrClaimed on update, got %v", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, slotserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_ = repo.Release(ctx, slot.ID)
	if err := repo.Delete(ctx, slot.ID); err != nil {
		t.Errorf("delete after release: %v", err)
	}
}

func TestMemoryFindAll_SortedAndPaged(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySlotRepository()
	base := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	var ids []string
	for i := 4; i >= 0; i-- {
		ids = append([]string{newSlot(t, repo, base.Add(time.Duration(i)*time.Hour)).ID}, ids...)
	}
	_, _ = repo.TryClaim(ctx, ids[1])

	all, _ := repo.FindAll(ctx, false, 10, 0)
	if len(all) != 5 || all[0].ID != ids[0] || all[4].ID != ids[4] {
		t.Fatalf("expected 5 slots sorted by start, got %d", len(all))
	}

	available, _ := repo.FindAll(ctx, true, 10, 0)
	if len(available) != 4 {
		t.Errorf("expected 4 available slots, got %d", len(available))
	}
	if n, _ := repo.Count(ctx, true); n != 4 {
		t.Errorf("expected available count 4, got %d", n)
	}

	paged, _ := repo.FindAll(ctx, false, 2, 3)
	if len(paged) != 2 || paged[0].ID != ids[3] {
		t.Errorf("unexpected page: %v", paged)
	}
	if rest, _ := repo.FindAll(ctx, false, 2, 10); len(rest) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(rest))
	}
}

func TestMemoryFindOverlapping(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySlotRepository()
	start := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	slot := newSlot(t, repo, start)

	tests := []struct {
		name       string
		start, end time.Time
		exclude    string
		want       int
	}{
		{"identical", start, start.Add(30 * time.Minute), "", 1},
		{"inside", start.Add(5 * time.Minute), start.Add(10 * time.Minute), "", 1},
		{"touching end", start.Add(30 * time.Minute), start.Add(time.Hour), "", 0},
		{"touching start", start.Add(-time.Hour), start, "", 0},
		{"excluded self", start, start.Add(30 * time.Minute), slot.ID, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindOverlapping(ctx, tt.start, tt.end, tt.exclude)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d overlaps, got %d", tt.want, len(got))
			}
		})
	}
}
