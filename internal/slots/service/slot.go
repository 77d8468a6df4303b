package service

import (
	"context"
	"errors"
	slotserrors "reservo/internal/slots/errors"
	"reservo/internal/slots/repository"
	"reservo/internal/slots/validator"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/model"
	"reservo/pkg/validation"
	"sync"
)

// BookingLookup reports bookings that reference a slot. It keeps slot
// deletion from orphaning booking records.
type BookingLookup interface {
	FindBySlotID(ctx context.Context, slotID string) ([]*model.Booking, error)
}

type SlotService interface {
	Create(ctx context.Context, req *model.SlotRequest) (*model.Slot, error)
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	GetAll(ctx context.Context, availableOnly bool, limit int, offset int64) ([]*model.Slot, int64, error)
	Update(ctx context.Context, id string, req *model.SlotRequest) (*model.Slot, error)
	Delete(ctx context.Context, id string) error
	Reopen(ctx context.Context, id string) (*model.Slot, error)
	IsBooked(ctx context.Context, id string) (bool, error)
}

type slotService struct {
	repo      repository.SlotRepository
	bookings  BookingLookup
	validator *validator.SlotValidator
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	bookings BookingLookup,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *slotService) Create(ctx context.Context, req *model.SlotRequest) (*model.Slot, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	// A slot claimed without a booking can only be freed through Reopen.
	if req.Available != nil && !*req.Available {
		return nil, apperrors.Validation("Invalid slot input", map[string]any{
			"available": "slots are created available; claims happen through bookings",
		})
	}

	slot := &model.Slot{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Available: true,
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.verifyNoOverlap(txCtx, slot, ""); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, slot); err != nil {
			return apperrors.Internal("Failed to create slot", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create slot", "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Slot created successfully",
		"id", slot.ID,
		"start_time", slot.StartTime,
		"end_time", slot.EndTime,
		"available", slot.Available,
	)
	return slot, nil
}

func (s *slotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.SlotNotFound(id)
		}
		return nil, apperrors.TransientStore("Failed to retrieve slot", err)
	}
	return slot, nil
}

func (s *slotService) GetAll(ctx context.Context, availableOnly bool, limit int, offset int64) ([]*model.Slot, int64, error) {
	var count int64
	var slots []*model.Slot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, availableOnly)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count slots", "error", errCount)
			errCount = apperrors.TransientStore("Failed to count slots", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		slots, errFind = s.repo.FindAll(ctx, availableOnly, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list slots", "error", errFind)
			errFind = apperrors.TransientStore("Failed to retrieve slots", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return slots, count, nil
}

// Update moves the window of an unclaimed slot. Availability is owned by
// the reservation flow and is not changed here.
func (s *slotService) Update(ctx context.Context, id string, req *model.SlotRequest) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	candidate := &model.Slot{ID: id, StartTime: req.StartTime, EndTime: req.EndTime}

	var updated *model.Slot
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.verifyNoOverlap(txCtx, candidate, id); err != nil {
			return err
		}
		if err := s.repo.UpdateWindow(txCtx, id, req.StartTime, req.EndTime); err != nil {
			return s.translateWriteError(id, err, "Failed to update slot")
		}
		slot, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to reload slot", err)
		}
		updated = slot
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update slot", "id", id, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Slot updated successfully", "id", id, "start_time", updated.StartTime, "end_time", updated.EndTime)
	return updated, nil
}

func (s *slotService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	bookings, err := s.bookings.FindBySlotID(ctx, id)
	if err != nil {
		return apperrors.TransientStore("Failed to check slot bookings", err)
	}
	if len(bookings) > 0 {
		return apperrors.Conflict("Time slot has existing bookings").
			WithDetails(map[string]any{"slot_id": id, "bookings": len(bookings)}).
			WithCause(slotserrors.ErrHasBookings)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.cfg.Log.Warn("Failed to delete slot", "id", id, "error", err)
		return s.translateWriteError(id, err, "Failed to delete slot")
	}

	s.cfg.Log.Info("Slot deleted successfully", "id", id)
	return nil
}

// Reopen releases a claimed slot that no booking references. It repairs
// slots left claimed after a booking write and its compensation both failed.
func (s *slotService) Reopen(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.Available {
		return slot, nil
	}

	bookings, err := s.bookings.FindBySlotID(ctx, id)
	if err != nil {
		return nil, apperrors.TransientStore("Failed to check slot bookings", err)
	}
	if len(bookings) > 0 {
		return nil, apperrors.Conflict("Time slot has existing bookings").
			WithDetails(map[string]any{"slot_id": id, "bookings": len(bookings)}).
			WithCause(slotserrors.ErrHasBookings)
	}

	if err := s.repo.Release(ctx, id); err != nil {
		s.cfg.Log.Error("Failed to reopen slot", "id", id, "error", err)
		return nil, apperrors.TransientStore("Failed to reopen slot", err)
	}
	slot.Available = true

	s.cfg.Log.Warn("Orphaned slot claim released", "id", id)
	return slot, nil
}

func (s *slotService) IsBooked(ctx context.Context, id string) (bool, error) {
	slot, err := s.GetByID(ctx, id)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSlotNotFound) {
			return false, nil
		}
		return false, err
	}
	return !slot.Available, nil
}

func (s *slotService) validate(req *model.SlotRequest) error {
	if req == nil {
		return apperrors.InvalidInput("Slot request body is required")
	}
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Slot validation failed", "error", err)
		return apperrors.Validation("Invalid slot input", validation.Details(err))
	}
	return nil
}

func (s *slotService) verifyNoOverlap(ctx context.Context, slot *model.Slot, excludeID string) error {
	conflicts, err := s.repo.FindOverlapping(ctx, slot.StartTime, slot.EndTime, excludeID)
	if err != nil {
		return apperrors.TransientStore("Failed to check slot overlap", err)
	}
	if len(conflicts) > 0 {
		return apperrors.Conflict("Time slot overlaps with an existing slot").
			WithDetails(map[string]any{"conflicting_slot_id": conflicts[0].ID}).
			WithCause(slotserrors.ErrOverlap)
	}
	return nil
}

func (s *slotService) translateWriteError(id string, err error, message string) error {
	switch {
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.SlotNotFound(id)
	case errors.Is(err, slotserrors.ErrClaimed):
		return apperrors.Conflict("Time slot is claimed by a booking").
			WithDetails(map[string]any{"slot_id": id}).
			WithCause(slotserrors.ErrClaimed)
	default:
		return apperrors.TransientStore(message, err)
	}
}
