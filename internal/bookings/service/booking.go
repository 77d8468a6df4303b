package service

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/internal/bookings/repository"
	"reservo/internal/bookings/validator"
	"reservo/internal/notifications"
	slotserrors "reservo/internal/slots/errors"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/model"
	"reservo/pkg/sanitizer"
	"reservo/pkg/validation"
	"sync"
	"time"

	"github.com/google/uuid"
)

const CancelPath = "/api/v1/bookings/cancel/"

// SlotStore is the slice of the slot repository the reservation flow needs.
// TryClaim must be a single conditional write.
type SlotStore interface {
	TryClaim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByTime(ctx context.Context, start, end time.Time) (*model.Slot, error)
}

type Notifier interface {
	Notify(ctx context.Context, n notifications.Notification)
}

type BookingService interface {
	Book(ctx context.Context, req *model.BookingRequest, identity *model.Identity) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (bool, error)
	CancelByToken(ctx context.Context, token string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByToken(ctx context.Context, token string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	GetForAccount(ctx context.Context, identity *model.Identity, period model.Period, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	slots     SlotStore
	notifier  Notifier
	validator *validator.BookingValidator
	cfg       *config.Config
}

// NewBookingService wires the reservation flow. notifier may be nil.
func NewBookingService(
	repo repository.BookingRepository,
	slots SlotStore,
	notifier Notifier,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		slots:     slots,
		notifier:  notifier,
		validator: validator,
		cfg:       cfg,
	}
}

// Book claims the slot and records the booking. The claim is the only
// step that races; once it succeeds the remaining writes run detached from
// the caller so a disconnect cannot leave the slot claimed without a
// booking.
func (s *bookingService) Book(ctx context.Context, req *model.BookingRequest, identity *model.Identity) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Booking request body is required")
	}
	s.sanitize(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	claimed, err := s.slots.TryClaim(ctx, req.SlotID)
	if err != nil {
		s.cfg.Log.Error("Failed to claim slot", "slot_id", req.SlotID, "error", err)
		return nil, apperrors.TransientStore("Failed to claim slot", err)
	}
	if !claimed {
		return nil, s.rejection(ctx, req.SlotID)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	booking, err := s.commit(writeCtx, req, identity)
	if err != nil {
		return nil, s.compensate(writeCtx, req.SlotID, err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"slot_id", booking.SlotID,
		"start_time", booking.StartTime,
		"authenticated", identity.Authenticated(),
	)
	s.notify(ctx, booking)
	return booking, nil
}

func (s *bookingService) rejection(ctx context.Context, slotID string) error {
	exists, err := s.slots.Exists(ctx, slotID)
	if err != nil {
		s.cfg.Log.Error("Failed to check slot existence", "slot_id", slotID, "error", err)
		return apperrors.TransientStore("Failed to check slot", err)
	}
	if !exists {
		return apperrors.SlotNotFound(slotID).WithCause(bookingserrors.ErrSlotNotFound)
	}
	s.cfg.Log.Debug("Slot claim lost", "slot_id", slotID)
	return apperrors.SlotUnavailable(slotID).WithCause(bookingserrors.ErrSlotUnavailable)
}

func (s *bookingService) commit(ctx context.Context, req *model.BookingRequest, identity *model.Identity) (*model.Booking, error) {
	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed slot: %w", err)
	}

	booking := &model.Booking{
		SlotID:            slot.ID,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     req.CustomerPhone,
		Location:          req.Location,
		Service:           req.Service,
		CancellationToken: uuid.NewString(),
		StartTime:         slot.StartTime,
		EndTime:           slot.EndTime,
	}
	if identity.Authenticated() {
		booking.AccountID = identity.AccountID
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}
	return booking, nil
}

// compensate releases a slot whose booking could not be recorded.
func (s *bookingService) compensate(ctx context.Context, slotID string, cause error) error {
	s.cfg.Log.Error("Booking failed after claim, releasing slot", "slot_id", slotID, "error", cause)

	if err := s.slots.Release(ctx, slotID); err != nil {
		s.cfg.Log.Critical("slot claimed without booking",
			"slot_id", slotID,
			"cause", cause.Error(),
			"release_error", err.Error(),
		)
		return apperrors.TransientStore("Failed to create booking",
			fmt.Errorf("%w: %w", bookingserrors.ErrInconsistent, errors.Join(cause, err)))
	}
	return apperrors.TransientStore("Failed to create booking", cause)
}

func (s *bookingService) notify(ctx context.Context, booking *model.Booking) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notifications.Notification{
		BookingID:        booking.ID,
		ContactAddress:   booking.CustomerEmail,
		CustomerName:     booking.CustomerName,
		SlotStart:        booking.StartTime,
		SlotEnd:          booking.EndTime,
		CancellationLink: s.cfg.CancelBaseURL + CancelPath + booking.CancellationToken,
	})
}

func (s *bookingService) Cancel(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	return s.cancel(ctx, booking, err)
}

func (s *bookingService) CancelByToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, apperrors.InvalidInput("Cancellation token cannot be empty")
	}
	booking, err := s.repo.FindByCancellationToken(ctx, token)
	return s.cancel(ctx, booking, err)
}

// cancel deletes the booking first. Only the caller whose delete removed
// the record releases the slot, so concurrent cancellers release it once.
func (s *bookingService) cancel(ctx context.Context, booking *model.Booking, lookupErr error) (bool, error) {
	if lookupErr != nil {
		if errors.Is(lookupErr, bookingserrors.ErrNotFound) {
			return false, nil
		}
		s.cfg.Log.Error("Failed to look up booking", "error", lookupErr)
		return false, apperrors.TransientStore("Failed to retrieve booking", lookupErr)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	deleted, err := s.repo.Delete(writeCtx, booking.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to delete booking", "id", booking.ID, "error", err)
		return false, apperrors.TransientStore("Failed to cancel booking", err)
	}
	if !deleted {
		s.cfg.Log.Debug("Booking already cancelled", "id", booking.ID)
		return false, nil
	}

	if err := s.releaseFor(writeCtx, booking); err != nil {
		s.cfg.Log.Critical("booking cancelled but slot still claimed",
			"booking_id", booking.ID,
			"slot_id", booking.SlotID,
			"error", err.Error(),
		)
		return false, apperrors.TransientStore("Failed to release slot", err)
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", booking.ID, "slot_id", booking.SlotID)
	return true, nil
}

// releaseFor frees the slot the booking held. When the referenced slot is
// gone it falls back to the slot covering the booking's window, provided
// no other booking holds that slot.
func (s *bookingService) releaseFor(ctx context.Context, booking *model.Booking) error {
	if booking.SlotID != "" {
		exists, err := s.slots.Exists(ctx, booking.SlotID)
		if err != nil {
			return err
		}
		if exists {
			return s.slots.Release(ctx, booking.SlotID)
		}
	}

	slot, err := s.slots.FindByTime(ctx, booking.StartTime, booking.EndTime)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			s.cfg.Log.Warn("No slot found for cancelled booking",
				"booking_id", booking.ID,
				"slot_id", booking.SlotID,
				"start_time", booking.StartTime,
				"end_time", booking.EndTime,
			)
			return nil
		}
		return err
	}

	holders, err := s.repo.FindBySlotID(ctx, slot.ID)
	if err != nil {
		return err
	}
	if len(holders) > 0 {
		s.cfg.Log.Warn("Fallback slot held by another booking, not releasing",
			"booking_id", booking.ID,
			"slot_id", slot.ID,
		)
		return nil
	}

	s.cfg.Log.Info("Releasing slot found by time", "booking_id", booking.ID, "slot_id", slot.ID)
	return s.slots.Release(ctx, slot.ID)
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateReadError(err, "Booking", id)
	}
	return booking, nil
}

func (s *bookingService) GetByToken(ctx context.Context, token string) (*model.Booking, error) {
	if token == "" {
		return nil, apperrors.InvalidInput("Cancellation token cannot be empty")
	}
	booking, err := s.repo.FindByCancellationToken(ctx, token)
	if err != nil {
		return nil, s.translateReadError(err, "Booking", "")
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	return s.page(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.Count(ctx) },
		func(ctx context.Context) ([]*model.Booking, error) { return s.repo.FindAll(ctx, limit, offset) },
	)
}

// GetForAccount lists the caller's bookings. Upcoming bookings start at or
// after now; history holds those that started before.
func (s *bookingService) GetForAccount(ctx context.Context, identity *model.Identity, period model.Period, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !identity.Authenticated() {
		return nil, 0, apperrors.Unauthorized("Authentication required to list your bookings")
	}
	query := repository.AccountQuery{AccountID: identity.AccountID, Period: period, Now: time.Now().UTC()}
	return s.page(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.CountByAccount(ctx, query) },
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByAccount(ctx, query, limit, offset)
		},
	)
}

func (s *bookingService) page(
	ctx context.Context,
	countFn func(context.Context) (int64, error),
	findFn func(context.Context) ([]*model.Booking, error),
) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = countFn(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.TransientStore("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = findFn(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.TransientStore("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.SlotID = sanitizer.TrimAndNormalize(req.SlotID)
	req.CustomerName = sanitizer.NormalizeName(req.CustomerName)
	req.CustomerEmail = sanitizer.NormalizeEmail(req.CustomerEmail)
	if phone, ok := sanitizer.NormalizePhone(req.CustomerPhone); ok {
		req.CustomerPhone = phone
	} else {
		req.CustomerPhone = sanitizer.TrimAndNormalize(req.CustomerPhone)
	}
	req.Location = sanitizer.TrimAndNormalize(req.Location)
	req.Service = sanitizer.TrimAndNormalize(req.Service)
}

func (s *bookingService) validate(req *model.BookingRequest) error {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Invalid booking input", validation.Details(err))
	}
	return nil
}

func (s *bookingService) translateReadError(err error, resource, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		if id == "" {
			return apperrors.NotFound(resource)
		}
		return apperrors.NotFoundWithID(resource, id)
	}
	s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
	return apperrors.TransientStore("Failed to retrieve booking", err)
}
