package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	ErrOverlap = errors.New("slot overlaps an existing slot")

	ErrClaimed = errors.New("slot is claimed by a booking")

	ErrHasBookings = errors.New("slot is referenced by bookings")

	ErrInvalidTimeRange = errors.New("end time must be after start time")
)
