package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrDuplicateToken = errors.New("cancellation token already issued")

	ErrSlotNotFound = errors.New("slot not found")

	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInconsistent marks a slot left claimed with no booking after the
	// compensating release failed.
	ErrInconsistent = errors.New("slot claimed without booking")
)
