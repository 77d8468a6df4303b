package notifications

import (
	"context"
	"time"
)

const EventBookingConfirmed = "booking.confirmed"

// Notification is the confirmation sent after a booking commits. It carries
// the cancellation link, so it must only go to the contact address.
type Notification struct {
	BookingID        string    `json:"booking_id"`
	ContactAddress   string    `json:"contact_address"`
	CustomerName     string    `json:"customer_name"`
	SlotStart        time.Time `json:"slot_start"`
	SlotEnd          time.Time `json:"slot_end"`
	CancellationLink string    `json:"cancellation_link"`
}

type Sink interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}
