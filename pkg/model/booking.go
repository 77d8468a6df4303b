package model

import (
	"fmt"
	"time"
)

// Booking is created together with a successful slot claim and destroyed
// together with its release. It is never updated in place.
type Booking struct {
	ID                string    `json:"id" bson:"_id"`
	SlotID            string    `json:"slot_id" bson:"slot_id"`
	CustomerName      string    `json:"customer_name" bson:"customer_name"`
	CustomerEmail     string    `json:"customer_email" bson:"customer_email"`
	CustomerPhone     string    `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	Location          string    `json:"location,omitempty" bson:"location,omitempty"`
	Service           string    `json:"service,omitempty" bson:"service,omitempty"`
	AccountID         string    `json:"account_id,omitempty" bson:"account_id,omitempty"`
	CancellationToken string    `json:"cancellation_token,omitempty" bson:"cancellation_token"`
	StartTime         time.Time `json:"start_time" bson:"start_time"`
	EndTime           time.Time `json:"end_time" bson:"end_time"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

// Redacted returns a copy without the cancellation token, for listings.
func (b *Booking) Redacted() *Booking {
	c := *b
	c.CancellationToken = ""
	return &c
}

// Past reports whether the booked window started before now.
func (b *Booking) Past(now time.Time) bool {
	return b.StartTime.Before(now)
}

// Period narrows an account's bookings by start time. The zero value keeps
// every booking.
type Period string

const (
	PeriodAll      Period = ""
	PeriodUpcoming Period = "upcoming"
	PeriodHistory  Period = "history"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodAll, PeriodUpcoming, PeriodHistory:
		return p, nil
	default:
		return PeriodAll, fmt.Errorf("unknown period %q", s)
	}
}

// Includes reports whether a booking falls in the period at now.
func (p Period) Includes(b *Booking, now time.Time) bool {
	switch p {
	case PeriodUpcoming:
		return !b.Past(now)
	case PeriodHistory:
		return b.Past(now)
	default:
		return true
	}
}

type BookingRequest struct {
	SlotID        string `json:"slot_id" validate:"required,max=64"`
	CustomerName  string `json:"customer_name" validate:"required,min=2,max=100,person_name"`
	CustomerEmail string `json:"customer_email" validate:"required,email,max=254"`
	CustomerPhone string `json:"customer_phone,omitempty" validate:"omitempty,e164"`
	Location      string `json:"location,omitempty" validate:"omitempty,max=200"`
	Service       string `json:"service,omitempty" validate:"omitempty,max=100"`
}

// Identity is the caller attached to a booking. A nil *Identity or an empty
// AccountID means an anonymous caller.
type Identity struct {
	AccountID string
	Email     string
}

func (i *Identity) Authenticated() bool {
	return i != nil && i.AccountID != ""
}
