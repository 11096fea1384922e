// Package queue carries booking events over RabbitMQ: payload types, the
// publisher used by the booking service and the audit consumer.
package queue

import (
	"time"

	"github.com/iliyamo/listing-booking/internal/model"
)

// Queue names double as routing keys on the default exchange.
const (
	QueueBookingCreated  = "booking.created"
	QueueBookingCanceled = "booking.canceled"
)

// BookingCreatedEvent is published after a reservation is committed.  It is
// self-contained so consumers never need to query the primary database.
type BookingCreatedEvent struct {
	BookingID  string `json:"booking_id"`
	ListingID  string `json:"listing_id"`
	TenantID   string `json:"tenant_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Nights     int64  `json:"nights"`
	TotalPrice int64  `json:"total_price"`
	Travelers  int    `json:"travelers"`
	CreatedAt  string `json:"created_at"`
}

// BookingCanceledEvent is published after a reservation is deleted.
type BookingCanceledEvent struct {
	BookingID  string `json:"booking_id"`
	ListingID  string `json:"listing_id"`
	CanceledBy string `json:"canceled_by"`
	Mode       string `json:"mode"`
	CanceledAt string `json:"canceled_at"`
}

func createdEvent(r model.Reservation) BookingCreatedEvent {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return BookingCreatedEvent{
		BookingID:  r.PublicID.String(),
		ListingID:  r.ListingID.String(),
		TenantID:   r.TenantID.String(),
		StartDate:  r.Interval.Start.UTC().Format(time.RFC3339),
		EndDate:    r.Interval.End.UTC().Format(time.RFC3339),
		Nights:     r.Interval.Nights(),
		TotalPrice: r.TotalPrice,
		Travelers:  r.Travelers,
		CreatedAt:  created.UTC().Format(time.RFC3339),
	}
}

func canceledEvent(c model.Cancellation) BookingCanceledEvent {
	return BookingCanceledEvent{
		BookingID:  c.BookingID.String(),
		ListingID:  c.ListingID.String(),
		CanceledBy: c.CanceledBy.String(),
		Mode:       c.Mode.String(),
		CanceledAt: c.At.UTC().Format(time.RFC3339),
	}
}
