// Package notify publishes post-commit domain events. Publishing is fire and
// forget: it happens after the capacity-mutating step commits, never inside
// the critical section, and a failed publish never fails the request.
package notify

import (
	"context"
	"time"

	"github.com/soltoura/booking-api/internal/domain"
)

const (
	EventBookingConfirmed   = "booking.confirmed"
	EventBookingCancelled   = "booking.cancelled"
	EventBookingCompleted   = "booking.completed"
	EventAvailabilityPushed = "availability.pushed"
	EventReservationExpired = "reservation.expired"
)

// Event is the envelope placed on the wire. Downstream consumers schedule
// confirmation email, ticket delivery and webhook dispatch from it.
type Event struct {
	Type        string    `json:"type"`
	OccurredAt  time.Time `json:"occurredAt"`
	ProductID   string    `json:"productId,omitempty"`
	Date        string    `json:"date,omitempty"`
	BookingRef  string    `json:"bookingReference,omitempty"`
	ExternalRef string    `json:"externalBookingRef,omitempty"`
	Vacancies   *int      `json:"vacancies,omitempty"`
	TicketCodes []string  `json:"ticketCodes,omitempty"`
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop drops every event. Used when no broker is configured and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// BookingConfirmed builds the event emitted after a reservation is converted
// into a booking.
func BookingConfirmed(b domain.Booking, at time.Time) Event {
	codes := make([]string, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		codes = append(codes, t.Code)
	}
	return Event{
		Type:        EventBookingConfirmed,
		OccurredAt:  at,
		ProductID:   b.ProductID,
		Date:        b.Date(),
		BookingRef:  b.Reference,
		ExternalRef: b.ExternalRef,
		TicketCodes: codes,
	}
}

// BookingCancelled builds the event emitted after a booking cancellation
// credits capacity back.
func BookingCancelled(b domain.Booking, at time.Time) Event {
	return Event{
		Type:        EventBookingCancelled,
		OccurredAt:  at,
		ProductID:   b.ProductID,
		Date:        b.Date(),
		BookingRef:  b.Reference,
		ExternalRef: b.ExternalRef,
	}
}

// BookingCompleted builds the event emitted when the last active ticket of a
// booking is redeemed.
func BookingCompleted(b domain.Booking, at time.Time) Event {
	return Event{
		Type:        EventBookingCompleted,
		OccurredAt:  at,
		ProductID:   b.ProductID,
		BookingRef:  b.Reference,
		ExternalRef: b.ExternalRef,
	}
}

// ReservationExpired builds the event emitted when the sweep reclaims a
// lapsed hold.
func ReservationExpired(r domain.Reservation, at time.Time) Event {
	return Event{
		Type:        EventReservationExpired,
		OccurredAt:  at,
		ProductID:   r.ProductID,
		Date:        r.Date(),
		ExternalRef: r.ExternalRef,
	}
}

// AvailabilityPushed builds the event emitted after a supplier capacity push.
func AvailabilityPushed(productID, date string, vacancies int, at time.Time) Event {
	return Event{
		Type:       EventAvailabilityPushed,
		OccurredAt: at,
		ProductID:  productID,
		Date:       date,
		Vacancies:  &vacancies,
	}
}
