package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// BookingItem is one line of a reservation or booking request. GroupSize is
// only meaningful for the GROUP category.
type BookingItem struct {
	Category  PriceCategory `json:"category"`
	Count     int           `json:"count"`
	GroupSize int           `json:"groupSize,omitempty"`
}

// RequiredCapacity is the number of capacity units the items occupy: one per
// person, where a GROUP item occupies Count x GroupSize units.
func RequiredCapacity(items []BookingItem) int {
	total := 0
	for _, it := range items {
		if it.Category == CategoryGroup {
			total += it.Count * it.GroupSize
			continue
		}
		total += it.Count
	}
	return total
}

// Reservation is a short-lived hold against capacity. It is owned by the
// reservation coordinator until confirmed or terminated; the capacity debit
// it represents is released exactly once, on expiry or cancellation, or
// carried over into a booking on confirmation.
type Reservation struct {
	Reference   string
	ProductID   string
	DateTime    time.Time
	Items       []BookingItem
	ExternalRef string
	Status      ReservationStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the hold has lapsed at the given instant.
func (r Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Date is the experience day in capacity-key form.
func (r Reservation) Date() string {
	return r.DateTime.UTC().Format("2006-01-02")
}
