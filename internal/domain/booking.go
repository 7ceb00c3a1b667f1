package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "ACTIVE"
	TicketStatusRedeemed  TicketStatus = "REDEEMED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// TicketCodeTypeText is the only code type we issue today; codes are plain
// strings the partner renders however they like.
const TicketCodeTypeText = "TEXT"

// Ticket is a single redeemable unit of entry tied to exactly one booking.
// A GROUP ticket admits the whole party and carries GroupSize.
type Ticket struct {
	Code       string
	Category   PriceCategory
	GroupSize  int
	Status     TicketStatus
	BookingRef string
	RedeemedAt *time.Time
}

// AddonItem is a requested addon on a booking.
type AddonItem struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// Traveler identifies one participant as supplied by the partner.
type Traveler struct {
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Category  PriceCategory `json:"category,omitempty"`
}

// Booking is a confirmed commercial commitment created from a reservation.
// Provenance is kept through ReservationRef; its tickets are the only
// redeemable artifacts.
type Booking struct {
	Reference      string
	ProductID      string
	ReservationRef string
	DateTime       time.Time
	Items          []BookingItem
	Addons         []AddonItem
	Travelers      []Traveler
	Tickets        []Ticket
	ExternalRef    string
	Comment        string
	Currency       string
	TotalPrice     int64
	Status         BookingStatus
	CreatedAt      time.Time
	CancelledAt    *time.Time
	CompletedAt    *time.Time
}

// ActiveTickets returns the codes of tickets still open for redemption.
func (b Booking) ActiveTickets() []string {
	var codes []string
	for _, t := range b.Tickets {
		if t.Status == TicketStatusActive {
			codes = append(codes, t.Code)
		}
	}
	return codes
}

// HasRedeemedTicket reports whether any ticket has already been used.
func (b Booking) HasRedeemedTicket() bool {
	for _, t := range b.Tickets {
		if t.Status == TicketStatusRedeemed {
			return true
		}
	}
	return false
}

// Date is the experience day in capacity-key form.
func (b Booking) Date() string {
	return b.DateTime.UTC().Format("2006-01-02")
}
