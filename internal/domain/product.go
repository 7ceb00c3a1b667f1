package domain

import "time"

// PriceCategory is the unit a traveler books under. GROUP covers a whole
// party with a single ticket; all other categories are per person.
type PriceCategory string

const (
	CategoryAdult   PriceCategory = "ADULT"
	CategoryChild   PriceCategory = "CHILD"
	CategoryInfant  PriceCategory = "INFANT"
	CategorySenior  PriceCategory = "SENIOR"
	CategoryStudent PriceCategory = "STUDENT"
	CategoryGroup   PriceCategory = "GROUP"
)

// PriceTier is one quantity band of a tiered price. A tier applies when the
// booked quantity falls within [MinQuantity, MaxQuantity]; MaxQuantity 0
// means unbounded.
type PriceTier struct {
	MinQuantity int   `json:"minQuantity"`
	MaxQuantity int   `json:"maxQuantity"`
	Price       int64 `json:"price"`
}

// Pricing holds either flat per-category prices, tiered bands, or both.
// Amounts are integer minor units; zero-decimal currencies carry whole units.
type Pricing struct {
	ByCategory       map[PriceCategory]int64       `json:"byCategory,omitempty"`
	TieredByCategory map[PriceCategory][]PriceTier `json:"tieredByCategory,omitempty"`
}

// AddonOption is one addon a supplier offers on a product, e.g.
// {Type: "MEAL", Description: "Vegetarian lunch"}.
type AddonOption struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// OpeningTimes is the daily operating window in "15:04" wall-clock form.
type OpeningTimes struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Product is supplier-side configuration consumed read-only by this
// subsystem. The catalog editor owns it.
type Product struct {
	ID                   string
	Name                 string
	Currency             string
	DailyCapacity        int
	OverbookingAllowance int
	MinParticipants      int
	MaxParticipants      int
	MaxGroupSize         int
	MaxGroupsPerBooking  int
	SameDayCutoffMinutes int
	AdvanceCutoffHours   int
	OpeningTimes         *OpeningTimes
	DisabledDates        []string
	Pricing              Pricing
	Addons               []AddonOption
}

// DateDisabled reports whether the supplier has blocked the given day.
func (p Product) DateDisabled(date string) bool {
	for _, d := range p.DisabledDates {
		if d == date {
			return true
		}
	}
	return false
}

// HasAddon reports whether the given addon type (and, when non-empty,
// description) matches one of the configured options.
func (p Product) HasAddon(addonType, description string) bool {
	for _, opt := range p.Addons {
		if opt.Type != addonType {
			continue
		}
		if description == "" || opt.Description == description {
			return true
		}
	}
	return false
}

// StartOfDay anchors the experience start for cutoff math: the opening time
// when configured, otherwise midnight of the experience day.
func (p Product) StartOfDay(day time.Time) time.Time {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if p.OpeningTimes == nil {
		return start
	}
	if t, err := time.Parse("15:04", p.OpeningTimes.From); err == nil {
		start = start.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return start
}

// CutoffDuration returns how long before the experience start sales close:
// minutes for same-day requests, hours for advance ones.
func (p Product) CutoffDuration(sameDay bool) time.Duration {
	if sameDay {
		return time.Duration(p.SameDayCutoffMinutes) * time.Minute
	}
	return time.Duration(p.AdvanceCutoffHours) * time.Hour
}
