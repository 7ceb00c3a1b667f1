package domain

import "time"

// AvailabilitySnapshot is a derived view over the capacity store and product
// configuration for a single day. It is recomputed on every query and never
// stored.
type AvailabilitySnapshot struct {
	Date          time.Time
	Vacancies     int
	CutoffSeconds int
	Currency      string
	Pricing       Pricing
	OpeningTimes  *OpeningTimes
}
