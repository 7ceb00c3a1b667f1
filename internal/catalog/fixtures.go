package catalog

import "github.com/soltoura/booking-api/internal/domain"

// Fixtures returns a small set of products for local development and tests.
// Prices are authored in whole currency units and converted to the canonical
// minor-unit representation.
func Fixtures() []domain.Product {
	eur := func(whole int64) int64 {
		return domain.MinorUnits(whole, "EUR", nil)
	}

	return []domain.Product{
		{
			ID:                   "marina-sunset-cruise",
			Name:                 "Marina Sunset Cruise",
			Currency:             "EUR",
			DailyCapacity:        40,
			OverbookingAllowance: 2,
			MinParticipants:      1,
			MaxParticipants:      10,
			SameDayCutoffMinutes: 30,
			AdvanceCutoffHours:   2,
			OpeningTimes:         &domain.OpeningTimes{From: "18:00", To: "20:30"},
			Pricing: domain.Pricing{
				ByCategory: map[domain.PriceCategory]int64{
					domain.CategoryAdult: eur(45),
					domain.CategoryChild: eur(25),
				},
			},
			Addons: []domain.AddonOption{
				{Type: "MEAL", Description: "Tapas platter"},
				{Type: "PICKUP"},
			},
		},
		{
			ID:                   "old-town-walking-tour",
			Name:                 "Old Town Walking Tour",
			Currency:             "EUR",
			DailyCapacity:        25,
			MinParticipants:      2,
			MaxParticipants:      25,
			MaxGroupSize:         8,
			MaxGroupsPerBooking:  2,
			SameDayCutoffMinutes: 60,
			AdvanceCutoffHours:   12,
			OpeningTimes:         &domain.OpeningTimes{From: "10:00", To: "13:00"},
			Pricing: domain.Pricing{
				TieredByCategory: map[domain.PriceCategory][]domain.PriceTier{
					domain.CategoryAdult: {
						{MinQuantity: 1, MaxQuantity: 4, Price: eur(20)},
						{MinQuantity: 5, MaxQuantity: 0, Price: eur(16)},
					},
				},
				ByCategory: map[domain.PriceCategory]int64{
					domain.CategoryGroup: eur(120),
				},
			},
		},
	}
}
