package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/soltoura/booking-api/internal/domain"
	"github.com/soltoura/booking-api/internal/testutil"
)

func TestProductRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewProductRepository(pool)

	product := domain.Product{
		ID:                   "old-town-walking-tour",
		Name:                 "Old Town Walking Tour",
		Currency:             "EUR",
		DailyCapacity:        25,
		OverbookingAllowance: 3,
		MinParticipants:      1,
		MaxParticipants:      25,
		MaxGroupSize:         8,
		MaxGroupsPerBooking:  2,
		SameDayCutoffMinutes: 45,
		AdvanceCutoffHours:   12,
		OpeningTimes:         &domain.OpeningTimes{From: "10:00", To: "17:00"},
		DisabledDates:        []string{"2026-12-25"},
		Pricing: domain.Pricing{
			TieredByCategory: map[domain.PriceCategory][]domain.PriceTier{
				domain.CategoryAdult: {
					{MinQuantity: 1, MaxQuantity: 4, Price: 1800},
					{MinQuantity: 5, Price: 1500},
				},
			},
			ByCategory: map[domain.PriceCategory]int64{
				domain.CategoryGroup: 11000,
			},
		},
		Addons: []domain.AddonOption{{Type: "PICKUP"}},
	}

	t.Run("upsert and read back the full configuration", func(t *testing.T) {
		if err := repo.Upsert(ctx, product); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		got, err := repo.Product(ctx, product.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.DailyCapacity != 25 || got.OverbookingAllowance != 3 {
			t.Fatalf("unexpected capacity columns %+v", got)
		}
		if got.OpeningTimes == nil || got.OpeningTimes.From != "10:00" {
			t.Fatalf("opening times did not survive: %+v", got.OpeningTimes)
		}
		if len(got.DisabledDates) != 1 || got.DisabledDates[0] != "2026-12-25" {
			t.Fatalf("disabled dates did not survive: %v", got.DisabledDates)
		}
		tiers := got.Pricing.TieredByCategory[domain.CategoryAdult]
		if len(tiers) != 2 || tiers[1].Price != 1500 {
			t.Fatalf("tiered pricing did not survive: %+v", tiers)
		}
		if got.Pricing.ByCategory[domain.CategoryGroup] != 11000 {
			t.Fatalf("group price did not survive: %+v", got.Pricing.ByCategory)
		}
	})

	t.Run("upsert replaces the existing row", func(t *testing.T) {
		updated := product
		updated.DailyCapacity = 30
		updated.DisabledDates = nil
		if err := repo.Upsert(ctx, updated); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		got, err := repo.Product(ctx, product.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.DailyCapacity != 30 {
			t.Fatalf("expected updated capacity 30, got %d", got.DailyCapacity)
		}
		if len(got.DisabledDates) != 0 {
			t.Fatalf("expected disabled dates cleared, got %v", got.DisabledDates)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		if _, err := repo.Product(ctx, "missing"); !errors.Is(err, domain.ErrInvalidProduct) {
			t.Fatalf("expected ErrInvalidProduct, got %v", err)
		}
	})
}
