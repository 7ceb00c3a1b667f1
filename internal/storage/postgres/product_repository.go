package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soltoura/booking-api/internal/domain"
)

// ProductRepository reads supplier product configuration. It satisfies
// catalog.Catalog; writes are limited to Upsert, used for seeding.
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// productConfig is the JSONB payload holding everything beyond the columns
// the capacity math needs directly.
type productConfig struct {
	OpeningTimes  *domain.OpeningTimes `json:"openingTimes,omitempty"`
	DisabledDates []string             `json:"disabledDates,omitempty"`
	Pricing       domain.Pricing       `json:"pricing"`
	Addons        []domain.AddonOption `json:"addons,omitempty"`
}

func (r *ProductRepository) Product(ctx context.Context, id string) (domain.Product, error) {
	const query = `
SELECT id, name, currency, daily_capacity, overbooking_allowance,
	min_participants, max_participants, max_group_size, max_groups_per_booking,
	same_day_cutoff_minutes, advance_cutoff_hours, config
FROM products
WHERE id = $1`

	var (
		p   domain.Product
		cfg []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Currency, &p.DailyCapacity, &p.OverbookingAllowance,
		&p.MinParticipants, &p.MaxParticipants, &p.MaxGroupSize, &p.MaxGroupsPerBooking,
		&p.SameDayCutoffMinutes, &p.AdvanceCutoffHours, &cfg,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrInvalidProduct
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}

	var c productConfig
	if err := json.Unmarshal(cfg, &c); err != nil {
		return domain.Product{}, fmt.Errorf("unmarshal product config: %w", err)
	}
	p.OpeningTimes = c.OpeningTimes
	p.DisabledDates = c.DisabledDates
	p.Pricing = c.Pricing
	p.Addons = c.Addons
	return p, nil
}

// Upsert writes a product row, replacing any existing configuration.
func (r *ProductRepository) Upsert(ctx context.Context, p domain.Product) error {
	cfg, err := json.Marshal(productConfig{
		OpeningTimes:  p.OpeningTimes,
		DisabledDates: p.DisabledDates,
		Pricing:       p.Pricing,
		Addons:        p.Addons,
	})
	if err != nil {
		return fmt.Errorf("marshal product config: %w", err)
	}

	const stmt = `
INSERT INTO products (id, name, currency, daily_capacity, overbooking_allowance,
	min_participants, max_participants, max_group_size, max_groups_per_booking,
	same_day_cutoff_minutes, advance_cutoff_hours, config)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	currency = EXCLUDED.currency,
	daily_capacity = EXCLUDED.daily_capacity,
	overbooking_allowance = EXCLUDED.overbooking_allowance,
	min_participants = EXCLUDED.min_participants,
	max_participants = EXCLUDED.max_participants,
	max_group_size = EXCLUDED.max_group_size,
	max_groups_per_booking = EXCLUDED.max_groups_per_booking,
	same_day_cutoff_minutes = EXCLUDED.same_day_cutoff_minutes,
	advance_cutoff_hours = EXCLUDED.advance_cutoff_hours,
	config = EXCLUDED.config`

	_, err = r.pool.Exec(ctx, stmt,
		p.ID, p.Name, p.Currency, p.DailyCapacity, p.OverbookingAllowance,
		p.MinParticipants, p.MaxParticipants, p.MaxGroupSize, p.MaxGroupsPerBooking,
		p.SameDayCutoffMinutes, p.AdvanceCutoffHours, cfg,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
