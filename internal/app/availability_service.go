package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/soltoura/booking-api/internal/capacity"
	"github.com/soltoura/booking-api/internal/catalog"
	"github.com/soltoura/booking-api/internal/clock"
	"github.com/soltoura/booking-api/internal/domain"
	"github.com/soltoura/booking-api/internal/notify"
)

// defaultMaxVacanciesCap is the platform-wide ceiling on reported vacancies.
// Configurable because partners differ on whether such a ceiling is wanted.
const defaultMaxVacanciesCap = 500

// AvailabilityService derives per-day availability snapshots from the
// capacity store and product configuration. Reads are pure; the only write
// path is the supplier capacity push.
type AvailabilityService struct {
	catalog catalog.Catalog
	store   capacity.Store
	locks   *capacity.KeyLocks
	clock   clock.Clock
	events  notify.Publisher
	logger  *zap.Logger

	maxVacanciesCap int
}

type AvailabilityOption func(*AvailabilityService)

// WithMaxVacanciesCap overrides the platform-wide vacancy ceiling.
func WithMaxVacanciesCap(n int) AvailabilityOption {
	return func(s *AvailabilityService) {
		if n > 0 {
			s.maxVacanciesCap = n
		}
	}
}

func NewAvailabilityService(
	cat catalog.Catalog,
	store capacity.Store,
	locks *capacity.KeyLocks,
	clk clock.Clock,
	events notify.Publisher,
	logger *zap.Logger,
	opts ...AvailabilityOption,
) *AvailabilityService {
	s := &AvailabilityService{
		catalog:         cat,
		store:           store,
		locks:           locks,
		clock:           clk,
		events:          events,
		logger:          logger,
		maxVacanciesCap: defaultMaxVacanciesCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAvailabilities returns one snapshot per day in [from, to], inclusive.
func (s *AvailabilityService) GetAvailabilities(ctx context.Context, productID string, from, to time.Time) ([]domain.AvailabilitySnapshot, error) {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	first := truncateToDay(from)
	last := truncateToDay(to)

	var snapshots []domain.AvailabilitySnapshot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		vacancies, err := s.vacanciesFor(ctx, product, day, now)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, domain.AvailabilitySnapshot{
			Date:          product.StartOfDay(day),
			Vacancies:     vacancies,
			CutoffSeconds: int(product.CutoffDuration(sameDay(day, now)).Seconds()),
			Currency:      product.Currency,
			Pricing:       product.Pricing,
			OpeningTimes:  product.OpeningTimes,
		})
	}
	return snapshots, nil
}

// PushAvailability applies a supplier-pushed vacancy override for one day and
// announces the change. The overbooking allowance is granted on top of the
// pushed figure, mirroring how the nominal capacity is seeded.
func (s *AvailabilityService) PushAvailability(ctx context.Context, productID, date string, vacancies int) error {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.ValidationError("date must be formatted as yyyy-mm-dd")
	}
	if vacancies < 0 {
		return domain.ValidationError("vacancies must not be negative")
	}

	key := capacity.Key{ProductID: productID, Date: date}
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		s.logger.Error("availability push lock failed", zap.String("key", key.String()), zap.Error(err))
		return domain.ErrInternalSystemFailure
	}
	err = s.store.SetBaseline(ctx, key, vacancies+product.OverbookingAllowance)
	release()
	if err != nil {
		return fmt.Errorf("set baseline: %w", err)
	}

	now := s.clock.Now()
	if err := s.events.Publish(ctx, notify.AvailabilityPushed(productID, date, vacancies, now)); err != nil {
		s.logger.Warn("availability event publish failed", zap.String("productId", productID), zap.Error(err))
	}
	return nil
}

// vacanciesFor computes the displayed vacancy figure for one day: the
// remaining pool minus the overbooking allowance, clamped to
// [0, capacity+allowance] and the platform ceiling, and forced to 0 for
// disabled, past or cutoff-closed days.
func (s *AvailabilityService) vacanciesFor(ctx context.Context, product domain.Product, day time.Time, now time.Time) (int, error) {
	date := day.Format("2006-01-02")
	if product.DateDisabled(date) {
		return 0, nil
	}
	if !bookable(product, day, now) {
		return 0, nil
	}

	key := capacity.Key{ProductID: product.ID, Date: date}
	remaining, ok, err := s.store.Vacancies(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read vacancies %s: %w", key, err)
	}
	if !ok {
		remaining = poolBaseline(product)
	}
	return displayVacancies(product, remaining, s.maxVacanciesCap), nil
}

// poolBaseline is the debitable pool for an untouched day: nominal capacity
// plus the overbooking allowance.
func poolBaseline(p domain.Product) int {
	return p.DailyCapacity + p.OverbookingAllowance
}

// displayVacancies converts the remaining pool into the partner-visible
// figure. The allowance is hidden from display, so a day reads as sold out
// while the allowance still absorbs reservations.
func displayVacancies(p domain.Product, remaining, maxCap int) int {
	v := remaining - p.OverbookingAllowance
	if v < 0 {
		v = 0
	}
	if limit := p.DailyCapacity + p.OverbookingAllowance; v > limit {
		v = limit
	}
	if v > maxCap {
		v = maxCap
	}
	return v
}

// bookable reports whether sales for the day are still open at now: the day
// must not be over and now must be before the cutoff deadline.
func bookable(p domain.Product, day time.Time, now time.Time) bool {
	start := p.StartOfDay(day)
	deadline := start.Add(-p.CutoffDuration(sameDay(day, now)))
	return !now.After(deadline)
}

func sameDay(day time.Time, now time.Time) bool {
	return truncateToDay(day).Equal(truncateToDay(now))
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
