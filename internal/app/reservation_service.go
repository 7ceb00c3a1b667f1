package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soltoura/booking-api/internal/capacity"
	"github.com/soltoura/booking-api/internal/catalog"
	"github.com/soltoura/booking-api/internal/clock"
	"github.com/soltoura/booking-api/internal/domain"
)

const (
	defaultReservationTTL  = 60 * time.Minute
	defaultMaxHoldDuration = 4 * time.Hour
)

// ReservationRepository persists reservation records. Implementations return
// domain.ErrInvalidReservation for unknown references; TransitionStatus
// reports false when the record was not in the expected state, which is the
// exactly-once guard for capacity release.
type ReservationRepository interface {
	Create(ctx context.Context, res domain.Reservation) error
	Get(ctx context.Context, reference string) (domain.Reservation, error)
	TransitionStatus(ctx context.Context, reference string, from, to domain.ReservationStatus) (bool, error)
	UpdateExpiry(ctx context.Context, reference string, expiresAt time.Time) error
	ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Reservation, error)
}

// ReservationService creates, extends and cancels time-bounded holds against
// the capacity store.
type ReservationService struct {
	repo    ReservationRepository
	catalog catalog.Catalog
	store   capacity.Store
	locks   *capacity.KeyLocks
	clock   clock.Clock
	logger  *zap.Logger

	ttl     time.Duration
	maxHold time.Duration
}

type ReservationOption func(*ReservationService)

// WithReservationTTL overrides the default hold lifetime.
func WithReservationTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithMaxHoldDuration bounds how far a hold can be extended past creation.
func WithMaxHoldDuration(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.maxHold = d
		}
	}
}

func NewReservationService(
	repo ReservationRepository,
	cat catalog.Catalog,
	store capacity.Store,
	locks *capacity.KeyLocks,
	clk clock.Clock,
	logger *zap.Logger,
	opts ...ReservationOption,
) *ReservationService {
	s := &ReservationService{
		repo:    repo,
		catalog: cat,
		store:   store,
		locks:   locks,
		clock:   clk,
		logger:  logger,
		ttl:     defaultReservationTTL,
		maxHold: defaultMaxHoldDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateReservationInput struct {
	ProductID   string
	DateTime    time.Time
	Items       []domain.BookingItem
	ExternalRef string
}

// Create validates the request, atomically debits the capacity pool and
// persists an ACTIVE hold with a TTL.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	if in.ExternalRef == "" {
		return domain.Reservation{}, domain.ValidationError("externalBookingRef is required")
	}
	for _, it := range in.Items {
		if it.Count < 0 {
			return domain.Reservation{}, domain.ValidationError("bookingItems count must not be negative")
		}
	}

	product, err := s.catalog.Product(ctx, in.ProductID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := validateParticipants(product, in.Items); err != nil {
		return domain.Reservation{}, err
	}

	now := s.clock.Now()
	day := truncateToDay(in.DateTime)
	date := day.Format("2006-01-02")
	if product.DateDisabled(date) || !bookable(product, day, now) {
		return domain.Reservation{}, domain.ErrNoAvailability
	}

	required := domain.RequiredCapacity(in.Items)
	key := capacity.Key{ProductID: product.ID, Date: date}

	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		s.logger.Error("reservation create lock failed", zap.String("key", key.String()), zap.Error(err))
		return domain.Reservation{}, domain.ErrInternalSystemFailure
	}
	defer release()

	if err := s.seedAndDebit(ctx, product, key, required); err != nil {
		return domain.Reservation{}, err
	}

	res := domain.Reservation{
		Reference:   newReference(),
		ProductID:   product.ID,
		DateTime:    in.DateTime.UTC(),
		Items:       in.Items,
		ExternalRef: in.ExternalRef,
		Status:      domain.ReservationStatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, res); err != nil {
		// Undo the debit; the hold was never recorded.
		if crErr := s.store.Credit(ctx, key, required); crErr != nil {
			s.logger.Error("credit rollback failed", zap.String("key", key.String()), zap.Error(crErr))
		}
		s.logger.Error("reservation persist failed", zap.String("reference", res.Reference), zap.Error(err))
		return domain.Reservation{}, domain.ErrInternalSystemFailure
	}
	return res, nil
}

// Cancel releases an ACTIVE hold back to the pool. The status transition is
// the exactly-once guard: whichever of cancel, confirm and sweep observes
// ACTIVE first wins.
func (s *ReservationService) Cancel(ctx context.Context, reference, externalRef string) error {
	res, err := s.repo.Get(ctx, reference)
	if err != nil {
		return err
	}
	if res.ExternalRef != externalRef {
		return domain.ErrInvalidReservation
	}

	key := capacity.Key{ProductID: res.ProductID, Date: res.Date()}
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		s.logger.Error("reservation cancel lock failed", zap.String("key", key.String()), zap.Error(err))
		return domain.ErrInternalSystemFailure
	}
	defer release()

	ok, err := s.repo.TransitionStatus(ctx, reference, domain.ReservationStatusActive, domain.ReservationStatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel reservation %s: %w", reference, err)
	}
	if !ok {
		return domain.ErrInvalidReservation
	}
	if err := s.store.Credit(ctx, key, domain.RequiredCapacity(res.Items)); err != nil {
		s.logger.Error("reservation cancel credit failed", zap.String("key", key.String()), zap.Error(err))
		return domain.ErrInternalSystemFailure
	}
	return nil
}

// Extend pushes the expiry forward, bounded by the maximum hold duration
// measured from creation.
func (s *ReservationService) Extend(ctx context.Context, reference string, minutes int) (domain.Reservation, error) {
	if minutes <= 0 {
		return domain.Reservation{}, domain.ValidationError("minutes must be positive")
	}

	res, err := s.repo.Get(ctx, reference)
	if err != nil {
		return domain.Reservation{}, err
	}

	key := capacity.Key{ProductID: res.ProductID, Date: res.Date()}
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		s.logger.Error("reservation extend lock failed", zap.String("key", key.String()), zap.Error(err))
		return domain.Reservation{}, domain.ErrInternalSystemFailure
	}
	defer release()

	res, err = s.repo.Get(ctx, reference)
	if err != nil {
		return domain.Reservation{}, err
	}
	now := s.clock.Now()
	if res.Status != domain.ReservationStatusActive || res.Expired(now) {
		return domain.Reservation{}, domain.ErrInvalidReservation
	}

	expiresAt := res.ExpiresAt.Add(time.Duration(minutes) * time.Minute)
	if limit := res.CreatedAt.Add(s.maxHold); expiresAt.After(limit) {
		expiresAt = limit
	}
	if err := s.repo.UpdateExpiry(ctx, reference, expiresAt); err != nil {
		return domain.Reservation{}, fmt.Errorf("extend reservation %s: %w", reference, err)
	}
	res.ExpiresAt = expiresAt
	return res, nil
}

func (s *ReservationService) seedAndDebit(ctx context.Context, product domain.Product, key capacity.Key, required int) error {
	_, ok, err := s.store.Vacancies(ctx, key)
	if err != nil {
		s.logger.Error("vacancies read failed", zap.String("key", key.String()), zap.Error(err))
		return domain.ErrInternalSystemFailure
	}
	if !ok {
		if err := s.store.SetBaseline(ctx, key, poolBaseline(product)); err != nil {
			s.logger.Error("baseline seed failed", zap.String("key", key.String()), zap.Error(err))
			return domain.ErrInternalSystemFailure
		}
	}
	if err := s.store.Debit(ctx, key, required); err != nil {
		if err == capacity.ErrInsufficient {
			return domain.ErrNoAvailability
		}
		s.logger.Error("capacity debit failed", zap.String("key", key.String()), zap.Error(err))
		return domain.ErrInternalSystemFailure
	}
	return nil
}

// validateParticipants checks the total party size against the product's
// min/max participants and every GROUP item against the group limits. All
// group violations are reported, not just the first.
func validateParticipants(p domain.Product, items []domain.BookingItem) error {
	var groupViolations []string
	groups := 0
	for _, it := range items {
		if it.Category != domain.CategoryGroup {
			continue
		}
		groups += it.Count
		if it.GroupSize <= 0 {
			groupViolations = append(groupViolations, "groupSize is required for GROUP items")
			continue
		}
		if p.MaxGroupSize > 0 && it.GroupSize > p.MaxGroupSize {
			groupViolations = append(groupViolations,
				fmt.Sprintf("group of %d exceeds the maximum group size of %d", it.GroupSize, p.MaxGroupSize))
		}
	}
	if p.MaxGroupsPerBooking > 0 && groups > p.MaxGroupsPerBooking {
		groupViolations = append(groupViolations,
			fmt.Sprintf("%d groups exceed the maximum of %d per booking", groups, p.MaxGroupsPerBooking))
	}
	if len(groupViolations) > 0 {
		return domain.ParticipantsError(
			strings.Join(groupViolations, "; "),
			p.MinParticipants, p.MaxParticipants,
			&domain.GroupConfiguration{Max: p.MaxGroupSize},
		)
	}

	required := domain.RequiredCapacity(items)
	if required < p.MinParticipants || (p.MaxParticipants > 0 && required > p.MaxParticipants) {
		return domain.ParticipantsError(
			fmt.Sprintf("participant count %d is outside the allowed range [%d, %d]", required, p.MinParticipants, p.MaxParticipants),
			p.MinParticipants, p.MaxParticipants, nil,
		)
	}
	return nil
}
