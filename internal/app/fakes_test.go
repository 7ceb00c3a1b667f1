package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soltoura/booking-api/internal/domain"
	"github.com/soltoura/booking-api/internal/notify"
)

// fakeReservationRepo mirrors the conditional-update semantics of the
// Postgres repository: TransitionStatus reports false without error when the
// record is missing or not in the expected state.
type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[string]domain.Reservation
	createErr    error
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[string]domain.Reservation)}
}

func (f *fakeReservationRepo) Create(_ context.Context, res domain.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.reservations[res.Reference] = res
	return nil
}

func (f *fakeReservationRepo) Get(_ context.Context, reference string) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[reference]
	if !ok {
		return domain.Reservation{}, domain.ErrInvalidReservation
	}
	return res, nil
}

func (f *fakeReservationRepo) TransitionStatus(_ context.Context, reference string, from, to domain.ReservationStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[reference]
	if !ok || res.Status != from {
		return false, nil
	}
	res.Status = to
	f.reservations[reference] = res
	return true, nil
}

func (f *fakeReservationRepo) UpdateExpiry(_ context.Context, reference string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[reference]
	if !ok {
		return domain.ErrInvalidReservation
	}
	res.ExpiresAt = expiresAt
	f.reservations[reference] = res
	return nil
}

func (f *fakeReservationRepo) ListExpired(_ context.Context, before time.Time, limit int) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var lapsed []domain.Reservation
	for _, res := range f.reservations {
		if res.Status == domain.ReservationStatusActive && res.ExpiresAt.Before(before) {
			lapsed = append(lapsed, res)
		}
	}
	sort.Slice(lapsed, func(i, j int) bool { return lapsed[i].ExpiresAt.Before(lapsed[j].ExpiresAt) })
	if len(lapsed) > limit {
		lapsed = lapsed[:limit]
	}
	return lapsed, nil
}

func (f *fakeReservationRepo) stored(reference string) (domain.Reservation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[reference]
	return res, ok
}

// fakeBookingRepo consumes reservations through the shared reservation fake,
// so the atomicity of CreateFromReservation matches the real repository.
type fakeBookingRepo struct {
	mu            sync.Mutex
	reservations  *fakeReservationRepo
	bookings      map[string]domain.Booking
	conflictsLeft int
}

func newFakeBookingRepo(reservations *fakeReservationRepo) *fakeBookingRepo {
	return &fakeBookingRepo{
		reservations: reservations,
		bookings:     make(map[string]domain.Booking),
	}
}

func (f *fakeBookingRepo) CreateFromReservation(ctx context.Context, booking domain.Booking) error {
	f.mu.Lock()
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		f.mu.Unlock()
		return domain.ErrTicketCodeConflict
	}
	f.mu.Unlock()

	res, err := f.reservations.Get(ctx, booking.ReservationRef)
	if err != nil {
		return err
	}
	if res.Status != domain.ReservationStatusActive || res.Expired(booking.CreatedAt) {
		return domain.ErrInvalidReservation
	}
	ok, err := f.reservations.TransitionStatus(ctx, booking.ReservationRef, domain.ReservationStatusActive, domain.ReservationStatusConfirmed)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidReservation
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ExternalRef == booking.ExternalRef {
			// The unique constraint aborts the transaction, which also
			// rolls the reservation consume back.
			_, _ = f.reservations.TransitionStatus(ctx, booking.ReservationRef, domain.ReservationStatusConfirmed, domain.ReservationStatusActive)
			return domain.ValidationError("externalBookingRef already belongs to another booking")
		}
	}
	f.bookings[booking.Reference] = cloneBooking(booking)
	return nil
}

func (f *fakeBookingRepo) Get(_ context.Context, reference string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[reference]
	if !ok {
		return domain.Booking{}, domain.ErrInvalidBooking
	}
	return cloneBooking(b), nil
}

func (f *fakeBookingRepo) GetByExternalRef(_ context.Context, externalRef string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ExternalRef == externalRef {
			return cloneBooking(b), nil
		}
	}
	return domain.Booking{}, domain.ErrInvalidBooking
}

func (f *fakeBookingRepo) FindByTicketCode(_ context.Context, code string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		for _, t := range b.Tickets {
			if t.Code == code {
				return cloneBooking(b), nil
			}
		}
	}
	return domain.Booking{}, domain.ErrResourceNotFound
}

func (f *fakeBookingRepo) MarkCancelled(_ context.Context, reference string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[reference]
	if !ok || b.Status != domain.BookingStatusConfirmed {
		return false, nil
	}
	if b.HasRedeemedTicket() {
		return false, domain.ErrBookingRedeemed
	}
	b = cloneBooking(b)
	b.Status = domain.BookingStatusCancelled
	b.CancelledAt = &at
	for i := range b.Tickets {
		if b.Tickets[i].Status == domain.TicketStatusActive {
			b.Tickets[i].Status = domain.TicketStatusCancelled
		}
	}
	f.bookings[reference] = b
	return true, nil
}

func (f *fakeBookingRepo) Redeem(_ context.Context, reference string, codes []string, at time.Time) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[reference]
	if !ok {
		return domain.Booking{}, domain.ErrInvalidBooking
	}
	b = cloneBooking(b)

	redeemed := 0
	for _, code := range codes {
		for i := range b.Tickets {
			if b.Tickets[i].Code == code && b.Tickets[i].Status == domain.TicketStatusActive {
				b.Tickets[i].Status = domain.TicketStatusRedeemed
				redeemedAt := at
				b.Tickets[i].RedeemedAt = &redeemedAt
				redeemed++
			}
		}
	}
	if redeemed == 0 {
		return domain.Booking{}, domain.ValidationError("all tickets are already redeemed")
	}
	if len(b.ActiveTickets()) == 0 {
		b.Status = domain.BookingStatusCompleted
		b.CompletedAt = &at
	}
	f.bookings[reference] = b
	return cloneBooking(b), nil
}

func cloneBooking(b domain.Booking) domain.Booking {
	out := b
	out.Tickets = append([]domain.Ticket(nil), b.Tickets...)
	return out
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *capturePublisher) Publish(_ context.Context, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(eventType string) []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notify.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

const testProductID = "marina-sunset-cruise"

func testProduct() domain.Product {
	return domain.Product{
		ID:                   testProductID,
		Name:                 "Marina Sunset Cruise",
		Currency:             "EUR",
		DailyCapacity:        10,
		OverbookingAllowance: 2,
		MinParticipants:      1,
		MaxParticipants:      20,
		MaxGroupSize:         8,
		MaxGroupsPerBooking:  2,
		SameDayCutoffMinutes: 30,
		AdvanceCutoffHours:   2,
		OpeningTimes:         &domain.OpeningTimes{From: "09:00", To: "18:00"},
		Pricing: domain.Pricing{
			ByCategory: map[domain.PriceCategory]int64{
				domain.CategoryAdult: 2000,
				domain.CategoryChild: 1000,
				domain.CategoryGroup: 12000,
			},
		},
		Addons: []domain.AddonOption{
			{Type: "MEAL", Description: "Three course dinner"},
			{Type: "PICKUP"},
		},
	}
}
