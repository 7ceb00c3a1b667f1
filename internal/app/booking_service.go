package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/soltoura/booking-api/internal/capacity"
	"github.com/soltoura/booking-api/internal/catalog"
	"github.com/soltoura/booking-api/internal/clock"
	"github.com/soltoura/booking-api/internal/domain"
	"github.com/soltoura/booking-api/internal/notify"
)

// confirmAttempts bounds ticket-code regeneration when a generated code
// collides with an existing one.
const confirmAttempts = 3

// BookingRepository persists bookings and tickets. The compound operations
// are atomic: CreateFromReservation consumes the reservation and writes the
// booking with its tickets all-or-nothing (domain.ErrTicketCodeConflict on a
// code collision, domain.ErrInvalidReservation when the reservation is no
// longer ACTIVE); MarkCancelled flips the booking and all its tickets in one
// step; Redeem marks the given tickets REDEEMED and completes the booking
// when no ACTIVE ticket remains.
type BookingRepository interface {
	CreateFromReservation(ctx context.Context, booking domain.Booking) error
	Get(ctx context.Context, reference string) (domain.Booking, error)
	GetByExternalRef(ctx context.Context, externalRef string) (domain.Booking, error)
	FindByTicketCode(ctx context.Context, code string) (domain.Booking, error)
	MarkCancelled(ctx context.Context, reference string, at time.Time) (bool, error)
	Redeem(ctx context.Context, reference string, codes []string, at time.Time) (domain.Booking, error)
}

// BookingService confirms reservations into durable bookings, issues and
// redeems tickets, and handles booking cancellation.
type BookingService struct {
	bookings     BookingRepository
	reservations ReservationRepository
	catalog      catalog.Catalog
	store        capacity.Store
	locks        *capacity.KeyLocks
	clock        clock.Clock
	events       notify.Publisher
	logger       *zap.Logger
}

func NewBookingService(
	bookings BookingRepository,
	reservations ReservationRepository,
	cat catalog.Catalog,
	store capacity.Store,
	locks *capacity.KeyLocks,
	clk clock.Clock,
	events notify.Publisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		reservations: reservations,
		catalog:      cat,
		store:        store,
		locks:        locks,
		clock:        clk,
		events:       events,
		logger:       logger,
	}
}

type ConfirmInput struct {
	ReservationRef string
	ExternalRef    string
	Addons         []domain.AddonItem
	Travelers      []domain.Traveler
	Comment        string
}

// Confirm converts a still-valid reservation into a booking with tickets.
// The hold's capacity debit becomes permanent, so the store is not touched:
// a hold becomes a booking without changing total committed capacity.
func (s *BookingService) Confirm(ctx context.Context, in ConfirmInput) (domain.Booking, error) {
	if in.ExternalRef == "" {
		return domain.Booking{}, domain.ValidationError("externalBookingRef is required")
	}

	res, err := s.reservations.Get(ctx, in.ReservationRef)
	if err != nil {
		return domain.Booking{}, err
	}
	if res.ExternalRef != in.ExternalRef {
		return domain.Booking{}, domain.ErrInvalidReservation
	}

	now := s.clock.Now()
	// Expiry is re-checked at confirm time: a lapsed hold cannot be
	// confirmed even before the sweep reclaims it.
	if res.Status != domain.ReservationStatusActive || res.Expired(now) {
		return domain.Booking{}, domain.ErrInvalidReservation
	}

	product, err := s.catalog.Product(ctx, res.ProductID)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := validateAddons(product, in.Addons); err != nil {
		return domain.Booking{}, err
	}

	booking := domain.Booking{
		Reference:      newReference(),
		ProductID:      res.ProductID,
		ReservationRef: res.Reference,
		DateTime:       res.DateTime,
		Items:          res.Items,
		Addons:         in.Addons,
		Travelers:      in.Travelers,
		ExternalRef:    in.ExternalRef,
		Comment:        in.Comment,
		Currency:       product.Currency,
		TotalPrice:     domain.TotalPrice(product.Pricing, res.Items),
		Status:         domain.BookingStatusConfirmed,
		CreatedAt:      now,
	}

	key := capacity.Key{ProductID: res.ProductID, Date: res.Date()}
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		s.logger.Error("confirm lock failed", zap.String("key", key.String()), zap.Error(err))
		return domain.Booking{}, domain.ErrInternalSystemFailure
	}

	var created bool
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		booking.Tickets = issueTickets(booking.Reference, res.Items)
		err = s.bookings.CreateFromReservation(ctx, booking)
		if err == nil {
			created = true
			break
		}
		if errors.Is(err, domain.ErrTicketCodeConflict) {
			continue
		}
		break
	}
	release()

	if !created {
		if err != nil && !errors.Is(err, domain.ErrTicketCodeConflict) {
			var derr *domain.Error
			if errors.As(err, &derr) {
				return domain.Booking{}, derr
			}
		}
		s.logger.Error("confirm persist failed", zap.String("reservation", res.Reference), zap.Error(err))
		return domain.Booking{}, domain.ErrInternalSystemFailure
	}

	s.publish(ctx, notify.BookingConfirmed(booking, now))
	return booking, nil
}

// Cancel voids a confirmed booking, credits its capacity back and cancels
// every ticket.
func (s *BookingService) Cancel(ctx context.Context, reference, externalRef, productID string) error {
	b, err := s.bookings.Get(ctx, reference)
	if err != nil {
		return err
	}
	if b.ExternalRef != externalRef {
		return domain.ErrInvalidBooking
	}
	if productID != "" && b.ProductID != productID {
		return domain.ErrInvalidBooking
	}

	now := s.clock.Now()
	switch {
	case b.Status == domain.BookingStatusCancelled:
		return domain.ErrBookingAlreadyCancelled
	case b.HasRedeemedTicket():
		return domain.ErrBookingRedeemed
	case b.DateTime.Before(now):
		return domain.ErrBookingInPast
	}

	key := capacity.Key{ProductID: b.ProductID, Date: b.Date()}
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		s.logger.Error("booking cancel lock failed", zap.String("key", key.String()), zap.Error(err))
		return domain.ErrInternalSystemFailure
	}
	defer release()

	ok, err := s.bookings.MarkCancelled(ctx, reference, now)
	if err != nil {
		// A ticket can get redeemed between the read above and the
		// cancel; the repository refuses that inside its transaction.
		if errors.Is(err, domain.ErrBookingRedeemed) {
			return domain.ErrBookingRedeemed
		}
		return fmt.Errorf("cancel booking %s: %w", reference, err)
	}
	if !ok {
		// Lost the race to another cancel.
		return domain.ErrBookingAlreadyCancelled
	}
	if err := s.store.Credit(ctx, key, domain.RequiredCapacity(b.Items)); err != nil {
		s.logger.Error("booking cancel credit failed", zap.String("key", key.String()), zap.Error(err))
		return domain.ErrInternalSystemFailure
	}

	s.publish(ctx, notify.BookingCancelled(b, now))
	return nil
}

// RedeemTicket marks one ticket REDEEMED. Redeeming the last ACTIVE ticket
// completes the booking.
func (s *BookingService) RedeemTicket(ctx context.Context, code, externalRef string) error {
	b, err := s.bookings.FindByTicketCode(ctx, code)
	if err != nil {
		return err
	}
	if b.ExternalRef != externalRef {
		return domain.ErrAuthorizationFailure
	}

	var ticket *domain.Ticket
	for i := range b.Tickets {
		if b.Tickets[i].Code == code {
			ticket = &b.Tickets[i]
			break
		}
	}
	if ticket == nil {
		return domain.ErrResourceNotFound
	}
	if ticket.Status != domain.TicketStatusActive {
		return domain.ValidationError("ticket already redeemed or cancelled")
	}

	updated, err := s.bookings.Redeem(ctx, b.Reference, []string{code}, s.clock.Now())
	if err != nil {
		return err
	}
	if updated.Status == domain.BookingStatusCompleted {
		s.publish(ctx, notify.BookingCompleted(updated, s.clock.Now()))
	}
	return nil
}

// RedeemBooking redeems every remaining ACTIVE ticket of the booking as one
// atomic batch.
func (s *BookingService) RedeemBooking(ctx context.Context, externalRef string) error {
	b, err := s.bookings.GetByExternalRef(ctx, externalRef)
	if err != nil {
		return err
	}
	codes := b.ActiveTickets()
	if len(codes) == 0 {
		return domain.ValidationError("all tickets are already redeemed")
	}

	updated, err := s.bookings.Redeem(ctx, b.Reference, codes, s.clock.Now())
	if err != nil {
		return err
	}
	if updated.Status == domain.BookingStatusCompleted {
		s.publish(ctx, notify.BookingCompleted(updated, s.clock.Now()))
	}
	return nil
}

func (s *BookingService) publish(ctx context.Context, event notify.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", event.Type), zap.Error(err))
	}
}

// issueTickets materializes one ticket per capacity unit of each item; a
// GROUP item gets a single ticket per group carrying the group size.
func issueTickets(bookingRef string, items []domain.BookingItem) []domain.Ticket {
	var tickets []domain.Ticket
	for _, it := range items {
		for i := 0; i < it.Count; i++ {
			t := domain.Ticket{
				Code:       newTicketCode(),
				Category:   it.Category,
				Status:     domain.TicketStatusActive,
				BookingRef: bookingRef,
			}
			if it.Category == domain.CategoryGroup {
				t.GroupSize = it.GroupSize
			}
			tickets = append(tickets, t)
		}
	}
	return tickets
}

func validateAddons(p domain.Product, addons []domain.AddonItem) error {
	for _, a := range addons {
		if a.Type == "" {
			return domain.ValidationError("addonItems type is required")
		}
		if !p.HasAddon(a.Type, a.Description) {
			return domain.ErrInvalidAddonsConfig
		}
	}
	return nil
}
