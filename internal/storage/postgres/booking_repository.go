package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soltoura/booking-api/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// CreateFromReservation consumes the reservation and writes the booking with
// its tickets in one transaction. The conditional reservation update is the
// one-time ownership transfer from coordinator to ledger.
func (r *BookingRepository) CreateFromReservation(ctx context.Context, b domain.Booking) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const consume = `UPDATE reservations SET status = $2 WHERE reference = $1 AND status = $3 AND expires_at > $4`
		tag, err := r.exec(txCtx, consume,
			b.ReservationRef,
			domain.ReservationStatusConfirmed,
			domain.ReservationStatusActive,
			b.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("consume reservation: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return domain.ErrInvalidReservation
		}

		items, err := json.Marshal(b.Items)
		if err != nil {
			return fmt.Errorf("marshal items: %w", err)
		}
		addons, err := json.Marshal(b.Addons)
		if err != nil {
			return fmt.Errorf("marshal addons: %w", err)
		}
		travelers, err := json.Marshal(b.Travelers)
		if err != nil {
			return fmt.Errorf("marshal travelers: %w", err)
		}

		const insertBooking = `
INSERT INTO bookings (reference, product_id, reservation_ref, date_time, items, addons, travelers,
	external_ref, comment, currency, total_price, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		if _, err := r.exec(txCtx, insertBooking,
			b.Reference, b.ProductID, b.ReservationRef, b.DateTime, items, addons, travelers,
			b.ExternalRef, b.Comment, b.Currency, b.TotalPrice, b.Status, b.CreatedAt,
		); err != nil {
			if uniqueConstraint(err) == "bookings_external_ref_key" {
				return domain.ValidationError("externalBookingRef already belongs to another booking")
			}
			return fmt.Errorf("create booking: %w", err)
		}

		const insertTicket = `
INSERT INTO tickets (code, booking_ref, category, group_size, status)
VALUES ($1, $2, $3, $4, $5)`
		for _, t := range b.Tickets {
			if _, err := r.exec(txCtx, insertTicket, t.Code, t.BookingRef, t.Category, t.GroupSize, t.Status); err != nil {
				if uniqueConstraint(err) == "tickets_pkey" {
					return domain.ErrTicketCodeConflict
				}
				return fmt.Errorf("create ticket: %w", err)
			}
		}
		return nil
	})
}

func (r *BookingRepository) Get(ctx context.Context, reference string) (domain.Booking, error) {
	const query = `
SELECT reference, product_id, reservation_ref, date_time, items, addons, travelers,
	external_ref, comment, currency, total_price, status, created_at, cancelled_at, completed_at
FROM bookings
WHERE reference = $1`
	return r.getBooking(ctx, query, reference, domain.ErrInvalidBooking)
}

func (r *BookingRepository) GetByExternalRef(ctx context.Context, externalRef string) (domain.Booking, error) {
	const query = `
SELECT reference, product_id, reservation_ref, date_time, items, addons, travelers,
	external_ref, comment, currency, total_price, status, created_at, cancelled_at, completed_at
FROM bookings
WHERE external_ref = $1`
	return r.getBooking(ctx, query, externalRef, domain.ErrResourceNotFound)
}

func (r *BookingRepository) FindByTicketCode(ctx context.Context, code string) (domain.Booking, error) {
	const query = `SELECT booking_ref FROM tickets WHERE code = $1`
	var ref string
	if err := r.queryRow(ctx, query, code).Scan(&ref); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrResourceNotFound
		}
		return domain.Booking{}, fmt.Errorf("find ticket: %w", err)
	}
	return r.Get(ctx, ref)
}

// MarkCancelled flips a CONFIRMED booking and all its tickets to CANCELLED
// atomically. The update refuses a booking with a REDEEMED ticket even when
// the caller's earlier read saw none, so a concurrent redemption cannot slip
// between check and cancel. false means the booking was not CONFIRMED anymore.
func (r *BookingRepository) MarkCancelled(ctx context.Context, reference string, at time.Time) (bool, error) {
	var cancelled bool
	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		const stmt = `
UPDATE bookings SET status = $2, cancelled_at = $3
WHERE reference = $1 AND status = $4
	AND NOT EXISTS (SELECT 1 FROM tickets WHERE booking_ref = $1 AND status = $5)`
		tag, err := r.exec(txCtx, stmt, reference, domain.BookingStatusCancelled, at, domain.BookingStatusConfirmed, domain.TicketStatusRedeemed)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if tag.RowsAffected() != 1 {
			const redeemed = `SELECT EXISTS (SELECT 1 FROM tickets WHERE booking_ref = $1 AND status = $2)`
			var blocked bool
			if err := r.queryRow(txCtx, redeemed, reference, domain.TicketStatusRedeemed).Scan(&blocked); err != nil {
				return fmt.Errorf("check redeemed tickets: %w", err)
			}
			if blocked {
				return domain.ErrBookingRedeemed
			}
			return nil
		}
		cancelled = true

		const cancelTickets = `UPDATE tickets SET status = $2 WHERE booking_ref = $1 AND status = $3`
		if _, err := r.exec(txCtx, cancelTickets, reference, domain.TicketStatusCancelled, domain.TicketStatusActive); err != nil {
			return fmt.Errorf("cancel tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}

// Redeem marks the given ACTIVE tickets REDEEMED as one batch and completes
// the booking when no ACTIVE ticket remains.
func (r *BookingRepository) Redeem(ctx context.Context, reference string, codes []string, at time.Time) (domain.Booking, error) {
	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		const redeem = `
UPDATE tickets SET status = $3, redeemed_at = $4
WHERE booking_ref = $1 AND code = ANY($2) AND status = $5`
		tag, err := r.exec(txCtx, redeem, reference, codes, domain.TicketStatusRedeemed, at, domain.TicketStatusActive)
		if err != nil {
			return fmt.Errorf("redeem tickets: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ValidationError("all tickets are already redeemed")
		}

		const remaining = `SELECT COUNT(*) FROM tickets WHERE booking_ref = $1 AND status = $2`
		var active int
		if err := r.queryRow(txCtx, remaining, reference, domain.TicketStatusActive).Scan(&active); err != nil {
			return fmt.Errorf("count active tickets: %w", err)
		}
		if active == 0 {
			const complete = `UPDATE bookings SET status = $2, completed_at = $3 WHERE reference = $1 AND status = $4`
			if _, err := r.exec(txCtx, complete, reference, domain.BookingStatusCompleted, at, domain.BookingStatusConfirmed); err != nil {
				return fmt.Errorf("complete booking: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return r.Get(ctx, reference)
}

func (r *BookingRepository) getBooking(ctx context.Context, query, arg string, notFound error) (domain.Booking, error) {
	var (
		b         domain.Booking
		items     []byte
		addons    []byte
		travelers []byte
	)
	err := r.queryRow(ctx, query, arg).Scan(
		&b.Reference, &b.ProductID, &b.ReservationRef, &b.DateTime, &items, &addons, &travelers,
		&b.ExternalRef, &b.Comment, &b.Currency, &b.TotalPrice, &b.Status, &b.CreatedAt, &b.CancelledAt, &b.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Booking{}, notFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if err := json.Unmarshal(items, &b.Items); err != nil {
		return domain.Booking{}, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(addons, &b.Addons); err != nil {
		return domain.Booking{}, fmt.Errorf("unmarshal addons: %w", err)
	}
	if err := json.Unmarshal(travelers, &b.Travelers); err != nil {
		return domain.Booking{}, fmt.Errorf("unmarshal travelers: %w", err)
	}

	tickets, err := r.ticketsFor(ctx, b.Reference)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Tickets = tickets
	return b, nil
}

func (r *BookingRepository) ticketsFor(ctx context.Context, reference string) ([]domain.Ticket, error) {
	const query = `
SELECT code, booking_ref, category, group_size, status, redeemed_at
FROM tickets
WHERE booking_ref = $1
ORDER BY code`

	rows, err := r.query(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.Code, &t.BookingRef, &t.Category, &t.GroupSize, &t.Status, &t.RedeemedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
