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

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) Create(ctx context.Context, res domain.Reservation) error {
	items, err := json.Marshal(res.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	const stmt = `
INSERT INTO reservations (reference, product_id, date_time, items, external_ref, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.exec(ctx, stmt,
		res.Reference,
		res.ProductID,
		res.DateTime,
		items,
		res.ExternalRef,
		res.Status,
		res.CreatedAt,
		res.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, reference string) (domain.Reservation, error) {
	const query = `
SELECT reference, product_id, date_time, items, external_ref, status, created_at, expires_at
FROM reservations
WHERE reference = $1`

	var (
		res   domain.Reservation
		items []byte
	)
	err := r.queryRow(ctx, query, reference).Scan(
		&res.Reference,
		&res.ProductID,
		&res.DateTime,
		&items,
		&res.ExternalRef,
		&res.Status,
		&res.CreatedAt,
		&res.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrInvalidReservation
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	if err := json.Unmarshal(items, &res.Items); err != nil {
		return domain.Reservation{}, fmt.Errorf("unmarshal items: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) TransitionStatus(ctx context.Context, reference string, from, to domain.ReservationStatus) (bool, error) {
	const stmt = `UPDATE reservations SET status = $3 WHERE reference = $1 AND status = $2`
	tag, err := r.exec(ctx, stmt, reference, from, to)
	if err != nil {
		return false, fmt.Errorf("transition reservation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReservationRepository) UpdateExpiry(ctx context.Context, reference string, expiresAt time.Time) error {
	const stmt = `UPDATE reservations SET expires_at = $2 WHERE reference = $1`
	tag, err := r.exec(ctx, stmt, reference, expiresAt)
	if err != nil {
		return fmt.Errorf("update expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidReservation
	}
	return nil
}

func (r *ReservationRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Reservation, error) {
	const query = `
SELECT reference, product_id, date_time, items, external_ref, status, created_at, expires_at
FROM reservations
WHERE status = 'ACTIVE' AND expires_at < $1
ORDER BY expires_at
LIMIT $2`

	rows, err := r.query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var (
			res   domain.Reservation
			items []byte
		)
		if err := rows.Scan(
			&res.Reference,
			&res.ProductID,
			&res.DateTime,
			&items,
			&res.ExternalRef,
			&res.Status,
			&res.CreatedAt,
			&res.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		if err := json.Unmarshal(items, &res.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
