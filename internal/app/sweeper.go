package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/soltoura/booking-api/internal/capacity"
	"github.com/soltoura/booking-api/internal/clock"
	"github.com/soltoura/booking-api/internal/domain"
	"github.com/soltoura/booking-api/internal/notify"
)

const (
	defaultSweepInterval = time.Minute
	defaultSweepBatch    = 100
)

// Sweeper is the single authority for expiring reservations. It periodically
// scans ACTIVE holds whose TTL has lapsed, credits their capacity back and
// marks them EXPIRED, exactly once per hold. Failures are logged and the next
// tick carries on.
type Sweeper struct {
	repo   ReservationRepository
	store  capacity.Store
	locks  *capacity.KeyLocks
	clock  clock.Clock
	events notify.Publisher
	logger *zap.Logger

	interval time.Duration
	batch    int
}

type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the tick interval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepBatch bounds how many lapsed holds one pass reclaims.
func WithSweepBatch(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

func NewSweeper(
	repo ReservationRepository,
	store capacity.Store,
	locks *capacity.KeyLocks,
	clk clock.Clock,
	events notify.Publisher,
	logger *zap.Logger,
	opts ...SweeperOption,
) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		store:    store,
		locks:    locks,
		clock:    clk,
		events:   events,
		logger:   logger,
		interval: defaultSweepInterval,
		batch:    defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reservation sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper stopped")
			return
		case <-ticker.C():
			if n, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep pass failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Info("expired reservations reclaimed", zap.Int("count", n))
			}
		}
	}
}

// SweepOnce reclaims one batch of lapsed holds and returns how many it
// expired. Safe to run concurrently with create/cancel/confirm on the same
// keys: each hold is re-checked under its key lock, and the ACTIVE→EXPIRED
// transition guards against double release.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	lapsed, err := s.repo.ListExpired(ctx, now, s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range lapsed {
		if err := s.expire(ctx, res, now); err != nil {
			s.logger.Error("expire failed",
				zap.String("reference", res.Reference),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Sweeper) expire(ctx context.Context, res domain.Reservation, now time.Time) error {
	key := capacity.Key{ProductID: res.ProductID, Date: res.Date()}
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return err
	}

	// Re-read under the lock: the hold may have been confirmed, cancelled or
	// extended since the scan.
	current, err := s.repo.Get(ctx, res.Reference)
	if err != nil {
		release()
		return err
	}
	if current.Status != domain.ReservationStatusActive || !current.Expired(now) {
		release()
		return nil
	}

	ok, err := s.repo.TransitionStatus(ctx, res.Reference, domain.ReservationStatusActive, domain.ReservationStatusExpired)
	if err != nil {
		release()
		return err
	}
	if !ok {
		release()
		return nil
	}
	err = s.store.Credit(ctx, key, domain.RequiredCapacity(current.Items))
	release()
	if err != nil {
		return err
	}

	// Publishing happens after the lock is gone; a slow broker must not stall
	// create, cancel or confirm on the same key.
	if err := s.events.Publish(ctx, notify.ReservationExpired(current, now)); err != nil {
		s.logger.Warn("expiry event publish failed", zap.String("reference", res.Reference), zap.Error(err))
	}
	return nil
}
