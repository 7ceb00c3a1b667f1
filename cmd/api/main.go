package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soltoura/booking-api/internal/app"
	"github.com/soltoura/booking-api/internal/capacity"
	"github.com/soltoura/booking-api/internal/catalog"
	"github.com/soltoura/booking-api/internal/clock"
	"github.com/soltoura/booking-api/internal/config"
	"github.com/soltoura/booking-api/internal/notify"
	"github.com/soltoura/booking-api/internal/storage/postgres"
	transporthttp "github.com/soltoura/booking-api/internal/transport/http"
	"github.com/soltoura/booking-api/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: failed to load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	products := postgres.NewProductRepository(pool)
	if cfg.SeedProducts {
		for _, p := range catalog.Fixtures() {
			if err := products.Upsert(startupCtx, p); err != nil {
				logger.Fatal("seed products", zap.Error(err))
			}
		}
		logger.Info("seeded fixture products")
	}

	store, err := newCapacityStore(startupCtx, cfg, logger)
	if err != nil {
		logger.Fatal("capacity store", zap.Error(err))
	}
	locks := capacity.NewKeyLocks()
	clk := clock.NewSystem()
	publisher := newPublisher(cfg, logger)

	var availabilityOpts []app.AvailabilityOption
	if cfg.MaxVacanciesCap > 0 {
		availabilityOpts = append(availabilityOpts, app.WithMaxVacanciesCap(cfg.MaxVacanciesCap))
	}
	availabilitySvc := app.NewAvailabilityService(products, store, locks, clk, publisher, logger, availabilityOpts...)

	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(reservationRepo, products, store, locks, clk, logger,
		app.WithReservationTTL(cfg.ReservationTTL),
		app.WithMaxHoldDuration(cfg.MaxHoldDuration),
	)

	bookingRepo := postgres.NewBookingRepository(pool)
	bookingSvc := app.NewBookingService(bookingRepo, reservationRepo, products, store, locks, clk, publisher, logger)

	sweeper := app.NewSweeper(reservationRepo, store, locks, clk, publisher, logger,
		app.WithSweepInterval(cfg.SweepInterval),
	)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweeper.Run(sweepCtx)

	e := transporthttp.NewRouter(availabilitySvc, reservationSvc, bookingSvc, logger, cfg.CORSOrigins)

	logger.Info("api listening", zap.String("port", cfg.Port))
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- e.Start(":" + cfg.Port)
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received")
	}

	stopSweep()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if closer, ok := publisher.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	logger.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newCapacityStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (capacity.Store, error) {
	if cfg.CapacityBackend != "redis" {
		logger.Info("using in-memory capacity store")
		return capacity.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logger.Info("using redis capacity store", zap.String("addr", cfg.RedisAddr))
	return capacity.NewRedisStore(client), nil
}

func newPublisher(cfg config.Config, logger *zap.Logger) notify.Publisher {
	if cfg.AMQPURL == "" {
		logger.Info("no AMQP_URL configured, events disabled")
		return notify.Noop{}
	}
	return notify.NewAMQPPublisher(cfg.AMQPURL, logger)
}
