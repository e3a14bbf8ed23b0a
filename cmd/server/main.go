package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/bus-seat-admin/internal/config"
	"github.com/iliyamo/bus-seat-admin/internal/database"
	"github.com/iliyamo/bus-seat-admin/internal/export"
	"github.com/iliyamo/bus-seat-admin/internal/handler"
	"github.com/iliyamo/bus-seat-admin/internal/policy"
	"github.com/iliyamo/bus-seat-admin/internal/queue"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
	"github.com/iliyamo/bus-seat-admin/internal/repository/memstore"
	"github.com/iliyamo/bus-seat-admin/internal/repository/sqlstore"
	"github.com/iliyamo/bus-seat-admin/internal/router"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	seedFile := pflag.String("seed", "", "YAML seed of pickup points and destinations (overrides SEED_FILE)")
	port := pflag.String("port", "", "listen port (overrides APP_PORT)")
	migrate := pflag.Bool("migrate", false, "create missing tables on start (same as DB_AUTO_MIGRATE=true)")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load env file", "file", *envFile, "err", err)
	}
	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if *seedFile != "" {
		cfg.SeedFile = *seedFile
	}
	cfg.AutoMigrate = cfg.AutoMigrate || *migrate

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}
	opts := &slog.HandlerOptions{Level: level}
	if env == "prod" || env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("schema migrated", "driver", cfg.DB.Driver)
	}
	store, err := sqlstore.New(db, cfg.DB.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	az, err := policy.Load(ctx, cfg.Policy.File)
	if err != nil {
		return err
	}

	recorder := service.NewActivityRecorder(store.Activities(), logger)
	seats := service.NewSeatRegistry(store, recorder, cfg.SeatCapacity)
	opts := []service.LedgerOption{service.WithLocation(cfg.Location), service.WithLogger(logger)}
	if cfg.EventsEnabled {
		opts = append(opts, service.WithEventPublisher(queue.NewPublisher(cfg.AMQPURL)))
	}
	ledger := service.NewBookingLedger(store, seats, recorder, opts...)
	places := service.NewPlaceCatalog(store, recorder)
	auth := service.NewAuthenticator(store, service.AuthConfig{
		JWTSecret:        cfg.JWTSecret,
		AccessTTL:        cfg.AccessTTL(),
		RefreshTTL:       cfg.RefreshTTL(),
		BcryptCost:       cfg.BcryptCost,
		RegistrationCode: cfg.RegistrationCode,
	})

	if err := bootstrap(ctx, cfg, logger, auth, places, seats); err != nil {
		return err
	}

	if cfg.Payment.ConsumerEnabled {
		consumer := queue.NewPaymentConsumer(cfg.AMQPURL, ledger, logger)
		go func() { _ = consumer.Run(ctx) }()
	}

	e := router.New(router.Deps{
		Logger:     logger,
		Redis:      rdb,
		RateLimit:  config.LoadRateLimitConfig(),
		Cache:      config.LoadCacheConfig(),
		JWTSecret:  cfg.JWTSecret,
		Authorizer: az,
		Store:      store,
		Auth:       handler.NewAuthHandler(auth, cfg.JWTSecret),
		Bookings:   handler.NewBookingHandler(ledger),
		Seats:      handler.NewSeatHandler(seats),
		Places:     handler.NewPlaceHandler(places),
		Activities: handler.NewActivityHandler(recorder),
		Exports:    handler.NewExportHandler(export.New(ledger, seats, recorder, cfg.ManifestTitle)),
		Payments:   handler.NewPaymentHandler(ledger, cfg.Payment.WebhookSecret),
	})

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// bootstrap creates the first superadmin, seeds places and seats.  All
// three steps are no-ops on an already prepared store.
func bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger,
	auth *service.Authenticator, places *service.PlaceCatalog, seats *service.SeatRegistry) error {
	created, err := auth.EnsureAdmin(ctx, cfg.BootstrapEmail, cfg.BootstrapPassword, cfg.BootstrapName)
	if err != nil {
		return err
	}
	if created {
		logger.Info("bootstrap admin created", "email", cfg.BootstrapEmail)
	}

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	pickups := make([]service.SeedPlace, 0, len(seed.PickupPoints))
	for _, p := range seed.PickupPoints {
		pickups = append(pickups, service.SeedPlace{Name: p.Name})
	}
	dests := make([]service.SeedPlace, 0, len(seed.Destinations))
	for _, d := range seed.Destinations {
		dests = append(dests, service.SeedPlace{Name: d.Name, PriceCents: d.PriceCents()})
	}
	added, err := places.Seed(ctx, pickups, dests)
	if err != nil {
		return err
	}
	if added > 0 {
		logger.Info("places seeded", "added", added)
	}

	if _, err := seats.Initialize(ctx, "", 0); err != nil {
		if errors.Is(err, service.ErrAlreadyInitialized) {
			logger.Warn("seat count differs from SEAT_CAPACITY; keeping existing seats", "err", err)
			return nil
		}
		return err
	}
	return nil
}
