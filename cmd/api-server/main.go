package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/api"
	"github.com/elitedental/clinic-server/internal/clinic"
	"github.com/elitedental/clinic-server/internal/config"
	"github.com/elitedental/clinic-server/internal/db"
	"github.com/elitedental/clinic-server/internal/lock"
	"github.com/elitedental/clinic-server/internal/notify"
	"github.com/elitedental/clinic-server/internal/reminder"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg := zerolog.New(os.Stderr)
		lg.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg.Env)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("storage", cfg.Storage).
		Str("version", version).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store: seeded in-memory by default, Postgres when configured.
	var (
		store  clinic.Store
		pgPool *pgxpool.Pool
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()

		if err := db.Migrate(rootCtx, pgPool, "migrations"); err != nil {
			logger.Fatal().Err(err).Msg("migration error")
		}
		store = clinic.NewPgStore(pgPool)
		logger.Info().Msg("connected to Postgres")
	default:
		store = clinic.NewSeededMemStore(cfg.SeedDays)
		logger.Info().Int("seed_days", cfg.SeedDays).Msg("using seeded in-memory store")
	}

	// Slot lock: Redis when configured, otherwise in-process.
	var (
		locker lock.Locker
		rdb    *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb, err = lock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = lock.NewRedis(rdb, cfg.LockTTL)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	} else {
		locker = lock.NewLocal()
		logger.Info().Msg("using in-process slot lock")
	}

	mailer, err := notify.NewMailer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mailer setup error")
	}
	notifier := notify.NewService(mailer, notify.ClinicInfo{
		Name:             cfg.ClinicName,
		Phone:            cfg.ClinicPhone,
		Address:          cfg.ClinicAddress,
		From:             cfg.EmailFrom,
		ContactRecipient: cfg.ContactRecipient,
	}, logger)

	// The reminder engine fires through the service, which does not exist yet
	// when the engine is built; the closure resolves the cycle.
	var svc *clinic.Service
	engine := reminder.NewEngine(cfg.ReminderLead, func(ctx context.Context, appt *clinic.Appointment) error {
		return svc.SendReminder(ctx, appt)
	}, logger)
	defer engine.Stop()

	svc = clinic.NewService(store, locker, notifier, engine, logger)

	if err := api.SeedStaffUser(rootCtx, store, cfg.StaffUsername, cfg.StaffPassword); err != nil {
		logger.Fatal().Err(err).Msg("staff user seed error")
	}

	if err := engine.ScheduleAllPending(rootCtx, store); err != nil {
		logger.Error().Err(err).Msg("startup reminder scan failed")
	}

	// Periodically move confirmed appointments whose start has passed to
	// completed.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if err := svc.CompletePastAppointments(rootCtx); err != nil {
					logger.Error().Err(err).Msg("completion sweep failed")
				}
			}
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Store:     store,
		PgPool:    pgPool,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		Env:       cfg.Env,
		Version:   version,
		Log:       logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
