package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendorrisk/internal/app"
	"vendorrisk/internal/config"
	"vendorrisk/internal/dashboard"
	"vendorrisk/internal/database"
	"vendorrisk/internal/logging"
	"vendorrisk/internal/metrics"
	"vendorrisk/internal/repositories"
	"vendorrisk/internal/services"
	"vendorrisk/pkg/rabbitmq"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const connectRetries = 5

func main() {
	if err := run(); err != nil {
		log.Fatalf("vendorrisk: %v", err)
	}
}

func run() error {
	// --- Configuration ---
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(viper.New())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment(), cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Initialize Repositories ---
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if st.seed {
		seedVendors(ctx, st.vendors, logger)
	}

	m := metrics.New()

	// --- Initialize RabbitMQ Client (optional) ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := connectBroker(cfg.RabbitMQURL, logger)
		if err != nil {
			return err
		}
		defer mqClient.Close()
		events = mqClient

		if cfg.RabbitMQAudit {
			audit := services.NewAuditLogger(logger.Named("audit"))
			if err := mqClient.ConsumeVendorEvents(ctx, audit.Handle); err != nil {
				return err
			}
			logger.Info("vendor audit consumer started", zap.String("queue", rabbitmq.AuditQueue))
		}
	}

	server := app.New(app.Options{
		Config:  cfg,
		Users:   st.users,
		Vendors: st.vendors,
		Events:  events,
		Metrics: m,
		Logger:  logger,
		Ping:    st.ping,
	})

	// --- Start HTTP Server ---
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.AppPort),
			zap.String("env", cfg.AppEnv),
			zap.String("database", cfg.DatabaseDriver),
		)
		listenErr <- server.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
	return nil
}

// store bundles the repositories for the configured driver.
type store struct {
	users   repositories.UserRepository
	vendors repositories.VendorRepository
	ping    func() error
	close   func()
	// seed is set for stores that start empty on every boot.
	seed bool
}

func openStore(cfg *config.Config, logger *zap.Logger) (*store, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		logger.Warn("using in-memory repositories; data is lost on restart")
		return &store{
			users:   repositories.NewMemoryUserRepository(),
			vendors: repositories.NewMemoryVendorRepository(),
			close:   func() {},
			seed:    true,
		}, nil
	}

	var db *gorm.DB
	err := retry(logger, "database", func() error {
		var err error
		if db, err = database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN); err != nil {
			if errors.Is(err, database.ErrUnsupportedDriver) {
				return backoff.Permanent(err)
			}
			return err
		}
		return database.Ping(db)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	return &store{
		users:   repositories.NewGORMUserRepository(db),
		vendors: repositories.NewGORMVendorRepository(db),
		ping:    func() error { return database.Ping(db) },
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}

func connectBroker(url string, logger *zap.Logger) (*rabbitmq.Client, error) {
	var client *rabbitmq.Client
	err := retry(logger, "rabbitmq", func() error {
		c, err := rabbitmq.NewClient(rabbitmq.Config{URL: url}, logger.Named("rabbitmq"))
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
	}
	return client, nil
}

// retry runs op with exponential backoff, giving up after connectRetries
// further attempts.
func retry(logger *zap.Logger, what string, op func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries)
	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		logger.Warn("connection attempt failed",
			zap.String("target", what),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	})
}

// seedVendors populates an empty repository with the sample vendors.
func seedVendors(ctx context.Context, repo repositories.VendorRepository, logger *zap.Logger) {
	for _, v := range dashboard.SampleVendors() {
		v.ID = 0
		err := repo.Create(ctx, &v)
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			continue
		case err != nil:
			logger.Warn("error seeding vendor", zap.String("name", v.Name), zap.Error(err))
		default:
			logger.Debug("seeded vendor", zap.String("name", v.Name), zap.Uint("id", v.ID))
		}
	}
}
