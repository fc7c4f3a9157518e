package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/catalog/internal/config"
	"github.com/jonesrussell/north-cloud/catalog/internal/database"
)

const (
	connectAttempts     = 5
	connectInitialDelay = 500 * time.Millisecond
	connectMaxDelay     = 10 * time.Second
	connectMultiplier   = 2
)

// DatabaseComponents holds database connection and repositories.
type DatabaseComponents struct {
	DB       *sqlx.DB
	Catalog  *database.CatalogRepository
	TagStats *database.TagStatsRepository
}

// Close closes the database connection.
func (d *DatabaseComponents) Close() error {
	return d.DB.Close()
}

// DatabaseConfig converts the service config to the database package config.
func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}
}

// SetupDatabase applies pending migrations, then connects with retries and
// builds the repositories.
func SetupDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*DatabaseComponents, error) {
	dbCfg := DatabaseConfig(cfg)

	log.Info("Connecting to catalog database", logger.String("driver", dbCfg.Driver))

	retryCfg := retry.Config{
		MaxAttempts:  connectAttempts,
		InitialDelay: connectInitialDelay,
		MaxDelay:     connectMaxDelay,
		Multiplier:   connectMultiplier,
		IsRetryable:  retry.DefaultIsRetryable,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Database not ready, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("wait", wait),
				logger.Error(err),
			)
		},
	}

	if err := retry.Retry(ctx, retryCfg, func() error {
		return database.MigrateUp(dbCfg, log)
	}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	var db *sqlx.DB
	err := retry.Retry(ctx, retryCfg, func() error {
		var openErr error
		db, openErr = database.Open(ctx, dbCfg)
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connected successfully")

	return &DatabaseComponents{
		DB:       db,
		Catalog:  database.NewCatalogRepository(db),
		TagStats: database.NewTagStatsRepository(db),
	}, nil
}
