package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	infragin "github.com/jonesrussell/north-cloud/catalog/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/api"
	"github.com/jonesrussell/north-cloud/catalog/internal/blobstore"
	"github.com/jonesrussell/north-cloud/catalog/internal/classifier"
	"github.com/jonesrussell/north-cloud/catalog/internal/config"
	"github.com/jonesrussell/north-cloud/catalog/internal/graph"
	"github.com/jonesrussell/north-cloud/catalog/internal/ingestor"
	"github.com/jonesrussell/north-cloud/catalog/internal/processor"
	"github.com/jonesrussell/north-cloud/catalog/internal/scorer"
	"github.com/jonesrussell/north-cloud/catalog/internal/telemetry"
)

const defaultShutdownTimeout = 30 * time.Second

// Components holds the shared dependencies of every long-running command.
type Components struct {
	Config    *config.Config
	Logger    logger.Logger
	Database  *DatabaseComponents
	Blobs     *blobstore.Store
	Telemetry *telemetry.Provider
}

// NewComponents connects the database and opens blob storage.
func NewComponents(ctx context.Context, cfg *config.Config, log logger.Logger) (*Components, error) {
	db, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	blobs, err := SetupStorage(cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Components{
		Config:    cfg,
		Logger:    log,
		Database:  db,
		Blobs:     blobs,
		Telemetry: telemetry.NewProvider(),
	}, nil
}

// Close releases the database connection.
func (c *Components) Close() {
	if err := c.Database.Close(); err != nil {
		c.Logger.Warn("Failed to close database", logger.Error(err))
	}
}

// Ingestor builds the input folder ingestor.
func (c *Components) Ingestor() *ingestor.Ingestor {
	cfg := c.Config.Ingestor
	return ingestor.NewIngestor(c.Logger, afero.NewOsFs(), c.Blobs, c.Database.Catalog, ingestor.Config{
		InputDir: cfg.InputDir,
		Interval: cfg.Interval,
		Watch:    cfg.Watch,
		Debounce: cfg.Debounce,
	}, c.Telemetry)
}

// Scorer builds the configured model backend, reporting calls to telemetry.
func (c *Components) Scorer() (scorer.Scorer, error) {
	observe := func(op string, kind scorer.Kind, d time.Duration, err error) {
		c.Telemetry.RecordScorerCall(op, string(kind), d, err)
	}
	sc, err := scorer.New(c.Config.Scorer, c.Logger, observe)
	if err != nil {
		return nil, fmt.Errorf("setup scorer: %w", err)
	}
	return sc, nil
}

// Poller builds the classification poller and its batch processor.
func (c *Components) Poller() (*processor.Poller, error) {
	sc, err := c.Scorer()
	if err != nil {
		return nil, err
	}

	clf := classifier.NewClassifier(c.Logger, c.Blobs, sc, classifier.Config{
		MaxInputChars: c.Config.Scorer.MaxInputChars,
		SourceWeights: c.Config.SourceWeights,
		Tracer:        c.Telemetry.Tracer,
	})

	cfg := c.Config.Processor
	bp := processor.NewBatchProcessor(c.Database.Catalog, clf, cfg.Concurrency, c.Telemetry, c.Logger)
	c.Logger.Info("Batch processor initialized",
		logger.Int("concurrency", cfg.Concurrency),
		logger.String("scorer", c.Config.Scorer.Provider),
	)

	return processor.NewPoller(c.Database.Catalog, bp, c.Telemetry, c.Logger, processor.PollerConfig{
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.Interval,
	}), nil
}

// GraphBuilder builds the tag graph builder.
func (c *Components) GraphBuilder() *graph.Builder {
	return graph.NewBuilder(c.Database.TagStats)
}

// HTTPServer builds the catalog HTTP server.
func (c *Components) HTTPServer() *infragin.Server {
	handler := api.NewHandler(c.Database.Catalog, c.Blobs, c.GraphBuilder(), c.Logger)

	return api.NewServer(handler, api.ServerConfig{
		ServiceName:    c.Config.Service.Name,
		ServiceVersion: c.Config.Service.Version,
		Port:           c.Config.Server.Port,
		ReadTimeout:    c.Config.Server.ReadTimeout,
		WriteTimeout:   c.Config.Server.WriteTimeout,
		Debug:          c.Config.Service.Debug,
		CORSOrigins:    c.Config.Server.CORSOrigins,
		Middleware:     []gin.HandlerFunc{c.Telemetry.HTTP.Middleware()},
	}, api.HealthChecks{
		Database: c.Database.Catalog.Ping,
		Storage:  c.Blobs.CheckWritable,
	}, c.Telemetry.Handler(), c.Logger)
}

// ShutdownTimeout returns the timeout for graceful shutdown.
func ShutdownTimeout() time.Duration {
	return defaultShutdownTimeout
}
