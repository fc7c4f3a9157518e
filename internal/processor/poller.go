package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 15
	// errorBackoffFactor stretches the wait after a failed cycle.
	errorBackoffFactor = 3
)

// Poller polls the catalog for new entries and processes them
type Poller struct {
	store          Store
	batchProcessor *BatchProcessor
	metrics        Recorder
	logger         logger.Logger

	batchSize    int
	pollInterval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// PollerConfig holds poller configuration
type PollerConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// NewPoller creates a new poller
func NewPoller(
	store Store,
	batchProcessor *BatchProcessor,
	metrics Recorder,
	log logger.Logger,
	config PollerConfig,
) *Poller {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Poller{
		store:          store,
		batchProcessor: batchProcessor,
		metrics:        metrics,
		logger:         log,
		batchSize:      config.BatchSize,
		pollInterval:   config.PollInterval,
	}
}

// Start starts the poller in the background
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("poller is already running")
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})
	p.logger.Info("Poller starting",
		logger.Int("batch_size", p.batchSize),
		logger.Duration("poll_interval", p.pollInterval),
	)

	go p.run(ctx)

	return nil
}

// Stop stops the poller and waits for the in-flight batch to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	done := p.done
	p.mu.Unlock()

	p.logger.Info("Poller stopping")
	<-done
}

// Run polls until ctx is cancelled. It blocks.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	p.Stop()
	return nil
}

// run is the main polling loop
func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped due to context cancellation")
			return
		case <-p.stopChan:
			p.logger.Info("Poller stopped")
			return
		case <-timer.C:
		}

		next := p.pollInterval
		if _, err := p.ProcessPending(ctx); err != nil {
			next = p.pollInterval * errorBackoffFactor
			p.logger.Error("Failed to process pending entries",
				logger.Duration("retry_in", next),
				logger.Error(err),
			)
		}
		timer.Reset(next)
	}
}

// ProcessPending runs one cycle: fetch new entries and process them.
// An empty queue is a no-op.
func (p *Poller) ProcessPending(ctx context.Context) ([]*ProcessResult, error) {
	p.logger.Debug("Polling for new entries", logger.Int("batch_size", p.batchSize))

	pending, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	p.metrics.SetQueueDepth(len(pending))

	if len(pending) == 0 {
		p.logger.Debug("No new entries found")
		return nil, nil
	}

	p.logger.Info("Found new entries", logger.Int("count", len(pending)))

	return p.batchProcessor.Process(ctx, pending), nil
}

// IsRunning returns whether the poller is currently running
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// GetStats returns poller statistics
func (p *Poller) GetStats() map[string]any {
	return map[string]any{
		"running":       p.IsRunning(),
		"batch_size":    p.batchSize,
		"poll_interval": p.pollInterval.String(),
		"concurrency":   p.batchProcessor.concurrency,
	}
}
