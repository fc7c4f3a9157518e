package ingestor

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/infrastructure/retry"
)

const (
	backoffMultiplier = 2
	maxBackoffFactor  = 3
)

// Run scans immediately and then on every interval until ctx is cancelled.
// Scan failures back off exponentially up to three intervals. When watching
// is enabled, file system events trigger an early scan.
func (i *Ingestor) Run(ctx context.Context) error {
	var trigger <-chan struct{}
	if i.cfg.Watch {
		w, err := newWatcher(i.cfg.InputDir, i.cfg.Debounce, i.logger)
		if err != nil {
			i.logger.Warn("File watcher unavailable, polling only", logger.Error(err))
		} else {
			defer w.Close()
			trigger = w.Events()
		}
	}

	backoff := retry.Config{
		InitialDelay: i.cfg.Interval,
		MaxDelay:     i.cfg.Interval * maxBackoffFactor,
		Multiplier:   backoffMultiplier,
	}

	i.logger.Info("Ingestor starting",
		logger.String("input_dir", i.cfg.InputDir),
		logger.Duration("interval", i.cfg.Interval),
		logger.Bool("watch", trigger != nil),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			i.logger.Info("Ingestor stopped")
			return nil
		case <-timer.C:
		case <-trigger:
			i.logger.Debug("File change detected")
		}

		next := i.cfg.Interval
		if _, err := i.Scan(ctx); err != nil {
			failures++
			next = backoff.Delay(failures)
			i.logger.Error("Ingest scan failed",
				logger.Int("consecutive_failures", failures),
				logger.Duration("retry_in", next),
				logger.Error(err),
			)
		} else {
			failures = 0
		}
		timer.Reset(next)
	}
}
