// Package processor moves new catalog entries through classification.
package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

const defaultConcurrency = 4

// Store is the slice of the catalog the processor needs.
type Store interface {
	ListPending(ctx context.Context, limit int) ([]*domain.DataObject, error)
	Claim(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, patch domain.Patch) (bool, error)
}

// Classifier produces an outcome for one entry.
type Classifier interface {
	ClassifyEntry(ctx context.Context, obj *domain.DataObject) domain.Outcome
}

// Recorder receives processing metrics.
type Recorder interface {
	RecordClassification(ctx context.Context, source, status string, duration time.Duration)
	RecordBatchSize(size int)
	SetQueueDepth(depth int)
	SetActiveWorkers(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordClassification(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordBatchSize(int)                                                 {}
func (nopRecorder) SetQueueDepth(int)                                                   {}
func (nopRecorder) SetActiveWorkers(int)                                                {}

// BatchProcessor processes multiple entries in parallel using a worker pool
type BatchProcessor struct {
	store       Store
	classifier  Classifier
	concurrency int
	metrics     Recorder
	logger      logger.Logger
}

// ProcessResult holds the result of processing a single entry
type ProcessResult struct {
	Object  *domain.DataObject
	Outcome domain.Outcome
	// Skipped is set when another worker claimed the entry first.
	Skipped  bool
	Duration time.Duration
	Error    error
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(store Store, classifier Classifier, concurrency int, metrics Recorder, log logger.Logger) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &BatchProcessor{
		store:       store,
		classifier:  classifier,
		concurrency: concurrency,
		metrics:     metrics,
		logger:      log,
	}
}

// Process claims, classifies and persists a batch of entries. Per-entry
// failures are reported in the results and never abort the batch.
func (b *BatchProcessor) Process(ctx context.Context, objects []*domain.DataObject) []*ProcessResult {
	if len(objects) == 0 {
		return []*ProcessResult{}
	}

	b.logger.Info("Starting batch processing",
		logger.Int("batch_size", len(objects)),
		logger.Int("concurrency", b.concurrency),
	)

	startTime := time.Now()
	b.metrics.RecordBatchSize(len(objects))

	jobs := make(chan *domain.DataObject, len(objects))
	results := make(chan *ProcessResult, len(objects))

	// In-flight entries always finish so none is left in processing.
	workCtx := context.WithoutCancel(ctx)

	workers := min(b.concurrency, len(objects))
	b.metrics.SetActiveWorkers(workers)
	defer b.metrics.SetActiveWorkers(0)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go b.worker(workCtx, i, jobs, results, &wg)
	}

	for _, obj := range objects {
		jobs <- obj
	}
	close(jobs)

	wg.Wait()
	close(results)

	processResults := make([]*ProcessResult, 0, len(objects))
	for result := range results {
		processResults = append(processResults, result)
	}

	duration := time.Since(startTime)
	var classified, failed, skipped int
	for _, result := range processResults {
		switch {
		case result.Error != nil:
			failed++
		case result.Skipped:
			skipped++
		default:
			classified++
		}
	}

	b.logger.Info("Batch processing complete",
		logger.Int("total", len(objects)),
		logger.Int("classified", classified),
		logger.Int("skipped", skipped),
		logger.Int("errors", failed),
		logger.Int64("duration_ms", duration.Milliseconds()),
	)

	return processResults
}

// worker processes entries from the jobs channel
func (b *BatchProcessor) worker(
	ctx context.Context,
	id int,
	jobs <-chan *domain.DataObject,
	results chan<- *ProcessResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	b.logger.Debug("Worker started", logger.Int("worker_id", id))

	for obj := range jobs {
		results <- b.processItem(ctx, obj)
	}

	b.logger.Debug("Worker finished", logger.Int("worker_id", id))
}

// markFailed moves a claimed entry to error after its outcome could not be
// stored, so it can be reset and retried instead of staying in processing.
func (b *BatchProcessor) markFailed(ctx context.Context, obj *domain.DataObject, cause error) {
	outcome := domain.Outcome{
		Tags:         domain.NormalizeTags([]string{domain.TagProcessingError, domain.ErrorKindTag(cause)}),
		QualityScore: domain.ClampScore(obj.QualityScore),
		Status:       domain.StatusError,
	}
	updated, err := b.store.Update(ctx, obj.ID, outcome.Patch())
	switch {
	case err != nil:
		b.logger.Error("Failed to mark entry as error, it stays in processing",
			logger.ObjectID(obj.ID), logger.Error(err))
	case updated:
		b.logger.Warn("Entry marked as error after persist failure", logger.ObjectID(obj.ID))
	}
}

// processItem claims one entry, classifies it and writes the outcome back
func (b *BatchProcessor) processItem(ctx context.Context, obj *domain.DataObject) *ProcessResult {
	start := time.Now()
	result := &ProcessResult{Object: obj}

	claimed, err := b.store.Claim(ctx, obj.ID)
	if err != nil {
		result.Error = fmt.Errorf("failed to claim %s: %w", obj.ID, err)
		b.logger.Error("Failed to claim entry", logger.ObjectID(obj.ID), logger.Error(err))
		return result
	}
	if !claimed {
		result.Skipped = true
		b.logger.Debug("Entry already claimed", logger.ObjectID(obj.ID))
		return result
	}

	result.Outcome = b.classifier.ClassifyEntry(ctx, obj)

	updated, err := b.store.Update(ctx, obj.ID, result.Outcome.Patch())
	switch {
	case err != nil:
		result.Error = fmt.Errorf("failed to store outcome for %s: %w", obj.ID, err)
	case !updated:
		result.Error = fmt.Errorf("failed to store outcome for %s: %w", obj.ID, domain.ErrNotFound)
	}
	result.Duration = time.Since(start)

	if result.Error != nil {
		b.logger.Error("Failed to persist classification", logger.ObjectID(obj.ID), logger.Error(result.Error))
		if err != nil {
			b.markFailed(ctx, obj, err)
		}
		return result
	}

	b.metrics.RecordClassification(ctx, obj.SourceName(), string(result.Outcome.Status), result.Duration)
	b.logger.Debug("Entry processed",
		logger.ObjectID(obj.ID),
		logger.String("status", string(result.Outcome.Status)),
		logger.Float64("quality_score", result.Outcome.QualityScore),
		logger.Strings("tags", result.Outcome.Tags),
	)

	return result
}
