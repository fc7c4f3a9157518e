// Package classifier tags and quality-scores catalog entries from their
// stored blobs, blending model output with content heuristics.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/imageinfo"
	"github.com/jonesrussell/north-cloud/catalog/internal/scorer"
	"github.com/jonesrussell/north-cloud/catalog/internal/textextract"
)

const (
	// Blend weights depend on whether the model produced a score.
	modelWeight           = 0.85
	heuristicWeight       = 0.15
	failedModelWeight     = 0.10
	failedHeuristicWeight = 0.90

	fallbackModelScore   = 0.5
	imageEncodeFailScore = 0.1
	scorePrecision       = 1e4

	textPrefix  = "text/"
	imagePrefix = "image/"
)

var errJSONDecode = errors.New("json decode failed")

// BlobReader reads stored blobs.
type BlobReader interface {
	Open(path string) (io.ReadCloser, error)
	Stat(path string) (os.FileInfo, error)
}

// Config tunes the classifier.
type Config struct {
	// MaxInputChars bounds the text sent to the model.
	MaxInputChars int
	// SourceWeights overrides entries of DefaultSourceWeights.
	SourceWeights map[string]float64
	Tracer        trace.Tracer
	Now           func() time.Time
}

// Classifier produces an Outcome for one catalog entry.
type Classifier struct {
	blobs         BlobReader
	scorer        scorer.Scorer
	weights       SourceWeights
	maxInputChars int
	tracer        trace.Tracer
	now           func() time.Time
	logger        logger.Logger
}

// analysis is what one content branch contributes.
type analysis struct {
	typeTags     []string
	nameTags     []string
	modelTags    []string
	modelScore   float64
	modelScored  bool
	heuristicVal float64
}

// NewClassifier creates a classifier reading blobs through blobs and asking sc
// for tags and scores.
func NewClassifier(log logger.Logger, blobs BlobReader, sc scorer.Scorer, cfg Config) *Classifier {
	if log == nil {
		log = logger.NewNop()
	}
	if sc == nil {
		sc = scorer.None{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("classifier")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = scorer.DefaultMaxInputChars
	}

	return &Classifier{
		blobs:         blobs,
		scorer:        sc,
		weights:       NewSourceWeights(cfg.SourceWeights),
		maxInputChars: maxChars,
		tracer:        tracer,
		now:           now,
		logger:        log.With(logger.Component("classifier")),
	}
}

// ClassifyEntry classifies obj. It never fails: problems are reported as an
// error status with a diagnostic tag.
func (c *Classifier) ClassifyEntry(ctx context.Context, obj *domain.DataObject) (outcome domain.Outcome) {
	ctx, span := c.tracer.Start(ctx, "classifier.ClassifyEntry", trace.WithAttributes(
		attribute.String("object.id", obj.ID),
		attribute.String("object.type", obj.Type),
		attribute.String("object.source", obj.SourceName()),
	))
	defer span.End()

	base := withoutUnclassified(obj.Tags)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Classification panicked",
				logger.ObjectID(obj.ID),
				logger.Any("panic", r),
			)
			span.SetStatus(codes.Error, "panic")
			outcome = failed(obj, base, domain.TagProcessingError, domain.PanicKindTag(r))
		}
	}()

	outcome = c.classify(ctx, obj, base)

	if outcome.Status == domain.StatusError {
		span.SetStatus(codes.Error, "classification failed")
	}
	span.SetAttributes(
		attribute.String("outcome.status", string(outcome.Status)),
		attribute.Float64("outcome.quality_score", outcome.QualityScore),
		attribute.Int("outcome.tags", len(outcome.Tags)),
	)
	return outcome
}

func (c *Classifier) classify(ctx context.Context, obj *domain.DataObject, base []string) domain.Outcome {
	info, err := c.blobs.Stat(obj.ContentLocation)
	if err != nil {
		return c.failure(obj, base, err)
	}
	size := info.Size()

	var a analysis
	switch {
	case strings.HasPrefix(obj.Type, textPrefix):
		a, err = c.analyzeText(ctx, obj, size)
	case strings.HasPrefix(obj.Type, imagePrefix):
		a, err = c.analyzeImage(ctx, obj, size)
	case obj.Type == domain.TypeJSON || obj.Type == domain.TypeJSONItem:
		a, err = c.analyzeJSON(ctx, obj, size)
	default:
		a = c.analyzeOther(ctx, obj, size)
	}
	if err != nil {
		return c.failure(obj, base, err)
	}

	tags := make([]string, 0, len(base)+len(a.typeTags)+len(a.nameTags)+len(a.modelTags))
	tags = append(tags, base...)
	tags = append(tags, a.typeTags...)
	tags = append(tags, FilenameTags(obj.Name, c.now())...)
	tags = append(tags, a.nameTags...)
	tags = append(tags, a.modelTags...)

	score := c.blend(a, obj.SourceName())

	c.logger.Debug("Entry classified",
		logger.ObjectID(obj.ID),
		logger.Float64("model_score", a.modelScore),
		logger.Bool("model_scored", a.modelScored),
		logger.Float64("heuristic_score", a.heuristicVal),
		logger.Float64("quality_score", score),
	)

	return domain.Outcome{
		Tags:         domain.TagsOrDefault(tags),
		QualityScore: score,
		Status:       domain.StatusClassified,
	}
}

func (c *Classifier) failure(obj *domain.DataObject, base []string, err error) domain.Outcome {
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.logger.Warn("Blob not found", logger.ObjectID(obj.ID), logger.String("location", obj.ContentLocation))
		return failed(obj, base, domain.TagFileNotFound)
	case errors.Is(err, errJSONDecode):
		c.logger.Warn("Invalid JSON blob", logger.ObjectID(obj.ID), logger.Error(err))
		return failed(obj, base, domain.TagJSONDecodeError)
	default:
		c.logger.Error("Unexpected classification error", logger.ObjectID(obj.ID), logger.Error(err))
		return failed(obj, base, domain.TagProcessingError, domain.ErrorKindTag(err))
	}
}

func (c *Classifier) analyzeText(ctx context.Context, obj *domain.DataObject, size int64) (analysis, error) {
	text, err := c.readText(obj)
	if err != nil {
		return analysis{}, err
	}

	content := scorer.Content{Kind: scorer.KindText, Filename: obj.Name, Text: scorer.Truncate(text, c.maxInputChars)}
	a := c.askModel(ctx, obj, content, domain.TagTextLLMFailed)
	a.heuristicVal = TextHeuristic(text, size)
	return a, nil
}

func (c *Classifier) analyzeImage(ctx context.Context, obj *domain.DataObject, size int64) (analysis, error) {
	data, err := c.readAll(obj)
	if err != nil {
		return analysis{}, err
	}

	pixels := 0
	if info, decodeErr := imageinfo.Decode(bytes.NewReader(data)); decodeErr == nil {
		pixels = info.Pixels()
	}

	var a analysis
	prepared, mimeType, err := imageinfo.PrepareForVision(data, obj.Type)
	if err != nil {
		c.logger.Warn("Image could not be encoded for the model", logger.ObjectID(obj.ID), logger.Error(err))
		a = analysis{modelTags: []string{domain.TagImageBase64Error}, modelScore: imageEncodeFailScore}
	} else {
		content := scorer.Content{
			Kind:     scorer.KindImage,
			Filename: obj.Name,
			Image:    &scorer.Image{Data: prepared, MIME: mimeType},
		}
		a = c.askModel(ctx, obj, content, domain.TagImageLLMFailed)
	}
	a.heuristicVal = ImageHeuristic(pixels, size)
	return a, nil
}

func (c *Classifier) analyzeJSON(ctx context.Context, obj *domain.DataObject, size int64) (analysis, error) {
	data, err := c.readAll(obj)
	if err != nil {
		return analysis{}, err
	}

	var decoded any
	if err = json.Unmarshal(data, &decoded); err != nil {
		return analysis{}, fmt.Errorf("%w: %w", errJSONDecode, err)
	}
	var compact bytes.Buffer
	if err = json.Compact(&compact, data); err != nil {
		return analysis{}, fmt.Errorf("%w: %w", errJSONDecode, err)
	}

	content := scorer.Content{
		Kind:     scorer.KindJSON,
		Filename: obj.Name,
		Text:     scorer.Truncate(compact.String(), c.maxInputChars),
	}
	a := c.askModel(ctx, obj, content, domain.TagJSONLLMFailed)
	a.heuristicVal = JSONHeuristic(decoded, size)
	if obj.Type == domain.TypeJSONItem {
		a.typeTags = []string{domain.TagJSONItem}
	} else {
		a.typeTags = []string{domain.TagJSON}
	}
	return a, nil
}

func (c *Classifier) analyzeOther(ctx context.Context, obj *domain.DataObject, size int64) analysis {
	summary := obj.ContentSummary
	if summary == "" {
		summary = obj.Name
	}

	content := scorer.Content{Kind: scorer.KindText, Filename: obj.Name, Text: scorer.Truncate(summary, c.maxInputChars)}
	a := c.askModel(ctx, obj, content, domain.TagTextLLMFailed)
	a.heuristicVal = OtherHeuristic(filepath.Ext(obj.Name), size, obj.IsContainer())
	if obj.IsContainer() {
		a.typeTags = []string{domain.TagJSONContainer}
	}
	if sub := mimeSubtype(obj.Type); sub != "" {
		a.nameTags = []string{sub}
	}
	return a
}

// askModel collects model tags and score, substituting fallbacks on failure.
func (c *Classifier) askModel(ctx context.Context, obj *domain.DataObject, content scorer.Content, failedTag string) analysis {
	a := analysis{modelScore: fallbackModelScore}

	tags, err := c.scorer.Classify(ctx, content)
	if err != nil {
		c.logger.Debug("Model classify failed", logger.ObjectID(obj.ID), logger.Error(err))
		a.modelTags = []string{failedTag}
	} else {
		a.modelTags = tags
	}

	score, err := c.scorer.Score(ctx, content)
	if err != nil {
		c.logger.Debug("Model score failed", logger.ObjectID(obj.ID), logger.Error(err))
		return a
	}
	a.modelScore = domain.ClampScore(score)
	a.modelScored = true
	return a
}

func (c *Classifier) blend(a analysis, source string) float64 {
	mw, hw := failedModelWeight, failedHeuristicWeight
	if a.modelScored {
		mw, hw = modelWeight, heuristicWeight
	}
	blended := (a.modelScore*mw + a.heuristicVal*hw) * c.weights.For(source)
	return domain.ClampScore(math.Round(blended*scorePrecision) / scorePrecision)
}

func (c *Classifier) readText(obj *domain.DataObject) (string, error) {
	rc, err := c.blobs.Open(obj.ContentLocation)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return textextract.Read(rc, obj.Type)
}

func (c *Classifier) readAll(obj *domain.DataObject) ([]byte, error) {
	rc, err := c.blobs.Open(obj.ContentLocation)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func withoutUnclassified(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != domain.TagUnclassified {
			out = append(out, t)
		}
	}
	return out
}

// failed keeps the stored score and records the diagnostic tags.
func failed(obj *domain.DataObject, base []string, extra ...string) domain.Outcome {
	tags := make([]string, 0, len(base)+len(extra))
	tags = append(tags, base...)
	tags = append(tags, extra...)
	return domain.Outcome{
		Tags:         domain.TagsOrDefault(tags),
		QualityScore: domain.ClampScore(obj.QualityScore),
		Status:       domain.StatusError,
	}
}
