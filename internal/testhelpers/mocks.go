// Package testhelpers provides shared test utilities for the catalog service.
package testhelpers

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/scorer"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// FakeScorer is a scripted scorer.Scorer that records what it was asked.
type FakeScorer struct {
	mu sync.Mutex

	ReplyTags   []string
	ReplyScore  float64
	ClassifyErr error
	ScoreErr    error

	calls []scorer.Content
}

// NewFakeScorer returns a scorer that answers with tags and score.
func NewFakeScorer(score float64, tags ...string) *FakeScorer {
	return &FakeScorer{ReplyTags: tags, ReplyScore: score}
}

// Classify returns the scripted tags.
func (f *FakeScorer) Classify(_ context.Context, c scorer.Content) ([]string, error) {
	f.record(c)
	if f.ClassifyErr != nil {
		return nil, f.ClassifyErr
	}
	return slices.Clone(f.ReplyTags), nil
}

// Score returns the scripted score.
func (f *FakeScorer) Score(_ context.Context, c scorer.Content) (float64, error) {
	f.record(c)
	if f.ScoreErr != nil {
		return 0, f.ScoreErr
	}
	return f.ReplyScore, nil
}

func (f *FakeScorer) record(c scorer.Content) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns every Content seen, in order.
func (f *FakeScorer) Calls() []scorer.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// FakeCatalog is an in-memory stand-in for the catalog repository methods
// used by the processor.
type FakeCatalog struct {
	mu      sync.Mutex
	objects map[string]*domain.DataObject
	order   []string

	ListErr   error
	ClaimErr  error
	UpdateErr error
	// UpdateFailures limits UpdateErr to the first n Update calls; zero
	// fails every call.
	UpdateFailures int
	updateCalls    int
	// LoseClaims makes every Claim report a lost race.
	LoseClaims bool

	Updates map[string]domain.Patch
}

// NewFakeCatalog seeds a catalog with objects in insertion order.
func NewFakeCatalog(objects ...*domain.DataObject) *FakeCatalog {
	f := &FakeCatalog{
		objects: make(map[string]*domain.DataObject, len(objects)),
		Updates: make(map[string]domain.Patch),
	}
	for _, o := range objects {
		cp := *o
		f.objects[o.ID] = &cp
		f.order = append(f.order, o.ID)
	}
	return f
}

// ListPending returns up to limit new objects, oldest first.
func (f *FakeCatalog) ListPending(_ context.Context, limit int) ([]*domain.DataObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []*domain.DataObject
	for _, id := range f.order {
		o := f.objects[id]
		if o.Status != domain.StatusNew {
			continue
		}
		cp := *o
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Claim moves a new object to processing.
func (f *FakeCatalog) Claim(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ClaimErr != nil {
		return false, f.ClaimErr
	}
	o, ok := f.objects[id]
	if !ok || f.LoseClaims || o.Status != domain.StatusNew {
		return false, nil
	}
	o.Status = domain.StatusProcessing
	return true, nil
}

// Update applies the status, score and tags of a patch.
func (f *FakeCatalog) Update(_ context.Context, id string, patch domain.Patch) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.UpdateErr != nil && (f.UpdateFailures == 0 || f.updateCalls <= f.UpdateFailures) {
		return false, f.UpdateErr
	}
	o, ok := f.objects[id]
	if !ok {
		return false, nil
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.QualityScore != nil {
		o.QualityScore = *patch.QualityScore
	}
	if patch.Tags != nil {
		o.Tags = slices.Clone(patch.Tags)
	}
	f.Updates[id] = patch
	return true, nil
}

// Get returns a copy of the stored object.
func (f *FakeCatalog) Get(id string) (*domain.DataObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

// FakeClassifier returns a fixed outcome and counts calls.
type FakeClassifier struct {
	mu      sync.Mutex
	Outcome domain.Outcome
	seen    []string
}

// ClassifyEntry records the id and returns the scripted outcome.
func (f *FakeClassifier) ClassifyEntry(_ context.Context, obj *domain.DataObject) domain.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, obj.ID)
	return f.Outcome
}

// Seen returns the classified ids.
func (f *FakeClassifier) Seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.seen)
}
