package processor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/processor"
	"github.com/jonesrussell/north-cloud/catalog/internal/testhelpers"
)

func newObjects(n int) []*domain.DataObject {
	objs := make([]*domain.DataObject, n)
	for i := range objs {
		objs[i] = &domain.DataObject{
			ID:     string(rune('a' + i)),
			Name:   "file.txt",
			Status: domain.StatusNew,
			Tags:   []string{domain.TagUnclassified},
		}
	}
	return objs
}

func classified() *testhelpers.FakeClassifier {
	return &testhelpers.FakeClassifier{Outcome: domain.Outcome{
		Tags:         []string{"finance"},
		QualityScore: 0.7,
		Status:       domain.StatusClassified,
	}}
}

func TestProcessPending_ClassifiesAndPersists(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(3)...)
	cls := classified()
	p := processor.NewPoller(store, processor.NewBatchProcessor(store, cls, 2, nil, nil), nil, nil, processor.PollerConfig{})

	results, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		require.NoError(t, r.Error)
		assert.False(t, r.Skipped)
	}
	for _, id := range []string{"a", "b", "c"} {
		obj, ok := store.Get(id)
		require.True(t, ok)
		assert.Equal(t, domain.StatusClassified, obj.Status)
		assert.InDelta(t, 0.7, obj.QualityScore, 1e-9)
		assert.Equal(t, []string{"finance"}, obj.Tags)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cls.Seen())
}

func TestProcessPending_EmptyQueueIsNoOp(t *testing.T) {
	store := testhelpers.NewFakeCatalog()
	cls := classified()
	p := processor.NewPoller(store, processor.NewBatchProcessor(store, cls, 2, nil, nil), nil, nil, processor.PollerConfig{})

	results, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, cls.Seen())
}

func TestProcessPending_RespectsBatchSize(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(5)...)
	p := processor.NewPoller(store, processor.NewBatchProcessor(store, classified(), 4, nil, nil), nil, nil,
		processor.PollerConfig{BatchSize: 2})

	results, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestProcessPending_ListFailureIsReturned(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(1)...)
	store.ListErr = testhelpers.ErrInjected
	p := processor.NewPoller(store, processor.NewBatchProcessor(store, classified(), 1, nil, nil), nil, nil, processor.PollerConfig{})

	_, err := p.ProcessPending(context.Background())
	require.ErrorIs(t, err, testhelpers.ErrInjected)
}

func TestBatchProcessor_LostClaimIsSkipped(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(2)...)
	store.LoseClaims = true
	cls := classified()
	b := processor.NewBatchProcessor(store, cls, 2, nil, nil)

	objs, err := store.ListPending(context.Background(), 10)
	require.NoError(t, err)
	results := b.Process(context.Background(), objs)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Skipped)
		assert.NoError(t, r.Error)
	}
	assert.Empty(t, cls.Seen())
}

func TestBatchProcessor_UpdateFailureDoesNotAbortBatch(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(3)...)
	store.UpdateErr = testhelpers.ErrInjected
	cls := classified()
	b := processor.NewBatchProcessor(store, cls, 1, nil, nil)

	objs, err := store.ListPending(context.Background(), 10)
	require.NoError(t, err)
	results := b.Process(context.Background(), objs)

	require.Len(t, results, 3)
	for _, r := range results {
		require.ErrorIs(t, r.Error, testhelpers.ErrInjected)
	}
	assert.Len(t, cls.Seen(), 3)
}

func TestBatchProcessor_PersistFailureMarksEntryAsError(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(1)...)
	store.UpdateErr = testhelpers.ErrInjected
	store.UpdateFailures = 1
	b := processor.NewBatchProcessor(store, classified(), 1, nil, nil)

	objs, err := store.ListPending(context.Background(), 10)
	require.NoError(t, err)
	results := b.Process(context.Background(), objs)

	require.Len(t, results, 1)
	require.ErrorIs(t, results[0].Error, testhelpers.ErrInjected)

	obj, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.StatusError, obj.Status, "entry must not stay in processing")
	assert.Contains(t, obj.Tags, domain.TagProcessingError)
	assert.Len(t, obj.Tags, 2)
}

func TestBatchProcessor_FinishesInFlightWorkAfterCancel(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(3)...)
	b := processor.NewBatchProcessor(store, classified(), 1, nil, nil)

	objs, err := store.ListPending(context.Background(), 10)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := b.Process(ctx, objs)

	require.Len(t, results, 3)
	for _, id := range []string{"a", "b", "c"} {
		obj, _ := store.Get(id)
		assert.Equal(t, domain.StatusClassified, obj.Status)
	}
}

func TestPoller_StartStop(t *testing.T) {
	store := testhelpers.NewFakeCatalog(newObjects(1)...)
	p := processor.NewPoller(store, processor.NewBatchProcessor(store, classified(), 1, nil, nil), nil, nil,
		processor.PollerConfig{PollInterval: time.Hour})

	require.NoError(t, p.Start(context.Background()))
	require.Error(t, p.Start(context.Background()), "second start must fail")
	assert.True(t, p.IsRunning())

	require.Eventually(t, func() bool {
		obj, _ := store.Get("a")
		return obj.Status == domain.StatusClassified
	}, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.IsRunning())
	assert.Equal(t, false, p.GetStats()["running"])
}
