package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/trademark"
)

var marks = trademark.MarkSimilarity{
	Visual:     trademark.LevelModerate,
	Aural:      trademark.LevelModerate,
	Conceptual: trademark.LevelLow,
	Overall:    trademark.LevelModerate,
}

type fakeAssessor struct {
	failOn    map[string]bool
	delay     time.Duration
	calls     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	mu        sync.Mutex
	seen      map[string]int
}

func key(a, b trademark.GoodService) string {
	return a.Term + "|" + b.Term
}

func (f *fakeAssessor) Assess(ctx context.Context, applicant, opponent trademark.GoodService, _ trademark.MarkSimilarity, _ string) (trademark.GoodsServicesLikelihood, error) {
	f.calls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxFlight.Load()
		if current <= peak || f.maxFlight.CompareAndSwap(peak, current) {
			break
		}
	}
	f.mu.Lock()
	if f.seen == nil {
		f.seen = map[string]int{}
	}
	f.seen[key(applicant, opponent)]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return trademark.GoodsServicesLikelihood{}, ctx.Err()
		}
	}
	if f.failOn[key(applicant, opponent)] {
		return trademark.GoodsServicesLikelihood{}, apperr.New(apperr.KindTransient, "rate limited")
	}
	return trademark.GoodsServicesLikelihood{SimilarityScore: 0.5}, nil
}

func goods(prefix string, n int) []trademark.GoodService {
	out := make([]trademark.GoodService, n)
	for i := range out {
		out[i] = trademark.GoodService{Term: fmt.Sprintf("%s %d", prefix, i), NiceClass: 9}
	}
	return out
}

func newTestOrchestrator(assessor PairAssessor, mode Mode) (*Orchestrator, *[]time.Duration) {
	o := New(assessor, Config{Mode: mode, ChunkDelay: time.Second})
	var sleeps []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return o, &sleeps
}

func TestProcessCompleteCrossProduct(t *testing.T) {
	assessor := &fakeAssessor{delay: 5 * time.Millisecond}
	o, sleeps := newTestOrchestrator(assessor, Tolerant)

	results, err := o.ProcessPairs(context.Background(), goods("app", 3), goods("opp", 4), marks, "")
	require.NoError(t, err)
	assert.Len(t, results, 12)

	indexes := map[int]bool{}
	for _, r := range results {
		assert.False(t, indexes[r.Index], "pair %d returned twice", r.Index)
		indexes[r.Index] = true
	}
	assert.Len(t, indexes, 12)
	assert.EqualValues(t, 12, assessor.calls.Load())
	for k, n := range assessor.seen {
		assert.Equal(t, 1, n, "pair %s assessed %d times", k, n)
	}
	assert.LessOrEqual(t, assessor.maxFlight.Load(), int32(DefaultChunkSize))
	// 12 pairs in chunks of 3 means 3 pauses
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, *sleeps)
}

func TestProcessTolerantDropsFailedPair(t *testing.T) {
	app, opp := goods("app", 2), goods("opp", 3)
	assessor := &fakeAssessor{failOn: map[string]bool{key(app[1], opp[2]): true}}
	o, _ := newTestOrchestrator(assessor, Tolerant)

	out, err := o.Process(context.Background(), app, opp, marks, "")
	require.NoError(t, err)
	assert.Len(t, out, 5)
	assert.EqualValues(t, 6, assessor.calls.Load())
}

func TestProcessStrictPropagatesFailure(t *testing.T) {
	app, opp := goods("app", 2), goods("opp", 3)
	assessor := &fakeAssessor{failOn: map[string]bool{key(app[0], opp[1]): true}}
	o, _ := newTestOrchestrator(assessor, Strict)

	out, err := o.Process(context.Background(), app, opp, marks, "")
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, apperr.IsTransient(err))
	// the failure is in the first chunk, so the second never starts
	assert.LessOrEqual(t, assessor.calls.Load(), int32(3))
}

func TestProcessEmptyLists(t *testing.T) {
	assessor := &fakeAssessor{}
	o, _ := newTestOrchestrator(assessor, Strict)

	out, err := o.Process(context.Background(), nil, goods("opp", 2), marks, "")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)

	out, err = o.Process(context.Background(), goods("app", 2), []trademark.GoodService{}, marks, "")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, assessor.calls.Load())
}

func TestProcessRejectsInvalidGoods(t *testing.T) {
	assessor := &fakeAssessor{}
	o, _ := newTestOrchestrator(assessor, Tolerant)

	_, err := o.Process(context.Background(), []trademark.GoodService{{Term: "Vehicles", NiceClass: 46}}, goods("opp", 1), marks, "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, assessor.calls.Load())
}

func TestProcessCancelledBetweenChunks(t *testing.T) {
	assessor := &fakeAssessor{}
	o := New(assessor, Config{ChunkDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	o.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := o.Process(ctx, goods("app", 2), goods("opp", 2), marks, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.EqualValues(t, 3, assessor.calls.Load())
}

func TestObserverEvents(t *testing.T) {
	app, opp := goods("app", 2), goods("opp", 2)
	assessor := &fakeAssessor{failOn: map[string]bool{key(app[0], opp[0]): true}}
	o, _ := newTestOrchestrator(assessor, Tolerant)

	var (
		mu     sync.Mutex
		events []Event
	)
	observed := o.WithObserver(ObserverFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))

	_, err := observed.Process(context.Background(), app, opp, marks, "")
	require.NoError(t, err)

	require.Len(t, events, 6)
	assert.Equal(t, EventStarted, events[0].Type)
	assert.Equal(t, 4, events[0].Total)
	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Type)
	assert.Equal(t, 3, last.Completed)
	assert.Equal(t, 1, last.Failed)

	var failed int
	for _, e := range events {
		assert.Equal(t, events[0].BatchID, e.BatchID)
		if e.Type == EventPairFailed {
			failed++
			assert.NotEmpty(t, e.Error)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Nil(t, o.observer, "WithObserver must not mutate the original")
}

func TestObserverStrictAbortEndsWithFailed(t *testing.T) {
	app, opp := goods("app", 2), goods("opp", 3)
	assessor := &fakeAssessor{failOn: map[string]bool{key(app[0], opp[1]): true}}
	o, _ := newTestOrchestrator(assessor, Strict)

	var (
		mu     sync.Mutex
		events []Event
	)
	_, err := o.WithObserver(ObserverFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})).Process(context.Background(), app, opp, marks, "")
	require.Error(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventFailed, last.Type)
	assert.True(t, last.Type.Terminal())
	assert.Contains(t, last.Error, "rate limited")
	assert.Equal(t, 6, last.Total)
	for _, e := range events[:len(events)-1] {
		assert.False(t, e.Type.Terminal())
	}
}

func TestObserverCancelEndsWithFailed(t *testing.T) {
	o := New(&fakeAssessor{}, Config{ChunkDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	o.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}
	var (
		mu   sync.Mutex
		last Event
	)
	_, err := o.WithObserver(ObserverFunc(func(e Event) {
		mu.Lock()
		last = e
		mu.Unlock()
	})).Process(ctx, goods("app", 2), goods("opp", 2), marks, "")
	require.Error(t, err)
	assert.Equal(t, EventFailed, last.Type)
	assert.Equal(t, 3, last.Completed)
}

func TestChunk(t *testing.T) {
	pairs := CrossProduct(goods("a", 7), goods("b", 1))
	chunks := Chunk(pairs, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 1)
	assert.Empty(t, Chunk(nil, 3))
}
