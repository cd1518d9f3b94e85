package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/internal/models"
)

func testEvent() *models.Event {
	return &models.Event{ID: uuid.NewString(), EmittedBy: models.EmitterScheduler}
}

func TestExecutor_RunsHandlerAndReportsResult(t *testing.T) {
	var gotEvent *models.Event
	var gotResults []models.Result
	done := make(chan struct{})

	handler := func(ctx context.Context, event *models.Event) ([]models.Result, error) {
		return []models.Result{{ItemID: 7}}, nil
	}
	onResult := func(event *models.Event, results []models.Result, err error) {
		gotEvent, gotResults = event, results
		close(done)
	}

	e := New("indexer", 1, handler, onResult)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Serve(ctx) }()

	event := testEvent()
	require.NoError(t, e.Submit(ctx, event))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result callback")
	}
	assert.Equal(t, event.ID, gotEvent.ID)
	require.Len(t, gotResults, 1)
	assert.Equal(t, int64(7), gotResults[0].ItemID)
}

func TestExecutor_BoundsConcurrency(t *testing.T) {
	const concurrency = 2
	var inFlight, maxInFlight int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	handler := func(ctx context.Context, event *models.Event) ([]models.Result, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	}
	onResult := func(event *models.Event, results []models.Result, err error) { wg.Done() }

	e := New("scraper", concurrency, handler, onResult)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Serve(ctx) }()

	wg.Add(4)
	for i := 0; i < 4; i++ {
		require.NoError(t, e.Submit(ctx, testEvent()))
	}

	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(concurrency))

	close(release)
	wg.Wait()
}

func TestExecutor_CancelStopsCooperativeCall(t *testing.T) {
	started := make(chan struct{})
	var onResultCalled atomic.Bool

	handler := func(ctx context.Context, event *models.Event) ([]models.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	onResult := func(event *models.Event, results []models.Result, err error) {
		onResultCalled.Store(true)
	}

	e := New("downloader", 1, handler, onResult)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Serve(ctx) }()

	event := testEvent()
	require.NoError(t, e.Submit(ctx, event))
	<-started

	assert.True(t, e.Cancel(event.ID))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, onResultCalled.Load(), "cancelled call should discard its result, not report one")
}

func TestPool_RegisterGetCancel(t *testing.T) {
	p := NewPool()
	e := New(ServiceIndexer, 1, func(ctx context.Context, event *models.Event) ([]models.Result, error) {
		return nil, nil
	}, nil)
	p.Register(e)

	got, ok := p.Get(ServiceIndexer)
	require.True(t, ok)
	assert.Same(t, e, got)

	_, ok = p.Get("unknown")
	assert.False(t, ok)
}
