// Package worker provides the per-service-type executors spec §4.5
// calls Worker Pools: one suture.Service per service type (Indexer,
// Scraper, Downloader, Symlinker, Updater, PostProcessor, plus one per
// content provider), each with a configurable max concurrency
// (default 1) and cooperative per-call cancellation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
)

// Handler is a worker's actual unit of work. It receives the event being
// processed and a context carrying the call's cancellation signal; it
// returns zero or more results, each re-enqueued by the event manager.
// The "program handle" spec §4.5 mentions is whatever the closure
// creating the Handler captured (store, external clients, other pools) —
// this package stays free of a concrete Program type to avoid an import
// cycle with internal/eventmanager.
type Handler func(ctx context.Context, event *models.Event) ([]models.Result, error)

// ResultFunc is invoked once per processed job with its outcome, letting
// the event manager re-enqueue results or record a failure.
type ResultFunc func(event *models.Event, results []models.Result, err error)

// ErrStopped is returned by Submit once the executor has been told to
// shut down and its job channel is draining.
var ErrStopped = errors.New("worker: executor stopped")

// Executor is a single service type's worker pool: a bounded-concurrency
// consumer of a job channel, implementing suture.Service so it can be
// supervised alongside the rest of the program.
type Executor struct {
	name        string
	concurrency int
	handler     Handler
	onResult    ResultFunc

	jobs chan *models.Event
	sem  chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New builds an Executor for one service type. concurrency <= 0 is
// clamped to 1 (spec §4.5 "max concurrency = 1 by default").
func New(name string, concurrency int, handler Handler, onResult ResultFunc) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{
		name:        name,
		concurrency: concurrency,
		handler:     handler,
		onResult:    onResult,
		jobs:        make(chan *models.Event, 64),
		sem:         make(chan struct{}, concurrency),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// String implements fmt.Stringer so suture logs identify the executor by
// service name.
func (e *Executor) String() string { return e.name }

// Submit enqueues an event for processing. Blocks if the job channel is
// full; returns ErrStopped if ctx is already done.
func (e *Executor) Submit(ctx context.Context, event *models.Event) error {
	select {
	case e.jobs <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submit %s to %s: %w", event.ID, e.name, ErrStopped)
	}
}

// Cancel signals the in-flight call for eventID to stop at its next
// cooperative checkpoint (spec §4.5 "cancellation signal specific to
// this call"). No-op if the event isn't currently running.
func (e *Executor) Cancel(eventID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.cancels[eventID]
	if !ok {
		return false
	}
	cancel()
	return true
}

// Serve implements suture.Service: drain jobs until ctx is cancelled,
// running up to concurrency handlers at a time.
func (e *Executor) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-e.jobs:
			select {
			case e.sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			wg.Add(1)
			go e.run(ctx, event, &wg)
		}
	}
}

func (e *Executor) run(ctx context.Context, event *models.Event, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() { <-e.sem }()

	callCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancels[event.ID] = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.cancels, event.ID)
		e.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker call panicked", "service", e.name, "event_id", event.ID, "panic", r)
			if e.onResult != nil {
				e.onResult(event, nil, fmt.Errorf("%s: handler panicked: %v: %w", e.name, r, apperr.LogicGate))
			}
		}
	}()

	results, err := e.handler(callCtx, event)
	if errors.Is(callCtx.Err(), context.Canceled) {
		slog.Info("worker call cancelled, discarding results", "service", e.name, "event_id", event.ID)
		return
	}
	if err != nil {
		slog.Warn("worker call failed", "service", e.name, "event_id", event.ID, "error", err)
	}
	if e.onResult != nil {
		e.onResult(event, results, err)
	}
}
