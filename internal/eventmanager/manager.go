// Package eventmanager is C7: it owns the event queue, the worker
// pools, and the state machine, and implements add_event's dedupe
// rules, dispatch, and the completion callback (spec §4.7). Grounded on
// the teacher's AutomationService — a single struct holding its
// dependencies and a Start(ctx) loop — generalized from N fixed tickers
// driving N hard-coded jobs into one queue feeding N executors chosen by
// the state machine.
package eventmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
	"reelarr/internal/queue"
	"reelarr/internal/statemachine"
	"reelarr/internal/store"
	"reelarr/internal/worker"
)

const maxParentChainDepth = 10

// Clock is the minimal time source the manager needs.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager is C7.
type Manager struct {
	items                *store.MediaItemStore
	queue                *queue.Queue
	pool                 *worker.Pool
	gate                 statemachine.GateFunc
	shouldSubmit         statemachine.ShouldSubmitFunc
	postProcessorEnabled bool
	clock                Clock

	mu              sync.Mutex
	inFlightByItem  map[int64]string    // item id -> event id currently queued or running
	contentInFlight []*models.Event     // content-only events currently queued or running
	runningCancel   map[string]struct{} // event ids that have been dispatched (vs merely queued)
}

// Config bundles the Manager's construction-time dependencies.
type Config struct {
	Items                *store.MediaItemStore
	Queue                *queue.Queue
	Pool                 *worker.Pool
	Gate                 statemachine.GateFunc
	ShouldSubmit         statemachine.ShouldSubmitFunc
	PostProcessorEnabled bool
	Clock                Clock
}

// New builds a Manager from cfg.
func New(cfg Config) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Manager{
		items:                cfg.Items,
		queue:                cfg.Queue,
		pool:                 cfg.Pool,
		gate:                 cfg.Gate,
		shouldSubmit:         cfg.ShouldSubmit,
		postProcessorEnabled: cfg.PostProcessorEnabled,
		clock:                clock,
		inFlightByItem:       make(map[int64]string),
		runningCancel:        make(map[string]struct{}),
	}
}

// AddEvent enqueues event after the spec §4.7 dedupe checks. Returns
// apperr.LogicGate (wrapped) when the event is rejected as a duplicate
// or blocked by a paused ancestor — callers treat that as a silent skip,
// not a failure.
func (m *Manager) AddEvent(ctx context.Context, event *models.Event) error {
	if event.ItemID != nil {
		return m.addItemEvent(ctx, event)
	}
	return m.addContentEvent(event)
}

func (m *Manager) addItemEvent(ctx context.Context, event *models.Event) error {
	selfID, descendantIDs, err := m.items.GetItemIDs(ctx, *event.ItemID)
	if err != nil {
		return fmt.Errorf("add event for item %d: %w", *event.ItemID, err)
	}
	ids := append([]int64{selfID}, descendantIDs...)

	m.mu.Lock()
	for _, id := range ids {
		if _, busy := m.inFlightByItem[id]; busy {
			m.mu.Unlock()
			return fmt.Errorf("item %d already queued or running: %w", id, apperr.LogicGate)
		}
	}
	m.mu.Unlock()

	item, err := m.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return fmt.Errorf("add event for item %d: %w", *event.ItemID, err)
	}

	blocked, err := m.ancestorPaused(ctx, item)
	if err != nil {
		return fmt.Errorf("add event for item %d: %w", *event.ItemID, err)
	}
	if blocked {
		return fmt.Errorf("item %d has a paused ancestor: %w", *event.ItemID, apperr.LogicGate)
	}
	event.ItemState = item.LastState

	m.mu.Lock()
	m.inFlightByItem[*event.ItemID] = event.ID
	m.mu.Unlock()

	m.queue.Push(event)
	return nil
}

func (m *Manager) addContentEvent(event *models.Event) error {
	if event.ContentItem == nil {
		return fmt.Errorf("content event %s has neither item_id nor content_item", event.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, queued := range m.contentInFlight {
		if queued.ContentItem == nil {
			continue
		}
		if matchesAnyExternalID(event.ContentItem, queued.ContentItem) {
			return fmt.Errorf("content item %q already queued or running: %w", event.ContentItem.Title, apperr.LogicGate)
		}
	}

	event.ItemState = event.ContentItem.LastState
	m.contentInFlight = append(m.contentInFlight, event)
	m.queue.Push(event)
	return nil
}

func matchesAnyExternalID(a, b *models.MediaItem) bool {
	for _, id := range []*string{a.IMDBID, a.TMDBID, a.TVDBID} {
		if id != nil && b.HasExternalID(*id) {
			return true
		}
	}
	return false
}

// ancestorPaused walks up ParentID links from item looking for a Paused
// ancestor ("parent chain is in a blocking state").
func (m *Manager) ancestorPaused(ctx context.Context, item *models.MediaItem) (bool, error) {
	current := item
	for depth := 0; depth < maxParentChainDepth && current.ParentID != nil; depth++ {
		parent, err := m.items.GetByID(ctx, *current.ParentID)
		if err != nil {
			if errors.Is(err, apperr.NotFound) {
				return false, nil
			}
			return false, err
		}
		if parent.LastState == models.StatePaused {
			return true, nil
		}
		current = parent
	}
	return false, nil
}

// Serve implements suture.Service: the dispatch loop. It blocks on the
// queue's non-empty signal, falling back to a short poll so a future
// run_at that has since elapsed is still picked up.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.queue.NotifyNonEmpty():
		case <-ticker.C:
		}
		m.drain(ctx)
	}
}

func (m *Manager) String() string { return "event-manager" }

func (m *Manager) drain(ctx context.Context) {
	for {
		event, err := m.queue.Next(m.clock.Now())
		if errors.Is(err, queue.ErrEmpty) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		m.dispatch(ctx, event)
	}
}

// dispatch resolves the event's existing item (if any) and children,
// runs the pure state transition, persists the result, and submits the
// next service's job — or, for a fan-out state, recursively enqueues
// the child submissions.
func (m *Manager) dispatch(ctx context.Context, event *models.Event) {
	in, err := m.buildInput(ctx, event)
	if err != nil {
		slog.Warn("event manager: failed to resolve input, dropping event", "event_id", event.ID, "error", err)
		m.clearInFlight(event)
		return
	}

	out := statemachine.ProcessEvent(in, m.gate, m.shouldSubmit)

	if err := m.persist(ctx, in, out); err != nil {
		slog.Warn("event manager: failed to persist transition", "event_id", event.ID, "error", err)
	}

	if len(out.ChildSubmissions) > 0 {
		m.enqueueChildren(ctx, event, out.ChildSubmissions)
	}

	if out.Terminal || out.NextService == "" {
		m.clearInFlight(event)
		return
	}

	executor, ok := m.pool.Get(out.NextService)
	if !ok {
		slog.Error("event manager: no executor registered for service", "service", out.NextService)
		m.clearInFlight(event)
		return
	}

	m.mu.Lock()
	m.runningCancel[event.ID] = struct{}{}
	m.mu.Unlock()

	if err := executor.Submit(ctx, event); err != nil {
		slog.Warn("event manager: submit failed", "event_id", event.ID, "service", out.NextService, "error", err)
		m.clearInFlight(event)
	}
}

func (m *Manager) buildInput(ctx context.Context, event *models.Event) (statemachine.Input, error) {
	in := statemachine.Input{
		Emitter:              event.EmittedBy,
		Now:                  m.clock.Now(),
		PostProcessorEnabled: m.postProcessorEnabled,
	}

	if event.ItemID == nil {
		in.Incoming = event.ContentItem
		return in, nil
	}

	existing, err := m.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return in, err
	}
	in.ExistingItem = existing
	if event.ContentItem != nil {
		in.Incoming = event.ContentItem
	} else {
		in.Incoming = existing
	}

	if existing.LastState == models.StateOngoing || existing.LastState == models.StatePartiallyCompleted {
		children, err := m.items.Children(ctx, existing.ID)
		if err != nil {
			return in, err
		}
		in.Children = children
	}
	return in, nil
}

func (m *Manager) persist(ctx context.Context, in statemachine.Input, out statemachine.Output) error {
	if out.UpdatedItem == nil || out.UpdatedItem.ID == 0 {
		return nil
	}
	if in.ExistingItem != nil && in.ExistingItem.IndexedAt == nil && out.UpdatedItem != in.ExistingItem {
		if err := m.items.UpdateMetadata(ctx, out.UpdatedItem.ID, out.UpdatedItem); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) enqueueChildren(ctx context.Context, parentEvent *models.Event, children []*models.MediaItem) {
	for _, child := range children {
		childID := child.ID
		childEvent := &models.Event{
			ID:        uuid.NewString(),
			EmittedBy: parentEvent.EmittedBy,
			ItemID:    &childID,
			RunAt:     m.clock.Now(),
			ItemState: child.LastState,
		}
		if err := m.AddEvent(ctx, childEvent); err != nil && !errors.Is(err, apperr.LogicGate) {
			slog.Warn("event manager: failed to enqueue child", "parent_event_id", parentEvent.ID, "child_id", childID, "error", err)
		}
	}
}

// CompletionHandler returns a worker.ResultFunc bound to service, for
// registering against the Executor of that name (spec §4.7 "Completion
// callback"). Binding the service name at registration time lets the
// re-enqueued event carry the correct completion Emitter (EmitterScraper,
// EmitterDownloader, ...) without the Executor itself knowing about
// Emitter at all.
func (m *Manager) CompletionHandler(service string) worker.ResultFunc {
	emitter := completionEmitter(service)
	return func(event *models.Event, results []models.Result, err error) {
		m.handleCompletion(emitter, event, results, err)
	}
}

func completionEmitter(service string) models.Emitter {
	switch service {
	case worker.ServiceIndexer:
		return models.EmitterIndexer
	case worker.ServiceScraper:
		return models.EmitterScraper
	case worker.ServiceDownloader:
		return models.EmitterDownloader
	case worker.ServiceSymlinker:
		return models.EmitterSymlinker
	case worker.ServiceUpdater:
		return models.EmitterUpdater
	case worker.ServicePostProcessor:
		return models.EmitterPostProcessor
	default:
		return models.Emitter(service)
	}
}

// handleCompletion re-enqueues each (item_id, run_at) result as a new
// event emitted by the service that just finished. A cancelled call's
// ctx.Err() already caused Executor to skip calling this, so results
// here are always genuine.
func (m *Manager) handleCompletion(emitter models.Emitter, event *models.Event, results []models.Result, err error) {
	defer m.clearInFlight(event)

	if err != nil {
		// Workers never raise past their boundary (spec §7 propagation
		// policy); absence of results is the normal "no-op" outcome for
		// a failed call, already logged by the executor.
		return
	}

	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)
	for _, result := range results {
		result := result
		g.Go(func() error {
			itemID := result.ItemID
			next := &models.Event{
				ID:        uuid.NewString(),
				EmittedBy: emitter,
				ItemID:    &itemID,
				RunAt:     result.RunAt,
			}
			if addErr := m.AddEvent(gctx, next); addErr != nil && !errors.Is(addErr, apperr.LogicGate) {
				return addErr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("event manager: failed to re-enqueue completion results", "event_id", event.ID, "error", err)
	}
}

// CancelJob cancels the running future for itemID (if any) and drops
// every queued event for itemID and its descendants (spec §4.7
// cancel_job).
func (m *Manager) CancelJob(ctx context.Context, itemID int64) error {
	selfID, descendantIDs, err := m.items.GetItemIDs(ctx, itemID)
	if err != nil {
		return fmt.Errorf("cancel job %d: %w", itemID, err)
	}
	ids := append([]int64{selfID}, descendantIDs...)

	for _, id := range ids {
		m.mu.Lock()
		eventID, inFlight := m.inFlightByItem[id]
		m.mu.Unlock()
		if !inFlight {
			continue
		}
		m.pool.Cancel(eventID)
		m.queue.Remove(eventID)
		m.mu.Lock()
		delete(m.inFlightByItem, id)
		delete(m.runningCancel, eventID)
		m.mu.Unlock()
	}
	return nil
}

// QueueLen reports how many events are currently waiting to be dispatched,
// for health/metrics surfaces.
func (m *Manager) QueueLen() int {
	return m.queue.Len()
}

func (m *Manager) clearInFlight(event *models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ItemID != nil {
		if current, ok := m.inFlightByItem[*event.ItemID]; ok && current == event.ID {
			delete(m.inFlightByItem, *event.ItemID)
		}
	} else {
		for i, queued := range m.contentInFlight {
			if queued.ID == event.ID {
				m.contentInFlight = append(m.contentInFlight[:i], m.contentInFlight[i+1:]...)
				break
			}
		}
	}
	delete(m.runningCancel, event.ID)
}
