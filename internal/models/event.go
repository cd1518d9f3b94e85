package models

import "time"

// Emitter identifies the logical source of an Event: a content provider
// name, a service type that just finished its work, the scheduler, or a
// manual admin action.
type Emitter string

const (
	EmitterManual       Emitter = "manual"
	EmitterScheduler    Emitter = "scheduler"
	EmitterIndexer      Emitter = "indexer"
	EmitterScraper      Emitter = "scraper"
	EmitterDownloader   Emitter = "downloader"
	EmitterSymlinker    Emitter = "symlinker"
	EmitterUpdater      Emitter = "updater"
	EmitterPostProcessor Emitter = "postprocessor"
	EmitterRetryLibrary Emitter = "retry_library"
)

// Event is the in-memory-only unit of work the queue orders and the event
// manager dispatches to a worker pool. Events never persist across a
// restart; durability for time-driven work lives in ScheduledTask rows
// instead (spec §3 "Event (in-memory only)").
type Event struct {
	ID         string    `json:"id"`
	EmittedBy  Emitter   `json:"emitted_by"`
	ItemID     *int64    `json:"item_id,omitempty"`
	ContentItem *MediaItem `json:"content_item,omitempty"` // transient, no DB id
	RunAt      time.Time `json:"run_at"`
	ItemState  State     `json:"item_state"` // cached at enqueue time for priority sort
}

// Priority returns the queue ordering weight for this event.
func (e *Event) Priority() int {
	return PriorityFor(e.ItemState)
}

// Eligible reports whether the event is due to run as of now.
func (e *Event) Eligible(now time.Time) bool {
	return !e.RunAt.After(now)
}

// Result is the single, normalized shape every worker yields, whether the
// source behavior is "return an item id" or "return an (item_id, run_at)
// tuple" (spec §9 "Generators returning heterogeneous items").
type Result struct {
	ItemID int64
	RunAt  time.Time
}
