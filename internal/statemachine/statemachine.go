// Package statemachine implements the pure state transition function
// C6 (spec §4.6): process_event(existing_item, emitter, item) ->
// (updated_item, next_service, child_submissions). It is deliberately
// free of I/O — the event manager resolves the existing item, its
// children, and the scrape gate's verdict before calling ProcessEvent,
// and persists whatever this function decides afterward. Grounded on
// the *shape* of the teacher's server/services/automation.go status
// walk (pending -> downloading -> completed) but rewritten as a
// table-driven pure function per the "avoid deep class hierarchies"
// design note.
package statemachine

import (
	"time"

	"reelarr/internal/models"
	"reelarr/internal/worker"
)

// GateFunc reports whether an Indexed item may proceed to the Scraper
// (spec §4.9 can_we_scrape). Injected so this package never imports
// internal/gate.
type GateFunc func(item *models.MediaItem, now time.Time) bool

// ShouldSubmitFunc decides whether a Completed item should be handed to
// the PostProcessor, beyond the blanket enabled/emitter checks.
type ShouldSubmitFunc func(item *models.MediaItem) bool

// Input bundles everything ProcessEvent needs to decide a routing
// without touching the database itself.
type Input struct {
	// ExistingItem is the already-persisted row matching this item's
	// identity, or nil if this is a brand new submission.
	ExistingItem *models.MediaItem
	// Incoming carries freshly fetched metadata/children for a content
	// emitter submission, or is identical to ExistingItem for an
	// internal re-entry (service completion, scheduler tick).
	Incoming *models.MediaItem
	Emitter  models.Emitter
	// Children are the non-terminal direct children of a Show/Season
	// currently in Ongoing or PartiallyCompleted, pre-loaded by the
	// caller via the store.
	Children             []*models.MediaItem
	Now                  time.Time
	PostProcessorEnabled bool
}

// Output is the transition's verdict.
type Output struct {
	// UpdatedItem is Input's working item, possibly merged with
	// Incoming's metadata. Callers persist it even when Terminal.
	UpdatedItem *models.MediaItem
	// NextService is one of the worker.Service* constants, or "" when
	// Terminal is true.
	NextService string
	// ChildSubmissions holds the non-completed, released children a
	// Show/Season in Ongoing/PartiallyCompleted fans out to; each
	// re-enters ProcessEvent independently.
	ChildSubmissions []*models.MediaItem
	// Terminal means no further worker dispatch happens for
	// UpdatedItem on this pass.
	Terminal bool
}

// ProcessEvent is the pure routing decision (first match wins, spec
// §4.6 table).
func ProcessEvent(in Input, gate GateFunc, shouldSubmit ShouldSubmitFunc) Output {
	// A re-request for an item already present and Completed naturally
	// falls through to the StateCompleted case below rather than
	// re-entering at Requested/Indexer (spec §4.6 "early-exit if item
	// already present and Completed"), because resolveWorking keeps
	// routing on the existing row's state once it has been indexed.
	working := resolveWorking(in)

	switch working.LastState {
	case models.StateRequested:
		return Output{UpdatedItem: working, NextService: worker.ServiceIndexer}

	case models.StateIndexed:
		if gate != nil && gate(working, in.Now) {
			return Output{UpdatedItem: working, NextService: worker.ServiceScraper}
		}
		return Output{UpdatedItem: working, Terminal: true}

	case models.StateScraped:
		return Output{UpdatedItem: working, NextService: worker.ServiceDownloader}

	case models.StateDownloaded:
		return Output{UpdatedItem: working, NextService: worker.ServiceSymlinker}

	case models.StateSymlinked:
		return Output{UpdatedItem: working, NextService: worker.ServiceUpdater}

	case models.StateCompleted:
		if in.Emitter == models.EmitterManual || in.Emitter == models.EmitterPostProcessor {
			return Output{UpdatedItem: working, Terminal: true}
		}
		submit := shouldSubmit == nil || shouldSubmit(working)
		if in.PostProcessorEnabled && submit {
			return Output{UpdatedItem: working, NextService: worker.ServicePostProcessor}
		}
		return Output{UpdatedItem: working, Terminal: true}

	case models.StateFailed, models.StateUnknown:
		return Output{UpdatedItem: working, Terminal: true}

	case models.StateOngoing, models.StatePartiallyCompleted:
		var fanOut []*models.MediaItem
		for _, child := range in.Children {
			if child.LastState == models.StateCompleted {
				continue
			}
			if !child.IsReleased(in.Now) {
				continue
			}
			fanOut = append(fanOut, child)
		}
		return Output{UpdatedItem: working, ChildSubmissions: fanOut, Terminal: true}

	case models.StatePaused:
		return Output{UpdatedItem: working, Terminal: true}

	case models.StateUnreleased:
		return Output{UpdatedItem: working, Terminal: true}

	default:
		return Output{UpdatedItem: working, Terminal: true}
	}
}

// resolveWorking picks the item to route on and, per spec §4.6, merges
// incoming metadata into the existing row when the existing row has
// never been indexed. For a Season submitted by a content emitter, the
// caller is expected to have already substituted the parent Show as
// Incoming (seasons are never top-level requests); resolveWorking does
// not perform that substitution itself since it would require a store
// lookup this package doesn't have access to.
func resolveWorking(in Input) *models.MediaItem {
	if in.ExistingItem == nil {
		return in.Incoming
	}
	if in.ExistingItem.IndexedAt == nil && in.Incoming != nil && in.Incoming != in.ExistingItem {
		return mergeMetadata(in.ExistingItem, in.Incoming)
	}
	return in.ExistingItem
}

// mergeMetadata copies Incoming's enrichment fields onto a shallow copy
// of Existing, leaving identity fields (ID, ParentID, external ids,
// LastState, timing) untouched.
func mergeMetadata(existing, incoming *models.MediaItem) *models.MediaItem {
	merged := *existing
	if incoming.Title != "" {
		merged.Title = incoming.Title
	}
	if incoming.Year != 0 {
		merged.Year = incoming.Year
	}
	if len(incoming.Genres) > 0 {
		merged.Genres = incoming.Genres
	}
	if incoming.AiredAt != nil {
		merged.AiredAt = incoming.AiredAt
	}
	if incoming.ReleaseData != nil {
		merged.ReleaseData = incoming.ReleaseData
	}
	if len(incoming.Aliases) > 0 {
		merged.Aliases = incoming.Aliases
	}
	merged.IsAnime = merged.IsAnime || incoming.IsAnime
	return &merged
}
