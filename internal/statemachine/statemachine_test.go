package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"reelarr/internal/models"
	"reelarr/internal/worker"
)

func TestProcessEvent_NewRequestRoutesToIndexer(t *testing.T) {
	incoming := &models.MediaItem{Title: "Arrival", LastState: models.StateRequested}
	out := ProcessEvent(Input{Incoming: incoming, Emitter: models.EmitterManual, Now: time.Now()}, nil, nil)

	assert.Equal(t, worker.ServiceIndexer, out.NextService)
	assert.False(t, out.Terminal)
}

func TestProcessEvent_IndexedGatedByCanWeScrape(t *testing.T) {
	item := &models.MediaItem{LastState: models.StateIndexed}
	now := time.Now()

	closedGate := func(*models.MediaItem, time.Time) bool { return false }
	out := ProcessEvent(Input{ExistingItem: item, Incoming: item, Now: now}, closedGate, nil)
	assert.True(t, out.Terminal)
	assert.Empty(t, out.NextService)

	openGate := func(*models.MediaItem, time.Time) bool { return true }
	out = ProcessEvent(Input{ExistingItem: item, Incoming: item, Now: now}, openGate, nil)
	assert.Equal(t, worker.ServiceScraper, out.NextService)
}

func TestProcessEvent_LinearPipelineStates(t *testing.T) {
	cases := []struct {
		state   models.State
		service string
	}{
		{models.StateScraped, worker.ServiceDownloader},
		{models.StateDownloaded, worker.ServiceSymlinker},
		{models.StateSymlinked, worker.ServiceUpdater},
	}
	for _, tc := range cases {
		item := &models.MediaItem{LastState: tc.state}
		out := ProcessEvent(Input{ExistingItem: item, Incoming: item, Now: time.Now()}, nil, nil)
		assert.Equal(t, tc.service, out.NextService, "state %s", tc.state)
		assert.False(t, out.Terminal)
	}
}

func TestProcessEvent_CompletedSubmitsToPostProcessorWhenEnabled(t *testing.T) {
	item := &models.MediaItem{LastState: models.StateCompleted}
	out := ProcessEvent(Input{
		ExistingItem:         item,
		Incoming:             item,
		Emitter:              models.EmitterUpdater,
		PostProcessorEnabled: true,
		Now:                  time.Now(),
	}, nil, nil)

	assert.Equal(t, worker.ServicePostProcessor, out.NextService)
}

func TestProcessEvent_CompletedNeverReSubmitsFromManualOrPostProcessor(t *testing.T) {
	item := &models.MediaItem{LastState: models.StateCompleted}
	for _, emitter := range []models.Emitter{models.EmitterManual, models.EmitterPostProcessor} {
		out := ProcessEvent(Input{
			ExistingItem:         item,
			Incoming:             item,
			Emitter:              emitter,
			PostProcessorEnabled: true,
			Now:                  time.Now(),
		}, nil, nil)
		assert.True(t, out.Terminal, "emitter %s should be terminal", emitter)
	}
}

func TestProcessEvent_CompletedTerminalWhenPostProcessorDisabled(t *testing.T) {
	item := &models.MediaItem{LastState: models.StateCompleted}
	out := ProcessEvent(Input{ExistingItem: item, Incoming: item, Emitter: models.EmitterUpdater, Now: time.Now()}, nil, nil)
	assert.True(t, out.Terminal)
}

func TestProcessEvent_FailedAndUnknownAreTerminal(t *testing.T) {
	for _, state := range []models.State{models.StateFailed, models.StateUnknown} {
		item := &models.MediaItem{LastState: state}
		out := ProcessEvent(Input{ExistingItem: item, Incoming: item, Now: time.Now()}, nil, nil)
		assert.True(t, out.Terminal)
	}
}

func TestProcessEvent_PausedAndUnreleasedAreTerminal(t *testing.T) {
	for _, state := range []models.State{models.StatePaused, models.StateUnreleased} {
		item := &models.MediaItem{LastState: state}
		out := ProcessEvent(Input{ExistingItem: item, Incoming: item, Now: time.Now()}, nil, nil)
		assert.True(t, out.Terminal)
	}
}

func TestProcessEvent_OngoingFansOutToReleasedNonCompletedChildren(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	show := &models.MediaItem{Type: models.ItemShow, LastState: models.StateOngoing}
	releasedPending := &models.MediaItem{ID: 1, LastState: models.StateIndexed, AiredAt: &past}
	completed := &models.MediaItem{ID: 2, LastState: models.StateCompleted, AiredAt: &past}
	notYetAired := &models.MediaItem{ID: 3, LastState: models.StateUnreleased, AiredAt: &future}

	out := ProcessEvent(Input{
		ExistingItem: show,
		Incoming:     show,
		Children:     []*models.MediaItem{releasedPending, completed, notYetAired},
		Now:          now,
	}, nil, nil)

	assert.True(t, out.Terminal)
	assert.Len(t, out.ChildSubmissions, 1)
	assert.Equal(t, int64(1), out.ChildSubmissions[0].ID)
}

func TestProcessEvent_MergesMetadataWhenNeverIndexed(t *testing.T) {
	existing := &models.MediaItem{ID: 5, Title: "Old Title", LastState: models.StateRequested}
	incoming := &models.MediaItem{Title: "New Title", Year: 2024, Genres: []string{"Drama"}}

	out := ProcessEvent(Input{ExistingItem: existing, Incoming: incoming, Now: time.Now()}, nil, nil)

	assert.Equal(t, int64(5), out.UpdatedItem.ID)
	assert.Equal(t, "New Title", out.UpdatedItem.Title)
	assert.Equal(t, 2024, out.UpdatedItem.Year)
}

func TestProcessEvent_NoOpReentryReturnsSameItemPointer(t *testing.T) {
	existing := &models.MediaItem{ID: 5, Title: "Old Title", LastState: models.StateRequested}

	out := ProcessEvent(Input{ExistingItem: existing, Incoming: existing, Now: time.Now()}, nil, nil)

	assert.Same(t, existing, out.UpdatedItem, "a pure re-entry with no fresh metadata should not allocate a merged copy")
}

func TestProcessEvent_DoesNotMergeOnceIndexed(t *testing.T) {
	indexedAt := time.Now().Add(-time.Hour)
	existing := &models.MediaItem{ID: 5, Title: "Old Title", LastState: models.StateIndexed, IndexedAt: &indexedAt}
	incoming := &models.MediaItem{Title: "Stale Refetch"}

	out := ProcessEvent(Input{ExistingItem: existing, Incoming: incoming, Now: time.Now()}, func(*models.MediaItem, time.Time) bool { return true }, nil)

	assert.Equal(t, "Old Title", out.UpdatedItem.Title)
}
