package eventmanager

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
	"reelarr/internal/queue"
	"reelarr/internal/store"
	"reelarr/internal/worker"
)

var itemCols = []string{"id", "type", "parent_id", "imdb_id", "tmdb_id", "tvdb_id", "last_state",
	"requested_at", "indexed_at", "scraped_at", "aired_at", "scraped_times",
	"title", "year", "genres", "is_anime", "aliases", "release_data", "active_stream",
	"streams", "blacklisted_streams", "created_at", "updated_at"}

func newTestManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	items := store.NewMediaItemStore(db)
	pool := worker.NewPool()
	mgr := New(Config{
		Items: items,
		Queue: queue.New(),
		Pool:  pool,
	})
	return mgr, mock
}

func noChildrenRows() *sqlmock.Rows {
	return sqlmock.NewRows(itemCols)
}

func itemRow(id int64, state models.State, parentID *int64) *sqlmock.Rows {
	now := time.Now()
	var pid any
	if parentID != nil {
		pid = *parentID
	}
	return sqlmock.NewRows(itemCols).
		AddRow(id, "movie", pid, nil, nil, nil, string(state),
			nil, nil, nil, nil, 0,
			"Arrival", nil, nil, false, nil, nil, nil,
			nil, nil, now, now)
}

func TestAddEvent_ItemWithNoParentIsQueued(t *testing.T) {
	mgr, mock := newTestManager(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(1, models.StateRequested, nil))

	itemID := int64(1)
	event := &models.Event{ID: uuid.NewString(), ItemID: &itemID, RunAt: time.Now()}

	require.NoError(t, mgr.AddEvent(context.Background(), event))
	assert.Equal(t, 1, mgr.queue.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddEvent_RejectsItemAlreadyInFlight(t *testing.T) {
	mgr, mock := newTestManager(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(1, models.StateRequested, nil))

	itemID := int64(1)
	first := &models.Event{ID: uuid.NewString(), ItemID: &itemID, RunAt: time.Now()}
	require.NoError(t, mgr.AddEvent(context.Background(), first))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())

	second := &models.Event{ID: uuid.NewString(), ItemID: &itemID, RunAt: time.Now()}
	err := mgr.AddEvent(context.Background(), second)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.LogicGate)
	assert.Equal(t, 1, mgr.queue.Len())
}

func TestAddEvent_RejectsWhenAncestorPaused(t *testing.T) {
	mgr, mock := newTestManager(t)
	parentID := int64(2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(1, models.StateRequested, &parentID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(2, models.StatePaused, nil))

	itemID := int64(1)
	event := &models.Event{ID: uuid.NewString(), ItemID: &itemID, RunAt: time.Now()}

	err := mgr.AddEvent(context.Background(), event)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.LogicGate)
	assert.Equal(t, 0, mgr.queue.Len())
}

func TestAddEvent_ContentDedupeByExternalID(t *testing.T) {
	mgr, _ := newTestManager(t)
	imdb := "tt123"

	first := &models.Event{ID: uuid.NewString(), ContentItem: &models.MediaItem{IMDBID: &imdb, Title: "Dune"}, RunAt: time.Now()}
	require.NoError(t, mgr.AddEvent(context.Background(), first))

	second := &models.Event{ID: uuid.NewString(), ContentItem: &models.MediaItem{IMDBID: &imdb, Title: "Dune (dup)"}, RunAt: time.Now()}
	err := mgr.AddEvent(context.Background(), second)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.LogicGate)
}

func TestDispatch_RequestedSubmitsToIndexer(t *testing.T) {
	mgr, mock := newTestManager(t)

	var submitted *models.Event
	done := make(chan struct{})
	indexer := worker.New(worker.ServiceIndexer, 1, func(ctx context.Context, event *models.Event) ([]models.Result, error) {
		submitted = event
		close(done)
		return nil, nil
	}, mgr.CompletionHandler(worker.ServiceIndexer))
	mgr.pool.Register(indexer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = indexer.Serve(ctx) }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(1, models.StateRequested, nil))

	event := &models.Event{ID: uuid.NewString(), ItemID: int64Ptr(1), RunAt: time.Now(), ItemState: models.StateRequested}
	mgr.dispatch(ctx, event)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for indexer submission")
	}
	require.NotNil(t, submitted)
	assert.Equal(t, event.ID, submitted.ID)
}

func TestDispatch_TerminalStateClearsInFlightWithoutSubmitting(t *testing.T) {
	mgr, mock := newTestManager(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(1, models.StateFailed, nil))

	itemID := int64(1)
	event := &models.Event{ID: uuid.NewString(), ItemID: &itemID, RunAt: time.Now()}
	mgr.mu.Lock()
	mgr.inFlightByItem[itemID] = event.ID
	mgr.mu.Unlock()

	mgr.dispatch(context.Background(), event)

	mgr.mu.Lock()
	_, stillInFlight := mgr.inFlightByItem[itemID]
	mgr.mu.Unlock()
	assert.False(t, stillInFlight)
}

func TestCancelJob_CancelsRunningAndDropsQueuedDescendant(t *testing.T) {
	mgr, mock := newTestManager(t)

	childID := int64(2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(childID, "episode", int64(1), nil, nil, nil,
			string(models.StateRequested), nil, nil, nil, nil, 0, "Ep1", nil, nil, false, nil, nil, nil, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())

	parentEventID := uuid.NewString()
	childEventID := uuid.NewString()
	mgr.mu.Lock()
	mgr.inFlightByItem[1] = parentEventID
	mgr.inFlightByItem[childID] = childEventID
	mgr.mu.Unlock()
	mgr.queue.Push(&models.Event{ID: childEventID, ItemID: &childID, RunAt: time.Now()})

	require.NoError(t, mgr.CancelJob(context.Background(), 1))

	mgr.mu.Lock()
	_, parentStill := mgr.inFlightByItem[1]
	_, childStill := mgr.inFlightByItem[childID]
	mgr.mu.Unlock()
	assert.False(t, parentStill)
	assert.False(t, childStill)
	assert.Equal(t, 0, mgr.queue.Len())
}

func TestCompletionHandler_ReEnqueuesResultAsNewEvent(t *testing.T) {
	mgr, mock := newTestManager(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(9, models.StateScraped, nil))

	handler := mgr.CompletionHandler(worker.ServiceIndexer)
	handler(&models.Event{ID: uuid.NewString()}, []models.Result{{ItemID: 9, RunAt: time.Now()}}, nil)

	assert.Equal(t, 1, mgr.queue.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionHandler_IgnoresFailedCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	handler := mgr.CompletionHandler(worker.ServiceDownloader)
	handler(&models.Event{ID: uuid.NewString()}, nil, errors.New("boom"))
	assert.Equal(t, 0, mgr.queue.Len())
}

func int64Ptr(v int64) *int64 { return &v }
