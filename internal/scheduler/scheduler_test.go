package scheduler

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/internal/eventmanager"
	"reelarr/internal/models"
	"reelarr/internal/queue"
	"reelarr/internal/store"
	"reelarr/internal/worker"
)

var itemCols = []string{"id", "type", "parent_id", "imdb_id", "tmdb_id", "tvdb_id", "last_state",
	"requested_at", "indexed_at", "scraped_at", "aired_at", "scraped_times",
	"title", "year", "genres", "is_anime", "aliases", "release_data", "active_stream",
	"streams", "blacklisted_streams", "created_at", "updated_at"}

var taskCols = []string{"id", "item_id", "task_type", "scheduled_for", "status", "created_at",
	"executed_at", "offset_seconds", "reason"}

func newTestScheduler(t *testing.T) (*Scheduler, sqlmock.Sqlmock, *clockwork.FakeClock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	items := store.NewMediaItemStore(db)
	tasks := store.NewScheduleStore(db)
	clock := clockwork.NewFakeClock()
	events := eventmanager.New(eventmanager.Config{
		Items: items,
		Queue: queue.New(),
		Pool:  worker.NewPool(),
	})
	sched := New(Config{
		Items: items,
		Tasks: tasks,
		Events: events,
		Clock:  clock,
	})
	return sched, mock, clock
}

func noChildrenRows() *sqlmock.Rows {
	return sqlmock.NewRows(itemCols)
}

func itemRow(id int64, itemType models.ItemType, state models.State) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(itemCols).
		AddRow(id, string(itemType), nil, nil, nil, nil, string(state),
			nil, nil, nil, nil, 0,
			"Arrival", nil, nil, false, nil, nil, nil,
			nil, nil, now, now)
}

func TestSweepRetryLibrary_EnqueuesEventPerID(t *testing.T) {
	sched, mock, _ := newTestScheduler(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM media_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(1, models.ItemMovie, models.StateFailed))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(2, models.ItemMovie, models.StateFailed))

	sched.sweepRetryLibrary(context.Background())

	assert.Equal(t, 2, sched.events.QueueLen())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTasks_ReindexTaskInvokesIndexerAndMarksCompleted(t *testing.T) {
	sched, mock, clock := newTestScheduler(t)
	now := clock.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, item_id, task_type")).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(10), int64(1), string(models.TaskReindexShow), now, string(models.TaskPending), now, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(1, models.ItemShow, models.StateOngoing))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_tasks")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var indexed int64
	sched.index = func(_ context.Context, itemID int64) error {
		indexed = itemID
		return nil
	}

	sched.processDueTasks(context.Background())

	assert.Equal(t, int64(1), indexed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTasks_MissingItemMarksFailed(t *testing.T) {
	sched, mock, clock := newTestScheduler(t)
	now := clock.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, item_id, task_type")).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(11), int64(99), string(models.TaskEpisodeRelease), now, string(models.TaskPending), now, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_tasks")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sched.processDueTasks(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessDueTasks_NonReindexEnqueuesEventWhenNotCompleted(t *testing.T) {
	sched, mock, clock := newTestScheduler(t)
	now := clock.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, item_id, task_type")).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(12), int64(5), string(models.TaskEpisodeRelease), now, string(models.TaskPending), now, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(5, models.ItemEpisode, models.StateUnreleased))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(noChildrenRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state")).
		WillReturnRows(itemRow(5, models.ItemEpisode, models.StateUnreleased))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_tasks")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sched.processDueTasks(context.Background())

	assert.Equal(t, 1, sched.events.QueueLen())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComputeNextAirDatetime_PrefersExplicitNextAired(t *testing.T) {
	ref := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	rd := &models.ReleaseData{NextAired: "2026-08-03", AirsTime: "20:00", Timezone: "UTC"}

	got, ok := computeNextAirDatetime(rd, ref)

	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.August, 3, 20, 0, 0, 0, time.UTC), got)
}

func TestComputeNextAirDatetime_WalksWeekdaysWhenNoExplicitDate(t *testing.T) {
	ref := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC) // Saturday
	rd := &models.ReleaseData{AirsDays: map[string]bool{"monday": true}, AirsTime: "09:00"}

	got, ok := computeNextAirDatetime(rd, ref)

	require.True(t, ok)
	assert.Equal(t, time.August, got.Month())
	assert.Equal(t, 3, got.Day())
	assert.Equal(t, 9, got.Hour())
}

func TestComputeNextAirDatetime_NoHintsReturnsFalse(t *testing.T) {
	ref := time.Now()
	_, ok := computeNextAirDatetime(&models.ReleaseData{}, ref)
	assert.False(t, ok)
}

func TestComputeNextAirDatetime_NilReleaseDataReturnsFalse(t *testing.T) {
	_, ok := computeNextAirDatetime(nil, time.Now())
	assert.False(t, ok)
}
