package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
)

func newScheduleMock(t *testing.T) (*ScheduleStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewScheduleStore(db), mock
}

func TestSchedule_RejectsPast(t *testing.T) {
	s, mock := newScheduleMock(t)
	now := time.Now()

	ok, err := s.Schedule(context.Background(), now, 1, models.TaskMovieRelease, now.Add(-time.Minute), nil, "")
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, apperr.LogicGate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedule_DuplicateIsNotAnError(t *testing.T) {
	s, mock := newScheduleMock(t)
	now := time.Now()
	when := now.Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_tasks")).
		WillReturnError(&pgUniqueErr{})

	ok, err := s.Schedule(context.Background(), now, 1, models.TaskMovieRelease, when, nil, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedule_Success(t *testing.T) {
	s, mock := newScheduleMock(t)
	now := time.Now()
	when := now.Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_tasks")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ok, err := s.Schedule(context.Background(), now, 1, models.TaskMovieRelease, when, nil, "air date set")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDueTasks_ReturnsOrderedRows(t *testing.T) {
	s, mock := newScheduleMock(t)
	now := time.Now()
	cols := []string{"id", "item_id", "task_type", "scheduled_for", "status", "created_at", "executed_at", "offset_seconds", "reason"}
	rows := sqlmock.NewRows(cols).
		AddRow(int64(1), int64(10), "movie_release", now.Add(-time.Hour), "pending", now, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + taskColumns + " FROM scheduled_tasks")).
		WithArgs(string(models.TaskPending), now).
		WillReturnRows(rows)

	tasks, err := s.DueTasks(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskMovieRelease, tasks[0].TaskType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMark_NotFound(t *testing.T) {
	s, mock := newScheduleMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_tasks SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Mark(context.Background(), 404, models.TaskCompleted, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestHasFutureTask(t *testing.T) {
	s, mock := newScheduleMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM scheduled_tasks")).
		WithArgs(int64(10), string(models.TaskEpisodeRelease), string(models.TaskPending), now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := s.HasFutureTask(context.Background(), 10, models.TaskEpisodeRelease, now)
	require.NoError(t, err)
	assert.True(t, ok)
}
