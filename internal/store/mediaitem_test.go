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

func newMock(t *testing.T) (*MediaItemStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMediaItemStore(db), mock
}

func itemRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(strExpandCols()).
		AddRow(int64(1), "movie", nil, "tt1", nil, nil, "requested",
			nil, nil, nil, nil, 0,
			"Arrival", nil, nil, false, nil, nil, nil,
			nil, nil, now, now)
}

func strExpandCols() []string {
	return []string{"id", "type", "parent_id", "imdb_id", "tmdb_id", "tvdb_id", "last_state",
		"requested_at", "indexed_at", "scraped_at", "aired_at", "scraped_times",
		"title", "year", "genres", "is_anime", "aliases", "release_data", "active_stream",
		"streams", "blacklisted_streams", "created_at", "updated_at"}
}

func TestGetByID_Found(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + itemColumns + " FROM media_items WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(itemRow())

	item, err := s.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Arrival", item.Title)
	assert.Equal(t, models.ItemMovie, item.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + itemColumns + " FROM media_items WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(strExpandCols()))

	_, err := s.GetByID(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestCreate_DuplicateExternalID(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO media_items")).
		WillReturnError(errPGUnique)

	_, err := s.Create(context.Background(), &models.MediaItem{Type: models.ItemMovie, Title: "Arrival"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.IntegrityDuplicate)
}

func TestAddStream_SkipsBlacklisted(t *testing.T) {
	s, mock := newMock(t)
	rows := sqlmock.NewRows(strExpandCols()).
		AddRow(int64(1), "movie", nil, "tt1", nil, nil, "scraped",
			nil, nil, nil, nil, 1,
			"Arrival", nil, nil, false, nil, nil, nil,
			nil, "deadbeef", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + itemColumns + " FROM media_items WHERE id = $1")).
		WithArgs(int64(1)).WillReturnRows(rows)

	err := s.AddStream(context.Background(), 1, "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.LogicGate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreState_AllChildrenCompleted(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	childRows := sqlmock.NewRows(strExpandCols()).
		AddRow(int64(2), "season", int64(1), nil, nil, nil, "completed",
			nil, nil, nil, now.Add(-time.Hour), 0, "S1", nil, nil, false, nil, nil, nil, nil, nil, now, now).
		AddRow(int64(3), "season", int64(1), nil, nil, nil, "completed",
			nil, nil, nil, now.Add(-time.Hour), 0, "S2", nil, nil, false, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + itemColumns + " FROM media_items WHERE parent_id = $1 ORDER BY id")).
		WithArgs(int64(1)).WillReturnRows(childRows)

	state, err := s.StoreState(context.Background(), 1, now)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, state)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreState_NoneReleasedYetIsUnreleased(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	childRows := sqlmock.NewRows(strExpandCols()).
		AddRow(int64(2), "season", int64(1), nil, nil, nil, "unreleased",
			nil, nil, nil, now.Add(time.Hour), 0, "S1", nil, nil, false, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + itemColumns + " FROM media_items WHERE parent_id = $1 ORDER BY id")).
		WithArgs(int64(1)).WillReturnRows(childRows)

	state, err := s.StoreState(context.Background(), 1, now)
	require.NoError(t, err)
	assert.Equal(t, models.StateUnreleased, state)
}

var errPGUnique = &pgUniqueErr{}

type pgUniqueErr struct{}

func (e *pgUniqueErr) Error() string {
	return `pq: duplicate key value violates unique constraint "media_items_type_imdb_uniq"`
}
