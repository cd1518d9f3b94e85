// Package store is the persistence layer for spec §4.1 (C1 MediaItem
// Store) and §4.2 (C2 Schedule Store). It follows the teacher's
// `server/services/requests.go` shape: package-level-style methods on a
// thin wrapper over *sql.DB, sql.NullString/sql.NullTime for optional
// columns, slog on every mutation — generalized from the teacher's four
// separate movies/shows/seasons/episodes tables into one polymorphic
// media_items table per spec §3's tagged-sum data model.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelarr/internal/apperr"
	"reelarr/internal/shared/format"
	"reelarr/internal/models"
)

// MediaItemStore is C1: lookup, existence, cascade-delete, and the
// retry-library query over the media_items table.
type MediaItemStore struct {
	db *sql.DB
}

func NewMediaItemStore(db *sql.DB) *MediaItemStore {
	return &MediaItemStore{db: db}
}

type row struct {
	id                                     int64
	itemType                               string
	parentID                               sql.NullInt64
	imdbID, tmdbID, tvdbID                 sql.NullString
	lastState                              string
	requestedAt, indexedAt, scrapedAt, airedAt sql.NullTime
	scrapedTimes                           int
	title                                  string
	year                                   sql.NullInt64
	genres                                 sql.NullString
	isAnime                                bool
	aliases, releaseData, activeStream     sql.NullString
	streams, blacklistedStreams            sql.NullString
	createdAt, updatedAt                   time.Time
}

const itemColumns = `id, type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state,
	requested_at, indexed_at, scraped_at, aired_at, scraped_times,
	title, year, genres, is_anime, aliases, release_data, active_stream,
	streams, blacklisted_streams, created_at, updated_at`

func scanItem(s interface{ Scan(...any) error }) (*models.MediaItem, error) {
	var r row
	err := s.Scan(&r.id, &r.itemType, &r.parentID, &r.imdbID, &r.tmdbID, &r.tvdbID, &r.lastState,
		&r.requestedAt, &r.indexedAt, &r.scrapedAt, &r.airedAt, &r.scrapedTimes,
		&r.title, &r.year, &r.genres, &r.isAnime, &r.aliases, &r.releaseData, &r.activeStream,
		&r.streams, &r.blacklistedStreams, &r.createdAt, &r.updatedAt)
	if err != nil {
		return nil, err
	}
	return rowToItem(r), nil
}

func rowToItem(r row) *models.MediaItem {
	m := &models.MediaItem{
		ID:            r.id,
		Type:          models.ItemType(r.itemType),
		LastState:     models.State(r.lastState),
		ScrapedTimes:  r.scrapedTimes,
		Title:         r.title,
		IsAnime:       r.isAnime,
		CreatedAt:     r.createdAt,
		UpdatedAt:     r.updatedAt,
	}
	if r.parentID.Valid {
		m.ParentID = &r.parentID.Int64
	}
	if r.imdbID.Valid {
		m.IMDBID = &r.imdbID.String
	}
	if r.tmdbID.Valid {
		m.TMDBID = &r.tmdbID.String
	}
	if r.tvdbID.Valid {
		m.TVDBID = &r.tvdbID.String
	}
	if r.requestedAt.Valid {
		m.RequestedAt = &r.requestedAt.Time
	}
	if r.indexedAt.Valid {
		m.IndexedAt = &r.indexedAt.Time
	}
	if r.scrapedAt.Valid {
		m.ScrapedAt = &r.scrapedAt.Time
	}
	if r.airedAt.Valid {
		m.AiredAt = &r.airedAt.Time
	}
	if r.year.Valid {
		m.Year = int(r.year.Int64)
	}
	if r.genres.Valid && r.genres.String != "" {
		m.Genres = strings.Split(r.genres.String, ",")
	}
	if r.aliases.Valid && r.aliases.String != "" {
		_ = json.Unmarshal([]byte(r.aliases.String), &m.Aliases)
	}
	if r.releaseData.Valid && r.releaseData.String != "" {
		var rd models.ReleaseData
		if err := json.Unmarshal([]byte(r.releaseData.String), &rd); err == nil {
			m.ReleaseData = &rd
		}
	}
	if r.activeStream.Valid && r.activeStream.String != "" {
		var as models.StreamRef
		if err := json.Unmarshal([]byte(r.activeStream.String), &as); err == nil {
			m.ActiveStream = &as
		}
	}
	if r.streams.Valid && r.streams.String != "" {
		m.Streams = strings.Split(r.streams.String, ",")
	}
	if r.blacklistedStreams.Valid && r.blacklistedStreams.String != "" {
		m.BlacklistedStreams = strings.Split(r.blacklistedStreams.String, ",")
	}
	return m
}

// GetByID looks up a MediaItem by internal id.
func (s *MediaItemStore) GetByID(ctx context.Context, id int64) (*models.MediaItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM media_items WHERE id = $1", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media item %d: %w", id, apperr.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media item %d: %w", id, err)
	}
	return item, nil
}

// GetByExternalID looks up a MediaItem by whichever of imdb/tmdb/tvdb is
// non-empty, scoped to itemType (spec §4.1, §3 uniqueness invariant).
func (s *MediaItemStore) GetByExternalID(ctx context.Context, itemType models.ItemType, imdbID, tmdbID, tvdbID string) (*models.MediaItem, error) {
	query := "SELECT " + itemColumns + " FROM media_items WHERE type = $1 AND ("
	args := []any{string(itemType)}
	clauses := []string{}
	if imdbID != "" {
		args = append(args, imdbID)
		clauses = append(clauses, fmt.Sprintf("imdb_id = $%d", len(args)))
	}
	if tmdbID != "" {
		args = append(args, tmdbID)
		clauses = append(clauses, fmt.Sprintf("tmdb_id = $%d", len(args)))
	}
	if tvdbID != "" {
		args = append(args, tvdbID)
		clauses = append(clauses, fmt.Sprintf("tvdb_id = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("get by external id: %w", apperr.NotFound)
	}
	query += strings.Join(clauses, " OR ") + ") LIMIT 1"

	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media item by external id: %w", apperr.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media item by external id: %w", err)
	}
	return item, nil
}

// ExistsByExternalID is the existence-check variant of GetByExternalID
// used by the event manager's content-only dedupe path (spec §4.7).
func (s *MediaItemStore) ExistsByExternalID(ctx context.Context, itemType models.ItemType, imdbID, tmdbID, tvdbID string) (bool, error) {
	_, err := s.GetByExternalID(ctx, itemType, imdbID, tmdbID, tvdbID)
	if errors.Is(err, apperr.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Children returns the direct children of parentID (Show->Season or
// Season->Episode), ordered by id. Orphans without a parent are simply
// never returned by this call, matching spec §3's invariant that they
// are "indexed only via parent hierarchy when present".
func (s *MediaItemStore) Children(ctx context.Context, parentID int64) ([]*models.MediaItem, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM media_items WHERE parent_id = $1 ORDER BY id", parentID)
	if err != nil {
		return nil, fmt.Errorf("list children of %d: %w", parentID, err)
	}
	defer rows.Close()

	var out []*models.MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetItemIDs returns (selfID, descendantIDs) for parent/child dedupe
// (spec §4.1 get_item_ids): a breadth-first walk down the parent_id
// chain rather than a recursive CTE, kept simple because the tree depth
// is bounded (Show -> Season -> Episode, at most 3 levels).
func (s *MediaItemStore) GetItemIDs(ctx context.Context, id int64) (selfID int64, descendantIDs []int64, err error) {
	selfID = id
	frontier := []int64{id}
	for len(frontier) > 0 {
		var next []int64
		for _, pid := range frontier {
			children, err := s.Children(ctx, pid)
			if err != nil {
				return 0, nil, err
			}
			for _, c := range children {
				descendantIDs = append(descendantIDs, c.ID)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return selfID, descendantIDs, nil
}

// Create inserts a new MediaItem and returns its assigned id. Unique
// constraint violations on (type, external id) are translated to
// apperr.IntegrityDuplicate per spec §7.
func (s *MediaItemStore) Create(ctx context.Context, m *models.MediaItem) (int64, error) {
	aliasesJSON, releaseJSON, activeJSON, err := marshalOptional(m)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO media_items (type, parent_id, imdb_id, tmdb_id, tvdb_id, last_state,
			requested_at, title, year, genres, is_anime, aliases, release_data, active_stream,
			streams, blacklisted_streams, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)
		RETURNING id`,
		string(m.Type), nullableInt64(m.ParentID), nullableString(m.IMDBID), nullableString(m.TMDBID), nullableString(m.TVDBID),
		string(m.LastState), m.RequestedAt, m.Title, nullableIntToSQL(m.Year), strings.Join(m.Genres, ","), m.IsAnime,
		aliasesJSON, releaseJSON, activeJSON, strings.Join(m.Streams, ","), strings.Join(m.BlacklistedStreams, ","),
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("create media item %q: %w", m.Title, apperr.IntegrityDuplicate)
	}
	if err != nil {
		return 0, fmt.Errorf("create media item %q: %w", m.Title, err)
	}
	slog.Info("created media item", "id", id, "type", m.Type, "title", format.Preview(m.Title, 80))
	return id, nil
}

// UpdateMetadata persists the enrichment fields of item onto row id,
// used by the event manager after statemachine.ProcessEvent merges
// freshly fetched metadata into a not-yet-indexed existing row.
func (s *MediaItemStore) UpdateMetadata(ctx context.Context, id int64, item *models.MediaItem) error {
	aliasesJSON, releaseJSON, _, err := marshalOptional(item)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE media_items SET title = $1, year = $2, genres = $3, is_anime = $4,
			aliases = $5, release_data = $6, aired_at = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8`,
		item.Title, nullableIntToSQL(item.Year), strings.Join(item.Genres, ","), item.IsAnime,
		aliasesJSON, releaseJSON, item.AiredAt, id)
	if err != nil {
		return fmt.Errorf("update metadata %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// UpdateState sets last_state only; indexed_at and scraped_at are
// stamped by MarkIndexed and RecordScrapeAttempt (spec §3 "Timing").
func (s *MediaItemStore) UpdateState(ctx context.Context, id int64, state models.State) error {
	res, err := s.db.ExecContext(ctx, "UPDATE media_items SET last_state = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", string(state), id)
	if err != nil {
		return fmt.Errorf("update state of %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// MarkIndexed stamps indexed_at and merges enrichment fields onto the
// row in one statement.
func (s *MediaItemStore) MarkIndexed(ctx context.Context, id int64, title string, year int, genres []string, airedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE media_items SET last_state = $1, indexed_at = CURRENT_TIMESTAMP,
			title = $2, year = $3, genres = $4, aired_at = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6`,
		string(models.StateIndexed), title, year, strings.Join(genres, ","), airedAt, id)
	if err != nil {
		return fmt.Errorf("mark indexed %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// RecordScrapeAttempt increments scraped_times and stamps scraped_at,
// used by the scrape gate's backoff window regardless of whether the
// attempt produced a usable stream (spec §4.9).
func (s *MediaItemStore) RecordScrapeAttempt(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE media_items SET scraped_times = scraped_times + 1, scraped_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record scrape attempt %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// AddStream records a candidate stream infohash against an item.
func (s *MediaItemStore) AddStream(ctx context.Context, id int64, infohash string) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if containsStr(item.BlacklistedStreams, infohash) {
		return fmt.Errorf("stream %s blacklisted on item %d: %w", infohash, id, apperr.LogicGate)
	}
	if containsStr(item.Streams, infohash) {
		return nil
	}
	item.Streams = append(item.Streams, infohash)
	return s.persistStreamLists(ctx, id, item.Streams, item.BlacklistedStreams)
}

// BlacklistStream moves a stream from the candidate set to the
// blacklist, maintaining the spec §3 invariant streams ∩ blacklisted = ∅.
func (s *MediaItemStore) BlacklistStream(ctx context.Context, id int64, infohash string) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	item.Streams = removeStr(item.Streams, infohash)
	if !containsStr(item.BlacklistedStreams, infohash) {
		item.BlacklistedStreams = append(item.BlacklistedStreams, infohash)
	}
	return s.persistStreamLists(ctx, id, item.Streams, item.BlacklistedStreams)
}

// UnblacklistStream reverses BlacklistStream (admin action, spec §6 CLI
// surface "unblacklist stream").
func (s *MediaItemStore) UnblacklistStream(ctx context.Context, id int64, infohash string) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	item.BlacklistedStreams = removeStr(item.BlacklistedStreams, infohash)
	if !containsStr(item.Streams, infohash) {
		item.Streams = append(item.Streams, infohash)
	}
	return s.persistStreamLists(ctx, id, item.Streams, item.BlacklistedStreams)
}

// ResetStreams clears both stream sets (spec §6 "reset streams").
func (s *MediaItemStore) ResetStreams(ctx context.Context, id int64) error {
	return s.persistStreamLists(ctx, id, nil, nil)
}

func (s *MediaItemStore) persistStreamLists(ctx context.Context, id int64, streams, blacklisted []string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE media_items SET streams = $1, blacklisted_streams = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`,
		strings.Join(streams, ","), strings.Join(blacklisted, ","), id)
	if err != nil {
		return fmt.Errorf("persist stream lists %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// SetActiveStream records the downloader's chosen stream and resolved
// file list (spec §3 "Acquisition").
func (s *MediaItemStore) SetActiveStream(ctx context.Context, id int64, ref *models.StreamRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal active stream %d: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE media_items SET active_stream = $1, last_state = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`,
		string(data), string(models.StateDownloaded), id)
	if err != nil {
		return fmt.Errorf("set active stream %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// SetFilesystemEntry records the symlinker's output path and marks the
// item Symlinked (spec §3 "Filesystem").
func (s *MediaItemStore) SetFilesystemEntry(ctx context.Context, id int64, entry *models.FilesystemEntry) (int64, error) {
	var fsID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO filesystem_entries (path, file_size, is_directory, available_in_vfs, entry_kind, media_item_id)
		VALUES ($1,$2,$3,TRUE,'media',$4)
		ON CONFLICT (path) DO UPDATE SET file_size = EXCLUDED.file_size, available_in_vfs = TRUE, updated_at = CURRENT_TIMESTAMP
		RETURNING id`,
		entry.Path, entry.FileSize, entry.IsDirectory, id,
	).Scan(&fsID)
	if err != nil {
		return 0, fmt.Errorf("set filesystem entry for %d: %w", id, err)
	}
	if err := s.UpdateState(ctx, id, models.StateSymlinked); err != nil {
		return 0, err
	}
	return fsID, nil
}

// Pause / Unpause implement spec §4.6's "Paused: terminal until explicit
// unpause". Pause keeps the previous last_state in the settings
// key/value row `paused:<id>` rather than in a new column on every item;
// Unpause restores that state (Requested when no row is found) and
// deletes the row.
func (s *MediaItemStore) Pause(ctx context.Context, id int64) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.LastState == models.StatePaused {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`,
		pausedKey(id), string(item.LastState))
	if err != nil {
		return fmt.Errorf("remember pre-pause state of %d: %w", id, err)
	}
	return s.UpdateState(ctx, id, models.StatePaused)
}

func (s *MediaItemStore) Unpause(ctx context.Context, id int64) error {
	var prior sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = $1", pausedKey(id)).Scan(&prior)
	restoreState := models.StateRequested
	if err == nil && prior.Valid && prior.String != "" {
		restoreState = models.State(prior.String)
	}
	if err := s.UpdateState(ctx, id, restoreState); err != nil {
		return err
	}
	_, _ = s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = $1", pausedKey(id))
	return nil
}

func pausedKey(id int64) string { return fmt.Sprintf("paused:%d", id) }

// Delete cascades to children, filesystem entries, subtitles, and stream
// relations via ON DELETE CASCADE foreign keys (spec §4.1).
func (s *MediaItemStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM media_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete media item %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// RetryLibraryIDs returns ids of movies/shows whose last_state is not
// Completed, for the scheduler's retry-library sweep (spec §4.1, §4.8).
func (s *MediaItemStore) RetryLibraryIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM media_items
		WHERE type IN ('movie','show') AND last_state != $1`, string(models.StateCompleted))
	if err != nil {
		return nil, fmt.Errorf("retry library query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpcomingByAiredAt returns not-yet-completed items of itemType whose
// aired_at is in the future, for the ongoing-release monitor (spec §4.8).
func (s *MediaItemStore) UpcomingByAiredAt(ctx context.Context, itemType models.ItemType, now time.Time) ([]*models.MediaItem, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+` FROM media_items
		WHERE type = $1 AND aired_at IS NOT NULL AND aired_at > $2 AND last_state != $3`,
		string(itemType), now, string(models.StateCompleted))
	if err != nil {
		return nil, fmt.Errorf("upcoming by aired_at: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// InStates returns items of itemType whose last_state is one of states.
func (s *MediaItemStore) InStates(ctx context.Context, itemType models.ItemType, states ...models.State) ([]*models.MediaItem, error) {
	placeholders := make([]string, len(states))
	args := []any{string(itemType)}
	for i, st := range states {
		args = append(args, string(st))
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := "SELECT " + itemColumns + " FROM media_items WHERE type = $1 AND last_state IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("items in states: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// MoviesWithoutAiredAt returns movies with no aired_at value, in one of
// the given states (spec §4.8 "Movies with no aired_at in
// unknown/indexed/requested states").
func (s *MediaItemStore) MoviesWithoutAiredAt(ctx context.Context, states ...models.State) ([]*models.MediaItem, error) {
	placeholders := make([]string, len(states))
	args := []any{}
	for i, st := range states {
		args = append(args, string(st))
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := "SELECT " + itemColumns + " FROM media_items WHERE type = 'movie' AND aired_at IS NULL AND last_state IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("movies without aired_at: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// StoreState computes the derived state of a Show/Season from its
// children without recursing into ancestors (spec §4.1 store_state,
// §3 derived-state invariant). Callers are responsible for propagating
// the result up to any further ancestor.
func (s *MediaItemStore) StoreState(ctx context.Context, id int64, now time.Time) (models.State, error) {
	children, err := s.Children(ctx, id)
	if err != nil {
		return "", err
	}
	if len(children) == 0 {
		parent, err := s.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return parent.LastState, nil
	}

	allCompleted, anyCompleted, anyReleased, anyFutureAir := true, false, false, false
	for _, c := range children {
		if c.LastState == models.StateCompleted {
			anyCompleted = true
		} else {
			allCompleted = false
		}
		if c.IsReleased(now) {
			anyReleased = true
		} else if c.AiredAt != nil {
			anyFutureAir = true
		}
	}

	switch {
	case allCompleted:
		return models.StateCompleted, nil
	case anyCompleted:
		return models.StatePartiallyCompleted, nil
	case !anyReleased:
		return models.StateUnreleased, nil
	case anyFutureAir:
		return models.StateOngoing, nil
	default:
		return models.StatePartiallyCompleted, nil
	}
}

func scanAll(rows *sql.Rows) ([]*models.MediaItem, error) {
	var out []*models.MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("media item %d: %w", id, apperr.NotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalOptional(m *models.MediaItem) (aliases, release, active sql.NullString, err error) {
	if m.Aliases != nil {
		b, e := json.Marshal(m.Aliases)
		if e != nil {
			return aliases, release, active, fmt.Errorf("marshal aliases: %w", e)
		}
		aliases = sql.NullString{String: string(b), Valid: true}
	}
	if m.ReleaseData != nil {
		b, e := json.Marshal(m.ReleaseData)
		if e != nil {
			return aliases, release, active, fmt.Errorf("marshal release data: %w", e)
		}
		release = sql.NullString{String: string(b), Valid: true}
	}
	if m.ActiveStream != nil {
		b, e := json.Marshal(m.ActiveStream)
		if e != nil {
			return aliases, release, active, fmt.Errorf("marshal active stream: %w", e)
		}
		active = sql.NullString{String: string(b), Valid: true}
	}
	return aliases, release, active, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullableString(v *string) sql.NullString {
	if v == nil || *v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullableIntToSQL(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func removeStr(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
