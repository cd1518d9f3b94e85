package database

import (
	"database/sql"
	"fmt"
)

// InitSchema creates every table the core and its stores need. Like the
// teacher's InitSchema, this is a single inline CREATE TABLE IF NOT
// EXISTS block rather than a migration framework: spec §1 explicitly
// places "database migration tooling" out of core scope, so the ambient
// concern is carried in the teacher's own minimal style instead of
// pulling in a dedicated migrator.
func InitSchema(db *sql.DB) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS media_items (
		id SERIAL PRIMARY KEY,
		type VARCHAR(20) NOT NULL,
		parent_id INTEGER REFERENCES media_items(id) ON DELETE CASCADE,
		imdb_id VARCHAR(50),
		tmdb_id VARCHAR(50),
		tvdb_id VARCHAR(50),
		last_state VARCHAR(30) NOT NULL DEFAULT 'requested',
		requested_at TIMESTAMP,
		indexed_at TIMESTAMP,
		scraped_at TIMESTAMP,
		aired_at TIMESTAMP,
		scraped_times INTEGER DEFAULT 0,
		title VARCHAR(500) NOT NULL,
		year INTEGER,
		genres TEXT,
		is_anime BOOLEAN DEFAULT FALSE,
		aliases JSONB,
		release_data JSONB,
		active_stream JSONB,
		streams TEXT,
		blacklisted_streams TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS media_items_type_imdb_uniq ON media_items(type, imdb_id) WHERE imdb_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS media_items_type_tmdb_uniq ON media_items(type, tmdb_id) WHERE tmdb_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS media_items_type_tvdb_uniq ON media_items(type, tvdb_id) WHERE tvdb_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS media_items_parent_idx ON media_items(parent_id);
	CREATE INDEX IF NOT EXISTS media_items_state_idx ON media_items(last_state);

	CREATE TABLE IF NOT EXISTS streams (
		id SERIAL PRIMARY KEY,
		infohash VARCHAR(40) UNIQUE NOT NULL,
		title VARCHAR(500),
		quality VARCHAR(50),
		release_group VARCHAR(255),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS media_item_streams (
		media_item_id INTEGER NOT NULL REFERENCES media_items(id) ON DELETE CASCADE,
		stream_id INTEGER NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
		blacklisted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (media_item_id, stream_id)
	);

	CREATE TABLE IF NOT EXISTS filesystem_entries (
		id SERIAL PRIMARY KEY,
		path TEXT UNIQUE NOT NULL,
		file_size BIGINT DEFAULT 0,
		is_directory BOOLEAN DEFAULT FALSE,
		available_in_vfs BOOLEAN DEFAULT FALSE,
		entry_kind VARCHAR(20) NOT NULL DEFAULT 'media',
		language VARCHAR(10),
		media_item_id INTEGER REFERENCES media_items(id) ON DELETE CASCADE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS filesystem_entries_media_item_idx ON filesystem_entries(media_item_id);

	CREATE TABLE IF NOT EXISTS scheduled_tasks (
		id SERIAL PRIMARY KEY,
		item_id INTEGER NOT NULL REFERENCES media_items(id) ON DELETE CASCADE,
		task_type VARCHAR(30) NOT NULL,
		scheduled_for TIMESTAMP NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		executed_at TIMESTAMP,
		offset_seconds INTEGER,
		reason TEXT,
		UNIQUE(item_id, task_type, scheduled_for)
	);
	CREATE INDEX IF NOT EXISTS scheduled_tasks_due_idx ON scheduled_tasks(status, scheduled_for);

	CREATE TABLE IF NOT EXISTS settings (
		key VARCHAR(255) PRIMARY KEY,
		value TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}
