package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// configSettingsKey is the single settings row the process-wide
// configuration tree round-trips through (spec §6 "settings get/set/load/
// save"), the same key/value table Pause/Unpause already use for
// per-item bookkeeping.
const configSettingsKey = "config:active"

// SettingsStore persists the process-wide configuration tree as a single
// JSON blob in the settings table, grounded on the teacher's key/value
// settings row rather than a separate file format.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Save serializes cfg and upserts it under the well-known settings key.
func (s *SettingsStore) Save(ctx context.Context, cfg any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`,
		configSettingsKey, string(raw))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Load unmarshals the persisted settings blob into dst, returning
// (false, nil) when nothing has been saved yet.
func (s *SettingsStore) Load(ctx context.Context, dst any) (bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = $1", configSettingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw.String), dst); err != nil {
		return false, fmt.Errorf("unmarshal settings: %w", err)
	}
	return true, nil
}
