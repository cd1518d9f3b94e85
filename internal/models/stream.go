package models

import "time"

// Stream is a candidate acquisition record shared across items; the
// relation to a specific item (active/candidate/blacklisted) lives in the
// store's join table, not on this struct (spec §3).
type Stream struct {
	ID           int64     `json:"id"`
	InfoHash     string    `json:"infohash"` // 160-bit lowercase hex
	Title        string    `json:"title"`
	Quality      string    `json:"quality,omitempty"`
	ReleaseGroup string    `json:"release_group,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
