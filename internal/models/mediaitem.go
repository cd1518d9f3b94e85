// Package models defines the data shapes shared by the store, state
// machine, event manager, and scheduler.
package models

import "time"

// ItemType discriminates the MediaItem tagged sum.
type ItemType string

const (
	ItemMovie   ItemType = "movie"
	ItemShow    ItemType = "show"
	ItemSeason  ItemType = "season"
	ItemEpisode ItemType = "episode"
)

// State is a MediaItem's position in the acquisition lifecycle.
type State string

const (
	StateRequested          State = "requested"
	StateIndexed            State = "indexed"
	StateScraped            State = "scraped"
	StateDownloaded         State = "downloaded"
	StateSymlinked          State = "symlinked"
	StateCompleted          State = "completed"
	StatePartiallyCompleted State = "partially_completed"
	StateOngoing            State = "ongoing"
	StateUnreleased         State = "unreleased"
	StatePaused             State = "paused"
	StateFailed             State = "failed"
	StateUnknown            State = "unknown"
)

// statePriority maps a state to the event queue's sort priority. Lower
// sorts first. States absent from the map get 999 from PriorityFor, so
// they sort after every listed state.
var statePriority = map[State]int{
	StateCompleted:          0,
	StatePartiallyCompleted: 1,
	StateSymlinked:          2,
	StateDownloaded:         3,
	StateScraped:            4,
	StateIndexed:            5,
}

// PriorityFor returns the queue ordering weight for a cached state name,
// per spec §4.4: nearer-to-completion items progress first.
func PriorityFor(s State) int {
	if p, ok := statePriority[s]; ok {
		return p
	}
	return 999
}

// ReleaseData carries the next-air hints used by the ongoing-release
// monitor to compute a show's next scheduled reindex.
type ReleaseData struct {
	NextAired string          `json:"next_aired,omitempty"` // date or datetime string
	AirsDays  map[string]bool `json:"airs_days,omitempty"`  // weekday name -> flag
	AirsTime  string          `json:"airs_time,omitempty"`  // "HH:MM"
	Timezone  string          `json:"timezone,omitempty"`
}

// StreamRef is the per-item view of a candidate or active stream: the
// infohash plus the files the downloader selected for it.
type StreamRef struct {
	InfoHash string   `json:"infohash"`
	Files    []string `json:"files,omitempty"`
}

// FilesystemEntry is the joined-table base shared by MediaEntry and
// SubtitleEntry rows (spec §6).
type FilesystemEntry struct {
	ID              int64     `json:"id"`
	Path            string    `json:"path"`
	FileSize        int64     `json:"file_size"`
	IsDirectory     bool      `json:"is_directory"`
	AvailableInVFS  bool      `json:"available_in_vfs"`
	MediaItemID     *int64    `json:"media_item_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SubtitleEntry is a FilesystemEntry subclass for a subtitle track.
type SubtitleEntry struct {
	FilesystemEntry
	Language string `json:"language"`
}

// MediaItem is the polymorphic entity at the center of the orchestrator.
// Movie/Show/Season/Episode share this header; Type discriminates which
// variant-specific fields are meaningful (Seasons for Show, Episodes for
// Season, and so on are resolved through the store rather than embedded,
// per the "arena style" ownership note in spec §9).
type MediaItem struct {
	ID       int64    `json:"id"`
	Type     ItemType `json:"type"`
	ParentID *int64   `json:"parent_id,omitempty"`

	IMDBID *string `json:"imdb_id,omitempty"`
	TMDBID *string `json:"tmdb_id,omitempty"`
	TVDBID *string `json:"tvdb_id,omitempty"`

	LastState State `json:"last_state"`

	RequestedAt *time.Time `json:"requested_at,omitempty"`
	IndexedAt   *time.Time `json:"indexed_at,omitempty"`
	ScrapedAt   *time.Time `json:"scraped_at,omitempty"`
	AiredAt     *time.Time `json:"aired_at,omitempty"`
	ScrapedTimes int       `json:"scraped_times"`

	Title      string              `json:"title"`
	Year       int                 `json:"year,omitempty"`
	Genres     []string            `json:"genres,omitempty"`
	IsAnime    bool                `json:"is_anime"`
	Aliases    map[string][]string `json:"aliases,omitempty"`
	ReleaseData *ReleaseData       `json:"release_data,omitempty"`

	ActiveStream       *StreamRef `json:"active_stream,omitempty"`
	Streams            []string   `json:"streams,omitempty"`            // infohashes
	BlacklistedStreams []string   `json:"blacklisted_streams,omitempty"` // infohashes

	FilesystemEntry *FilesystemEntry `json:"filesystem_entry,omitempty"`
	Subtitles       []SubtitleEntry  `json:"subtitles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsReleased reports whether the item has an air/release date in the past.
func (m *MediaItem) IsReleased(now time.Time) bool {
	return m.AiredAt != nil && !m.AiredAt.After(now)
}

// HasExternalID reports whether id matches any of the item's external IDs.
func (m *MediaItem) HasExternalID(id string) bool {
	if id == "" {
		return false
	}
	for _, ext := range []*string{m.IMDBID, m.TMDBID, m.TVDBID} {
		if ext != nil && *ext == id {
			return true
		}
	}
	return false
}
