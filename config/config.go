// Package config loads the process-wide settings tree (spec §6
// "Process-wide state") from the environment, the same way the teacher's
// config.Load() does, generalized with the nested settings the core's
// worker pools, scrape gate, downloader, and scheduler need.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"reelarr/internal/apperr"
	"reelarr/internal/shared/envconfig"
)

// WorkerConcurrency overrides the default max-concurrency-of-1 per
// service executor (spec §4.5).
type WorkerConcurrency struct {
	Indexer       int `validate:"min=1"`
	Scraper       int `validate:"min=1"`
	Downloader    int `validate:"min=1"`
	Symlinker     int `validate:"min=1"`
	Updater       int `validate:"min=1"`
	PostProcessor int `validate:"min=1"`
}

// GateConfig configures the scraping gate (spec §4.9).
type GateConfig struct {
	MaxScrapeAttempts int           `validate:"min=1"`
	BaseBackoff       time.Duration `validate:"required"`
}

// DownloaderConfig orders candidate debrid providers and bounds file
// selection (spec §4.9).
type DownloaderConfig struct {
	ProviderOrder    []string `validate:"min=1,dive,required"`
	MovieMinSizeMB   int64    `validate:"min=1"`
	EpisodeMinSizeMB int64    `validate:"min=1"`
	VideoExtensions  []string `validate:"min=1,dive,required"`

	// ProviderAPIKeys maps a ProviderOrder entry (e.g. "realdebrid") to
	// the bearer token internal/external/downloaderapi authenticates
	// with. A provider with no key never initializes, so it is simply
	// skipped by SelectActive rather than treated as a config error.
	ProviderAPIKeys map[string]string

	// BaseURLs overrides a provider's default debrid API host, for
	// self-hosted or staging deployments; entries absent here fall back
	// to downloaderapi's own per-provider default constant.
	BaseURLs map[string]string
}

// IndexerConfig points the scraper aggregator at one Torznab-compatible
// indexer (spec §6 "Scraper aggregator").
type IndexerConfig struct {
	Name   string `validate:"required"`
	URL    string `validate:"required"`
	APIKey string
}

// LibraryServerConfig points the Updater at the media library server
// whose refresh_path endpoint it calls after a symlink lands (spec §6
// "Media library server").
type LibraryServerConfig struct {
	URL   string
	Token string
}

// CacheConfig configures the chunk cache (spec §4.3).
type CacheConfig struct {
	Dir         string        `validate:"required"`
	MaxSizeBytes int64        `validate:"min=1"`
	TTL         time.Duration
	Eviction    string `validate:"oneof=lru ttl"`
	ChunkSize   int64  `validate:"min=1"`
}

// SchedulerConfig configures the background periodic jobs (spec §4.8).
type SchedulerConfig struct {
	RetryInterval        time.Duration
	DueTaskInterval       time.Duration `validate:"required"`
	OngoingMonitorInterval time.Duration `validate:"required"`
	ReleaseOffset         time.Duration
}

// Config is the single flat settings tree read once at startup and
// mutated only through Program.Reinitialize (spec §9).
type Config struct {
	DatabaseURL   string `validate:"required"`
	SessionSecret string `validate:"required"`
	ServerPort    string `validate:"required"`
	Environment   string `validate:"required"`

	MoviesLibraryPath      string `validate:"required"`
	ShowsLibraryPath       string `validate:"required"`
	AnimeMoviesLibraryPath string `validate:"required"`
	AnimeShowsLibraryPath  string `validate:"required"`
	DebridMountPath        string `validate:"required"`

	TMDBAPIKey string
	TVDBAPIKey string

	SubtitleSyncURL string

	Indexers []IndexerConfig
	Library  LibraryServerConfig

	Worker     WorkerConcurrency
	Gate       GateConfig
	Downloader DownloaderConfig
	Cache      CacheConfig
	Scheduler  SchedulerConfig

	PostProcessorEnabled bool
	Debug                bool
	LogFile              string
}

// Load reads Config from the environment, the same GetEnv-with-default
// pattern the teacher's config.Load uses, then validates it.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   envconfig.GetEnv("DATABASE_URL", ""),
		SessionSecret: envconfig.GetEnv("SESSION_SECRET", ""),
		ServerPort:    envconfig.GetEnv("PORT", "5003"),
		Environment:   envconfig.GetEnv("ENV", "development"),

		MoviesLibraryPath:      envconfig.GetEnv("MOVIES_LIBRARY_PATH", "/library/movies"),
		ShowsLibraryPath:       envconfig.GetEnv("SHOWS_LIBRARY_PATH", "/library/shows"),
		AnimeMoviesLibraryPath: envconfig.GetEnv("ANIME_MOVIES_LIBRARY_PATH", "/library/anime_movies"),
		AnimeShowsLibraryPath:  envconfig.GetEnv("ANIME_SHOWS_LIBRARY_PATH", "/library/anime_shows"),
		DebridMountPath:        envconfig.GetEnv("DEBRID_MOUNT_PATH", "/mnt/debrid"),

		TMDBAPIKey: envconfig.GetEnv("TMDB_API_KEY", ""),
		TVDBAPIKey: envconfig.GetEnv("TVDB_API_KEY", ""),

		SubtitleSyncURL: envconfig.GetEnv("SUBTITLE_SYNC_URL", ""),

		Indexers: buildIndexers(),
		Library: LibraryServerConfig{
			URL:   envconfig.GetEnv("LIBRARY_SERVER_URL", ""),
			Token: envconfig.GetEnv("LIBRARY_SERVER_TOKEN", ""),
		},

		Worker: WorkerConcurrency{
			Indexer:       envInt("WORKER_INDEXER_CONCURRENCY", 1),
			Scraper:       envInt("WORKER_SCRAPER_CONCURRENCY", 1),
			Downloader:    envInt("WORKER_DOWNLOADER_CONCURRENCY", 1),
			Symlinker:     envInt("WORKER_SYMLINKER_CONCURRENCY", 1),
			Updater:       envInt("WORKER_UPDATER_CONCURRENCY", 1),
			PostProcessor: envInt("WORKER_POSTPROCESSOR_CONCURRENCY", 1),
		},
		Gate: GateConfig{
			MaxScrapeAttempts: envInt("GATE_MAX_SCRAPE_ATTEMPTS", 10),
			BaseBackoff:       envDuration("GATE_BASE_BACKOFF", 30*time.Second),
		},
		Downloader: DownloaderConfig{
			ProviderOrder:    []string{"realdebrid", "torbox", "alldebrid"},
			MovieMinSizeMB:   envInt64("DOWNLOADER_MOVIE_MIN_SIZE_MB", 200),
			EpisodeMinSizeMB: envInt64("DOWNLOADER_EPISODE_MIN_SIZE_MB", 40),
			VideoExtensions:  []string{".mp4", ".mkv", ".avi", ".mov", ".m4v", ".webm"},
			ProviderAPIKeys: map[string]string{
				"realdebrid": envconfig.GetEnv("REALDEBRID_API_KEY", ""),
				"torbox":     envconfig.GetEnv("TORBOX_API_KEY", ""),
				"alldebrid":  envconfig.GetEnv("ALLDEBRID_API_KEY", ""),
			},
			BaseURLs: map[string]string{
				"realdebrid": envconfig.GetEnv("REALDEBRID_BASE_URL", ""),
				"torbox":     envconfig.GetEnv("TORBOX_BASE_URL", ""),
				"alldebrid":  envconfig.GetEnv("ALLDEBRID_BASE_URL", ""),
			},
		},
		Cache: CacheConfig{
			Dir:          envconfig.GetEnv("CACHE_DIR", "/var/cache/reelarr"),
			MaxSizeBytes: envInt64("CACHE_MAX_SIZE_BYTES", 10<<30),
			TTL:          envDuration("CACHE_TTL", 24*time.Hour),
			Eviction:     envconfig.GetEnv("CACHE_EVICTION", "lru"),
			ChunkSize:    envInt64("CACHE_CHUNK_SIZE", 4<<20),
		},
		Scheduler: SchedulerConfig{
			RetryInterval:          envDuration("SCHEDULER_RETRY_INTERVAL", 1*time.Hour),
			DueTaskInterval:        envDuration("SCHEDULER_DUE_TASK_INTERVAL", 60*time.Second),
			OngoingMonitorInterval: envDuration("SCHEDULER_ONGOING_MONITOR_INTERVAL", 15*time.Minute),
			ReleaseOffset:          envDuration("SCHEDULER_RELEASE_OFFSET", 0),
		},
		PostProcessorEnabled: envconfig.GetEnv("POSTPROCESSOR_ENABLED", "false") == "true",
		Debug:                envconfig.GetEnv("DEBUG", "false") == "true",
		LogFile:              envconfig.GetEnv("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		slog.Warn("configuration validation failed", "error", err)
		return cfg, err
	}
	return cfg, nil
}

// Validate enforces the required fields and numeric bounds spec §7 calls
// ConfigInvalid: a fatal condition the process exits on at startup.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", apperr.ConfigInvalid, err)
	}
	return nil
}

func envInt(key string, def int) int {
	raw := envconfig.GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	raw := envconfig.GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// buildIndexers reads a single Torznab-compatible indexer from the
// environment, omitted entirely when no URL is configured. A fleet of
// indexers can still be reached by pointing this one entry at an
// aggregating proxy (Jackett/Prowlarr) that itself fans out, the same
// "one indexer URL, many backends behind it" shape the teacher's own
// indexer service assumes.
func buildIndexers() []IndexerConfig {
	url := envconfig.GetEnv("TORZNAB_URL", "")
	if url == "" {
		return nil
	}
	return []IndexerConfig{{
		Name:   envconfig.GetEnv("TORZNAB_NAME", "torznab"),
		URL:    url,
		APIKey: envconfig.GetEnv("TORZNAB_API_KEY", ""),
	}}
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := envconfig.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
