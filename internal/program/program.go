// Package program is the top-level wiring for the orchestrator: it
// builds every component (C1-C10), registers the service executors
// against the event manager, and hosts them under a suture supervisor
// tree, grounded on cartographus's internal/supervisor.SupervisorTree
// (a root suture.Supervisor with service-group children, a Serve(ctx)
// entry point, and token-based add/remove for reinitialization) plus
// the teacher's own main.go pattern of "load config, connect to the
// database, build every service, run until signalled". Settings are an
// explicit struct passed down from here rather than a module-level
// singleton (spec §9 "Global state").
package program

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"reelarr/config"
	"reelarr/internal/apperr"
	"reelarr/internal/cache"
	"reelarr/internal/database"
	"reelarr/internal/downloader"
	"reelarr/internal/eventmanager"
	"reelarr/internal/external/downloaderapi"
	"reelarr/internal/external/indexerapi"
	"reelarr/internal/external/library"
	"reelarr/internal/external/scraper"
	"reelarr/internal/external/subtitles"
	"reelarr/internal/gate"
	"reelarr/internal/models"
	"reelarr/internal/queue"
	"reelarr/internal/scheduler"
	"reelarr/internal/statemachine"
	"reelarr/internal/store"
	"reelarr/internal/symlink"
	"reelarr/internal/worker"
)

// defaultProviderBaseURLs are the public debrid API hosts used when a
// deployment doesn't override one via config.DownloaderConfig.BaseURLs.
var defaultProviderBaseURLs = map[string]string{
	"realdebrid": "https://api.real-debrid.com/rest/1.0",
	"torbox":     "https://api.torbox.app/v1/api",
	"alldebrid":  "https://api.alldebrid.com/v4",
}

// Program bundles every component this process runs, built once at
// startup and rebuilt piecewise by Reinitialize when settings change
// (spec §9 "explicit reinitialize services entry point").
type Program struct {
	cfg *config.Config

	db       *sql.DB
	items    *store.MediaItemStore
	tasks    *store.ScheduleStore
	settings *store.SettingsStore

	cache      *cache.Cache
	gate       *gate.Gate
	downloader *downloader.Downloader
	symlinker  *symlink.Symlinker
	scraper    *scraper.Aggregator
	tmdb       *indexerapi.TMDBClient
	tvdb       *indexerapi.TVDBClient
	library    *library.Client
	subtitles  *subtitles.Client

	queue     *queue.Queue
	pool      *worker.Pool
	manager   *eventmanager.Manager
	scheduler *scheduler.Scheduler

	mu         sync.Mutex
	supervisor *suture.Supervisor
	done       <-chan error
	cancel     context.CancelFunc

	// shutdown, set by the process entry point, lets the admin surface's
	// "stop" operation trigger the same graceful path as an OS signal.
	shutdown func()
}

// OnShutdown registers the callback the admin surface's stop/restart
// operations invoke to unwind the process (spec §6 "administrative
// start/stop/restart"). The process entry point wires this to its
// signal-channel shutdown path.
func (p *Program) OnShutdown(fn func()) {
	p.mu.Lock()
	p.shutdown = fn
	p.mu.Unlock()
}

// Shutdown invokes the registered shutdown callback, if any.
func (p *Program) Shutdown() {
	p.mu.Lock()
	fn := p.shutdown
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// New builds a Program from cfg: connects the database, constructs
// every service, registers the worker executors, and assembles the
// supervisor tree, but does not start it — call Run for that.
func New(cfg *config.Config) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("program: connect database: %w", err)
	}
	if err := database.InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("program: init schema: %w", err)
	}

	p := &Program{cfg: cfg, db: db}
	p.items = store.NewMediaItemStore(db)
	p.tasks = store.NewScheduleStore(db)
	p.settings = store.NewSettingsStore(db)

	p.cache = cache.New(cache.Config{
		Dir:          cfg.Cache.Dir,
		MaxSizeBytes: cfg.Cache.MaxSizeBytes,
		TTL:          cfg.Cache.TTL,
		Eviction:     cfg.Cache.Eviction,
		ChunkSize:    cfg.Cache.ChunkSize,
	}, nil)

	p.gate = gate.New(gate.Config{
		MaxScrapeAttempts: cfg.Gate.MaxScrapeAttempts,
		BaseBackoff:       cfg.Gate.BaseBackoff,
	})

	p.downloader = downloader.New(downloader.Config{
		Providers:       buildProviders(cfg.Downloader),
		VideoExtensions: cfg.Downloader.VideoExtensions,
		MovieMinBytes:   cfg.Downloader.MovieMinSizeMB << 20,
		EpisodeMinBytes: cfg.Downloader.EpisodeMinSizeMB << 20,
	})

	p.symlinker = symlink.New(symlink.Config{
		DebridMountPath: cfg.DebridMountPath,
		LibraryPaths: map[symlink.LibraryKey]string{
			symlink.LibraryMovies:      cfg.MoviesLibraryPath,
			symlink.LibraryShows:       cfg.ShowsLibraryPath,
			symlink.LibraryAnimeMovies: cfg.AnimeMoviesLibraryPath,
			symlink.LibraryAnimeShows:  cfg.AnimeShowsLibraryPath,
		},
	})

	p.scraper = scraper.New(buildIndexerSources(cfg.Indexers)...)
	p.tmdb = indexerapi.NewTMDBClient(cfg.TMDBAPIKey)
	p.tvdb = indexerapi.NewTVDBClient(cfg.TVDBAPIKey)

	if cfg.Library.URL != "" {
		p.library = library.New(cfg.Library.URL, cfg.Library.Token)
	}
	if cfg.SubtitleSyncURL != "" {
		p.subtitles = subtitles.New(cfg.SubtitleSyncURL)
	}

	p.queue = queue.New()
	p.pool = worker.NewPool()

	p.manager = eventmanager.New(eventmanager.Config{
		Items:                p.items,
		Queue:                p.queue,
		Pool:                 p.pool,
		Gate:                 statemachine.GateFunc(p.gate.CanScrape),
		ShouldSubmit:         func(*models.MediaItem) bool { return true },
		PostProcessorEnabled: cfg.PostProcessorEnabled,
	})

	p.registerExecutors(cfg.Worker)

	p.scheduler = scheduler.New(scheduler.Config{
		Items:                  p.items,
		Tasks:                  p.tasks,
		Events:                 p.manager,
		RetryInterval:          cfg.Scheduler.RetryInterval,
		ReleaseOffset:          cfg.Scheduler.ReleaseOffset,
		DueTaskInterval:        cfg.Scheduler.DueTaskInterval,
		ReleaseMonitorInterval: cfg.Scheduler.OngoingMonitorInterval,
		Index:                  p.reindex,
	})

	p.supervisor = p.buildSupervisor()
	return p, nil
}

// buildSupervisor assembles the root supervisor and every long-running
// service under it, the same flat one-layer shape as cartographus's
// tree minus the data/messaging/api split this process doesn't need.
func (p *Program) buildSupervisor() *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: slog.Default()}
	root := suture.New("reelarr", suture.Spec{
		EventHook: handler.MustHook(),
	})
	root.Add(p.manager)
	root.Add(p.scheduler)
	for _, executor := range p.pool.All() {
		root.Add(executor)
	}
	return root
}

// Run starts the supervisor tree and blocks until ctx is cancelled or an
// unrecoverable service failure propagates up (spec §6 "nonzero exit
// code on unrecoverable init failure").
func (p *Program) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	done := p.supervisor.ServeBackground(runCtx)
	p.done = done
	p.mu.Unlock()
	defer cancel()
	return <-done
}

// Close releases the database connection. Call after Run returns.
func (p *Program) Close() error {
	return p.db.Close()
}

// Reinitialize rebuilds the components whose behavior depends on cfg
// and swaps them in, per spec §9's "observer-style settings reloads
// become an explicit reinitialize entry point". Long-lived structural
// pieces (the queue, the database connection, the store handles) are
// left untouched, and so are the chunk cache and the symlinker even
// though both read settings at construction time; the gate, downloader,
// scraper, metadata/library/subtitle clients, worker pool, event manager
// and scheduler are rebuilt, mirroring cartographus's RemoveAndWait-then-Add
// reload idiom one level up (stop the old supervisor, build a fresh
// one from the new config, start it).
func (p *Program) Reinitialize(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		if err := <-p.done; err != nil {
			slog.Warn("program: supervisor did not stop cleanly during reinitialize", "error", err)
		}
	}

	p.cfg = cfg
	p.gate = gate.New(gate.Config{MaxScrapeAttempts: cfg.Gate.MaxScrapeAttempts, BaseBackoff: cfg.Gate.BaseBackoff})
	p.downloader = downloader.New(downloader.Config{
		Providers:       buildProviders(cfg.Downloader),
		VideoExtensions: cfg.Downloader.VideoExtensions,
		MovieMinBytes:   cfg.Downloader.MovieMinSizeMB << 20,
		EpisodeMinBytes: cfg.Downloader.EpisodeMinSizeMB << 20,
	})
	p.scraper = scraper.New(buildIndexerSources(cfg.Indexers)...)
	p.tmdb = indexerapi.NewTMDBClient(cfg.TMDBAPIKey)
	p.tvdb = indexerapi.NewTVDBClient(cfg.TVDBAPIKey)
	if cfg.Library.URL != "" {
		p.library = library.New(cfg.Library.URL, cfg.Library.Token)
	} else {
		p.library = nil
	}
	if cfg.SubtitleSyncURL != "" {
		p.subtitles = subtitles.New(cfg.SubtitleSyncURL)
	} else {
		p.subtitles = nil
	}

	p.pool = worker.NewPool()
	p.manager = eventmanager.New(eventmanager.Config{
		Items:                p.items,
		Queue:                p.queue,
		Pool:                 p.pool,
		Gate:                 statemachine.GateFunc(p.gate.CanScrape),
		ShouldSubmit:         func(*models.MediaItem) bool { return true },
		PostProcessorEnabled: cfg.PostProcessorEnabled,
	})
	p.registerExecutors(cfg.Worker)
	p.scheduler = scheduler.New(scheduler.Config{
		Items:                  p.items,
		Tasks:                  p.tasks,
		Events:                 p.manager,
		RetryInterval:          cfg.Scheduler.RetryInterval,
		ReleaseOffset:          cfg.Scheduler.ReleaseOffset,
		DueTaskInterval:        cfg.Scheduler.DueTaskInterval,
		ReleaseMonitorInterval: cfg.Scheduler.OngoingMonitorInterval,
		Index:                  p.reindex,
	})
	p.supervisor = p.buildSupervisor()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = p.supervisor.ServeBackground(runCtx)
	return nil
}

// Items exposes the media item store for the CLI/admin surfaces.
func (p *Program) Items() *store.MediaItemStore { return p.items }

// Tasks exposes the schedule store for the CLI/admin surfaces.
func (p *Program) Tasks() *store.ScheduleStore { return p.tasks }

// Cache exposes the chunk cache for the VFS file-listing admin endpoint.
func (p *Program) Cache() *cache.Cache { return p.cache }

// Events exposes the event manager so API handlers can submit and
// cancel jobs.
func (p *Program) Events() *eventmanager.Manager { return p.manager }

// AddItem implements the CLI surface's item "add" operation (spec §6):
// dedupe by external id, persist a Requested row, and submit it as a
// manual event.
func (p *Program) AddItem(ctx context.Context, item *models.MediaItem) (int64, error) {
	exists, err := p.items.ExistsByExternalID(ctx, item.Type, derefOr(item.IMDBID), derefOr(item.TMDBID), derefOr(item.TVDBID))
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("program: item already requested: %w", apperr.IntegrityDuplicate)
	}

	item.LastState = models.StateRequested
	id, err := p.items.Create(ctx, item)
	if err != nil {
		return 0, err
	}
	return id, p.submitManual(ctx, id)
}

// Retry re-submits itemID as a manual event, letting the state machine
// resume from whatever state is currently persisted (spec §4.10
// "re-entry occurs ... via explicit retry").
func (p *Program) Retry(ctx context.Context, itemID int64) error {
	return p.submitManual(ctx, itemID)
}

// Reset returns itemID to Requested and clears its stream history before
// resubmitting it, for the CLI surface's item "reset" operation.
func (p *Program) Reset(ctx context.Context, itemID int64) error {
	if err := p.items.ResetStreams(ctx, itemID); err != nil {
		return err
	}
	if err := p.items.UpdateState(ctx, itemID, models.StateRequested); err != nil {
		return err
	}
	return p.submitManual(ctx, itemID)
}

// Reindex runs a synchronous metadata refresh for itemID, the same
// lookup the scheduler's due-task processor triggers.
func (p *Program) Reindex(ctx context.Context, itemID int64) error {
	return p.reindex(ctx, itemID)
}

func (p *Program) submitManual(ctx context.Context, itemID int64) error {
	id := itemID
	event := &models.Event{
		ID:        uuid.NewString(),
		EmittedBy: models.EmitterManual,
		ItemID:    &id,
		RunAt:     time.Now(),
	}
	if err := p.manager.AddEvent(ctx, event); err != nil && !errors.Is(err, apperr.LogicGate) {
		return err
	}
	return nil
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Config returns the settings tree currently in effect.
func (p *Program) Config() *config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SaveSettings persists the currently-effective configuration tree (spec
// §6 "settings save").
func (p *Program) SaveSettings(ctx context.Context) error {
	return p.settings.Save(ctx, p.Config())
}

// LoadSettings reads the persisted configuration tree, if any, validates
// it, and reinitializes dependent services against it (spec §6 "settings
// load"). Returns false with no error when nothing has been saved yet.
func (p *Program) LoadSettings(ctx context.Context) (bool, error) {
	var cfg config.Config
	ok, err := p.settings.Load(ctx, &cfg)
	if err != nil || !ok {
		return ok, err
	}
	if err := p.Reinitialize(ctx, &cfg); err != nil {
		return false, err
	}
	return true, nil
}

func buildProviders(cfg config.DownloaderConfig) []downloader.Provider {
	providers := make([]downloader.Provider, 0, len(cfg.ProviderOrder))
	for _, name := range cfg.ProviderOrder {
		key := cfg.ProviderAPIKeys[name]
		if key == "" {
			continue
		}
		base := cfg.BaseURLs[name]
		if base == "" {
			base = defaultProviderBaseURLs[name]
		}
		providers = append(providers, downloaderapi.New(name, base, key))
	}
	return providers
}

func buildIndexerSources(indexers []config.IndexerConfig) []scraper.Source {
	sources := make([]scraper.Source, 0, len(indexers))
	for _, idx := range indexers {
		sources = append(sources, scraper.NewTorznabSource(idx.Name, idx.URL, idx.APIKey))
	}
	return sources
}

// reindex implements scheduler.IndexFunc: a synchronous metadata refresh
// for the due-task processor's reindex jobs, sharing the same metadata
// lookup the Indexer executor's handler uses.
func (p *Program) reindex(ctx context.Context, itemID int64) error {
	item, err := p.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	return p.indexItem(ctx, item)
}

func (p *Program) indexItem(ctx context.Context, item *models.MediaItem) error {
	title, year, genres, airedAt, err := p.fetchMetadata(ctx, item)
	if err != nil {
		return err
	}
	return p.items.MarkIndexed(ctx, item.ID, title, year, genres, airedAt)
}

func (p *Program) fetchMetadata(ctx context.Context, item *models.MediaItem) (string, int, []string, *time.Time, error) {
	switch item.Type {
	case models.ItemMovie:
		if item.TMDBID == nil {
			return "", 0, nil, nil, fmt.Errorf("program: movie %d has no tmdb id: %w", item.ID, apperr.ConfigInvalid)
		}
		details, err := p.tmdb.GetMovieDetails(ctx, *item.TMDBID)
		if err != nil {
			return "", 0, nil, nil, err
		}
		year, airedAt := parseYearAndDate(details.ReleaseDate)
		return details.Title, year, details.Genres, airedAt, nil

	default:
		if item.TVDBID == nil {
			return "", 0, nil, nil, fmt.Errorf("program: item %d has no tvdb id: %w", item.ID, apperr.ConfigInvalid)
		}
		details, err := p.tvdb.GetShowDetails(ctx, *item.TVDBID)
		if err != nil {
			return "", 0, nil, nil, err
		}
		_, airedAt := parseYearAndDate(details.FirstAired)
		return details.Name, 0, details.Genres, airedAt, nil
	}
}

func parseYearAndDate(raw string) (int, *time.Time) {
	if raw == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return 0, nil
	}
	return t.Year(), &t
}

// registerExecutors wires one worker.Executor per service type, each a
// closure over Program's own collaborators (spec §4.5 "a program
// handle" — here the closure itself, to avoid an import cycle between
// internal/worker and internal/eventmanager).
func (p *Program) registerExecutors(cfg config.WorkerConcurrency) {
	p.pool.Register(worker.New(worker.ServiceIndexer, cfg.Indexer, p.handleIndex, p.manager.CompletionHandler(worker.ServiceIndexer)))
	p.pool.Register(worker.New(worker.ServiceScraper, cfg.Scraper, p.handleScrape, p.manager.CompletionHandler(worker.ServiceScraper)))
	p.pool.Register(worker.New(worker.ServiceDownloader, cfg.Downloader, p.handleDownload, p.manager.CompletionHandler(worker.ServiceDownloader)))
	p.pool.Register(worker.New(worker.ServiceSymlinker, cfg.Symlinker, p.handleSymlink, p.manager.CompletionHandler(worker.ServiceSymlinker)))
	p.pool.Register(worker.New(worker.ServiceUpdater, cfg.Updater, p.handleUpdate, p.manager.CompletionHandler(worker.ServiceUpdater)))
	p.pool.Register(worker.New(worker.ServicePostProcessor, cfg.PostProcessor, p.handlePostProcess, p.manager.CompletionHandler(worker.ServicePostProcessor)))
}

func (p *Program) handleIndex(ctx context.Context, event *models.Event) ([]models.Result, error) {
	item, err := p.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return nil, err
	}
	if err := p.indexItem(ctx, item); err != nil {
		return nil, err
	}
	return []models.Result{{ItemID: item.ID, RunAt: time.Now()}}, nil
}

func (p *Program) handleScrape(ctx context.Context, event *models.Event) ([]models.Result, error) {
	item, err := p.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return nil, err
	}
	if err := p.items.RecordScrapeAttempt(ctx, item.ID); err != nil {
		return nil, err
	}

	var results []scraper.Result
	if item.Type == models.ItemMovie {
		results, err = p.scraper.SearchMovies(ctx, item.Title)
	} else {
		results, err = p.scraper.SearchShows(ctx, item.Title, 0, 0)
	}
	if err != nil {
		return nil, err
	}

	candidates := scraper.CandidatesForItem(results)
	if len(candidates) == 0 {
		return nil, nil
	}
	for _, stream := range candidates {
		if addErr := p.items.AddStream(ctx, item.ID, stream.InfoHash); addErr != nil {
			slog.Warn("scraper: failed to record candidate stream", "item_id", item.ID, "infohash", stream.InfoHash, "error", addErr)
		}
	}
	if err := p.items.UpdateState(ctx, item.ID, models.StateScraped); err != nil {
		return nil, err
	}
	return []models.Result{{ItemID: item.ID, RunAt: time.Now()}}, nil
}

func (p *Program) handleDownload(ctx context.Context, event *models.Event) ([]models.Result, error) {
	item, err := p.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return nil, err
	}

	blacklisted := make(map[string]bool, len(item.BlacklistedStreams))
	for _, hash := range item.BlacklistedStreams {
		blacklisted[hash] = true
	}
	candidates := make([]models.Stream, 0, len(item.Streams))
	for _, hash := range item.Streams {
		if blacklisted[hash] {
			continue
		}
		candidates = append(candidates, models.Stream{InfoHash: hash})
	}

	selected, rejected, err := p.downloader.Acquire(ctx, item.Type, candidates)
	for _, hash := range rejected {
		if blErr := p.items.BlacklistStream(ctx, item.ID, hash); blErr != nil {
			slog.Warn("downloader: failed to blacklist stream", "item_id", item.ID, "infohash", hash, "error", blErr)
		}
	}
	if err != nil {
		if errors.Is(err, apperr.ExternalPermanent) {
			if upErr := p.items.UpdateState(ctx, item.ID, models.StateFailed); upErr != nil {
				return nil, upErr
			}
		}
		return nil, err
	}

	if err := p.items.SetActiveStream(ctx, item.ID, selected); err != nil {
		return nil, err
	}
	if err := p.items.UpdateState(ctx, item.ID, models.StateDownloaded); err != nil {
		return nil, err
	}
	return []models.Result{{ItemID: item.ID, RunAt: time.Now()}}, nil
}

func (p *Program) handleSymlink(ctx context.Context, event *models.Event) ([]models.Result, error) {
	item, err := p.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return nil, err
	}
	if item.ActiveStream == nil || len(item.ActiveStream.Files) == 0 {
		return nil, fmt.Errorf("program: item %d has no resolved files to link", item.ID)
	}

	path, linkErr := p.symlinker.LinkOne(ctx, symlink.Request{
		Item:          item,
		SourceRelPath: item.ActiveStream.Files[0],
	})
	if linkErr != nil {
		return nil, linkErr
	}

	if _, err := p.items.SetFilesystemEntry(ctx, item.ID, &models.FilesystemEntry{
		Path:           path,
		IsDirectory:    false,
		AvailableInVFS: true,
		MediaItemID:    &item.ID,
	}); err != nil {
		return nil, err
	}
	if err := p.items.UpdateState(ctx, item.ID, models.StateSymlinked); err != nil {
		return nil, err
	}
	return []models.Result{{ItemID: item.ID, RunAt: time.Now()}}, nil
}

func (p *Program) handleUpdate(ctx context.Context, event *models.Event) ([]models.Result, error) {
	item, err := p.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return nil, err
	}
	if p.library != nil && item.FilesystemEntry != nil {
		if _, err := p.library.RefreshPath(ctx, filepath.Dir(item.FilesystemEntry.Path)); err != nil {
			return nil, err
		}
	}
	if err := p.items.UpdateState(ctx, item.ID, models.StateCompleted); err != nil {
		return nil, err
	}

	results := []models.Result{{ItemID: item.ID, RunAt: time.Now()}}
	if item.ParentID != nil {
		now := time.Now()
		if _, err := p.items.StoreState(ctx, *item.ParentID, now); err != nil {
			slog.Warn("updater: failed to recompute parent rollup state", "item_id", item.ID, "parent_id", *item.ParentID, "error", err)
		} else {
			results = append(results, models.Result{ItemID: *item.ParentID, RunAt: now})
		}
	}
	return results, nil
}

func (p *Program) handlePostProcess(ctx context.Context, event *models.Event) ([]models.Result, error) {
	item, err := p.items.GetByID(ctx, *event.ItemID)
	if err != nil {
		return nil, err
	}
	if p.subtitles == nil || item.FilesystemEntry == nil {
		return []models.Result{{ItemID: item.ID, RunAt: time.Now()}}, nil
	}
	for _, sub := range item.Subtitles {
		if err := p.subtitles.Sync(ctx, item.FilesystemEntry.Path, sub.Path); err != nil {
			slog.Warn("postprocessor: subtitle sync failed", "item_id", item.ID, "subtitle_path", sub.Path, "error", err)
		}
	}
	return []models.Result{{ItemID: item.ID, RunAt: time.Now()}}, nil
}

