// Package scheduler is C8: the low-frequency background jobs that feed
// work into the event manager — content polling, the retry-library
// sweep, the due-task processor, and the ongoing-release monitor (spec
// §4.8). Grounded directly on the teacher's AutomationService.Start,
// which runs this same shape of multi-ticker select loop for its
// hourly/60-minute jobs; generalized from three fixed tickers driving
// hard-coded work into three tickers driving table-described ones, plus
// one goroutine per content provider running on its own interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"reelarr/internal/apperr"
	"reelarr/internal/eventmanager"
	"reelarr/internal/models"
	"reelarr/internal/store"
)

const (
	defaultDueTaskInterval    = 60 * time.Second
	defaultReleaseMonInterval = 15 * time.Minute
	nextAirSearchDays         = 20
)

// ExternalRef is one result of a content provider's run, per spec §6
// "Content providers ... run() -> list of (external_id, emitter_key)".
type ExternalRef struct {
	ExternalID string
	EmitterKey string
}

// ContentProvider is the minimal surface the scheduler needs from a
// provider client; concrete HTTP implementations live in
// internal/external and are injected here to keep this package free of
// transport concerns.
type ContentProvider interface {
	Name() string
	UpdateInterval() time.Duration
	Validate(ctx context.Context) error
	Run(ctx context.Context) ([]ExternalRef, error)
}

// IndexFunc performs a synchronous reindex of itemID under its own
// transaction, used by the due-task processor for reindex-type tasks
// (spec §4.8 "invoke the Indexer synchronously").
type IndexFunc func(ctx context.Context, itemID int64) error

// Config bundles the Scheduler's dependencies.
type Config struct {
	Items         *store.MediaItemStore
	Tasks         *store.ScheduleStore
	Events        *eventmanager.Manager
	Providers     []ContentProvider
	RetryInterval time.Duration // 0 disables the retry-library sweep
	ReleaseOffset time.Duration // added to aired_at when scheduling a release task
	ReindexDaily  time.Duration // fallback delay for unknown-air-date reindex tasks

	// DueTaskInterval/ReleaseMonitorInterval default to 60s/15m
	// (config.SchedulerConfig's own defaults) when left zero.
	DueTaskInterval       time.Duration
	ReleaseMonitorInterval time.Duration

	Index IndexFunc
	Clock clockwork.Clock
}

// Scheduler is C8.
type Scheduler struct {
	items             *store.MediaItemStore
	tasks             *store.ScheduleStore
	events            *eventmanager.Manager
	providers         []ContentProvider
	retryInterval     time.Duration
	releaseOffset     time.Duration
	reindexDaily      time.Duration
	dueTaskInterval   time.Duration
	releaseMonInterval time.Duration
	index             IndexFunc
	clock             clockwork.Clock
}

// New builds a Scheduler from cfg.
func New(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	reindexDaily := cfg.ReindexDaily
	if reindexDaily <= 0 {
		reindexDaily = 24 * time.Hour
	}
	dueTaskInterval := cfg.DueTaskInterval
	if dueTaskInterval <= 0 {
		dueTaskInterval = defaultDueTaskInterval
	}
	releaseMonInterval := cfg.ReleaseMonitorInterval
	if releaseMonInterval <= 0 {
		releaseMonInterval = defaultReleaseMonInterval
	}
	return &Scheduler{
		items:              cfg.Items,
		tasks:              cfg.Tasks,
		events:             cfg.Events,
		providers:          cfg.Providers,
		retryInterval:      cfg.RetryInterval,
		releaseOffset:      cfg.ReleaseOffset,
		reindexDaily:       reindexDaily,
		dueTaskInterval:    dueTaskInterval,
		releaseMonInterval: releaseMonInterval,
		index:              cfg.Index,
		clock:              clock,
	}
}

func (s *Scheduler) String() string { return "scheduler" }

// Serve implements suture.Service: one goroutine per content provider
// plus the three fixed-interval jobs in the main select loop.
func (s *Scheduler) Serve(ctx context.Context) error {
	for _, p := range s.providers {
		go s.runProvider(ctx, p)
	}

	dueTicker := s.clock.NewTicker(s.dueTaskInterval)
	defer dueTicker.Stop()
	releaseTicker := s.clock.NewTicker(s.releaseMonInterval)
	defer releaseTicker.Stop()

	var retryChan <-chan time.Time
	if s.retryInterval > 0 {
		retryTicker := s.clock.NewTicker(s.retryInterval)
		defer retryTicker.Stop()
		retryChan = retryTicker.Chan()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-dueTicker.Chan():
			s.processDueTasks(ctx)
		case <-releaseTicker.Chan():
			s.monitorReleases(ctx)
		case <-retryChan:
			s.sweepRetryLibrary(ctx)
		}
	}
}

// runProvider polls one content provider on its own interval, or once
// if it reports a non-positive interval (webhook-driven provider, spec
// §4.8 "once immediately if webhook mode").
func (s *Scheduler) runProvider(ctx context.Context, p ContentProvider) {
	if err := p.Validate(ctx); err != nil {
		slog.Error("scheduler: content provider failed validation, skipping", "provider", p.Name(), "error", err)
		return
	}

	poll := func() {
		refs, err := p.Run(ctx)
		if err != nil {
			slog.Warn("scheduler: content provider poll failed", "provider", p.Name(), "error", err)
			return
		}
		for _, ref := range refs {
			s.submitContentRef(ctx, p, ref)
		}
	}

	poll()

	interval := p.UpdateInterval()
	if interval <= 0 {
		return
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			poll()
		}
	}
}

func (s *Scheduler) submitContentRef(ctx context.Context, p ContentProvider, ref ExternalRef) {
	item := &models.MediaItem{
		LastState: models.StateRequested,
		IMDBID:    stringOrNil(ref.ExternalID),
	}
	event := &models.Event{ID: newEventID(), EmittedBy: models.Emitter(p.Name()), ContentItem: item, RunAt: s.clock.Now()}
	if err := s.events.AddEvent(ctx, event); err != nil && !isLogicGate(err) {
		slog.Warn("scheduler: failed to submit content poll result", "provider", p.Name(), "external_id", ref.ExternalID, "error", err)
	}
}

// sweepRetryLibrary enqueues a RetryLibrary event for every non-Completed
// movie/show (spec §4.8 retry-library sweep).
func (s *Scheduler) sweepRetryLibrary(ctx context.Context) {
	ids, err := s.items.RetryLibraryIDs(ctx)
	if err != nil {
		slog.Error("scheduler: retry-library query failed", "error", err)
		return
	}
	for _, id := range ids {
		id := id
		event := &models.Event{ID: newEventID(), EmittedBy: models.EmitterRetryLibrary, ItemID: &id, RunAt: s.clock.Now()}
		if err := s.events.AddEvent(ctx, event); err != nil && !isLogicGate(err) {
			slog.Warn("scheduler: failed to enqueue retry-library event", "item_id", id, "error", err)
		}
	}
}

// processDueTasks drains Pending ScheduledTasks whose scheduled_for has
// passed (spec §4.8 due-task processor). Each task's failure is
// contained; the scheduler itself never aborts (spec §4.10).
func (s *Scheduler) processDueTasks(ctx context.Context) {
	now := s.clock.Now()
	due, err := s.tasks.DueTasks(ctx, now)
	if err != nil {
		slog.Error("scheduler: due-task query failed", "error", err)
		return
	}
	for _, task := range due {
		s.runDueTask(ctx, task, now)
	}
}

func (s *Scheduler) runDueTask(ctx context.Context, task *models.ScheduledTask, now time.Time) {
	item, err := s.items.GetByID(ctx, task.ItemID)
	if err != nil {
		slog.Warn("scheduler: due task targets missing item, marking failed", "task_id", task.ID, "item_id", task.ItemID, "error", err)
		s.markTask(ctx, task.ID, models.TaskFailed, now)
		return
	}

	if task.TaskType.IsReindex() {
		if s.index == nil {
			slog.Error("scheduler: no indexer wired for reindex task", "task_id", task.ID, "item_id", task.ItemID)
			s.markTask(ctx, task.ID, models.TaskFailed, now)
			return
		}
		if err := s.index(ctx, task.ItemID); err != nil {
			slog.Warn("scheduler: synchronous reindex failed", "task_id", task.ID, "item_id", task.ItemID, "error", err)
			s.markTask(ctx, task.ID, models.TaskFailed, now)
			return
		}
		s.markTask(ctx, task.ID, models.TaskCompleted, now)
		return
	}

	wasCompleted := item.LastState == models.StateCompleted
	refreshed, err := s.items.StoreState(ctx, task.ItemID, now)
	if err != nil {
		slog.Warn("scheduler: failed to refresh item state before due-task event", "task_id", task.ID, "item_id", task.ItemID, "error", err)
		s.markTask(ctx, task.ID, models.TaskFailed, now)
		return
	}
	if refreshed != item.LastState {
		if err := s.items.UpdateState(ctx, task.ItemID, refreshed); err != nil {
			slog.Warn("scheduler: failed to persist refreshed item state", "task_id", task.ID, "item_id", task.ItemID, "error", err)
			s.markTask(ctx, task.ID, models.TaskFailed, now)
			return
		}
		item.LastState = refreshed
	}

	if !wasCompleted {
		event := &models.Event{ID: newEventID(), EmittedBy: models.EmitterScheduler, ItemID: &task.ItemID, RunAt: now}
		if err := s.events.AddEvent(ctx, event); err != nil && !isLogicGate(err) {
			slog.Warn("scheduler: failed to enqueue due-task event", "task_id", task.ID, "item_id", task.ItemID, "error", err)
			s.markTask(ctx, task.ID, models.TaskFailed, now)
			return
		}
	}
	s.markTask(ctx, task.ID, models.TaskCompleted, now)
}

func (s *Scheduler) markTask(ctx context.Context, taskID int64, status models.TaskStatus, when time.Time) {
	if err := s.tasks.Mark(ctx, taskID, status, when); err != nil {
		slog.Error("scheduler: failed to mark task", "task_id", taskID, "status", status, "error", err)
	}
}

// monitorReleases implements the ongoing-release monitor (spec §4.8):
// schedules release tasks for upcoming episodes/movies, reindex tasks
// for Ongoing/Unreleased shows from their computed next-air datetime,
// and a daily reindex fallback for movies with no known air date.
func (s *Scheduler) monitorReleases(ctx context.Context) {
	now := s.clock.Now()

	s.scheduleUpcoming(ctx, models.ItemEpisode, models.TaskEpisodeRelease, now)
	s.scheduleUpcoming(ctx, models.ItemMovie, models.TaskMovieRelease, now)
	s.scheduleShowReindexes(ctx, now)
	s.scheduleMovieFallbacks(ctx, now)
}

func (s *Scheduler) scheduleUpcoming(ctx context.Context, itemType models.ItemType, taskType models.TaskType, now time.Time) {
	items, err := s.items.UpcomingByAiredAt(ctx, itemType, now)
	if err != nil {
		slog.Error("scheduler: upcoming query failed", "item_type", itemType, "error", err)
		return
	}
	for _, item := range items {
		s.scheduleOnce(ctx, item.ID, taskType, item.AiredAt.Add(s.releaseOffset), now, "upcoming "+string(itemType))
	}
}

func (s *Scheduler) scheduleShowReindexes(ctx context.Context, now time.Time) {
	shows, err := s.items.InStates(ctx, models.ItemShow, models.StateOngoing, models.StateUnreleased)
	if err != nil {
		slog.Error("scheduler: ongoing/unreleased shows query failed", "error", err)
		return
	}
	for _, show := range shows {
		when, ok := computeNextAirDatetime(show.ReleaseData, now)
		if !ok {
			when = nextMidnight(now).Add(s.reindexDaily)
		}
		s.scheduleOnce(ctx, show.ID, models.TaskReindexShow, when, now, "next-air computation")
	}
}

func (s *Scheduler) scheduleMovieFallbacks(ctx context.Context, now time.Time) {
	movies, err := s.items.MoviesWithoutAiredAt(ctx, models.StateUnknown, models.StateIndexed, models.StateRequested)
	if err != nil {
		slog.Error("scheduler: movies-without-aired-at query failed", "error", err)
		return
	}
	for _, movie := range movies {
		s.scheduleOnce(ctx, movie.ID, models.TaskReindexMovie, nextMidnight(now).Add(s.reindexDaily), now, "no known air date")
	}
}

func (s *Scheduler) scheduleOnce(ctx context.Context, itemID int64, taskType models.TaskType, when time.Time, now time.Time, reason string) {
	if !when.After(now) {
		return
	}
	has, err := s.tasks.HasFutureTask(ctx, itemID, taskType, now)
	if err != nil {
		slog.Error("scheduler: has-future-task check failed", "item_id", itemID, "task_type", taskType, "error", err)
		return
	}
	if has {
		return
	}
	if _, err := s.tasks.Schedule(ctx, now, itemID, taskType, when, nil, reason); err != nil {
		slog.Warn("scheduler: failed to schedule task", "item_id", itemID, "task_type", taskType, "error", err)
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// computeNextAirDatetime implements spec §4.8's compute_next_air_datetime:
// prefer an explicit next_aired value (datetime or date-only, combined
// with airs_time), otherwise walk forward from ref looking for the next
// flagged weekday in airs_days. A recognized timezone reinterprets the
// naive result before converting back to ref's zone; an unrecognized one
// is treated as already being in ref's zone; any parse failure yields
// (zero, false).
func computeNextAirDatetime(rd *models.ReleaseData, ref time.Time) (time.Time, bool) {
	if rd == nil {
		return time.Time{}, false
	}

	loc := ref.Location()
	if rd.Timezone != "" {
		if l, err := time.LoadLocation(rd.Timezone); err == nil {
			loc = l
		}
	}

	hour, minute := 0, 0
	if rd.AirsTime != "" {
		parsed, err := time.Parse("15:04", rd.AirsTime)
		if err != nil {
			return time.Time{}, false
		}
		hour, minute = parsed.Hour(), parsed.Minute()
	}

	if rd.NextAired != "" {
		if t, err := time.ParseInLocation(time.RFC3339, rd.NextAired, loc); err == nil {
			return acceptIfNotBefore(t.In(ref.Location()), ref)
		}
		date, err := time.ParseInLocation("2006-01-02", rd.NextAired, loc)
		if err != nil {
			return time.Time{}, false
		}
		combined := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
		return acceptIfNotBefore(combined.In(ref.Location()), ref)
	}

	if len(rd.AirsDays) == 0 {
		return time.Time{}, false
	}
	for i := 0; i <= nextAirSearchDays; i++ {
		day := ref.AddDate(0, 0, i)
		if !rd.AirsDays[strings.ToLower(day.Weekday().String())] {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc).In(ref.Location())
		if !candidate.Before(ref) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func acceptIfNotBefore(t, ref time.Time) (time.Time, bool) {
	if t.Before(ref) {
		return time.Time{}, false
	}
	return t, true
}

func isLogicGate(err error) bool {
	return errors.Is(err, apperr.LogicGate)
}

func stringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newEventID() string {
	return uuid.NewString()
}
