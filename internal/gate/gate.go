// Package gate implements can_we_scrape (spec §4.9): whether an Indexed
// item may be handed to the scraper right now. Adapted from the
// teacher's waitForQBittorrent two-phase backoff — wait, log, retry on a
// growing delay — generalized from "wait once for one external service
// at startup" into "an exponential per-item backoff window checked on
// every pipeline re-entry, forever, for N items at once".
package gate

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"reelarr/internal/models"
)

// Config bounds how many times an item may be scraped and how quickly
// attempts may repeat.
type Config struct {
	MaxScrapeAttempts int
	BaseBackoff       time.Duration
	Clock             clockwork.Clock
}

// Gate is C9's scrape-admission check.
type Gate struct {
	maxAttempts int
	base        time.Duration
	clock       clockwork.Clock
}

// New builds a Gate from cfg.
func New(cfg Config) *Gate {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{maxAttempts: cfg.MaxScrapeAttempts, base: cfg.BaseBackoff, clock: clock}
}

// CanScrape implements statemachine.GateFunc: false if the item has used
// up its scrape attempts, is still inside its backoff window, or has not
// been released yet (spec §4.9).
func (g *Gate) CanScrape(item *models.MediaItem, now time.Time) bool {
	if item.ScrapedTimes >= g.maxAttempts {
		slog.Debug("gate: scrape cap reached", "item_id", item.ID, "scraped_times", item.ScrapedTimes, "max", g.maxAttempts)
		return false
	}
	if !item.IsReleased(now) {
		slog.Debug("gate: not yet released", "item_id", item.ID)
		return false
	}
	if item.ScrapedAt == nil {
		return true
	}
	window := backoffWindow(g.base, item.ScrapedTimes)
	earliest := item.ScrapedAt.Add(window)
	if now.Before(earliest) {
		slog.Debug("gate: within backoff window", "item_id", item.ID, "earliest", earliest, "window", window)
		return false
	}
	return true
}

// backoffWindow is base * 2^attempts (spec §4.9), capped well below
// Duration overflow since attempts is bounded by MaxScrapeAttempts.
func backoffWindow(base time.Duration, attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 30 {
		attempts = 30
	}
	return base << uint(attempts)
}
