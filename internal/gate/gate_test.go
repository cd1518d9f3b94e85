package gate

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"reelarr/internal/models"
)

func newTestGate(max int, base time.Duration) (*Gate, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return New(Config{MaxScrapeAttempts: max, BaseBackoff: base, Clock: clock}), clock
}

func released(ref time.Time) *time.Time {
	t := ref.Add(-time.Hour)
	return &t
}

func TestCanScrape_AllowsFirstAttemptAfterRelease(t *testing.T) {
	g, clock := newTestGate(5, time.Minute)
	item := &models.MediaItem{AiredAt: released(clock.Now())}

	assert.True(t, g.CanScrape(item, clock.Now()))
}

func TestCanScrape_DeniesBeforeRelease(t *testing.T) {
	g, clock := newTestGate(5, time.Minute)
	future := clock.Now().Add(time.Hour)
	item := &models.MediaItem{AiredAt: &future}

	assert.False(t, g.CanScrape(item, clock.Now()))
}

func TestCanScrape_DeniesAtAttemptCap(t *testing.T) {
	g, clock := newTestGate(3, time.Minute)
	item := &models.MediaItem{AiredAt: released(clock.Now()), ScrapedTimes: 3}

	assert.False(t, g.CanScrape(item, clock.Now()))
}

func TestCanScrape_DeniesWithinBackoffWindowThenAllowsAfter(t *testing.T) {
	g, clock := newTestGate(5, time.Minute)
	lastAttempt := clock.Now()
	item := &models.MediaItem{AiredAt: released(clock.Now()), ScrapedTimes: 2, ScrapedAt: &lastAttempt}

	// window = base * 2^2 = 4 minutes
	assert.False(t, g.CanScrape(item, clock.Now().Add(3*time.Minute)))
	assert.True(t, g.CanScrape(item, clock.Now().Add(5*time.Minute)))
}

func TestBackoffWindow_GrowsExponentiallyAndCaps(t *testing.T) {
	base := time.Second
	assert.Equal(t, base, backoffWindow(base, 0))
	assert.Equal(t, 2*base, backoffWindow(base, 1))
	assert.Equal(t, 4*base, backoffWindow(base, 2))
	assert.Equal(t, backoffWindow(base, 30), backoffWindow(base, 40))
}
