// Package downloader implements provider selection and file selection
// for the Downloader service (spec §4.9). Selection heuristics are
// grounded on the teacher's quality.go regex classifier (same
// "inspect the filename, bucket it" shape, generalized from a quality
// tier to an extension whitelist plus a per-item-type size range); the
// provider contract itself generalizes server/services/qbittorrent.go's
// add/select/info calls from a single torrent client's transfer-progress
// API to several debrid providers' cache-and-resolve API, tried in a
// fixed preference order until one initializes.
package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sony/gobreaker/v2"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
)

// FileInfo is one file inside a resolved torrent/container.
type FileInfo struct {
	ID        string
	Path      string
	SizeBytes int64
}

// TorrentInfo is the provider's view of an added magnet, matching spec
// §6's get_torrent_info shape.
type TorrentInfo struct {
	Files            []FileInfo
	Status           string
	OriginalFilename string
	Filename         string
}

// Provider is one debrid backend (spec §6 Downloader API), trimmed to
// the calls the selection algorithm needs.
type Provider interface {
	Name() string
	Init(ctx context.Context) error
	InstantAvailability(ctx context.Context, hashes []string) (map[string][]string, error)
	AddMagnet(ctx context.Context, hash string) (string, error)
	SelectFiles(ctx context.Context, id string, fileIDs []string) error
	GetTorrentInfo(ctx context.Context, id string) (*TorrentInfo, error)
}

// SizeRange bounds an acceptable video file size in bytes, inclusive
// lower bound only (spec §4.9 "sizes within per-type ranges").
type SizeRange struct {
	MinBytes int64
}

// Config bounds file selection (spec §4.9) and orders candidate
// providers (config.DownloaderConfig).
type Config struct {
	Providers       []Provider // tried in order; the first to Init successfully becomes active
	VideoExtensions []string
	MovieMinBytes   int64
	EpisodeMinBytes int64
}

// Downloader is the Downloader service's selection logic, independent
// of how its caller is wired into the worker pool.
type Downloader struct {
	providers  []Provider
	extensions map[string]struct{}
	movieMin   int64
	episodeMin int64

	mu       sync.Mutex
	active   Provider
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// New builds a Downloader from cfg, creating one circuit breaker per
// configured provider name up front.
func New(cfg Config) *Downloader {
	exts := make(map[string]struct{}, len(cfg.VideoExtensions))
	for _, e := range cfg.VideoExtensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	d := &Downloader{
		providers:  cfg.Providers,
		extensions: exts,
		movieMin:   cfg.MovieMinBytes,
		episodeMin: cfg.EpisodeMinBytes,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	for _, p := range cfg.Providers {
		d.breaker(p.Name())
	}
	return d
}

// breaker returns (creating if needed) the circuit breaker guarding
// calls to the named provider. Settings mirror cartographus's
// CircuitBreakerClient: open after a 60% failure rate with at least 10
// requests in the measurement window, half-open probes capped at 3.
func (d *Downloader) breaker(name string) *gobreaker.CircuitBreaker[any] {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.breakers[name]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("downloader: circuit breaker state change", "provider", name, "from", from, "to", to)
		},
	})
	d.breakers[name] = b
	return b
}

func (d *Downloader) call(ctx context.Context, provider string, fn func() (any, error)) (any, error) {
	b := d.breaker(provider)
	result, err := b.Execute(func() (any, error) { return fn() })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	return result, nil
}

// SelectActive tries each configured provider's Init in order and keeps
// the first success as the active downloader (spec §4.9 "at startup,
// the first initialized provider... becomes the active downloader").
func (d *Downloader) SelectActive(ctx context.Context) (Provider, error) {
	for _, p := range d.providers {
		if err := p.Init(ctx); err != nil {
			slog.Warn("downloader: provider failed to initialize, trying next", "provider", p.Name(), "error", err)
			continue
		}
		d.mu.Lock()
		d.active = p
		d.mu.Unlock()
		slog.Info("downloader: active provider selected", "provider", p.Name())
		return p, nil
	}
	return nil, fmt.Errorf("downloader: no provider initialized: %w", apperr.ConfigInvalid)
}

// Acquire tries candidates in order: check instant availability on the
// active provider, and for any cached stream add the magnet and select
// the wanted video files. The first candidate that yields a valid file
// set wins; every hash that doesn't is returned for the caller to
// blacklist (spec §4.9). If no provider is active yet, Acquire runs
// SelectActive first and fails with its error when none initializes.
func (d *Downloader) Acquire(ctx context.Context, itemType models.ItemType, candidates []models.Stream) (selected *models.StreamRef, rejected []string, err error) {
	d.mu.Lock()
	active := d.active
	d.mu.Unlock()
	if active == nil {
		p, selErr := d.SelectActive(ctx)
		if selErr != nil {
			return nil, nil, selErr
		}
		active = p
	}

	hashes := make([]string, len(candidates))
	for i, c := range candidates {
		hashes[i] = c.InfoHash
	}

	availRaw, err := d.call(ctx, active.Name(), func() (any, error) {
		return active.InstantAvailability(ctx, hashes)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("instant availability: %w", err)
	}
	avail, _ := availRaw.(map[string][]string)

	for _, stream := range candidates {
		if _, cached := avail[stream.InfoHash]; !cached {
			continue
		}

		files, err := d.resolveFiles(ctx, active, stream.InfoHash, itemType)
		if err != nil {
			slog.Debug("downloader: candidate did not yield wanted files", "infohash", stream.InfoHash, "error", err)
			rejected = append(rejected, stream.InfoHash)
			continue
		}
		return &models.StreamRef{InfoHash: stream.InfoHash, Files: files}, rejected, nil
	}

	for _, stream := range candidates {
		if _, cached := avail[stream.InfoHash]; !cached {
			rejected = append(rejected, stream.InfoHash)
		}
	}
	return nil, rejected, fmt.Errorf("downloader: no candidate yielded a usable file set: %w", apperr.ExternalPermanent)
}

func (d *Downloader) resolveFiles(ctx context.Context, provider Provider, hash string, itemType models.ItemType) ([]string, error) {
	idRaw, err := d.call(ctx, provider.Name(), func() (any, error) {
		return provider.AddMagnet(ctx, hash)
	})
	if err != nil {
		return nil, err
	}
	id := idRaw.(string)

	infoRaw, err := d.call(ctx, provider.Name(), func() (any, error) {
		return provider.GetTorrentInfo(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	info := infoRaw.(*TorrentInfo)

	wanted := d.wantedFiles(info.Files, itemType)
	if len(wanted) == 0 {
		return nil, fmt.Errorf("no files matched extension/size filter: %w", apperr.ExternalPermanent)
	}

	ids := make([]string, len(wanted))
	paths := make([]string, len(wanted))
	for i, f := range wanted {
		ids[i] = f.ID
		paths[i] = f.Path
	}

	if _, err := d.call(ctx, provider.Name(), func() (any, error) {
		return nil, provider.SelectFiles(ctx, id, ids)
	}); err != nil {
		return nil, err
	}
	return paths, nil
}

// wantedFiles filters to files whose extension is in the whitelist and
// whose size clears the per-type minimum (spec §4.9).
func (d *Downloader) wantedFiles(files []FileInfo, itemType models.ItemType) []FileInfo {
	min := d.episodeMin
	if itemType == models.ItemMovie {
		min = d.movieMin
	}

	var out []FileInfo
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Path))
		if _, ok := d.extensions[ext]; !ok {
			continue
		}
		if f.SizeBytes < min {
			continue
		}
		out = append(out, f)
	}
	return out
}
