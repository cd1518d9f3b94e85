// Package scraper aggregates torrent/magnet sources into the candidate
// streams the gate/downloader pipeline scores, grounded on the teacher's
// indexer microservice (indexer/providers/{yts,nyaa,1337x,torrentgalaxy,
// solidtorrents}.go plus server/services/indexers/torznab.go): one
// Source per upstream, a shared SearchResult row shape, and aggregation
// across all enabled sources rather than calling any single one
// directly (spec §6's scraper role is this whole fan-out, not one
// provider).
package scraper

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"reelarr/internal/models"
	"reelarr/internal/shared/httpclient"
)

// Result is one candidate stream a Source found, generalizing the
// teacher's indexers.SearchResult to the fields the gate/downloader
// pipeline actually scores on.
type Result struct {
	Title      string
	InfoHash   string
	MagnetLink string
	SizeBytes  int64
	Seeders    int
	Source     string
}

// Source is one upstream torrent/magnet index. Movies and shows search
// differently (shows carry season/episode), matching the teacher's
// Indexer interface split.
type Source interface {
	Name() string
	SearchMovies(ctx context.Context, query string) ([]Result, error)
	SearchShows(ctx context.Context, query string, season, episode int) ([]Result, error)
}

// Aggregator fans a search out across every configured Source and
// merges the results, tolerating individual source failures.
type Aggregator struct {
	sources []Source
}

// New builds an Aggregator over sources, tried concurrently on every
// search (spec §6 "the scraper queries every enabled source").
func New(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// SearchMovies queries every source concurrently and returns the merged,
// seeder-sorted results. A source error is logged and excluded, it does
// not fail the whole search.
func (a *Aggregator) SearchMovies(ctx context.Context, query string) ([]Result, error) {
	return a.fanOut(ctx, func(ctx context.Context, s Source) ([]Result, error) {
		return s.SearchMovies(ctx, query)
	})
}

// SearchShows is the episode/season-aware counterpart to SearchMovies.
func (a *Aggregator) SearchShows(ctx context.Context, query string, season, episode int) ([]Result, error) {
	return a.fanOut(ctx, func(ctx context.Context, s Source) ([]Result, error) {
		return s.SearchShows(ctx, query, season, episode)
	})
}

func (a *Aggregator) fanOut(ctx context.Context, call func(context.Context, Source) ([]Result, error)) ([]Result, error) {
	if len(a.sources) == 0 {
		return nil, nil
	}

	resultsBySource := make([][]Result, len(a.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			res, err := call(gctx, src)
			if err != nil {
				slog.Warn("scraper: source failed", "source", src.Name(), "error", err)
				return nil
			}
			resultsBySource[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Result
	for _, rs := range resultsBySource {
		merged = append(merged, rs...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Seeders > merged[j].Seeders })
	return merged, nil
}

// CandidatesForItem converts aggregated results into the stream list the
// downloader expects, dropping anything without a usable infohash.
func CandidatesForItem(results []Result) []models.Stream {
	out := make([]models.Stream, 0, len(results))
	for _, r := range results {
		if r.InfoHash == "" {
			continue
		}
		out = append(out, models.Stream{InfoHash: r.InfoHash, Title: r.Title})
	}
	return out
}

// TorznabSource queries a generic Torznab-compatible indexer, grounded
// on the teacher's server/services/indexers/torznab.go (same RSS/attr
// decode shape).
type TorznabSource struct {
	name    string
	baseURL string
	apiKey  string
}

// NewTorznabSource builds a Source for one Torznab endpoint.
func NewTorznabSource(name, baseURL, apiKey string) *TorznabSource {
	return &TorznabSource{name: name, baseURL: baseURL, apiKey: apiKey}
}

func (t *TorznabSource) Name() string { return t.name }

func (t *TorznabSource) SearchMovies(ctx context.Context, query string) ([]Result, error) {
	return t.search(ctx, "movie", query, 0, 0)
}

func (t *TorznabSource) SearchShows(ctx context.Context, query string, season, episode int) ([]Result, error) {
	return t.search(ctx, "tvsearch", query, season, episode)
}

func (t *TorznabSource) search(ctx context.Context, searchType, query string, season, episode int) ([]Result, error) {
	params := map[string]string{"t": searchType, "q": query}
	if t.apiKey != "" {
		params["apikey"] = t.apiKey
	}
	if season > 0 {
		params["season"] = strconv.Itoa(season)
	}
	if episode > 0 {
		params["ep"] = strconv.Itoa(episode)
	}

	apiURL := httpclient.BuildQueryURL(t.baseURL+"/api", params)
	resp, err := httpclient.GetWithRetry(ctx, httpclient.DefaultClient, apiURL, httpclient.DefaultRetryPolicy)
	if err != nil {
		return nil, fmt.Errorf("torznab %s: %w", t.name, err)
	}
	body, err := httpclient.ReadResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("torznab %s: read body: %w", t.name, err)
	}

	var rss torznabRSS
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, fmt.Errorf("torznab %s: decode xml: %w", t.name, err)
	}

	out := make([]Result, 0, len(rss.Channel.Items))
	for _, item := range rss.Channel.Items {
		out = append(out, convertTorznabItem(item, t.name))
	}
	return out, nil
}

type torznabRSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []torznabItem `xml:"item"`
	} `xml:"channel"`
}

type torznabItem struct {
	Title     string           `xml:"title"`
	Link      string           `xml:"link"`
	Enclosure torznabEnclosure `xml:"enclosure"`
	Attrs     []torznabAttr    `xml:"attr"`
}

type torznabEnclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func convertTorznabItem(item torznabItem, source string) Result {
	r := Result{Title: item.Title, MagnetLink: item.Enclosure.URL, Source: source}
	if r.MagnetLink == "" {
		r.MagnetLink = item.Link
	}
	for _, attr := range item.Attrs {
		switch attr.Name {
		case "seeders":
			if n, err := strconv.Atoi(attr.Value); err == nil {
				r.Seeders = n
			}
		case "infohash":
			r.InfoHash = attr.Value
		case "size":
			if n, err := strconv.ParseInt(attr.Value, 10, 64); err == nil {
				r.SizeBytes = n
			}
		}
	}
	if r.InfoHash == "" {
		r.InfoHash = infoHashFromMagnet(r.MagnetLink)
	}
	return r
}

// infoHashFromMagnet extracts the xt=urn:btih: parameter, the fallback
// the teacher's providers use when an index doesn't expose infohash
// as its own field.
func infoHashFromMagnet(magnet string) string {
	u, err := url.Parse(magnet)
	if err != nil {
		return ""
	}
	xt := u.Query().Get("xt")
	const prefix = "urn:btih:"
	if len(xt) > len(prefix) && xt[:len(prefix)] == prefix {
		return xt[len(prefix):]
	}
	return ""
}
