// Package indexerapi enriches a MediaItem with metadata from TMDB/TVDB,
// grounded on the teacher's server/services/metadata.go (same
// auth-token/throttle/decode shape for TVDB, same API-key query param
// shape for TMDB), generalized into two thin per-provider clients the
// core calls as part of the Indexer service (spec §4.9) rather than
// free functions threaded through a shared *config.Config.
package indexerapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"reelarr/internal/apperr"
	"reelarr/internal/shared/httpclient"
)

// MovieDetails is the subset of TMDB's movie response the core persists
// onto a MediaItem.
type MovieDetails struct {
	TMDBID      int
	IMDBID      string
	Title       string
	ReleaseDate string
	Genres      []string
	Overview    string
}

// ShowDetails is the subset of TVDB's series response the core persists.
type ShowDetails struct {
	TVDBID     int
	Name       string
	Overview   string
	Status     string
	FirstAired string
	Genres     []string
}

// Episode is one episode row from TVDB's episode listing.
type Episode struct {
	TVDBID       int
	Name         string
	SeasonNumber int
	Number       int
	Aired        string
}

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDBClient queries The Movie Database for movie metadata.
type TMDBClient struct {
	apiKey   string
	baseURL  string
	throttle *rateLimiter
}

// NewTMDBClient builds a client for the given API key.
func NewTMDBClient(apiKey string) *TMDBClient {
	return &TMDBClient{apiKey: apiKey, baseURL: tmdbBaseURL, throttle: newRateLimiter(200 * time.Millisecond)}
}

// GetMovieDetails fetches one movie's details by TMDB ID.
func (c *TMDBClient) GetMovieDetails(ctx context.Context, tmdbID string) (*MovieDetails, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tmdb: api key not configured: %w", apperr.ConfigInvalid)
	}
	c.throttle.wait()

	apiURL := httpclient.BuildQueryURL(
		fmt.Sprintf("%s/movie/%s", c.baseURL, tmdbID),
		map[string]string{"api_key": c.apiKey, "language": "en-US"},
	)
	resp, err := httpclient.GetWithRetry(ctx, httpclient.LongTimeoutClient, apiURL, httpclient.DefaultRetryPolicy)
	if err != nil {
		return nil, fmt.Errorf("tmdb movie %s: %w", tmdbID, err)
	}

	var raw struct {
		ID          int    `json:"id"`
		IMDBID      string `json:"imdb_id"`
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
		Overview    string `json:"overview"`
		Genres      []struct {
			Name string `json:"name"`
		} `json:"genres"`
	}
	if err := httpclient.DecodeJSONResponse(resp, &raw); err != nil {
		return nil, fmt.Errorf("tmdb movie %s: %w", tmdbID, err)
	}

	genres := make([]string, 0, len(raw.Genres))
	for _, g := range raw.Genres {
		genres = append(genres, g.Name)
	}
	return &MovieDetails{
		TMDBID:      raw.ID,
		IMDBID:      raw.IMDBID,
		Title:       raw.Title,
		ReleaseDate: raw.ReleaseDate,
		Overview:    raw.Overview,
		Genres:      genres,
	}, nil
}

// TVDBClient queries TheTVDB for show/episode metadata. Auth tokens are
// fetched lazily and cached until they expire, matching the teacher's
// tvdbToken/tvdbTokenExpiry globals but scoped to the client instance.
type TVDBClient struct {
	apiKey   string
	baseURL  string
	throttle *rateLimiter

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

const tvdbBaseURL = "https://api4.thetvdb.com/v4"

// NewTVDBClient builds a client for the given API key.
func NewTVDBClient(apiKey string) *TVDBClient {
	return &TVDBClient{apiKey: apiKey, baseURL: tvdbBaseURL, throttle: newRateLimiter(200 * time.Millisecond)}
}

func (c *TVDBClient) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("tvdb: api key not configured: %w", apperr.ConfigInvalid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpclient.LongTimeoutClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tvdb login: %w", apperr.ExternalTransient)
	}
	var auth struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := httpclient.DecodeJSONResponse(resp, &auth); err != nil {
		return "", fmt.Errorf("tvdb login: %w", err)
	}

	c.token = auth.Data.Token
	c.tokenExp = time.Now().Add(24 * time.Hour)
	return c.token, nil
}

// GetShowDetails fetches one show's extended details by TVDB ID.
func (c *TVDBClient) GetShowDetails(ctx context.Context, tvdbID string) (*ShowDetails, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}
	c.throttle.wait()

	apiURL := fmt.Sprintf("%s/series/%s/extended?meta=translations&short=false", c.baseURL, tvdbID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept-Language", "eng")

	resp, err := httpclient.LongTimeoutClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tvdb show %s: %w", tvdbID, apperr.ExternalTransient)
	}

	var result struct {
		Data struct {
			ID         int    `json:"id"`
			Name       string `json:"name"`
			Overview   string `json:"overview"`
			FirstAired string `json:"firstAired"`
			Status     struct {
				Name string `json:"name"`
			} `json:"status"`
			Genres []struct {
				Name string `json:"name"`
			} `json:"genres"`
		} `json:"data"`
	}
	if err := httpclient.DecodeJSONResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("tvdb show %s: %w", tvdbID, err)
	}

	genres := make([]string, 0, len(result.Data.Genres))
	for _, g := range result.Data.Genres {
		genres = append(genres, g.Name)
	}
	return &ShowDetails{
		TVDBID:     result.Data.ID,
		Name:       result.Data.Name,
		Overview:   result.Data.Overview,
		Status:     result.Data.Status.Name,
		FirstAired: result.Data.FirstAired,
		Genres:     genres,
	}, nil
}

// GetEpisodes fetches the default-order episode listing for a show.
func (c *TVDBClient) GetEpisodes(ctx context.Context, tvdbID string) ([]Episode, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}
	c.throttle.wait()

	apiURL := fmt.Sprintf("%s/series/%s/episodes/default/eng", c.baseURL, tvdbID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httpclient.LongTimeoutClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tvdb episodes %s: %w", tvdbID, apperr.ExternalTransient)
	}

	var result struct {
		Data struct {
			Episodes []struct {
				ID           int    `json:"id"`
				Name         string `json:"name"`
				SeasonNumber int    `json:"seasonNumber"`
				Number       int    `json:"number"`
				Aired        string `json:"aired"`
			} `json:"episodes"`
		} `json:"data"`
	}
	if err := httpclient.DecodeJSONResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("tvdb episodes %s: %w", tvdbID, err)
	}

	out := make([]Episode, 0, len(result.Data.Episodes))
	for _, e := range result.Data.Episodes {
		out = append(out, Episode{
			TVDBID:       e.ID,
			Name:         e.Name,
			SeasonNumber: e.SeasonNumber,
			Number:       e.Number,
			Aired:        e.Aired,
		})
	}
	return out, nil
}

// rateLimiter enforces a minimum gap between successive calls, matching
// the teacher's package-level throttle()/lastRequestTime pair but scoped
// per client instance instead of shared globals.
type rateLimiter struct {
	mu       sync.Mutex
	minGap   time.Duration
	lastCall time.Time
}

func newRateLimiter(minGap time.Duration) *rateLimiter {
	return &rateLimiter{minGap: minGap}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := time.Since(r.lastCall)
	if elapsed < r.minGap {
		time.Sleep(r.minGap - elapsed)
	}
	r.lastCall = time.Now()
}
