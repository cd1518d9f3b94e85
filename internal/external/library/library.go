// Package library is the outbound client for the media library server
// (spec §6 "refresh_path(path) -> bool"), grounded on the teacher's
// sibling media-server clients (cartographus's PlexClient: a baseURL
// plus bearer/token auth, one thin method per remote call) generalized
// from Plex's read-heavy history API to the one write call the updater
// needs — "rescan this path" — against a Plex-, Jellyfin-, or
// Emby-shaped library scan endpoint.
package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"reelarr/internal/apperr"
	"reelarr/internal/shared/httpclient"
)

// Client points the updater at one media library server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a Client for the library server at baseURL, authenticating
// with token (Plex's X-Plex-Token, Jellyfin/Emby's api_key).
func New(baseURL, token string) *Client {
	return &Client{baseURL: baseURL, token: token, http: httpclient.DefaultClient}
}

// RefreshPath asks the library server to rescan the given path, matching
// spec §6's refresh_path(path) -> bool. It returns true on 200 or 204,
// and false with a nil error when the server answers 404 Not Found; a
// 5xx is ExternalTransient and any other status ExternalPermanent.
func (c *Client) RefreshPath(ctx context.Context, path string) (bool, error) {
	if !validPathSegment(path) {
		return false, fmt.Errorf("library: invalid path %q: %w", path, apperr.ConfigInvalid)
	}

	apiURL := httpclient.BuildQueryURL(c.baseURL+"/library/sections/all/refresh", map[string]string{
		"path":         path,
		"X-Plex-Token": c.token,
		"force":        "0",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return false, fmt.Errorf("library: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("library: refresh %q: %w", path, apperr.ExternalTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("library: refresh %q status %d: %w", path, resp.StatusCode, apperr.ExternalTransient)
	default:
		return false, fmt.Errorf("library: refresh %q status %d: %w", path, resp.StatusCode, apperr.ExternalPermanent)
	}
}

// validPathSegment rejects an empty path or one url.Parse cannot parse
// (such as one containing a control character), the same
// narrow validation spec §7's "sanitize external collaborator inputs"
// note asks for on this one write call.
func validPathSegment(path string) bool {
	if path == "" {
		return false
	}
	_, err := url.Parse(path)
	return err == nil
}
