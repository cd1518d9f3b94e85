// Package subtitles is an outbound client for the subtitle-sync sidecar,
// grounded on the teacher's ffsubsync-api/main.go: same request/response
// shape (SyncRequest{Video, Subtitle} -> {"message":"success"} or
// {"error":...}), but as the caller rather than the host. The core's
// PostProcessor worker calls out to a sync sidecar, it does not run one,
// so only the JSON contract is reused; labstack/echo never enters this
// module (nothing here listens for inbound HTTP).
package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"reelarr/internal/apperr"
	"reelarr/internal/shared/httpclient"
)

// SyncRequest names the video/subtitle pair to align, matching the
// sidecar's request body field names exactly.
type SyncRequest struct {
	Video    string `json:"video"`
	Subtitle string `json:"subtitle"`
}

// Client calls a subtitle-sync sidecar over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client for the sidecar running at baseURL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: httpclient.LongTimeoutClient}
}

// Sync rewrites subtitlePath in place so its timing matches videoPath,
// matching the sidecar's "ffsubsync video -i subtitle -o subtitle" call.
func (c *Client) Sync(ctx context.Context, videoPath, subtitlePath string) error {
	payload, err := json.Marshal(SyncRequest{Video: videoPath, Subtitle: subtitlePath})
	if err != nil {
		return fmt.Errorf("subtitles: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("subtitles: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("subtitles: %w", apperr.ExternalTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("subtitles: sidecar error %q: %w", body.Error, apperr.ExternalTransient)
	}
	return fmt.Errorf("subtitles: sidecar rejected request %q: %w", body.Error, apperr.ExternalPermanent)
}
