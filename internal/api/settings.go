package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
)

// getSettings implements the CLI surface's "settings get all" (spec
// §6): a full dump of the process-wide settings tree.
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prog.Config())
}

// settingsPatch is the narrow, explicitly-whitelisted subset of Config
// the admin surface may mutate at runtime (spec §9 "mutations trigger
// re-initialization of dependent services"). Identity fields like
// DatabaseURL are deliberately absent: changing those needs a restart,
// not a reinitialize.
type settingsPatch struct {
	PostProcessorEnabled  *bool   `json:"postprocessor_enabled,omitempty"`
	Debug                 *bool   `json:"debug,omitempty"`
	GateMaxScrapeAttempts *int    `json:"gate_max_scrape_attempts,omitempty"`
	TMDBAPIKey            *string `json:"tmdb_api_key,omitempty"`
	TVDBAPIKey            *string `json:"tvdb_api_key,omitempty"`
}

// setSettings implements "settings set <key> <value>": it applies a
// partial patch to a copy of the current config, validates it, and
// reinitializes the dependent services.
func (s *Server) setSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	next := *s.prog.Config()
	if patch.PostProcessorEnabled != nil {
		next.PostProcessorEnabled = *patch.PostProcessorEnabled
	}
	if patch.Debug != nil {
		next.Debug = *patch.Debug
	}
	if patch.GateMaxScrapeAttempts != nil {
		next.Gate.MaxScrapeAttempts = *patch.GateMaxScrapeAttempts
	}
	if patch.TMDBAPIKey != nil {
		next.TMDBAPIKey = *patch.TMDBAPIKey
	}
	if patch.TVDBAPIKey != nil {
		next.TVDBAPIKey = *patch.TVDBAPIKey
	}

	if err := s.prog.Reinitialize(r.Context(), &next); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, &next)
}

// generateAPIKey implements the CLI surface's "generate API key"
// operation: a cryptographically random token for whatever
// authentication layer sits in front of this admin surface. Persisting
// and revoking issued keys is left to that layer; this endpoint only
// mints one.
func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": hex.EncodeToString(raw)})
}
