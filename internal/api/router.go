// Package api is the thin HTTP admin surface over the core (spec §1
// explicitly keeps this out of the core's scope, but still names its
// operations in §6's CLI surface list). Grounded on cartographus's
// chi-based SetupChi: a chi.Router with a global middleware stack and
// one r.Route group per resource, generalized from cartographus's
// auth/stats/playback groups to this orchestrator's item/calendar/
// settings groups. Handlers are thin: decode, call into
// internal/program.Program, encode.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"reelarr/internal/program"
)

// Server wires a chi.Router against a Program.
type Server struct {
	prog *program.Program
}

// New builds a Server for prog.
func New(prog *program.Program) *Server {
	return &Server{prog: prog}
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Logger)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", s.addItem)
			r.Get("/{id}", s.getItem)
			r.Delete("/{id}", s.removeItem)
			r.Post("/{id}/reset", s.resetItem)
			r.Post("/{id}/retry", s.retryItem)
			r.Post("/{id}/pause", s.pauseItem)
			r.Post("/{id}/unpause", s.unpauseItem)
			r.Post("/{id}/reindex", s.reindexItem)
			r.Get("/{id}/streams", s.listStreams)
			r.Post("/{id}/streams/reset", s.resetStreams)
			r.Post("/{id}/streams/{infohash}/blacklist", s.blacklistStream)
			r.Post("/{id}/streams/{infohash}/unblacklist", s.unblacklistStream)
		})

		r.Get("/calendar", s.calendar)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.getSettings)
			r.Post("/", s.setSettings)
			r.Post("/save", s.saveSettings)
			r.Post("/load", s.loadSettings)
			r.Post("/apikey", s.generateAPIKey)
		})

		r.Route("/system", func(r chi.Router) {
			r.Post("/restart", s.restart)
			r.Post("/stop", s.stop)
			r.Get("/logs", s.uploadLogs)
			r.Get("/vfs", s.listVFS)
			r.Get("/database/snapshot", s.snapshotDatabase)
			r.Post("/database/restore", s.restoreDatabase)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
