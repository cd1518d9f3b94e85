package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"time"

	"reelarr/internal/shared/format"
	"reelarr/internal/shared/logger"
)

var errNoSavedSettings = errors.New("no settings have been saved")

// restart implements the CLI surface's "restart" operation (spec §6): it
// reinitializes every config-dependent service in place without
// restarting the OS process, the same path settings mutations take.
func (s *Server) restart(w http.ResponseWriter, r *http.Request) {
	if err := s.prog.Reinitialize(r.Context(), s.prog.Config()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

// stop implements "stop": it invokes the shutdown hook the process entry
// point registered, which unwinds the same graceful path an OS signal
// would. Responds before the hook runs since the hook tears down the
// very server answering this request.
func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	go s.prog.Shutdown()
}

// saveSettings implements "settings save": persists the currently
// effective configuration tree.
func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.prog.SaveSettings(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadSettings implements "settings load": restores the last-saved
// configuration tree and reinitializes dependent services against it.
func (s *Server) loadSettings(w http.ResponseWriter, r *http.Request) {
	found, err := s.prog.LoadSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, errNoSavedSettings)
		return
	}
	writeJSON(w, http.StatusOK, s.prog.Config())
}

// uploadLogs implements "upload logs": streams the on-disk log file back
// to the caller, who is responsible for actually shipping it anywhere.
// Returns 404 if no LOG_FILE was configured.
func (s *Server) uploadLogs(w http.ResponseWriter, r *http.Request) {
	path := logger.FilePath()
	if path == "" {
		writeError(w, http.StatusNotFound, errors.New("no log file configured"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, path)
}

// vfsEntry is an admin-facing cache.ListEntry with a human-readable
// size alongside the raw byte count.
type vfsEntry struct {
	CacheKey   string    `json:"cache_key"`
	Start      int64     `json:"start"`
	Size       int64     `json:"size"`
	SizeHuman  string    `json:"size_human"`
	LastAccess time.Time `json:"last_access"`
}

// listVFS implements "list VFS files": every chunk currently resident in
// the on-disk cache.
func (s *Server) listVFS(w http.ResponseWriter, r *http.Request) {
	entries := s.prog.Cache().List()
	out := make([]vfsEntry, len(entries))
	for i, e := range entries {
		out[i] = vfsEntry{
			CacheKey:   e.CacheKey,
			Start:      e.Start,
			Size:       e.Size,
			SizeHuman:  format.Bytes(e.Size),
			LastAccess: e.LastAccess,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// snapshotDatabase implements "database snapshot": shells out to pg_dump
// against the configured DATABASE_URL and streams the dump back to the
// caller, grounded on the pack's exec.Command-wrapping idiom
// (ZaparooProject's pkg/helpers/command) rather than reimplementing the
// Postgres wire protocol.
func (s *Server) snapshotDatabase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pg_dump", "--format=custom", s.prog.Config().DatabaseURL)
	cmd.Stderr = os.Stderr
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=reelarr.dump")
	cmd.Stdout = w
	if err := cmd.Run(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
}

// restoreDatabase implements "database restore": pipes the uploaded dump
// into pg_restore against the configured DATABASE_URL.
func (s *Server) restoreDatabase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pg_restore", "--clean", "--if-exists",
		"--dbname="+s.prog.Config().DatabaseURL)
	cmd.Stdin = r.Body
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
