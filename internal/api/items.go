package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
)

type addItemRequest struct {
	Type   models.ItemType `json:"type"`
	Title  string          `json:"title"`
	IMDBID string          `json:"imdb_id,omitempty"`
	TMDBID string          `json:"tmdb_id,omitempty"`
	TVDBID string          `json:"tvdb_id,omitempty"`
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Type == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, errors.New("type and title are required"))
		return
	}

	item := &models.MediaItem{Type: req.Type, Title: req.Title}
	if req.IMDBID != "" {
		item.IMDBID = &req.IMDBID
	}
	if req.TMDBID != "" {
		item.TMDBID = &req.TMDBID
	}
	if req.TVDBID != "" {
		item.TVDBID = &req.TVDBID
	}

	id, err := s.prog.AddItem(r.Context(), item)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := s.prog.Items().GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.prog.Items().Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetItem(w http.ResponseWriter, r *http.Request) {
	withItemID(w, r, s.prog.Reset)
}

func (s *Server) retryItem(w http.ResponseWriter, r *http.Request) {
	withItemID(w, r, s.prog.Retry)
}

func (s *Server) reindexItem(w http.ResponseWriter, r *http.Request) {
	withItemID(w, r, s.prog.Reindex)
}

func (s *Server) pauseItem(w http.ResponseWriter, r *http.Request) {
	withItemID(w, r, s.prog.Items().Pause)
}

func (s *Server) unpauseItem(w http.ResponseWriter, r *http.Request) {
	withItemID(w, r, s.prog.Items().Unpause)
}

func (s *Server) resetStreams(w http.ResponseWriter, r *http.Request) {
	withItemID(w, r, s.prog.Items().ResetStreams)
}

func (s *Server) listStreams(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := s.prog.Items().GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"streams":             item.Streams,
		"blacklisted_streams": item.BlacklistedStreams,
	})
}

func (s *Server) blacklistStream(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hash := chi.URLParam(r, "infohash")
	if err := s.prog.Items().BlacklistStream(r.Context(), id, hash); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unblacklistStream(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hash := chi.URLParam(r, "infohash")
	if err := s.prog.Items().UnblacklistStream(r.Context(), id, hash); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func itemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// withItemID decodes the {id} path param, calls fn, and maps the result
// to a response, sparing every single-id mutation handler the same
// three lines of boilerplate.
func withItemID(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, err := itemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.NotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apperr.IntegrityDuplicate):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, apperr.ConfigInvalid):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, apperr.LogicGate):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
