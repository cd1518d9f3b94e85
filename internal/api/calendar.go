package api

import (
	"net/http"
	"time"

	"reelarr/internal/models"
)

// calendar implements the CLI surface's "fetch calendar" operation
// (spec §6): every Movie/Show not yet Completed with a known future air
// date, merged and
// left for the caller to sort by date.
func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	movies, err := s.prog.Items().UpcomingByAiredAt(r.Context(), models.ItemMovie, now)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	shows, err := s.prog.Items().UpcomingByAiredAt(r.Context(), models.ItemShow, now)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, append(movies, shows...))
}
