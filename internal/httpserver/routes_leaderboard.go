package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/coopsweeper/server/internal/leaderboard"
)

// maxLimit caps ?limit= on /leaderboard.
const maxLimit = 100

// mountLeaderboard registers GET /leaderboard.
func (s *Server) mountLeaderboard(r chi.Router) {
	r.Get("/leaderboard", s.handleLeaderboard)
}

// lbRes is returned by /leaderboard.
type lbRes struct {
	Top []leaderboard.Entry `json:"top"`
}

// handleLeaderboard ranks players across finished games (top 20 unless ?limit= says otherwise).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := leaderboard.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_limit"})
			return
		}
		limit = min(n, maxLimit)
	}
	rows, err := s.ranked.Top(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Top: rows})
}
