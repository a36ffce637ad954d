// internal/httpserver/routes_game.go
//
// HTTP routes for the shared game.
//   - POST /game/start   → start a new game around the first click (supersedes any current game)
//   - POST /game/click   → reveal a cell
//   - GET  /game/current → client-safe view of the current game
//   - GET  /game/table   → per-game move ledger
//
// The player comes from the body's username, else the session token (bearer or cookie).

package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coopsweeper/server/internal/game"
)

// mountGame registers all /game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Route("/game", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/click", s.handleClick)
		r.Get("/current", s.handleCurrent)
		r.Get("/table", s.handleTable)
	})
}

// moveReq is the payload for /game/start and /game/click.
type moveReq struct {
	Row        *int   `json:"row"`
	Col        *int   `json:"col"`
	Generation uint64 `json:"generation,omitempty"` // click only
	Username   string `json:"username,omitempty"`
}

// decodeMove reads a move; missing coordinates are invalid cells.
func (s *Server) decodeMove(w http.ResponseWriter, r *http.Request) (game.Move, bool) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return game.Move{}, false
	}
	if req.Row == nil || req.Col == nil {
		writeGameError(w, game.ErrInvalidCell)
		return game.Move{}, false
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = s.usernameFromToken(r)
	}
	return game.Move{Row: *req.Row, Col: *req.Col, Username: username, Generation: req.Generation}, true
}

// handleStart starts a new game.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeMove(w, r)
	if !ok {
		return
	}
	m.Generation = 0
	res, err := s.game.Start(m)
	if err != nil {
		writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleClick applies one click to the current game.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeMove(w, r)
	if !ok {
		return
	}
	res, err := s.game.Click(m)
	if err != nil {
		writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleCurrent returns the current view (status "none" before the first start).
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.game.Current())
}

// tableRes is returned by /game/table.
type tableRes struct {
	Players []game.PlayerMoves `json:"players"`
}

// handleTable returns the current game's move ledger.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	players := s.game.Table()
	if players == nil {
		players = []game.PlayerMoves{}
	}
	_ = json.NewEncoder(w).Encode(tableRes{Players: players})
}
