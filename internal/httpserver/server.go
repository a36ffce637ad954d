// internal/httpserver/server.go
//
// HTTP server wiring for the Minesweeper backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: POST /game/start, POST /game/click, GET /game/current, GET /game/table.
//   - Leaderboard: GET /leaderboard.
//   - Player sessions (JWT naming the player) and the websocket endpoint /ws.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - /ws is mounted outside the timeout group; the hub owns the connection after upgrade.
//   - Results of REST moves are broadcast through the hub like websocket moves.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/coopsweeper/server/internal/config"
	"github.com/coopsweeper/server/internal/game"
	"github.com/coopsweeper/server/internal/leaderboard"
)

// Game is the engine surface the HTTP layer needs. *game.Engine satisfies it.
type Game interface {
	Start(m game.Move) (game.Result, error)
	Click(m game.Move) (game.Result, error)
	Current() game.View
	Table() []game.PlayerMoves
}

// WebSocket attaches a websocket session for username. *hub.Hub satisfies it.
type WebSocket interface {
	ServeWS(w http.ResponseWriter, r *http.Request, username string)
}

// Server bundles router, game engine, websocket hub and leaderboard.
type Server struct {
	r      *chi.Mux
	cfg    *config.Config
	game   Game
	ws     WebSocket
	ranked *leaderboard.Service
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, g Game, ws WebSocket, ranked *leaderboard.Service) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, game: g, ws: ws, ranked: ranked}

	// --- middleware ---
	s.r.Use(chimw.RequestID)           // add X-Request-ID
	s.r.Use(chimw.RealIP)              // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)             // zerolog access log
	s.r.Use(chimw.Recoverer)           // recover from panics
	s.r.Use(corsFor(cfg.ClientOrigin)) // credentials-friendly CORS

	// --- websocket (no handler timeout, no JSON content type) ---
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"minesweeper-go","endpoints":["/health","/ws","POST /session","POST /game/start","POST /game/click","/game/current","/game/table","/leaderboard"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Post("/session", s.handleSession)
		s.mountGame(r)
		s.mountLeaderboard(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("requestId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// ------------------------------- responses ---------------------------------

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeGameError maps an engine error to 400 (validation), 409 (conflict) or 500.
func writeGameError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case game.IsValidation(err):
		code = http.StatusBadRequest
	case game.IsConflict(err):
		code = http.StatusConflict
	default:
		log.Error().Err(err).Msg("game operation")
	}
	writeJSON(w, code, map[string]string{"error": game.Reason(err)})
}
