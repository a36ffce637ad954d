package httpserver

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopsweeper/server/internal/config"
	"github.com/coopsweeper/server/internal/game"
	"github.com/coopsweeper/server/internal/leaderboard"
	"github.com/coopsweeper/server/internal/store"
)

// recordingWS remembers who asked for a websocket.
type recordingWS struct{ usernames []string }

func (f *recordingWS) ServeWS(w http.ResponseWriter, r *http.Request, username string) {
	f.usernames = append(f.usernames, username)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type fixture struct {
	srv *Server
	st  store.Store
	ws  *recordingWS
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		AppEnv:       "test",
		ClientOrigin: "http://localhost:3000",
		JWTSecret:    "test-secret",
		JWTExpiry:    time.Hour,
		CookieName:   "ms_token",
	}
	e, err := game.New(game.Config{Rows: 3, Cols: 3, Mines: 1}, game.WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)
	st := store.NewMemoryStore()
	ws := &recordingWS{}
	return &fixture{srv: New(cfg, e, ws, leaderboard.NewService(st)), st: st, ws: ws}
}

func (f *fixture) do(t *testing.T, method, path, body string, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealthAndIndex(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, body = f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "minesweeper-go", body["service"])
}

func TestNotFoundIsJSON(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["error"])
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodOptions, "/game/click", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCurrentBeforeStart(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/game/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "none", body["status"])

	rec, body = f.do(t, http.MethodGet, "/game/table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["players"])
}

func TestStartAndClickErrors(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/game/start", `{"row":1,"col":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing-username", body["error"])

	rec, body = f.do(t, http.MethodPost, "/game/click", `{"row":0,"col":0,"username":"bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not-active", body["error"])

	rec, body = f.do(t, http.MethodPost, "/game/start", `{"row":1,"col":1,"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "board-updated", body["type"])
	assert.Equal(t, "alice", body["actor"])

	rec, body = f.do(t, http.MethodPost, "/game/click", `{"row":1,"col":1,"username":"bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already-revealed", body["error"])

	rec, body = f.do(t, http.MethodPost, "/game/click", `{"row":0,"col":0,"generation":9,"username":"bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "stale-game", body["error"])

	rec, body = f.do(t, http.MethodPost, "/game/click", `{"row":3,"col":0,"username":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid-cell", body["error"])

	rec, body = f.do(t, http.MethodPost, "/game/click", `{"col":0,"username":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid-cell", body["error"])

	rec, body = f.do(t, http.MethodPost, "/game/click", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_json", body["error"])
}

func TestSessionTokenNamesThePlayer(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/session", `{"username":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing-username", body["error"])

	rec, body = f.do(t, http.MethodPost, "/session", `{"username":" alice "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["username"])
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)
	require.Len(t, rec.Result().Cookies(), 1)
	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, "ms_token", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	// Bearer token.
	rec, body = f.do(t, http.MethodPost, "/game/start", `{"row":1,"col":1}`, "Authorization", "Bearer "+tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["actor"])

	// Cookie.
	rec, body = f.do(t, http.MethodGet, "/game/table", "", "Cookie", "ms_token="+tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{map[string]any{"user": "alice", "moves": float64(1)}}, body["players"])

	// A forged token names nobody.
	rec, body = f.do(t, http.MethodPost, "/game/start", `{"row":1,"col":1}`, "Authorization", "Bearer "+tok+"x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing-username", body["error"])
}

func TestWebsocketIdentity(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, http.MethodPost, "/session", `{"username":"carol"}`)
	tok := body["token"].(string)

	f.do(t, http.MethodGet, "/ws?username=alice", "")
	f.do(t, http.MethodGet, "/ws?token="+tok, "")
	f.do(t, http.MethodGet, "/ws", "", "Cookie", "ms_token="+tok)
	f.do(t, http.MethodGet, "/ws", "")

	assert.Equal(t, []string{"alice", "carol", "carol", ""}, f.ws.usernames)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	save := func(id string, offset time.Duration, status game.Status, winner, loser string, players ...game.PlayerMoves) {
		require.NoError(t, f.st.Save(ctx, &game.Snapshot{
			ID: id, Status: status, Winner: winner, Loser: loser, Players: players,
			CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset),
		}))
	}
	save("g1", 0, game.StatusLost, "", "bob", game.PlayerMoves{Username: "bob", Moves: 3})
	save("g2", time.Minute, game.StatusWon, "alice", "", game.PlayerMoves{Username: "alice", Moves: 9})
	save("g3", 2*time.Minute, game.StatusActive, "", "", game.PlayerMoves{Username: "zoe", Moves: 1})

	rec, body := f.do(t, http.MethodGet, "/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	top, _ := body["top"].([]any)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].(map[string]any)["user"])
	assert.Equal(t, "bob", top[1].(map[string]any)["user"])

	rec, body = f.do(t, http.MethodGet, "/leaderboard?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["top"], 1)

	rec, body = f.do(t, http.MethodGet, "/leaderboard?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_limit", body["error"])
}
