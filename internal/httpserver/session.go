// internal/httpserver/session.go
//
// Player identity.
// Players are not authenticated: a session token only remembers the chosen username so
// REST calls and the websocket can omit it.
//   - POST /session {username} → {token}, also set as an HttpOnly cookie.
//   - Tokens are HS256 JWTs carrying "username", read from Authorization: Bearer or the cookie.
//   - GET /ws?username=… or ?token=… attaches a websocket session.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/coopsweeper/server/internal/game"
)

// maxUsernameLen bounds what a player may call themselves.
const maxUsernameLen = 32

type sessionReq struct {
	Username string `json:"username"`
}

type sessionRes struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleSession issues a token for the given username.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var body sessionReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		writeGameError(w, game.ErrMissingUsername)
		return
	}
	if len(username) > maxUsernameLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username_too_long"})
		return
	}
	tok, exp, err := s.signJWT(username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sign_failed"})
		return
	}
	s.setAuthCookie(w, tok, exp)
	_ = json.NewEncoder(w).Encode(sessionRes{Username: username, Token: tok, ExpiresAt: exp})
}

// handleWS resolves the player and hands the request to the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		if tok := q.Get("token"); tok != "" {
			username = s.parseToken(tok)
		} else {
			username = s.usernameFromToken(r)
		}
	}
	s.ws.ServeWS(w, r, username)
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT naming the player, valid for cfg.JWTExpiry.
func (s *Server) signJWT(username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cfg.JWTExpiry)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// parseToken returns the username in a valid token, or "".
func (s *Server) parseToken(tok string) string {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return ""
	}
	username, _ := claims["username"].(string)
	return strings.TrimSpace(username)
}

// usernameFromToken reads the player from the bearer token or cookie, if any.
func (s *Server) usernameFromToken(r *http.Request) string {
	if tok := s.bearerOrCookie(r); tok != "" {
		return s.parseToken(tok)
	}
	return ""
}

// setAuthCookie writes the token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := s.cfg.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or the session cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}
