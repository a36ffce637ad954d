package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coopsweeper/server/internal/game"
)

// Inbound and hub-originated message types. Broadcasts use game.Outcome values.
const (
	typeStartGame    = "start-game"
	typeCellClick    = "cell-click"
	typeCurrentBoard = "current-board"
	typeTable        = "table"
	typeError        = "error"
)

// reasonBadMessage is sent for frames that are not a known request.
const reasonBadMessage = "bad-message"

// inbound is a client request.
type inbound struct {
	Type       string `json:"type"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Generation uint64 `json:"generation,omitempty"`
}

// envelope is a hub-originated frame (greeting or error).
type envelope struct {
	Type    string             `json:"type"`
	Game    *game.View         `json:"game,omitempty"`
	Players []game.PlayerMoves `json:"players,omitempty"`
	Reason  string             `json:"reason,omitempty"`
	Message string             `json:"message,omitempty"`
}

// Client is one websocket session.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	username string
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, username string) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		username: username,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// close stops the write pump; the read pump follows when the socket closes.
func (c *Client) close() { c.once.Do(func() { close(c.done) }) }

// trySend queues data without blocking. send is never closed, so this is safe from any goroutine.
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("component", "hub").Msg("encode frame")
		return
	}
	if !c.trySend(data) {
		log.Warn().Str("component", "hub").Str("user", c.username).Msg("client buffer full, dropping frame")
	}
}

// sendError reports a failed request to this session only.
func (c *Client) sendError(reason, message string) {
	c.sendJSON(envelope{Type: typeError, Reason: reason, Message: message})
}

// readPump applies requests from the socket until it fails, then unregisters.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("component", "hub").Str("user", c.username).Msg("websocket read")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		c.handle(data)
	}
}

// handle runs one request against the game. Successful moves reach this session
// through the broadcast like everyone else; failures are answered here.
func (c *Client) handle(data []byte) {
	var req inbound
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError(reasonBadMessage, "malformed JSON")
		return
	}
	move := game.Move{Row: req.Row, Col: req.Col, Username: c.username, Generation: req.Generation}

	var err error
	switch req.Type {
	case typeStartGame:
		_, err = c.hub.game.Start(move)
	case typeCellClick:
		_, err = c.hub.game.Click(move)
	default:
		c.sendError(reasonBadMessage, "unknown message type "+req.Type)
		return
	}
	if err != nil {
		if !game.IsValidation(err) && !game.IsConflict(err) {
			log.Error().Err(err).Str("component", "hub").Str("user", c.username).Str("type", req.Type).Msg("apply move")
		}
		c.sendError(game.Reason(err), errorMessage(err))
	}
}

// errorMessage hides internal detail from players.
func errorMessage(err error) string {
	if game.IsValidation(err) || game.IsConflict(err) {
		return err.Error()
	}
	return "internal error"
}

// writePump flushes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("component", "hub").Str("user", c.username).Msg("websocket write")
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
