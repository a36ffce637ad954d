// internal/hub/hub.go
//
// Websocket fan-out for the shared game.
// Responsibilities:
//   - Track connected sessions (register/unregister) in a single event loop.
//   - Broadcast every committed game result to all sessions, in commit order.
//   - Greet new sessions with the current board and per-game table.
//
// Notes:
//   - Only the Run goroutine touches the session set.
//   - Sends never block: a session whose buffer is full misses that frame (logged).

package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coopsweeper/server/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Per-session outbound buffer.
	sendBuffer = 64

	// Hub inbox size.
	inboxSize = 512
)

// Game is the part of the engine the hub drives. *game.Engine satisfies it.
type Game interface {
	Start(m game.Move) (game.Result, error)
	Click(m game.Move) (game.Result, error)
	Current() game.View
	Table() []game.PlayerMoves
}

type messageKind int

const (
	kindRegister messageKind = iota
	kindUnregister
	kindBroadcast
)

// hubMessage is one item of the hub inbox.
type hubMessage struct {
	kind   messageKind
	client *Client
	data   []byte
}

// Hub owns the set of connected sessions.
type Hub struct {
	game     Game
	upgrader websocket.Upgrader

	inbox   chan hubMessage
	stopped chan struct{}
	clients map[*Client]struct{} // Run goroutine only
	count   atomic.Int64
}

// New creates a hub driving g. allowedOrigin is the browser origin accepted on upgrade;
// requests without an Origin header (non-browser clients) are always accepted.
func New(g Game, allowedOrigin string) *Hub {
	if g == nil {
		panic("hub: nil game")
	}
	h := &Hub{
		game:    g,
		inbox:   make(chan hubMessage, inboxSize),
		stopped: make(chan struct{}),
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin == "" || origin == allowedOrigin
		},
	}
	return h
}

// Run processes the inbox until ctx is cancelled, then disconnects every session.
func (h *Hub) Run(ctx context.Context) error {
	log.Info().Str("component", "hub").Msg("hub running")
	defer close(h.stopped)
	for {
		select {
		case msg := <-h.inbox:
			switch msg.kind {
			case kindRegister:
				h.register(msg.client)
			case kindUnregister:
				h.unregister(msg.client)
			case kindBroadcast:
				h.broadcast(msg.data)
			}
		case <-ctx.Done():
			for c := range h.clients {
				h.unregister(c)
			}
			log.Info().Str("component", "hub").Msg("hub stopped")
			return nil
		}
	}
}

// Clients reports the number of registered sessions.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Publish queues a committed result for every session. It never blocks.
func (h *Hub) Publish(res game.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Str("component", "hub").Msg("encode broadcast")
		return
	}
	select {
	case h.inbox <- hubMessage{kind: kindBroadcast, data: data}:
	default:
		log.Warn().Str("component", "hub").Str("type", string(res.Outcome)).Msg("hub inbox full, dropping broadcast")
	}
}

// Listener adapts the hub to game.Listener.
func (h *Hub) Listener() game.Listener {
	return func(ev game.Event) { h.Publish(ev.Result) }
}

// ServeWS upgrades the request and attaches a session for username.
// An empty username may connect and watch; its moves are rejected by the engine.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, username string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "hub").Msg("websocket upgrade")
		return
	}
	c := newClient(h, conn, username)
	select {
	case h.inbox <- hubMessage{kind: kindRegister, client: c}:
	case <-h.stopped:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) {
	h.clients[c] = struct{}{}
	h.count.Add(1)
	log.Info().Str("component", "hub").Str("user", c.username).Int("clients", len(h.clients)).
		Msg("client registered")

	c.sendJSON(envelope{Type: typeCurrentBoard, Game: viewPtr(h.game.Current())})
	c.sendJSON(envelope{Type: typeTable, Players: h.game.Table()})
}

func (h *Hub) unregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.count.Add(-1)
	c.close()
	log.Info().Str("component", "hub").Str("user", c.username).Int("clients", len(h.clients)).
		Msg("client unregistered")
}

func (h *Hub) broadcast(data []byte) {
	for c := range h.clients {
		if !c.trySend(data) {
			log.Warn().Str("component", "hub").Str("user", c.username).Msg("client buffer full, dropping frame")
		}
	}
}

// leave asks the loop to drop c; it gives up once the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.inbox <- hubMessage{kind: kindUnregister, client: c}:
	case <-h.stopped:
	}
}

func viewPtr(v game.View) *game.View { return &v }
