// internal/game/engine.go
//
// Game state machine for the single shared board.
// Responsibilities:
//   - Own the one game instance; every operation runs to completion under one mutex.
//   - Start: generate a board around the first click, reveal it, reset the ledger.
//   - Click: validate, reveal or explode, count the move, check the win threshold.
//   - Track state transitions: none → active → won/lost (terminal until the next start).
//   - Notify listeners (broadcast hub, snapshot writer) in commit order.
//
// Notes:
//   - Mutations are computed on copies and swapped in at the end, so a failed operation
//     leaves the previous state intact.
//   - Every start bumps the generation. Clicks quoting an older generation are rejected
//     instead of landing on the new board.

package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRows  = 20
	DefaultCols  = 10
	DefaultMines = 40
)

// Config fixes the board dimensions for every game the engine creates.
type Config struct {
	Rows  int
	Cols  int
	Mines int
}

// DefaultConfig is the 20x10 board with 40 mines.
func DefaultConfig() Config {
	return Config{Rows: DefaultRows, Cols: DefaultCols, Mines: DefaultMines}
}

// WinThreshold is the number of safe cells that must be open to win.
func (c Config) WinThreshold() int { return c.Rows*c.Cols - c.Mines }

// Validate checks the generation precondition.
func (c Config) Validate() error { return checkBoardConfig(c.Rows, c.Cols, c.Mines) }

// Event is delivered to listeners after every committed mutation.
type Event struct {
	Result   Result
	Snapshot *Snapshot
}

// Listener observes committed mutations. It runs under the engine lock and must not block.
type Listener func(Event)

// Option customizes an Engine.
type Option func(*Engine)

// WithRand sets the random source used for mine placement.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithListener registers a mutation listener.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// Engine serializes all operations on the shared game.
type Engine struct {
	mu         sync.Mutex
	cfg        Config
	rng        *rand.Rand
	now        func() time.Time
	listeners  []Listener
	generation uint64
	cur        *state // nil until the first start
}

// state is the mutable game; only the engine touches it, always under mu.
type state struct {
	id         string
	generation uint64
	mines      Grid
	board      Grid
	ledger     *Ledger
	status     Status
	winner     string
	loser      string
	createdAt  time.Time
	updatedAt  time.Time
	finishedAt *time.Time
}

// New constructs an Engine. An invalid Config is a configuration error.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AddListener registers l after construction (the hub is built after the engine).
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Config returns the board configuration.
func (e *Engine) Config() Config { return e.cfg }

// Start creates a new game around (m.Row, m.Col), superseding any current game.
func (e *Engine) Start(m Move) (Result, error) {
	username, err := e.validate(m)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mines, err := Generate(e.cfg.Rows, e.cfg.Cols, e.cfg.Mines, m.Row, m.Col, e.rng)
	if err != nil {
		return Result{}, fmt.Errorf("%w: generate: %v", ErrInternal, err)
	}
	board := NewGrid(e.cfg.Rows, e.cfg.Cols, Hidden)
	if _, err := Reveal(mines, board, m.Row, m.Col); err != nil {
		return Result{}, fmt.Errorf("%w: reveal: %v", ErrInternal, err)
	}

	now := e.now().UTC()
	next := &state{
		id:         uuid.NewString(),
		generation: e.generation + 1,
		mines:      mines,
		board:      board,
		ledger:     NewLedger(PlayerMoves{Username: username, Moves: 1}),
		status:     StatusActive,
		createdAt:  now,
		updatedAt:  now,
	}
	outcome := OutcomeUpdated
	// Only reachable on boards with almost no mines.
	if revealedCount(board) == e.cfg.WinThreshold() {
		next.status, next.winner, next.finishedAt = StatusWon, username, &now
		outcome = OutcomeWon
	}

	e.generation = next.generation
	e.cur = next
	return e.commit(outcome, username), nil
}

// Click opens (m.Row, m.Col) on the active game on behalf of m.Username.
func (e *Engine) Click(m Move) (Result, error) {
	username, err := e.validate(m)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.cur
	if cur == nil {
		return Result{}, ErrNotActive
	}
	if m.Generation != 0 && m.Generation != cur.generation {
		return Result{}, fmt.Errorf("%w: generation %d, current %d", ErrStaleGame, m.Generation, cur.generation)
	}
	if cur.status != StatusActive {
		return Result{}, ErrNotActive
	}
	if cur.board[m.Row][m.Col] != Hidden {
		return Result{}, ErrAlreadyRevealed
	}

	board := cur.board.Clone()
	ledger := cur.ledger.Clone()
	ledger.Add(username, 1)
	now := e.now().UTC()

	if cur.mines[m.Row][m.Col] == Mine {
		revealMines(cur.mines, board)
		cur.board, cur.ledger = board, ledger
		cur.status, cur.loser = StatusLost, username
		cur.updatedAt, cur.finishedAt = now, &now
		return e.commit(OutcomeLost, username), nil
	}

	if _, err := Reveal(cur.mines, board, m.Row, m.Col); err != nil {
		return Result{}, fmt.Errorf("%w: reveal: %v", ErrInternal, err)
	}
	cur.board, cur.ledger, cur.updatedAt = board, ledger, now
	if revealedCount(board) == e.cfg.WinThreshold() {
		cur.status, cur.winner, cur.finishedAt = StatusWon, username, &now
		return e.commit(OutcomeWon, username), nil
	}
	return e.commit(OutcomeUpdated, username), nil
}

// Current returns the client-safe view of the game.
func (e *Engine) Current() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Table returns the per-game ledger in first-appearance order.
func (e *Engine) Table() []PlayerMoves {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return []PlayerMoves{}
	}
	return e.cur.ledger.Rows()
}

// Snapshot returns a deep copy of the game for persistence, or nil if none was started.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Restore replaces the current game with a persisted snapshot (used at boot).
// Snapshots whose dimensions do not match the engine configuration are rejected.
func (e *Engine) Restore(s *Snapshot) error {
	if s == nil {
		return nil
	}
	if s.Rows != e.cfg.Rows || s.Cols != e.cfg.Cols || s.Mines != e.cfg.Mines {
		return fmt.Errorf("restore: snapshot is %dx%d/%d, engine is %dx%d/%d",
			s.Rows, s.Cols, s.Mines, e.cfg.Rows, e.cfg.Cols, e.cfg.Mines)
	}
	if s.MineGrid.Rows() != s.Rows || s.MineGrid.Cols() != s.Cols ||
		s.Board.Rows() != s.Rows || s.Board.Cols() != s.Cols {
		return fmt.Errorf("restore: grid dimensions do not match %dx%d", s.Rows, s.Cols)
	}
	switch s.Status {
	case StatusActive, StatusWon, StatusLost:
	default:
		return fmt.Errorf("restore: unexpected status %q", s.Status)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	st := &state{
		id:         s.ID,
		generation: s.Generation,
		mines:      s.MineGrid.Clone(),
		board:      s.Board.Clone(),
		ledger:     NewLedger(s.Players...),
		status:     s.Status,
		winner:     s.Winner,
		loser:      s.Loser,
		createdAt:  s.CreatedAt,
		updatedAt:  s.UpdatedAt,
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		st.finishedAt = &t
	}
	if st.generation <= e.generation {
		st.generation = e.generation + 1
	}
	e.generation = st.generation
	e.cur = st
	return nil
}

// validate normalizes the username and bounds-checks the cell without taking the lock.
func (e *Engine) validate(m Move) (string, error) {
	username := strings.TrimSpace(m.Username)
	if username == "" {
		return "", ErrMissingUsername
	}
	if m.Row < 0 || m.Row >= e.cfg.Rows || m.Col < 0 || m.Col >= e.cfg.Cols {
		return "", fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrInvalidCell, m.Row, m.Col, e.cfg.Rows, e.cfg.Cols)
	}
	return username, nil
}

// commit builds the result and notifies listeners. Caller holds mu.
func (e *Engine) commit(outcome Outcome, actor string) Result {
	res := Result{Outcome: outcome, Actor: actor, View: e.viewLocked()}
	if len(e.listeners) > 0 {
		ev := Event{Result: res, Snapshot: e.snapshotLocked()}
		for _, l := range e.listeners {
			l(ev)
		}
	}
	return res
}

func (e *Engine) viewLocked() View {
	v := View{
		Rows:    e.cfg.Rows,
		Cols:    e.cfg.Cols,
		Mines:   e.cfg.Mines,
		Status:  StatusNone,
		Players: []PlayerMoves{},
	}
	cur := e.cur
	if cur == nil {
		v.Board = NewGrid(e.cfg.Rows, e.cfg.Cols, Hidden)
		return v
	}
	v.ID = cur.id
	v.Generation = cur.generation
	v.Board = cur.board.Clone()
	v.Status = cur.status
	v.Winner = cur.winner
	v.Loser = cur.loser
	v.Players = cur.ledger.Rows()
	return v
}

func (e *Engine) snapshotLocked() *Snapshot {
	cur := e.cur
	if cur == nil {
		return nil
	}
	s := &Snapshot{
		ID:         cur.id,
		Generation: cur.generation,
		Rows:       e.cfg.Rows,
		Cols:       e.cfg.Cols,
		Mines:      e.cfg.Mines,
		MineGrid:   cur.mines.Clone(),
		Board:      cur.board.Clone(),
		Players:    cur.ledger.Rows(),
		Status:     cur.status,
		Winner:     cur.winner,
		Loser:      cur.loser,
		CreatedAt:  cur.createdAt,
		UpdatedAt:  cur.updatedAt,
	}
	if cur.finishedAt != nil {
		t := *cur.finishedAt
		s.FinishedAt = &t
	}
	return s
}
