// internal/game/types.go
//
// Core type definitions for the shared Minesweeper game.
// Defines:
//   - Cell/Grid: the hidden mine layout and the player-visible board share one cell encoding.
//   - Status: lifecycle of the single shared game (none → active → won/lost).
//   - Move, Result, View, Snapshot: what flows in and out of the Engine.

package game

import "time"

// Cell is one square of a Grid.
// Values 0–8 are adjacency counts; negative values are sentinels:
//   - Mine (-1):   a mine in the mine grid, or a mine exposed after a loss in the board.
//   - Hidden (-2): a square the players have not opened yet (board only).
type Cell int8

const (
	Mine         Cell = -1
	Hidden       Cell = -2
	MineRevealed      = Mine
)

// Grid is a rows×cols matrix of cells indexed as g[row][col].
type Grid [][]Cell

// NewGrid allocates a rows×cols grid with every cell set to fill.
func NewGrid(rows, cols int, fill Cell) Grid {
	g := make(Grid, rows)
	for r := range g {
		g[r] = make([]Cell, cols)
		for c := range g[r] {
			g[r][c] = fill
		}
	}
	return g
}

// Rows reports the number of rows.
func (g Grid) Rows() int { return len(g) }

// Cols reports the number of columns (0 for an empty grid).
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// InBounds reports whether (row, col) addresses a cell of g.
func (g Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows() && col >= 0 && col < g.Cols()
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for r := range g {
		out[r] = append([]Cell(nil), g[r]...)
	}
	return out
}

// Count returns how many cells satisfy pred.
func (g Grid) Count(pred func(Cell) bool) int {
	n := 0
	for _, row := range g {
		for _, c := range row {
			if pred(c) {
				n++
			}
		}
	}
	return n
}

// Status is the coarse state of the shared game.
type Status string

const (
	StatusNone   Status = "none"
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// Terminal reports whether no further clicks are accepted.
func (s Status) Terminal() bool { return s == StatusWon || s == StatusLost }

// Outcome names what a successful operation did; it doubles as the broadcast event name.
type Outcome string

const (
	OutcomeUpdated Outcome = "board-updated"
	OutcomeWon     Outcome = "game-won"
	OutcomeLost    Outcome = "game-over"
)

// Move is a single player action addressed at a cell.
// Generation is optional on clicks: when non-zero it must match the current board.
type Move struct {
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Username   string `json:"username"`
	Generation uint64 `json:"generation,omitempty"`
}

// PlayerMoves is one row of the per-game ledger.
type PlayerMoves struct {
	Username string `json:"user"`
	Moves    int    `json:"moves"`
}

// View is the client-safe projection of the game. It never contains the mine layout
// beyond what the board already shows.
type View struct {
	ID         string        `json:"id,omitempty"`
	Generation uint64        `json:"generation"`
	Rows       int           `json:"rows"`
	Cols       int           `json:"cols"`
	Mines      int           `json:"mines"`
	Board      Grid          `json:"board"`
	Status     Status        `json:"status"`
	Winner     string        `json:"winner,omitempty"`
	Loser      string        `json:"loser,omitempty"`
	Players    []PlayerMoves `json:"players"`
}

// Result is returned by Start and Click.
type Result struct {
	Outcome Outcome `json:"type"`
	Actor   string  `json:"actor"`
	View    View    `json:"game"`
}

// Snapshot is the persisted form of a game, mine layout included.
type Snapshot struct {
	ID         string        `json:"id"`
	Generation uint64        `json:"generation"`
	Rows       int           `json:"rows"`
	Cols       int           `json:"cols"`
	Mines      int           `json:"mines"`
	MineGrid   Grid          `json:"mineGrid"`
	Board      Grid          `json:"board"`
	Players    []PlayerMoves `json:"players"`
	Status     Status        `json:"status"`
	Winner     string        `json:"winner,omitempty"`
	Loser      string        `json:"loser,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
}
