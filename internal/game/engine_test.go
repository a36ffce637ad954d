package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

// activeGame restores a 3x3 game with one mine at (0,0). Cells listed in open are revealed.
//
//	* 1 0
//	1 1 0
//	0 0 0
func activeGame(t *testing.T, e *Engine, open ...[2]int) {
	t.Helper()
	mines := layout(
		"*..",
		"...",
		"...",
	)
	board := NewGrid(3, 3, Hidden)
	for _, rc := range open {
		board[rc[0]][rc[1]] = mines[rc[0]][rc[1]]
	}
	require.NoError(t, e.Restore(&Snapshot{
		ID: "g1", Generation: 1, Rows: 3, Cols: 3, Mines: 1,
		MineGrid: mines, Board: board, Status: StatusActive,
		Players:   []PlayerMoves{{Username: "alice", Moves: 1}},
		CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}))
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(Config{Rows: 2, Cols: 2, Mines: 3})
	assert.ErrorIs(t, err, ErrBoardConfig)
}

func TestEngine_NoGame(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	v := e.Current()
	assert.Equal(t, StatusNone, v.Status)
	assert.Equal(t, 20, v.Board.Rows())
	assert.Equal(t, 10, v.Board.Cols())
	assert.Nil(t, e.Snapshot())

	_, err := e.Click(Move{Row: 1, Col: 1, Username: "bob"})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.True(t, IsConflict(err))
}

func TestEngine_Start(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Start(Move{Row: 5, Col: 5, Username: "  alice "})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, "alice", res.Actor)
	assert.Equal(t, StatusActive, res.View.Status)
	assert.Equal(t, uint64(1), res.View.Generation)
	assert.Equal(t, []PlayerMoves{{Username: "alice", Moves: 1}}, res.View.Players)
	assert.NotEqual(t, Hidden, res.View.Board[5][5])

	snap := e.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 40, snap.MineGrid.Count(func(c Cell) bool { return c == Mine }))
	assert.NotEqual(t, Mine, snap.MineGrid[5][5])
	assert.Equal(t, fixedNow, snap.CreatedAt)
	assert.Nil(t, snap.FinishedAt)

	// Whatever the board shows matches the hidden truth.
	for r := range snap.Board {
		for c, cell := range snap.Board[r] {
			if cell != Hidden {
				assert.Equal(t, snap.MineGrid[r][c], cell)
			}
		}
	}
}

func TestEngine_StartValidation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	_, err := e.Start(Move{Row: 20, Col: 0, Username: "alice"})
	assert.ErrorIs(t, err, ErrInvalidCell)
	assert.True(t, IsValidation(err))

	_, err = e.Start(Move{Row: 0, Col: -1, Username: "alice"})
	assert.ErrorIs(t, err, ErrInvalidCell)

	_, err = e.Start(Move{Row: 0, Col: 0, Username: " "})
	assert.ErrorIs(t, err, ErrMissingUsername)

	assert.Equal(t, StatusNone, e.Current().Status)
}

func TestEngine_StartSupersedesAndRejectsStaleClicks(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	first, err := e.Start(Move{Row: 0, Col: 0, Username: "alice"})
	require.NoError(t, err)
	second, err := e.Start(Move{Row: 19, Col: 9, Username: "bob"})
	require.NoError(t, err)

	assert.Equal(t, first.View.Generation+1, second.View.Generation)
	assert.NotEqual(t, first.View.ID, second.View.ID)
	assert.Equal(t, []PlayerMoves{{Username: "bob", Moves: 1}}, e.Table())

	before := e.Current()
	_, err = e.Click(Move{Row: 10, Col: 5, Username: "alice", Generation: first.View.Generation})
	assert.ErrorIs(t, err, ErrStaleGame)
	assert.Equal(t, before, e.Current())
}

func TestEngine_ClickNumberThenWin(t *testing.T) {
	e := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1})
	activeGame(t, e)

	res, err := e.Click(Move{Row: 1, Col: 1, Username: "bob", Generation: 1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, Cell(1), res.View.Board[1][1])
	assert.Equal(t, StatusActive, res.View.Status)

	res, err = e.Click(Move{Row: 2, Col: 2, Username: "carol"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeWon, res.Outcome)
	assert.Equal(t, StatusWon, res.View.Status)
	assert.Equal(t, "carol", res.View.Winner)
	assert.Empty(t, res.View.Loser)
	assert.Equal(t, Hidden, res.View.Board[0][0])
	assert.Equal(t, []PlayerMoves{
		{Username: "alice", Moves: 1},
		{Username: "bob", Moves: 1},
		{Username: "carol", Moves: 1},
	}, res.View.Players)

	snap := e.Snapshot()
	require.NotNil(t, snap.FinishedAt)

	_, err = e.Click(Move{Row: 0, Col: 0, Username: "dave"})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestEngine_ClickMineLoses(t *testing.T) {
	e := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1})
	activeGame(t, e, [2]int{2, 2})

	res, err := e.Click(Move{Row: 0, Col: 0, Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLost, res.Outcome)
	assert.Equal(t, StatusLost, res.View.Status)
	assert.Equal(t, "bob", res.View.Loser)
	assert.Empty(t, res.View.Winner)
	assert.Equal(t, MineRevealed, res.View.Board[0][0])
	assert.Equal(t, 1, e.Snapshot().Board.Count(func(c Cell) bool { return c == MineRevealed }))
	assert.Equal(t, []PlayerMoves{{Username: "alice", Moves: 1}, {Username: "bob", Moves: 1}}, e.Table())

	_, err = e.Click(Move{Row: 1, Col: 1, Username: "bob"})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, 1, e.Snapshot().Players[1].Moves)
}

func TestEngine_AlreadyRevealedIsNoop(t *testing.T) {
	e := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1})
	activeGame(t, e, [2]int{1, 1})

	before := e.Snapshot()
	_, err := e.Click(Move{Row: 1, Col: 1, Username: "alice"})
	assert.ErrorIs(t, err, ErrAlreadyRevealed)
	assert.Equal(t, "already-revealed", Reason(err))
	assert.Equal(t, before, e.Snapshot())
}

func TestEngine_ClickValidation(t *testing.T) {
	e := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1})
	activeGame(t, e)

	_, err := e.Click(Move{Row: 3, Col: 0, Username: "bob"})
	assert.ErrorIs(t, err, ErrInvalidCell)
	assert.Equal(t, "invalid-cell", Reason(err))

	_, err = e.Click(Move{Row: 0, Col: 1})
	assert.ErrorIs(t, err, ErrMissingUsername)
	assert.Equal(t, []PlayerMoves{{Username: "alice", Moves: 1}}, e.Table())
}

func TestEngine_StartCanWinTinyBoard(t *testing.T) {
	e := newTestEngine(t, Config{Rows: 1, Cols: 2, Mines: 0})

	res, err := e.Start(Move{Row: 0, Col: 0, Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeWon, res.Outcome)
	assert.Equal(t, "alice", res.View.Winner)
}

func TestEngine_ConcurrentClicksSingleWinner(t *testing.T) {
	e := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1})
	// Only (0,1) and (1,0) remain hidden.
	activeGame(t, e, [2]int{0, 2}, [2]int{1, 1}, [2]int{1, 2}, [2]int{2, 0}, [2]int{2, 1}, [2]int{2, 2})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []Result
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := Move{Row: 0, Col: 1, Username: string(rune('a' + i%26))}
			if i%2 == 1 {
				m.Row, m.Col = 1, 0
			}
			res, err := e.Click(m)
			if err != nil {
				assert.True(t, IsConflict(err), "unexpected error %v", err)
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, results, 2)
	wins := 0
	for _, r := range results {
		if r.Outcome == OutcomeWon {
			wins++
			assert.Equal(t, r.Actor, r.View.Winner)
			assert.Equal(t, r.Actor, e.Current().Winner)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, StatusWon, e.Current().Status)
}

func TestEngine_ListenersSeeCommitOrder(t *testing.T) {
	var events []Event
	e := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1}, WithListener(func(ev Event) {
		events = append(events, ev)
	}))
	activeGame(t, e)

	_, err := e.Click(Move{Row: 1, Col: 1, Username: "bob"})
	require.NoError(t, err)
	_, err = e.Click(Move{Row: 1, Col: 1, Username: "bob"})
	require.Error(t, err)
	_, err = e.Click(Move{Row: 0, Col: 0, Username: "carol"})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, OutcomeUpdated, events[0].Result.Outcome)
	assert.Equal(t, StatusActive, events[0].Snapshot.Status)
	assert.Equal(t, OutcomeLost, events[1].Result.Outcome)
	assert.Equal(t, "carol", events[1].Snapshot.Loser)

	// Snapshots are copies, not views into live state.
	events[1].Snapshot.Board[2][2] = 5
	assert.Equal(t, Hidden, e.Snapshot().Board[2][2])
}

func TestEngine_Restore(t *testing.T) {
	e := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1})
	activeGame(t, e)
	snap := e.Snapshot()

	other := newTestEngine(t, Config{Rows: 3, Cols: 3, Mines: 1})
	require.NoError(t, other.Restore(snap))
	assert.Equal(t, snap, other.Snapshot())

	res, err := other.Start(Move{Row: 1, Col: 1, Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, snap.Generation+1, res.View.Generation)

	wrong := newTestEngine(t, DefaultConfig())
	assert.Error(t, wrong.Restore(snap))
	assert.Equal(t, StatusNone, wrong.Current().Status)
}
