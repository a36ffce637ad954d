package game

// Ledger counts moves per player for the current game, ordered by first appearance.
type Ledger struct {
	rows  []PlayerMoves
	index map[string]int
}

// NewLedger returns a ledger holding the given rows (copied).
func NewLedger(rows ...PlayerMoves) *Ledger {
	l := &Ledger{index: make(map[string]int, len(rows))}
	for _, pm := range rows {
		l.Add(pm.Username, pm.Moves)
	}
	return l
}

// Add credits n moves to username, creating the entry on first appearance.
func (l *Ledger) Add(username string, n int) {
	if i, ok := l.index[username]; ok {
		l.rows[i].Moves += n
		return
	}
	l.index[username] = len(l.rows)
	l.rows = append(l.rows, PlayerMoves{Username: username, Moves: n})
}

// Moves returns the moves recorded for username.
func (l *Ledger) Moves(username string) int {
	if i, ok := l.index[username]; ok {
		return l.rows[i].Moves
	}
	return 0
}

// Rows returns a copy of the table in first-appearance order.
func (l *Ledger) Rows() []PlayerMoves {
	return append([]PlayerMoves{}, l.rows...)
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger { return NewLedger(l.rows...) }
