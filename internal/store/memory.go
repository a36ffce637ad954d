// internal/store/memory.go
//
// Store interface for game snapshots plus an in-memory implementation.
// The in-memory store is used in development/testing, or when durability is not required.
//
// Characteristics:
//   - Keeps the latest snapshot per game ID, plus the order games were first seen.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/coopsweeper/server/internal/game"
)

// ErrNotFound is returned by Latest when nothing has been saved yet.
var ErrNotFound = errors.New("store: not found")

// Store defines the persistence interface for game snapshots.
// Implementations may be backed by memory (this file), SQLite or Redis.
// The store is never authoritative for the live game; the engine is.
type Store interface {
	// Save inserts or replaces the snapshot with the same ID.
	Save(ctx context.Context, s *game.Snapshot) error

	// Latest returns the most recently created game, or ErrNotFound.
	Latest(ctx context.Context) (*game.Snapshot, error)

	// History returns every finished (won or lost) game, oldest first.
	History(ctx context.Context) ([]*game.Snapshot, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex              // guards games and order
	games map[string]*game.Snapshot // keyed by Snapshot.ID
	order []string                  // IDs in first-save order
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Snapshot)}
}

// Save adds or updates the snapshot. The stored value is a private copy.
func (m *memory) Save(ctx context.Context, s *game.Snapshot) error {
	cp := clone(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	m.games[s.ID] = cp
	return nil
}

// Latest returns the game with the newest CreatedAt (later saves win ties).
func (m *memory) Latest(ctx context.Context) (*game.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *game.Snapshot
	for _, id := range m.order {
		s := m.games[id]
		if latest == nil || !s.CreatedAt.Before(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return clone(latest), nil
}

// History returns terminal games ordered by CreatedAt, then first-save order.
func (m *memory) History(ctx context.Context) ([]*game.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*game.Snapshot, 0, len(m.order))
	for _, id := range m.order {
		if s := m.games[id]; s.Status.Terminal() {
			out = append(out, clone(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// clone deep-copies a snapshot so callers cannot alias stored grids.
func clone(s *game.Snapshot) *game.Snapshot {
	cp := *s
	cp.MineGrid = s.MineGrid.Clone()
	cp.Board = s.Board.Clone()
	cp.Players = append([]game.PlayerMoves(nil), s.Players...)
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
