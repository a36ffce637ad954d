// internal/leaderboard/leaderboard.go
//
// Cross-game player rankings.
// Responsibilities:
//   - Aggregate per-player totals from finished games (moves, games played, wins, losses).
//   - Order players: most wins first, then fewest average moves, then first appearance.
//
// Notes:
//   - Only won/lost games count. A game superseded by a restart never finished and is skipped.
//   - Rankings are recomputed from stored history on every request; nothing is cached.

package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/coopsweeper/server/internal/game"
)

// DefaultLimit is the number of rows returned when the caller does not ask for a size.
const DefaultLimit = 20

// Entry is one leaderboard row.
type Entry struct {
	User         string  `json:"user"`
	TotalMoves   int     `json:"totalMoves"`
	GamesPlayed  int     `json:"gamesPlayed"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	AverageMoves float64 `json:"averageMoves"`
}

// Rank folds history (oldest first) into ordered entries.
func Rank(history []*game.Snapshot) []Entry {
	byUser := map[string]int{} // username → index into out
	out := []Entry{}

	for _, g := range history {
		if g == nil || !g.Status.Terminal() {
			continue
		}
		for _, p := range g.Players {
			i, ok := byUser[p.Username]
			if !ok {
				i = len(out)
				byUser[p.Username] = i
				out = append(out, Entry{User: p.Username})
			}
			e := &out[i]
			e.TotalMoves += p.Moves
			e.GamesPlayed++
			switch p.Username {
			case g.Winner:
				e.Wins++
			case g.Loser:
				e.Losses++
			}
		}
	}

	for i := range out {
		if out[i].GamesPlayed > 0 {
			out[i].AverageMoves = float64(out[i].TotalMoves) / float64(out[i].GamesPlayed)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		// Compare averages without float rounding: a.Total/a.Games < b.Total/b.Games.
		return a.TotalMoves*b.GamesPlayed < b.TotalMoves*a.GamesPlayed
	})
	return out
}

// Source supplies finished games in creation order. store.Store satisfies it.
type Source interface {
	History(ctx context.Context) ([]*game.Snapshot, error)
}

// Service serves rankings from a Source.
type Service struct {
	src Source
}

// NewService wraps src.
func NewService(src Source) *Service { return &Service{src: src} }

// Top returns at most limit entries (DefaultLimit when limit <= 0).
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	history, err := s.src.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: load history: %w", err)
	}
	rows := Rank(history)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
