// internal/store/sqlite.go
//
// SQLite-backed Store.
// Responsibilities:
//   - Upsert one row per game ID (grids and ledger JSON-encoded).
//   - Load the most recent game for restore at boot.
//   - List finished games in creation order for the leaderboard.
//
// Notes:
//   - Timestamps are stored as Unix nanoseconds so ORDER BY is chronological.
//   - The schema lives in sql/*.sql and is applied by the server's migrate step.

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coopsweeper/server/internal/game"
)

// Migrations holds the schema files applied at startup, in lexical order.
//
//go:embed sql/*.sql
var Migrations embed.FS

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open, migrated database handle.
func NewSQLiteStore(db *sql.DB) Store {
	if db == nil {
		panic("store: nil *sql.DB")
	}
	return &sqliteStore{db: db}
}

const selectColumns = `id, generation, board_rows, board_cols, mines, mine_grid, board, players,
       status, winner, loser, created_at, updated_at, finished_at`

// Save inserts the game or replaces its mutable columns.
func (s *sqliteStore) Save(ctx context.Context, g *game.Snapshot) error {
	mineGrid, err := json.Marshal(g.MineGrid)
	if err != nil {
		return fmt.Errorf("sqlite: encode mine grid: %w", err)
	}
	board, err := json.Marshal(g.Board)
	if err != nil {
		return fmt.Errorf("sqlite: encode board: %w", err)
	}
	players, err := json.Marshal(g.Players)
	if err != nil {
		return fmt.Errorf("sqlite: encode players: %w", err)
	}
	var finished sql.NullInt64
	if g.FinishedAt != nil {
		finished = sql.NullInt64{Int64: g.FinishedAt.UnixNano(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO games (id, generation, board_rows, board_cols, mines, mine_grid, board, players,
                           status, winner, loser, created_at, updated_at, finished_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            board       = excluded.board,
            players     = excluded.players,
            status      = excluded.status,
            winner      = excluded.winner,
            loser       = excluded.loser,
            updated_at  = excluded.updated_at,
            finished_at = excluded.finished_at`,
		g.ID, g.Generation, g.Rows, g.Cols, g.Mines, string(mineGrid), string(board), string(players),
		string(g.Status), g.Winner, g.Loser, g.CreatedAt.UnixNano(), g.UpdatedAt.UnixNano(), finished,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save game %s: %w", g.ID, err)
	}
	return nil
}

// Latest returns the most recently created game.
func (s *sqliteStore) Latest(ctx context.Context) (*game.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+`
        FROM games ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	g, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest game: %w", err)
	}
	return g, nil
}

// History returns won and lost games, oldest first.
func (s *sqliteStore) History(ctx context.Context) ([]*game.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+`
        FROM games
        WHERE status IN (?, ?)
        ORDER BY created_at ASC, rowid ASC`, string(game.StatusWon), string(game.StatusLost))
	if err != nil {
		return nil, fmt.Errorf("sqlite: history: %w", err)
	}
	defer rows.Close()

	out := []*game.Snapshot{}
	for rows.Next() {
		g, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: history row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (*game.Snapshot, error) {
	var (
		g                        game.Snapshot
		mineGrid, board, players string
		status                   string
		created, updated         int64
		finished                 sql.NullInt64
	)
	if err := sc.Scan(&g.ID, &g.Generation, &g.Rows, &g.Cols, &g.Mines, &mineGrid, &board, &players,
		&status, &g.Winner, &g.Loser, &created, &updated, &finished); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mineGrid), &g.MineGrid); err != nil {
		return nil, fmt.Errorf("decode mine grid: %w", err)
	}
	if err := json.Unmarshal([]byte(board), &g.Board); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	if err := json.Unmarshal([]byte(players), &g.Players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	g.Status = game.Status(status)
	g.CreatedAt = time.Unix(0, created).UTC()
	g.UpdatedAt = time.Unix(0, updated).UTC()
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		g.FinishedAt = &t
	}
	return &g, nil
}
