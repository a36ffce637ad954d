// internal/game/board.go
//
// Mine layout generation.
// Responsibilities:
//   - Place exactly mineCount mines, never on the safe (first-clicked) cell.
//   - Compute the adjacency count of every non-mine cell once, after placement.
//
// Placement resamples random coordinates and rejects the safe cell and existing mines.
// Resampling is bounded; if the budget runs out the remaining mines are drawn from a
// shuffled list of free cells, so generation always terminates.

package game

import (
	"fmt"
	"math/rand"
)

// resampleFactor bounds rejection sampling to resampleFactor*rows*cols attempts.
const resampleFactor = 16

// Generate returns a rows×cols mine grid with mineCount mines, none at (safeRow, safeCol).
func Generate(rows, cols, mineCount, safeRow, safeCol int, rng *rand.Rand) (Grid, error) {
	if err := checkBoardConfig(rows, cols, mineCount); err != nil {
		return nil, err
	}
	if safeRow < 0 || safeRow >= rows || safeCol < 0 || safeCol >= cols {
		return nil, fmt.Errorf("%w: safe cell (%d,%d) outside %dx%d", ErrInvalidCell, safeRow, safeCol, rows, cols)
	}

	g := NewGrid(rows, cols, 0)
	placeMines(g, mineCount, safeRow, safeCol, rng)
	calculateNeighbors(g)
	return g, nil
}

// checkBoardConfig enforces the generation precondition.
func checkBoardConfig(rows, cols, mineCount int) error {
	if rows < 1 || cols < 1 || mineCount < 0 || mineCount >= rows*cols-1 {
		return fmt.Errorf("%w (rows=%d cols=%d mines=%d)", ErrBoardConfig, rows, cols, mineCount)
	}
	return nil
}

func placeMines(g Grid, count, safeRow, safeCol int, rng *rand.Rand) {
	rows, cols := g.Rows(), g.Cols()
	placed := 0
	for attempts := resampleFactor * rows * cols; placed < count && attempts > 0; attempts-- {
		r, c := rng.Intn(rows), rng.Intn(cols)
		if (r == safeRow && c == safeCol) || g[r][c] == Mine {
			continue
		}
		g[r][c] = Mine
		placed++
	}
	if placed == count {
		return
	}

	free := make([]int, 0, rows*cols)
	for i := 0; i < rows*cols; i++ {
		r, c := i/cols, i%cols
		if (r == safeRow && c == safeCol) || g[r][c] == Mine {
			continue
		}
		free = append(free, i)
	}
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	for _, i := range free[:count-placed] {
		g[i/cols][i%cols] = Mine
	}
}

// calculateNeighbors fills every non-mine cell with its count of mined 8-neighbours.
func calculateNeighbors(g Grid) {
	for r := range g {
		for c := range g[r] {
			if g[r][c] == Mine {
				continue
			}
			g[r][c] = Cell(countAdjacentMines(g, r, c))
		}
	}
}

func countAdjacentMines(g Grid, row, col int) int {
	n := 0
	forEachNeighbor(g, row, col, func(r, c int) {
		if g[r][c] == Mine {
			n++
		}
	})
	return n
}

// forEachNeighbor calls fn for each in-bounds 8-neighbour of (row, col).
func forEachNeighbor(g Grid, row, col int, fn func(r, c int)) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if r, c := row+dr, col+dc; g.InBounds(r, c) {
				fn(r, c)
			}
		}
	}
}
