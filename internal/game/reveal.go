package game

import "fmt"

// Reveal opens (row, col) on board using the adjacency counts in mines and returns how many
// cells went from Hidden to revealed.
//
// A zero cell starts a breadth-first flood fill over 8-neighbours: every visited cell is
// revealed, but only zero cells keep expanding, so the numbered border is revealed and stops.
// A numbered cell reveals only itself. A mine is never touched; callers handle mines.
func Reveal(mines, board Grid, row, col int) (int, error) {
	if !mines.InBounds(row, col) || !board.InBounds(row, col) {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrInvalidCell, row, col)
	}
	if mines[row][col] == Mine {
		return 0, ErrMineCell
	}

	cols := mines.Cols()
	revealed := 0
	open := func(r, c int) {
		if board[r][c] == Hidden {
			revealed++
		}
		board[r][c] = mines[r][c]
	}

	if mines[row][col] > 0 {
		open(row, col)
		return revealed, nil
	}

	visited := make([]bool, mines.Rows()*cols)
	queue := [][2]int{{row, col}}
	visited[row*cols+col] = true
	for len(queue) > 0 {
		r, c := queue[0][0], queue[0][1]
		queue = queue[1:]
		open(r, c)
		if mines[r][c] != 0 {
			continue
		}
		forEachNeighbor(mines, r, c, func(nr, nc int) {
			if visited[nr*cols+nc] {
				return
			}
			visited[nr*cols+nc] = true
			queue = append(queue, [2]int{nr, nc})
		})
	}
	return revealed, nil
}

// revealedCount counts opened safe cells (numbers 0–8).
func revealedCount(board Grid) int {
	return board.Count(func(c Cell) bool { return c >= 0 })
}

// revealMines exposes every mine of mines on board as MineRevealed.
func revealMines(mines, board Grid) {
	for r := range mines {
		for c := range mines[r] {
			if mines[r][c] == Mine {
				board[r][c] = MineRevealed
			}
		}
	}
}
