package grid

import (
	"slices"

	"github.com/google/uuid"
)

// Normalize repairs a layout so that it validates: spans are clamped to the
// grid, cells that collide with an earlier cell are dropped, and every
// uncovered unit cell is backfilled with an empty 1x1 cell. Earlier cells win
// collisions, so callers put the cells they care about first.
//
// Normalize never fails. Applying it to its own output returns the same
// layout.
func Normalize(l Layout) Layout {
	rows, cols := l.Rows, l.Cols
	if rows < 1 || cols < 1 {
		return Layout{Rows: max(rows, 0), Cols: max(cols, 0)}
	}

	covered := make([][]bool, rows)
	for r := range covered {
		covered[r] = make([]bool, cols)
	}

	used := make(map[string]bool, len(l.Cells))
	byAnchor := make(map[[2]int]Cell, rows*cols)
	var pending []Cell

	for _, c := range l.Cells {
		if c.Row < 0 || c.Row >= rows || c.Col < 0 || c.Col >= cols {
			continue
		}
		c.RowSpan = clamp(c.RowSpan, 1, rows-c.Row)
		c.ColSpan = clamp(c.ColSpan, 1, cols-c.Col)
		if hits(covered, c.Rect()) {
			continue
		}
		mark(covered, c.Rect())

		if c.ID == "" || used[c.ID] {
			c.ID = ""
			pending = append(pending, c)
		} else {
			used[c.ID] = true
		}
		byAnchor[[2]int{c.Row, c.Col}] = c
	}

	for r := range rows {
		for col := range cols {
			if !covered[r][col] {
				c := Cell{Row: r, Col: col, RowSpan: 1, ColSpan: 1}
				pending = append(pending, c)
				byAnchor[[2]int{r, col}] = c
			}
		}
	}

	// Ids are handed out once every kept id is known so a synthesized id
	// can never shadow one the caller chose.
	for _, c := range pending {
		c.ID = freshID(c.Row, c.Col, used)
		byAnchor[[2]int{c.Row, c.Col}] = c
	}

	cells := make([]Cell, 0, len(byAnchor))
	for _, c := range byAnchor {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, anchorCompare)

	return Layout{Rows: rows, Cols: cols, Cells: cells}
}

func freshID(row, col int, used map[string]bool) string {
	id := CellID(row, col)
	for used[id] {
		id = uuid.NewString()
	}
	used[id] = true
	return id
}

func hits(covered [][]bool, r Rect) bool {
	for row := r.Row; row < r.Bottom(); row++ {
		for col := r.Col; col < r.Right(); col++ {
			if covered[row][col] {
				return true
			}
		}
	}
	return false
}

func mark(covered [][]bool, r Rect) {
	for row := r.Row; row < r.Bottom(); row++ {
		for col := r.Col; col < r.Right(); col++ {
			covered[row][col] = true
		}
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
