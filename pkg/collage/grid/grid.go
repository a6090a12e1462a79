package grid

import (
	"fmt"
	"slices"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// MaxDimension bounds the number of rows and columns of a layout.
const MaxDimension = 12

// Rect is a rectangle of unit cells: rows [Row, Row+RowSpan) and columns
// [Col, Col+ColSpan).
type Rect struct {
	Row, Col         int
	RowSpan, ColSpan int
}

// Bottom returns the first row below the rectangle.
func (r Rect) Bottom() int { return r.Row + r.RowSpan }

// Right returns the first column right of the rectangle.
func (r Rect) Right() int { return r.Col + r.ColSpan }

// Area returns the number of unit cells covered.
func (r Rect) Area() int { return r.RowSpan * r.ColSpan }

// Intersects reports whether r and o share at least one unit cell.
func (r Rect) Intersects(o Rect) bool {
	return r.Row < o.Bottom() && o.Row < r.Bottom() &&
		r.Col < o.Right() && o.Col < r.Right()
}

// Contains reports whether every unit cell of o lies inside r.
func (r Rect) Contains(o Rect) bool {
	return o.Row >= r.Row && o.Bottom() <= r.Bottom() &&
		o.Col >= r.Col && o.Right() <= r.Right()
}

// Cell is one tile of a collage grid. A cell with an empty ImageID is a
// placeholder. ImageID is a lookup key into an image table owned by the
// caller; the layout never owns image data.
type Cell struct {
	ID      string `json:"id"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	RowSpan int    `json:"row_span"`
	ColSpan int    `json:"col_span"`
	ImageID string `json:"image_id,omitempty"`
}

// Rect returns the area occupied by the cell.
func (c Cell) Rect() Rect {
	return Rect{Row: c.Row, Col: c.Col, RowSpan: c.RowSpan, ColSpan: c.ColSpan}
}

// HasImage reports whether the cell references an image.
func (c Cell) HasImage() bool { return c.ImageID != "" }

// Layout is a Rows x Cols grid tiled by non-overlapping cells, ordered by
// (Row, Col). Layouts are treated as values: every operation in this package
// returns a new Layout and leaves its input untouched.
type Layout struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Cells []Cell `json:"cells"`
}

// New returns a rows x cols layout made of 1x1 cells.
func New(rows, cols int) (Layout, error) {
	if err := ValidateDimensions(rows, cols); err != nil {
		return Layout{}, err
	}
	return Normalize(Layout{Rows: rows, Cols: cols}), nil
}

// ValidateDimensions checks that rows and cols are within [1, MaxDimension].
func ValidateDimensions(rows, cols int) error {
	if rows < 1 || rows > MaxDimension || cols < 1 || cols > MaxDimension {
		return errs.New(errs.ErrCodeInvalidInput,
			"grid must be between 1x1 and %dx%d, got %dx%d", MaxDimension, MaxDimension, rows, cols)
	}
	return nil
}

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	l.Cells = slices.Clone(l.Cells)
	return l
}

// Cell returns the cell with the given id.
func (l Layout) Cell(id string) (Cell, bool) {
	if i := l.index(id); i >= 0 {
		return l.Cells[i], true
	}
	return Cell{}, false
}

// CellAt returns the cell covering unit cell (row, col).
func (l Layout) CellAt(row, col int) (Cell, bool) {
	p := Rect{Row: row, Col: col, RowSpan: 1, ColSpan: 1}
	for _, c := range l.Cells {
		if c.Rect().Contains(p) {
			return c, true
		}
	}
	return Cell{}, false
}

func (l Layout) index(id string) int {
	return slices.IndexFunc(l.Cells, func(c Cell) bool { return c.ID == id })
}

// ImageIDs returns the distinct image ids referenced by the layout, in cell order.
func (l Layout) ImageIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range l.Cells {
		if c.HasImage() && !seen[c.ImageID] {
			seen[c.ImageID] = true
			ids = append(ids, c.ImageID)
		}
	}
	return ids
}

// Filled returns the number of cells that reference an image.
func (l Layout) Filled() int {
	n := 0
	for _, c := range l.Cells {
		if c.HasImage() {
			n++
		}
	}
	return n
}

// Validate checks that every unit cell is covered by exactly one cell, that
// cell ids are unique and that cells are sorted by (Row, Col).
func (l Layout) Validate() error {
	if err := ValidateDimensions(l.Rows, l.Cols); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidLayout, err, "invalid dimensions")
	}

	owner := make([][]string, l.Rows)
	for r := range owner {
		owner[r] = make([]string, l.Cols)
	}
	ids := make(map[string]bool, len(l.Cells))

	for i, c := range l.Cells {
		if c.ID == "" {
			return errs.New(errs.ErrCodeInvalidLayout, "cell at (%d,%d) has no id", c.Row, c.Col)
		}
		if ids[c.ID] {
			return errs.New(errs.ErrCodeInvalidLayout, "duplicate cell id %q", c.ID)
		}
		ids[c.ID] = true

		if c.RowSpan < 1 || c.ColSpan < 1 || c.Row < 0 || c.Col < 0 ||
			c.Row+c.RowSpan > l.Rows || c.Col+c.ColSpan > l.Cols {
			return errs.New(errs.ErrCodeInvalidLayout, "cell %q out of bounds", c.ID)
		}
		if i > 0 && !anchorLess(l.Cells[i-1], c) {
			return errs.New(errs.ErrCodeInvalidLayout, "cells not sorted at %q", c.ID)
		}

		for r := c.Row; r < c.Row+c.RowSpan; r++ {
			for col := c.Col; col < c.Col+c.ColSpan; col++ {
				if prev := owner[r][col]; prev != "" {
					return errs.New(errs.ErrCodeInvalidLayout,
						"cells %q and %q overlap at (%d,%d)", prev, c.ID, r, col)
				}
				owner[r][col] = c.ID
			}
		}
	}

	for r := range owner {
		for c, id := range owner[r] {
			if id == "" {
				return errs.New(errs.ErrCodeInvalidLayout, "unit cell (%d,%d) is not covered", r, c)
			}
		}
	}
	return nil
}

// String renders the layout as a compact ASCII map, one line per row, where
// each unit cell shows the index of the cell covering it.
func (l Layout) String() string {
	owner := make([][]int, l.Rows)
	for r := range owner {
		owner[r] = make([]int, l.Cols)
		for c := range owner[r] {
			owner[r][c] = -1
		}
	}
	for i, cell := range l.Cells {
		for r := cell.Row; r < min(cell.Row+cell.RowSpan, l.Rows); r++ {
			for c := cell.Col; c < min(cell.Col+cell.ColSpan, l.Cols); c++ {
				owner[r][c] = i
			}
		}
	}

	var out []byte
	for r := range owner {
		for c, i := range owner[r] {
			if c > 0 {
				out = append(out, ' ')
			}
			if i < 0 {
				out = append(out, '.')
				continue
			}
			out = fmt.Appendf(out, "%d", i)
		}
		out = append(out, '\n')
	}
	return string(out)
}

func anchorLess(a, b Cell) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// anchorCompare orders cells by (Row, Col) for slices.SortFunc.
func anchorCompare(a, b Cell) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}

// CellID returns the canonical id of a cell anchored at (row, col).
func CellID(row, col int) string {
	return fmt.Sprintf("r%dc%d", row, col)
}
