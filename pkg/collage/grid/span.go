package grid

import (
	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// SetSpan resizes the cell with the given id so that it covers rowSpan rows
// and colSpan columns from its anchor. Requested spans are clamped to the grid.
//
// Cells that lie entirely inside the new rectangle are absorbed. If any cell
// would only be partly covered the change is rejected with OVERLAP and the
// layout is returned unchanged. Shrinking always succeeds; the freed unit
// cells are backfilled with empty cells.
func SetSpan(l Layout, cellID string, rowSpan, colSpan int) (Layout, error) {
	i := l.index(cellID)
	if i < 0 {
		return l, errs.New(errs.ErrCodeCellNotFound, "cell %q not found", cellID)
	}

	target := l.Cells[i]
	target.RowSpan = clamp(rowSpan, 1, l.Rows-target.Row)
	target.ColSpan = clamp(colSpan, 1, l.Cols-target.Col)
	area := target.Rect()

	cells := make([]Cell, 0, len(l.Cells))
	for j, c := range l.Cells {
		if j == i {
			cells = append(cells, target)
			continue
		}
		switch {
		case !area.Intersects(c.Rect()):
			cells = append(cells, c)
		case area.Contains(c.Rect()):
			// absorbed
		default:
			return l, errs.New(errs.ErrCodeOverlap,
				"spanning %q to %dx%d would partially cover %q", cellID, target.RowSpan, target.ColSpan, c.ID)
		}
	}

	return Normalize(Layout{Rows: l.Rows, Cols: l.Cols, Cells: cells}), nil
}

// IsOverlap reports whether err is a rejected span change.
func IsOverlap(err error) bool {
	return errs.Is(err, errs.ErrCodeOverlap)
}

// IsCellNotFound reports whether err refers to an unknown cell id.
func IsCellNotFound(err error) bool {
	return errs.Is(err, errs.ErrCodeCellNotFound)
}
