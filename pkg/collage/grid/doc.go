// Package grid models collage layouts as rectangular grids tiled by cells.
//
// A [Layout] is Rows x Cols unit cells covered by [Cell] values that may span
// several rows and columns. A valid layout covers every unit cell exactly
// once; [Layout.Validate] checks this.
//
// # Editing
//
// All operations are pure: they take a Layout and return a new one.
//
//   - [Normalize] repairs any layout into a valid one
//   - [SetSpan] grows or shrinks a cell, absorbing fully covered neighbours
//   - [Assign] places or clears an image in a cell
//   - [AutoFill] places unused images into empty cells in random order
//
// SetSpan refuses changes that would cut through a neighbour:
//
//	l, err := grid.SetSpan(l, "r0c0", 2, 2)
//	if grid.IsOverlap(err) {
//	    // l is unchanged
//	}
//
// Cells refer to images by id only. The image data lives elsewhere (see
// package images), and references to images that no longer exist are cleared
// by [PruneStale] or [AutoFill].
package grid
