// Package templates provides named starting layouts for collages.
//
// Each template is a fixed list of rectangles passed through [grid.Normalize],
// so every template is a valid layout:
//
//	l, err := templates.Get("featured")
//	l = grid.AutoFill(l, imageIDs, nil)
//
// [Switch] does both in one step and is how an editor changes the template of
// an existing collage: the previous spans and assignments are discarded.
package templates

import (
	"fmt"
	"math/rand/v2"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// Template describes a named layout.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`

	build func() grid.Layout
}

// Layout builds a fresh copy of the template's layout.
func (t Template) Layout() grid.Layout {
	return t.build()
}

// Slots returns the number of cells, i.e. how many images the template shows.
func (t Template) Slots() int {
	return len(t.build().Cells)
}

// Default is the template used when none is named.
const Default = "grid-2x2"

var library = []Template{
	uniform(2),
	uniform(3),
	uniform(4),
	{
		Name:        "featured",
		Description: "one large image top-left with five around it",
		Rows:        3, Cols: 3,
		build: func() grid.Layout {
			return fromRects(3, 3, grid.Rect{Row: 0, Col: 0, RowSpan: 2, ColSpan: 2})
		},
	},
	{
		Name:        "featured-center",
		Description: "one large image in the centre of a 4x4 frame",
		Rows:        4, Cols: 4,
		build: func() grid.Layout {
			return fromRects(4, 4, grid.Rect{Row: 1, Col: 1, RowSpan: 2, ColSpan: 2})
		},
	},
	{
		Name:        "banner",
		Description: "full-width strip over a 2x3 grid",
		Rows:        3, Cols: 3,
		build: func() grid.Layout {
			return fromRects(3, 3, grid.Rect{Row: 0, Col: 0, RowSpan: 1, ColSpan: 3})
		},
	},
	{
		Name:        "column",
		Description: "full-height column beside a 3x2 grid",
		Rows:        3, Cols: 3,
		build: func() grid.Layout {
			return fromRects(3, 3, grid.Rect{Row: 0, Col: 0, RowSpan: 3, ColSpan: 1})
		},
	},
	{
		Name:        "filmstrip",
		Description: "four images in a row",
		Rows:        1, Cols: 4,
		build: func() grid.Layout {
			return fromRects(1, 4)
		},
	},
}

func uniform(n int) Template {
	return Template{
		Name:        fmt.Sprintf("grid-%dx%d", n, n),
		Description: fmt.Sprintf("uniform %dx%d grid", n, n),
		Rows:        n, Cols: n,
		build: func() grid.Layout {
			return fromRects(n, n)
		},
	}
}

// fromRects places the given rectangles and lets Normalize fill the rest
// with 1x1 cells.
func fromRects(rows, cols int, rects ...grid.Rect) grid.Layout {
	cells := make([]grid.Cell, 0, len(rects))
	for _, r := range rects {
		cells = append(cells, grid.Cell{
			ID:      grid.CellID(r.Row, r.Col),
			Row:     r.Row,
			Col:     r.Col,
			RowSpan: r.RowSpan,
			ColSpan: r.ColSpan,
		})
	}
	return grid.Normalize(grid.Layout{Rows: rows, Cols: cols, Cells: cells})
}

// List returns all templates in a stable order.
func List() []Template {
	out := make([]Template, len(library))
	copy(out, library)
	return out
}

// Names returns the template names in the order of [List].
func Names() []string {
	names := make([]string, len(library))
	for i, t := range library {
		names[i] = t.Name
	}
	return names
}

// Lookup returns the template with the given name.
func Lookup(name string) (Template, error) {
	for _, t := range library {
		if t.Name == name {
			return t, nil
		}
	}
	return Template{}, errs.New(errs.ErrCodeTemplateNotFound, "unknown template %q", name)
}

// Get builds the layout of the named template.
func Get(name string) (grid.Layout, error) {
	t, err := Lookup(name)
	if err != nil {
		return grid.Layout{}, err
	}
	return t.Layout(), nil
}

// Uniform builds an n x n layout of 1x1 cells.
func Uniform(n int) (grid.Layout, error) {
	return grid.New(n, n)
}

// Switch builds the named template and auto-fills it with imageIDs. Nothing
// from a previous layout carries over.
func Switch(name string, imageIDs []string, rng *rand.Rand) (grid.Layout, error) {
	l, err := Get(name)
	if err != nil {
		return grid.Layout{}, err
	}
	return grid.AutoFill(l, imageIDs, rng), nil
}
