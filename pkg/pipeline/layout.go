package pipeline

import (
	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/templates"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout builds the layout selected by opts and auto-fills it with
// imageIDs using a generator seeded from opts.Seed. The same options and
// images always produce the same layout.
func GenerateLayout(opts Options, imageIDs []string) (grid.Layout, error) {
	rng := grid.NewRand(opts.Seed)
	if opts.UsesGrid() {
		l, err := grid.New(opts.Rows, opts.Cols)
		if err != nil {
			return grid.Layout{}, err
		}
		return grid.AutoFill(l, imageIDs, rng), nil
	}
	return templates.Switch(opts.Template, imageIDs, rng)
}
