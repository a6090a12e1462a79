package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/gridcollage/pkg/collage/compose"
	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/sink"
)

// RenderLayout composites l once and encodes it in every requested format.
// Decode failures are returned alongside the artifacts; they leave the
// affected cells as background and do not fail the render.
func RenderLayout(ctx context.Context, c *compose.Compositor, l grid.Layout, src compose.Source, opts Options) (map[string][]byte, []compose.DecodeFailure, error) {
	spec, err := opts.OutputSpec()
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		c = &compose.Compositor{Logger: opts.Logger}
	}

	res, err := c.Composite(ctx, l, src, spec)
	if err != nil {
		return nil, nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, name := range opts.Formats {
		f, err := sink.ParseFormat(name)
		if err != nil {
			return nil, nil, err
		}
		data, err := sink.EncodeBytes(res.Image, f, opts.Quality)
		if err != nil {
			return nil, nil, fmt.Errorf("render %s: %w", name, err)
		}
		artifacts[name] = data
	}
	return artifacts, res.Failures, nil
}
