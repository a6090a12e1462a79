package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
	"github.com/matzehuels/gridcollage/pkg/pipeline"
)

// layoutCommand creates the layout command for building layout files.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output   string
		imageDir string
		spans    []string
		noCache  bool
		opts     pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Build a layout file from a template or grid",
		Long: `Build a layout from a named template (or a uniform --rows x --cols grid),
optionally fill it with the images in --images, and write it as JSON.

Spans are applied in order after the template is built. Each --span grows or
shrinks one cell; a span that would cut through another multi-cell block is
rejected.

  gridcollage layout -t grid-3x3 --span r0c0=2x2 --images photos -o trip.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("template") {
				opts.Template = c.Config.Output.Template
			}
			return c.runLayout(cmd.Context(), opts, imageDir, spans, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "layout.json", "output file")
	cmd.Flags().StringVarP(&imageDir, "images", "i", "", "directory of images to fill the layout with")
	cmd.Flags().StringArrayVar(&spans, "span", nil, "resize a cell, CELL=ROWSxCOLS (repeatable)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addLayoutFlags(cmd, &opts)

	return cmd
}

// addLayoutFlags registers the template and fill flags shared by layout and
// collage.
func addLayoutFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "template name (see 'gridcollage templates')")
	cmd.Flags().IntVar(&opts.Rows, "rows", 0, "uniform grid rows (overrides --template)")
	cmd.Flags().IntVar(&opts.Cols, "cols", 0, "uniform grid columns (overrides --template)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", pipeline.DefaultSeed, "random seed for the image fill order")
}

// runLayout builds the layout, applies spans, and writes the layout file.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, imageDir string, spans []string, output string, noCache bool) error {
	var set images.Set
	if imageDir != "" {
		var err error
		if set, _, err = images.LoadDir(imageDir); err != nil {
			return err
		}
		if len(set) == 0 {
			printWarning("No images found in %s", imageDir)
		}
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	opts.SetLayoutDefaults()
	l, cacheHit, err := runner.BuildLayoutWithCacheInfo(ctx, opts, set.IDs())
	if err != nil {
		return err
	}

	l, err = applySpans(l, spans)
	if err != nil {
		return err
	}
	if len(spans) > 0 && len(set) > 0 {
		// Absorbed cells drop their images; give them back a place.
		l = grid.AutoFill(l, set.IDs(), grid.NewRand(opts.Seed))
	}

	f := &layoutFile{Template: opts.Template, Images: imageDir, Seed: opts.Seed, Layout: l}
	if opts.UsesGrid() {
		f.Template = ""
	}
	if err := writeLayoutFile(output, f); err != nil {
		return err
	}

	printSuccess("Layout complete")
	printFile(output)
	printPreview(l)
	printStats(l, len(set), cacheHit)
	printNewline()
	if imageDir != "" {
		printNextStep("Render", "gridcollage render "+output)
	} else {
		printNextStep("Render", "gridcollage render "+output+" --images DIR")
	}
	return nil
}

// applySpans applies CELL=RxC edits in order.
func applySpans(l grid.Layout, spans []string) (grid.Layout, error) {
	for _, s := range spans {
		id, rows, cols, err := parseSpan(s)
		if err != nil {
			return l, err
		}
		if l, err = grid.SetSpan(l, id, rows, cols); err != nil {
			return l, fmt.Errorf("span %s: %w", s, err)
		}
	}
	return l, nil
}
