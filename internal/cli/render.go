package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcollage/pkg/collage/images"
	"github.com/matzehuels/gridcollage/pkg/collage/sink"
	"github.com/matzehuels/gridcollage/pkg/pipeline"
)

// renderCommand creates the render command for compositing a layout file.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output   string
		imageDir string
		formats  string
		noCache  bool
		opts     pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "render [layout.json]",
		Short: "Render a layout file to PNG, JPEG, or WebP",
		Long: `Render a layout file against a directory of images.

Each image is scaled to cover its cell and centre-cropped. Images that cannot
be decoded leave their cell blank and are reported after rendering. With
several formats the output path is used as a base name.

Rendered files are cached by layout, canvas settings and image contents, so
re-rendering an unchanged collage is instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyOutputConfig(cmd, &opts, &formats)
			opts.Formats = parseFormats(formats)
			return c.runRender(cmd.Context(), args[0], imageDir, output, opts, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <layout>.<ext>)")
	cmd.Flags().StringVarP(&imageDir, "images", "i", "", "image directory (default: the one recorded in the layout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addRenderFlags(cmd, &opts, &formats)

	return cmd
}

// runRender loads the layout and images, renders, and writes the outputs.
func (c *CLI) runRender(ctx context.Context, input, imageDir, output string, opts pipeline.Options, noCache bool) error {
	f, err := readLayoutFile(input)
	if err != nil {
		return err
	}
	if imageDir == "" {
		imageDir = f.Images
	}
	if imageDir == "" {
		return fmt.Errorf("no image directory: pass --images or record one with 'gridcollage layout --images'")
	}
	set, src, err := images.LoadDir(imageDir)
	if err != nil {
		return err
	}
	if missing := missingImages(f, set); len(missing) > 0 {
		printWarning("%d cell(s) reference images not found in %s", len(missing), imageDir)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Rendering collage...")
	spinner.Start()

	artifacts, failures, cacheHit, err := runner.RenderWithCacheInfo(ctx, f.Layout, set, src, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done("rendered", "formats", opts.Formats)

	base := strings.TrimSuffix(input, filepath.Ext(input))
	paths, err := writeArtifacts(artifacts, opts.Formats, outputPaths(output, base, opts.Formats, formatExt))
	if err != nil {
		return err
	}

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(f.Layout, len(set), cacheHit)
	printFailures(failures)
	return nil
}

// collageCommand creates the one-shot collage command.
func (c *CLI) collageCommand() *cobra.Command {
	var (
		output     string
		formats    string
		saveLayout string
		noCache    bool
		opts       pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "collage [image-dir]",
		Short: "Build and render a collage from a directory in one step",
		Long: `Fill a template with the images in a directory and render it.

  gridcollage collage photos -t featured -f png,webp -o trip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyOutputConfig(cmd, &opts, &formats)
			opts.Formats = parseFormats(formats)
			return c.runCollage(cmd.Context(), args[0], output, saveLayout, opts, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: collage.<ext>)")
	cmd.Flags().StringVar(&saveLayout, "save-layout", "", "also write the layout file for later editing")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addLayoutFlags(cmd, &opts)
	addRenderFlags(cmd, &opts, &formats)

	return cmd
}

// runCollage runs the full pipeline on a directory of images.
func (c *CLI) runCollage(ctx context.Context, dir, output, saveLayout string, opts pipeline.Options, noCache bool) error {
	set, src, err := images.LoadDir(dir)
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	opts.SetLayoutDefaults()
	spinner := newSpinner(ctx, fmt.Sprintf("Composing %d images...", len(set)))
	spinner.Start()

	result, err := runner.Execute(ctx, opts, set, src)
	if err != nil {
		spinner.StopWithError("Collage failed")
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, outputPaths(output, "collage", opts.Formats, formatExt))
	if err != nil {
		return err
	}
	if saveLayout != "" {
		f := &layoutFile{Template: opts.Template, Images: dir, Seed: opts.Seed, Layout: result.Layout}
		if opts.UsesGrid() {
			f.Template = ""
		}
		if err := writeLayoutFile(saveLayout, f); err != nil {
			return err
		}
		paths = append(paths, saveLayout)
	}

	printSuccess("Collage complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Layout, len(set), result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	printFailures(result.Failures)
	if unplaced := len(set) - result.Layout.Filled(); unplaced > 0 {
		printDetail("%d image(s) did not fit the layout", unplaced)
	}
	if saveLayout != "" {
		printNewline()
		printNextStep("Edit", "gridcollage edit "+saveLayout)
	}
	return nil
}

// writeArtifacts writes each format's bytes to its path, in format order.
func writeArtifacts(artifacts map[string][]byte, formats []string, paths map[string]string) ([]string, error) {
	var written []string
	for _, format := range formats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := paths[format]
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// formatExt returns the file extension of a validated format name.
func formatExt(name string) string {
	f, err := sink.ParseFormat(name)
	if err != nil {
		return "." + name
	}
	return f.Extension()
}

// missingImages returns the image ids referenced by f that set lacks.
func missingImages(f *layoutFile, set images.Set) []string {
	var missing []string
	for _, id := range f.Layout.ImageIDs() {
		if !set.Has(id) {
			missing = append(missing, id)
		}
	}
	return missing
}
