// Package pipeline provides the template → fill → render pipeline for
// gridcollage.
//
// The CLI and the HTTP studio both go through a [Runner], so layouts and
// rendered artifacts are cached the same way regardless of entry point.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Layout: build a layout from a named template (or a uniform grid) and
//     auto-fill it with the available images
//  2. Render: composite the layout and encode it in one or more formats
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	set, src, _ := images.LoadDir("photos")
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Template: "featured",
//	    Formats:  []string{"png", "webp"},
//	}, set, src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts["png"]
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcollage/pkg/cache"
	"github.com/matzehuels/gridcollage/pkg/collage/compose"
	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
	"github.com/matzehuels/gridcollage/pkg/collage/sink"
	"github.com/matzehuels/gridcollage/pkg/collage/templates"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = 1200

	// DefaultHeight is the default canvas height in pixels.
	DefaultHeight = 1200

	// DefaultGap is the default gutter between cells in pixels.
	DefaultGap = 8

	// DefaultBackground is the default canvas colour.
	DefaultBackground = "#ffffff"

	// DefaultSeed is the default random seed for reproducible fills.
	DefaultSeed = uint64(42)

	// DefaultQuality is the default quality for lossy formats.
	DefaultQuality = sink.DefaultQuality
)

// DefaultFormat is the default output format.
const DefaultFormat = string(sink.PNG)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the collage pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options. Rows and Cols select a uniform grid and take
	// precedence over Template when both are set.
	Template string `json:"template,omitempty"`
	Rows     int    `json:"rows,omitempty"`
	Cols     int    `json:"cols,omitempty"`
	Seed     uint64 `json:"seed,omitempty"`

	// Render options
	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	Gap        int      `json:"gap,omitempty"`
	Background string   `json:"background,omitempty"`
	Formats    []string `json:"formats,omitempty"`
	Quality    int      `json:"quality,omitempty"`
	Refresh    bool     `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Layout is the filled layout that was rendered.
	Layout grid.Layout

	// LayoutHash is the content hash of the layout.
	LayoutHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Failures lists images that could not be decoded and were left as
	// background.
	Failures []compose.DecodeFailure

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	CellCount   int
	FilledCount int
	ImageCount  int
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if _, err := sink.ParseFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTemplate checks that a template exists.
func ValidateTemplate(name string) error {
	_, err := templates.Lookup(name)
	return err
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks fields and applies defaults for the full
// pipeline. Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// UsesGrid reports whether the options select a uniform grid instead of a
// named template.
func (o *Options) UsesGrid() bool {
	return o.Rows > 0 || o.Cols > 0
}

// SetLayoutDefaults sets default values for layout building.
func (o *Options) SetLayoutDefaults() {
	if o.UsesGrid() {
		if o.Rows == 0 {
			o.Rows = o.Cols
		}
		if o.Cols == 0 {
			o.Cols = o.Rows
		}
	} else if o.Template == "" {
		o.Template = templates.Default
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout building.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if o.UsesGrid() {
		return grid.ValidateDimensions(o.Rows, o.Cols)
	}
	return ValidateTemplate(o.Template)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Background == "" {
		o.Background = DefaultBackground
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering. Canvas size
// against a particular layout is checked by the compositor.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Gap < 0 {
		return errs.New(errs.ErrCodeInvalidOutputSpec, "gap must not be negative, got %d", o.Gap)
	}
	if o.Quality < 1 || o.Quality > 100 {
		return errs.New(errs.ErrCodeInvalidOutputSpec, "quality must be between 1 and 100, got %d", o.Quality)
	}
	if err := errs.ValidateHexColor(o.Background); err != nil {
		return err
	}
	return ValidateFormats(o.Formats)
}

// OutputSpec converts the render options into a compositor spec.
func (o *Options) OutputSpec() (compose.OutputSpec, error) {
	bg, err := compose.ParseColor(o.Background)
	if err != nil {
		return compose.OutputSpec{}, err
	}
	return compose.OutputSpec{
		Width:      o.Width,
		Height:     o.Height,
		Gap:        o.Gap,
		Background: bg,
	}, nil
}

// LayoutName returns the template name, or "RxC" for a uniform grid.
func (o *Options) LayoutName() string {
	if o.UsesGrid() {
		return fmt.Sprintf("%dx%d", o.Rows, o.Cols)
	}
	return o.Template
}

// LayoutKeyOpts returns cache key options for layout building.
func (o *Options) LayoutKeyOpts(imageIDs []string) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Rows:   o.Rows,
		Cols:   o.Cols,
		Seed:   o.Seed,
		Images: imageIDs,
	}
}

// ArtifactKeyOpts returns cache key options for rendering one format.
func (o *Options) ArtifactKeyOpts(format string, imgs images.Set) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		Width:      o.Width,
		Height:     o.Height,
		Gap:        o.Gap,
		Background: strings.ToLower(o.Background),
		Quality:    o.Quality,
		Images:     imageIdentity(imgs),
	}
}

// imageIdentity describes image contents well enough that replacing a file
// changes the artifact key.
func imageIdentity(imgs images.Set) string {
	var b strings.Builder
	for _, img := range imgs {
		fmt.Fprintf(&b, "%s:%d:%d;", img.ID, img.Size, img.CreatedAt.UnixNano())
	}
	return cache.Hash([]byte(b.String()))
}
