// Package compose rasterizes a collage layout into a single image.
//
// [CellRects] maps every cell of a layout onto a pixel rectangle of the output
// canvas. [Composite] decodes the referenced images from a [Source] in
// parallel and draws each one cover-fit into its cell:
//
//	set, src, _ := images.LoadDir("photos")
//	layout := grid.AutoFill(layout, set.IDs(), nil)
//	res, err := compose.Composite(ctx, layout, src, compose.OutputSpec{
//	    Width: 1200, Height: 1200, Gap: 8, Background: color.White,
//	})
//	for _, f := range res.Failures {
//	    log.Warn("image skipped", "id", f.ImageID, "err", f.Err)
//	}
//
// Images are drawn over the background, so transparent pixels show it.
// Images that cannot be opened or decoded never abort a render. Their cells
// show the background and the failure is reported in [Result.Failures].
package compose

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
	"github.com/matzehuels/gridcollage/pkg/observability"

	// WebP decoding for imaging.Decode.
	_ "golang.org/x/image/webp"
)

// Defaults for a Compositor with zero-valued fields.
const (
	DefaultWorkers       = 4
	DefaultDecodeTimeout = 10 * time.Second
)

// MaxCanvasSide bounds the width and height of the output.
const MaxCanvasSide = 8192

// OutputSpec describes the canvas a layout is rendered onto.
type OutputSpec struct {
	Width      int
	Height     int
	Gap        int
	Background color.Color
}

// Validate checks the output size and gap against the layout it will render.
// Every unit cell must be at least one pixel wide and tall once gaps are
// subtracted.
func (s OutputSpec) Validate(l grid.Layout) error {
	if s.Width < 1 || s.Height < 1 {
		return errs.New(errs.ErrCodeInvalidOutputSpec, "output size must be positive, got %dx%d", s.Width, s.Height)
	}
	if s.Width > MaxCanvasSide || s.Height > MaxCanvasSide {
		return errs.New(errs.ErrCodeInvalidOutputSpec, "output size %dx%d exceeds %d", s.Width, s.Height, MaxCanvasSide)
	}
	if s.Gap < 0 {
		return errs.New(errs.ErrCodeInvalidOutputSpec, "gap must not be negative, got %d", s.Gap)
	}
	if l.Rows < 1 || l.Cols < 1 {
		return nil
	}
	unitW, unitH := s.unit(l)
	if unitW < 1 || unitH < 1 {
		return errs.New(errs.ErrCodeInvalidOutputSpec,
			"%dx%d with gap %d leaves no room for a %dx%d grid", s.Width, s.Height, s.Gap, l.Rows, l.Cols)
	}
	return nil
}

func (s OutputSpec) unit(l grid.Layout) (w, h int) {
	w = (s.Width - s.Gap*(l.Cols-1)) / l.Cols
	h = (s.Height - s.Gap*(l.Rows-1)) / l.Rows
	return w, h
}

// CellRects returns the pixel rectangle of every cell keyed by cell id.
// Unit cells are sized by integer division, so a few pixels may remain
// unused along the right and bottom edges.
func CellRects(l grid.Layout, s OutputSpec) map[string]image.Rectangle {
	unitW, unitH := s.unit(l)
	rects := make(map[string]image.Rectangle, len(l.Cells))
	for _, c := range l.Cells {
		x := c.Col * (unitW + s.Gap)
		y := c.Row * (unitH + s.Gap)
		w := unitW*c.ColSpan + s.Gap*(c.ColSpan-1)
		h := unitH*c.RowSpan + s.Gap*(c.RowSpan-1)
		rects[c.ID] = image.Rect(x, y, x+w, y+h)
	}
	return rects
}

// DecodeFailure records an image that could not be drawn.
type DecodeFailure struct {
	ImageID string
	Err     error
}

// Result is a rendered collage.
type Result struct {
	Image    *image.NRGBA
	Failures []DecodeFailure
}

// Compositor renders layouts. The zero value is ready to use.
type Compositor struct {
	// Workers limits concurrent decodes. Zero means DefaultWorkers.
	Workers int

	// DecodeTimeout bounds opening and decoding a single image. Zero means
	// DefaultDecodeTimeout.
	DecodeTimeout time.Duration

	// Logger receives per-image diagnostics. Nil disables logging.
	Logger *log.Logger
}

// Composite renders l with the default Compositor.
func Composite(ctx context.Context, l grid.Layout, src Source, spec OutputSpec) (*Result, error) {
	var c Compositor
	return c.Composite(ctx, l, src, spec)
}

// Composite renders l onto a new canvas described by spec, reading images
// from src. Invalid layouts and specs fail before any image is read.
func (c *Compositor) Composite(ctx context.Context, l grid.Layout, src Source, spec OutputSpec) (res *Result, err error) {
	if len(l.Cells) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidLayout, "layout has no cells")
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Validate(l); err != nil {
		return nil, err
	}
	if spec.Background == nil {
		spec.Background = color.White
	}

	ids := l.ImageIDs()
	hooks := observability.Pipeline()
	hooks.OnComposeStart(ctx, len(l.Cells), len(ids))
	start := time.Now()
	defer func() {
		failures := 0
		if res != nil {
			failures = len(res.Failures)
		}
		hooks.OnComposeComplete(ctx, failures, time.Since(start), err)
	}()

	decoded, failures, err := c.decodeAll(ctx, src, ids)
	if err != nil {
		return nil, err
	}

	canvas := imaging.New(spec.Width, spec.Height, spec.Background)
	rects := CellRects(l, spec)
	for _, cell := range l.Cells {
		img, ok := decoded[cell.ImageID]
		if !ok {
			continue
		}
		r := rects[cell.ID]
		fitted := imaging.Fill(img, r.Dx(), r.Dy(), imaging.Center, imaging.Lanczos)
		draw.Draw(canvas, r, fitted, image.Point{}, draw.Over)
	}

	return &Result{Image: canvas, Failures: failures}, nil
}

// decodeAll decodes every id once. Per-image failures are collected rather
// than returned; only cancellation of ctx fails the whole call.
func (c *Compositor) decodeAll(ctx context.Context, src Source, ids []string) (map[string]image.Image, []DecodeFailure, error) {
	var (
		mu       sync.Mutex
		decoded  = make(map[string]image.Image, len(ids))
		failures []DecodeFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())
	for _, id := range ids {
		g.Go(func() error {
			start := time.Now()
			img, err := c.decodeOne(gctx, src, id)
			observability.Pipeline().OnDecodeComplete(gctx, id, time.Since(start), err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if c.Logger != nil {
					c.Logger.Warn("image skipped", "id", id, "err", err)
				}
				failures = append(failures, DecodeFailure{ImageID: id, Err: err})
				return nil
			}
			decoded[id] = img
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return decoded, sortFailures(failures, ids), nil
}

func (c *Compositor) decodeOne(ctx context.Context, src Source, id string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.decodeTimeout())
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := openAndDecode(ctx, src, id)
		done <- result{img, err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrCodeImageDecode, ctx.Err(), "decode %s", id)
	}
}

func openAndDecode(ctx context.Context, src Source, id string) (image.Image, error) {
	rc, err := src.Open(ctx, id)
	if err != nil {
		if errs.GetCode(err) != "" {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrCodeImageNotFound, err, "open %s", id)
	}
	defer rc.Close()

	img, err := imaging.Decode(readerWithContext{ctx, rc}, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeImageDecode, err, "decode %s", id)
	}
	return img, nil
}

// sortFailures orders failures by the position of their id in ids so that
// results do not depend on goroutine scheduling.
func sortFailures(failures []DecodeFailure, ids []string) []DecodeFailure {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	slices.SortFunc(failures, func(a, b DecodeFailure) int {
		return pos[a.ImageID] - pos[b.ImageID]
	})
	return failures
}

func (c *Compositor) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return DefaultWorkers
}

func (c *Compositor) decodeTimeout() time.Duration {
	if c.DecodeTimeout > 0 {
		return c.DecodeTimeout
	}
	return DefaultDecodeTimeout
}

// readerWithContext stops reading once ctx is done so an abandoned decode
// goroutine does not keep streaming a slow source.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
