package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcollage/pkg/cache"
	"github.com/matzehuels/gridcollage/pkg/collage/compose"
	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
	"github.com/matzehuels/gridcollage/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching behaves the same everywhere.
//
// The Runner is stateless except for the cache, compositor and logger. It
// doesn't store pipeline results, so multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Compositor *compose.Compositor
	Logger     *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Compositor: &compose.Compositor{Logger: logger},
		Logger:     logger,
	}
}

// Execute runs the complete layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options, imgs images.Set, src compose.Source) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Layout
	layoutStart := time.Now()
	l, layoutHit, err := r.BuildLayoutWithCacheInfo(ctx, opts, imgs.IDs())
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.LayoutHash = LayoutHash(l)
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.CellCount = len(l.Cells)
	result.Stats.FilledCount = l.Filled()
	result.Stats.ImageCount = len(imgs)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("built layout",
		"layout", opts.LayoutName(),
		"cells", len(l.Cells),
		"filled", l.Filled(),
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, failures, renderHit, err := r.RenderWithCacheInfo(ctx, l, imgs, src, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Failures = failures
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"failures", len(failures),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// BuildLayoutWithCacheInfo builds a filled layout with caching and returns
// cache hit info.
func (r *Runner) BuildLayoutWithCacheInfo(ctx context.Context, opts Options, imageIDs []string) (l grid.Layout, hit bool, err error) {
	if err := opts.ValidateForLayout(); err != nil {
		return grid.Layout{}, false, err
	}
	r.applyLogger(&opts)

	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, opts.LayoutName(), len(imageIDs))
	defer func() {
		observability.Pipeline().OnLayoutComplete(ctx, opts.LayoutName(), len(l.Cells), time.Since(start), err)
	}()

	cacheKey := r.Keyer.LayoutKey(opts.LayoutName(), opts.LayoutKeyOpts(imageIDs))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached grid.Layout
			if err := json.Unmarshal(data, &cached); err == nil && cached.Validate() == nil {
				observability.Cache().OnCacheHit(ctx, cacheKey)
				return cached, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, cacheKey)
	}

	l, err = GenerateLayout(opts, imageIDs)
	if err != nil {
		return grid.Layout{}, false, err
	}

	if data, err := json.Marshal(l); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout) == nil {
			observability.Cache().OnCacheSet(ctx, cacheKey, len(data))
		}
	}
	return l, false, nil
}

// BuildLayout is a convenience wrapper that calls BuildLayoutWithCacheInfo
// and discards the cache hit info.
func (r *Runner) BuildLayout(ctx context.Context, opts Options, imageIDs []string) (grid.Layout, error) {
	l, _, err := r.BuildLayoutWithCacheInfo(ctx, opts, imageIDs)
	return l, err
}

// RenderWithCacheInfo renders l in every requested format with caching and
// returns cache hit info. imgs describes the images behind src; artifacts
// are cached per format under the layout hash plus the identity of imgs.
// A nil imgs disables the artifact cache, as do decode failures.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l grid.Layout, imgs images.Set, src compose.Source, opts Options) (map[string][]byte, []compose.DecodeFailure, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, nil, false, err
	}
	r.applyLogger(&opts)

	useCache := imgs != nil && !opts.Refresh
	layoutHash := LayoutHash(l)
	key := func(format string) string {
		return r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format, imgs))
	}

	if useCache {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, key(format))
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, key(format))
				break
			}
			observability.Cache().OnCacheHit(ctx, key(format))
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			r.Logger.Debug("artifacts from cache", "formats", opts.Formats)
			return artifacts, nil, true, nil
		}
	}

	artifacts, failures, err := RenderLayout(ctx, r.compositor(), l, src, opts)
	if err != nil {
		return nil, nil, false, err
	}
	for _, f := range failures {
		r.Logger.Warn("image left blank", "image", f.ImageID, "err", f.Err)
	}

	if imgs != nil && len(failures) == 0 {
		for format, data := range artifacts {
			if r.Cache.Set(ctx, key(format), data, cache.TTLArtifact) == nil {
				observability.Cache().OnCacheSet(ctx, key(format), len(data))
			}
		}
	}
	return artifacts, failures, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l grid.Layout, imgs images.Set, src compose.Source, opts Options) (map[string][]byte, []compose.DecodeFailure, error) {
	artifacts, failures, _, err := r.RenderWithCacheInfo(ctx, l, imgs, src, opts)
	return artifacts, failures, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// LayoutHash returns the content hash of a layout.
func LayoutHash(l grid.Layout) string {
	data, _ := json.Marshal(l)
	return cache.Hash(data)
}

func (r *Runner) compositor() *compose.Compositor {
	if r.Compositor != nil {
		return r.Compositor
	}
	return &compose.Compositor{Logger: r.Logger}
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
