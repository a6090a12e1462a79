// Package pkg provides the core libraries for gridcollage.
//
// # Overview
//
// gridcollage arranges photos on a rectangular grid whose cells may span
// several rows and columns, then renders the arrangement to a single image.
// The pkg directory is organized into four main areas:
//
//  1. [collage] - Domain logic (grid model, templates, images, compositing)
//  2. [pipeline] - Orchestration (template → fill → composite → encode)
//  3. [studio] - Editing sessions used by the HTTP API
//  4. Infrastructure ([cache], [blob], [session], [observability])
//
// # Architecture
//
// The typical data flow through gridcollage:
//
//	Template or Rows x Cols
//	         ↓
//	    [collage/grid] package (normalize, span, assign, auto-fill)
//	         ↓
//	    [collage/compose] package (cell rectangles, decode, cover-crop)
//	         ↓
//	    [collage/sink] package (PNG, JPEG, WebP)
//
// # Quick Start
//
// Fill a template from a directory and render it:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/gridcollage/pkg/collage/compose"
//	    "github.com/matzehuels/gridcollage/pkg/collage/grid"
//	    "github.com/matzehuels/gridcollage/pkg/collage/images"
//	    "github.com/matzehuels/gridcollage/pkg/collage/sink"
//	    "github.com/matzehuels/gridcollage/pkg/collage/templates"
//	)
//
//	// 1. Load images
//	set, src, _ := images.LoadDir("photos")
//
//	// 2. Build and fill a layout
//	l, _ := templates.Switch("featured", set.IDs(), grid.NewRand(1))
//
//	// 3. Composite
//	res, _ := compose.Composite(context.Background(), l, src, compose.OutputSpec{
//	    Width: 1200, Height: 1200, Gap: 8,
//	})
//
//	// 4. Encode
//	data, _ := sink.EncodeBytes(res.Image, sink.PNG, 0)
//
// # Main Packages
//
// ## Collage
//
// [collage/grid] - The layout model. A layout is a Rows x Cols grid tiled
// by non-overlapping cells; every operation returns a new layout and leaves
// its input untouched. [grid.Normalize] repairs arbitrary cell lists,
// [grid.SetSpan] resizes a cell and absorbs the cells it fully covers.
//
// [collage/templates] - Named starting layouts (uniform grids, featured,
// banner, column, filmstrip).
//
// [collage/images] - Image metadata, ordered image sets, and directory
// loading.
//
// [collage/compose] - Pixel geometry and the compositor. Cells are decoded
// concurrently, scaled to cover their rectangle, and centre-cropped.
// Images that fail to decode leave their cell blank.
//
// [collage/sink] - Output encoders.
//
// ## Orchestration
//
// [pipeline] - The layout and render steps with caching, shared by the CLI
// and the HTTP API.
//
// [studio] - Session-scoped editing: uploads, spans, assignments, template
// switches, export, and expiry sweeps.
//
// ## Infrastructure
//
// [cache] - Content-addressed caching of layouts and rendered artifacts
// (file, Redis, or none).
//
// [blob] - Upload storage (Badger or MinIO).
//
// [session] - Session persistence (memory, file, Redis, MongoDB).
//
// [observability] - Hooks for metrics and tracing.
//
// [errors] - Error codes shared by every layer, with HTTP status mapping.
//
// [collage]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage
// [collage/grid]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage/grid
// [collage/templates]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage/templates
// [collage/images]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage/images
// [collage/compose]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage/compose
// [collage/sink]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/pipeline
// [studio]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/studio
// [cache]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/cache
// [blob]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/blob
// [session]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/session
// [observability]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/errors
// [grid.Normalize]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage/grid#Normalize
// [grid.SetSpan]: https://pkg.go.dev/github.com/matzehuels/gridcollage/pkg/collage/grid#SetSpan
package pkg
