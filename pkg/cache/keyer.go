package cache

import "strings"

// Keyer generates cache keys for each kind of cached value.
type Keyer interface {
	// LayoutKey identifies a layout built from a template and a set of images.
	LayoutKey(template string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered collage of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the inputs that change a generated layout.
type LayoutKeyOpts struct {
	Rows   int      `json:"rows,omitempty"`
	Cols   int      `json:"cols,omitempty"`
	Seed   uint64   `json:"seed"`
	Images []string `json:"images"`
}

// ArtifactKeyOpts holds the inputs that change a rendered collage. Images
// identifies the image contents (for example ids with sizes and modification
// times) so that replacing a file invalidates the artifact.
type ArtifactKeyOpts struct {
	Format     string `json:"format"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Gap        int    `json:"gap"`
	Background string `json:"background"`
	Quality    int    `json:"quality,omitempty"`
	Images     string `json:"images"`
}

// DefaultKeyer produces keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(template string, opts LayoutKeyOpts) string {
	return hashKey("layout", template, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	opts.Format = strings.ToLower(opts.Format)
	return hashKey("artifact", layoutHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
