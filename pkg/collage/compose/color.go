package compose

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// ParseColor parses a "#rgb" or "#rrggbb" background color.
func ParseColor(s string) (color.Color, error) {
	if err := errs.ValidateHexColor(s); err != nil {
		return nil, err
	}
	if len(s) == 4 {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidColor, err, "invalid color %q", s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// HexColor formats c as "#rrggbb", dropping alpha.
func HexColor(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cf.Hex()
}
