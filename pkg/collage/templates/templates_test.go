package templates

import (
	"testing"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

func TestTemplatesValidate(t *testing.T) {
	want := map[string]int{
		"grid-2x2":        4,
		"grid-3x3":        9,
		"grid-4x4":        16,
		"featured":        6,
		"featured-center": 13,
		"banner":          7,
		"column":          7,
		"filmstrip":       4,
	}

	if got := len(List()); got != len(want) {
		t.Errorf("List() = %d templates, want %d", got, len(want))
	}
	for _, tmpl := range List() {
		t.Run(tmpl.Name, func(t *testing.T) {
			l := tmpl.Layout()
			if err := l.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if l.Rows != tmpl.Rows || l.Cols != tmpl.Cols {
				t.Errorf("size = %dx%d, want %dx%d", l.Rows, l.Cols, tmpl.Rows, tmpl.Cols)
			}
			if got := tmpl.Slots(); got != want[tmpl.Name] {
				t.Errorf("Slots() = %d, want %d", got, want[tmpl.Name])
			}
		})
	}
}

func TestFeaturedShape(t *testing.T) {
	tests := []struct {
		name     string
		cellID   string
		wantSpan [2]int
	}{
		{"featured", "r0c0", [2]int{2, 2}},
		{"featured-center", "r1c1", [2]int{2, 2}},
		{"banner", "r0c0", [2]int{1, 3}},
		{"column", "r0c0", [2]int{3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Get(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			c, ok := l.Cell(tt.cellID)
			if !ok {
				t.Fatalf("cell %q missing", tt.cellID)
			}
			if span := [2]int{c.RowSpan, c.ColSpan}; span != tt.wantSpan {
				t.Errorf("span = %v, want %v", span, tt.wantSpan)
			}
		})
	}
}

func TestGetReturnsFreshLayout(t *testing.T) {
	a, _ := Get("grid-2x2")
	a.Cells[0].ImageID = "x"
	b, _ := Get("grid-2x2")
	if b.Cells[0].ImageID != "" {
		t.Error("templates must not share cell slices")
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Get("mosaic"); !errs.Is(err, errs.ErrCodeTemplateNotFound) {
		t.Errorf("err = %v, want TEMPLATE_NOT_FOUND", err)
	}
	if _, err := Switch("mosaic", nil, nil); !errs.Is(err, errs.ErrCodeTemplateNotFound) {
		t.Errorf("Switch err = %v, want TEMPLATE_NOT_FOUND", err)
	}
}

func TestSwitch(t *testing.T) {
	images := []string{"a", "b", "c", "d", "e", "f", "g"}
	l, err := Switch("featured", images, grid.NewRand(5))
	if err != nil {
		t.Fatal(err)
	}
	if l.Filled() != 6 {
		t.Errorf("filled = %d, want 6", l.Filled())
	}
	if len(l.ImageIDs()) != 6 {
		t.Errorf("duplicate image placed: %v", l.ImageIDs())
	}
}

func TestUniform(t *testing.T) {
	l, err := Uniform(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Cells) != 25 {
		t.Errorf("cells = %d, want 25", len(l.Cells))
	}
	if _, err := Uniform(grid.MaxDimension + 1); err == nil {
		t.Error("Uniform beyond MaxDimension should fail")
	}
}
