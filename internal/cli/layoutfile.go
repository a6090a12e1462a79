package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// layoutFile is the on-disk form of a layout written by "layout" and read by
// "render" and "edit". Image ids refer to files in Images, as assigned by
// images.LoadDir.
type layoutFile struct {
	Template string      `json:"template,omitempty"`
	Images   string      `json:"images,omitempty"`
	Seed     uint64      `json:"seed,omitempty"`
	Layout   grid.Layout `json:"layout"`
}

// readLayoutFile loads and validates a layout file. A relative Images
// directory is resolved against the file's own directory.
func readLayoutFile(path string) (*layoutFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	var f layoutFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse layout %s", path)
	}
	if err := f.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	if f.Images != "" && !filepath.IsAbs(f.Images) {
		f.Images = filepath.Join(filepath.Dir(path), f.Images)
	}
	return &f, nil
}

// writeLayoutFile writes f as indented JSON. An Images directory below the
// file's directory is stored relative to it.
func writeLayoutFile(path string, f *layoutFile) error {
	out := *f
	if out.Images != "" {
		if rel, err := relativeTo(filepath.Dir(path), out.Images); err == nil {
			out.Images = rel
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write layout %s: %w", path, err)
	}
	return nil
}

func relativeTo(base, target string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || strings.HasPrefix(rel, "..") {
		return target, nil
	}
	return rel, nil
}

// parseSpan parses "CELL=RxC", e.g. "r0c0=2x2".
func parseSpan(s string) (cellID string, rowSpan, colSpan int, err error) {
	cellID, dims, ok := strings.Cut(s, "=")
	if !ok || cellID == "" {
		return "", 0, 0, errs.New(errs.ErrCodeInvalidInput, "span %q: want CELL=ROWSxCOLS", s)
	}
	rs, cs, ok := strings.Cut(strings.ToLower(dims), "x")
	if !ok {
		return "", 0, 0, errs.New(errs.ErrCodeInvalidInput, "span %q: want CELL=ROWSxCOLS", s)
	}
	if rowSpan, err = strconv.Atoi(rs); err != nil {
		return "", 0, 0, errs.Wrap(errs.ErrCodeInvalidInput, err, "span %q: bad row span", s)
	}
	if colSpan, err = strconv.Atoi(cs); err != nil {
		return "", 0, 0, errs.Wrap(errs.ErrCodeInvalidInput, err, "span %q: bad column span", s)
	}
	return cellID, rowSpan, colSpan, nil
}

// outputPaths maps each format to a file path. A single format writes to
// output as given; several formats share output's base name with their own
// extensions. An empty output uses fallback as the base.
func outputPaths(output, fallback string, formats []string, ext func(string) string) map[string]string {
	paths := make(map[string]string, len(formats))
	if output != "" && len(formats) == 1 {
		paths[formats[0]] = output
		return paths
	}
	base := fallback
	if output != "" {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}
	for _, f := range formats {
		paths[f] = base + ext(f)
	}
	return paths
}
