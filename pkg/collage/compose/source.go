package compose

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/gridcollage/pkg/blob"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// Source opens the encoded bytes of an image by id.
type Source interface {
	Open(ctx context.Context, imageID string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, imageID string) (io.ReadCloser, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context, imageID string) (io.ReadCloser, error) {
	return f(ctx, imageID)
}

// MapSource serves images from memory.
type MapSource map[string][]byte

// Open implements Source.
func (m MapSource) Open(_ context.Context, imageID string) (io.ReadCloser, error) {
	data, ok := m[imageID]
	if !ok {
		return nil, errs.New(errs.ErrCodeImageNotFound, "image %q not found", imageID)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// DirSource serves images from files in Dir. Files maps image ids to file
// names; with a nil Files the image id is the file name.
type DirSource struct {
	Dir   string
	Files map[string]string
}

// Open implements Source.
func (d DirSource) Open(_ context.Context, imageID string) (io.ReadCloser, error) {
	name := imageID
	if d.Files != nil {
		var ok bool
		if name, ok = d.Files[imageID]; !ok {
			return nil, errs.New(errs.ErrCodeImageNotFound, "image %q not found", imageID)
		}
	}
	if err := errs.ValidateImageName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrCodeImageNotFound, err, "image %q not found", imageID)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// BlobSource serves images from a blob store, at Prefix + image id.
type BlobSource struct {
	Store  blob.Store
	Prefix string
}

// Open implements Source.
func (b BlobSource) Open(ctx context.Context, imageID string) (io.ReadCloser, error) {
	rc, _, err := b.Store.Get(ctx, b.Prefix+imageID)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, errs.Wrap(errs.ErrCodeImageNotFound, err, "image %q not found", imageID)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "open image %q", imageID)
	}
	return rc, nil
}
