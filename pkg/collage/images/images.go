// Package images tracks the images available to a collage.
//
// Layouts reference images by id only. A [Set] is the table those ids
// resolve against: removing an image from the set leaves stale references in
// any layout that used it, which grid.AutoFill (or grid.PruneStale) clears.
package images

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// Image describes an uploaded or discovered image. The bytes live in a blob
// store or on disk, never here.
type Image struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// New returns an image with a fresh random id.
func New(name string, size int64, contentType string) Image {
	return Image{
		ID:          uuid.NewString(),
		Name:        name,
		Size:        size,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}
}

// NameID derives a stable id from a file name, so that the same folder
// yields the same ids on every run.
func NameID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file:"+name)).String()
}

// Set is an ordered list of images. Methods return new sets and never modify
// the receiver.
type Set []Image

// Add appends img, replacing an existing image with the same id in place.
func (s Set) Add(img Image) Set {
	out := slices.Clone(s)
	if i := s.index(img.ID); i >= 0 {
		out[i] = img
		return out
	}
	return append(out, img)
}

// Remove drops the image with the given id. It reports whether the image
// was present.
func (s Set) Remove(id string) (Set, bool) {
	i := s.index(id)
	if i < 0 {
		return slices.Clone(s), false
	}
	return slices.Delete(slices.Clone(s), i, i+1), true
}

// Clear returns an empty set.
func (s Set) Clear() Set {
	return Set{}
}

// Get returns the image with the given id.
func (s Set) Get(id string) (Image, bool) {
	if i := s.index(id); i >= 0 {
		return s[i], true
	}
	return Image{}, false
}

// Has reports whether the set contains id.
func (s Set) Has(id string) bool {
	return s.index(id) >= 0
}

// IDs returns the image ids in order.
func (s Set) IDs() []string {
	ids := make([]string, len(s))
	for i, img := range s {
		ids[i] = img.ID
	}
	return ids
}

// Size returns the total byte size of the set.
func (s Set) Size() int64 {
	var n int64
	for _, img := range s {
		n += img.Size
	}
	return n
}

func (s Set) index(id string) int {
	return slices.IndexFunc(s, func(img Image) bool { return img.ID == id })
}

// Supported content types.
var contentTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// SniffContentType detects the content type of an image from its first
// bytes and rejects anything that is not a supported image format.
func SniffContentType(head []byte) (string, error) {
	ct := http.DetectContentType(head)
	if !slices.Contains(contentTypes, ct) {
		return "", errs.New(errs.ErrCodeInvalidImage, "unsupported content type %q", ct)
	}
	return ct, nil
}
