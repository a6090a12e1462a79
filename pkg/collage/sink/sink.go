// Package sink encodes rendered collages into image files.
package sink

import (
	"bytes"
	"context"
	"image"
	"io"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
	"github.com/matzehuels/gridcollage/pkg/observability"
)

// Format is an output image format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

// DefaultQuality is used for lossy formats when no quality is given.
const DefaultQuality = 90

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{PNG, JPEG, WebP}
}

// ParseFormat parses a format name or file extension ("jpg", ".png").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	}
	return "", errs.New(errs.ErrCodeUnsupportedFormat, "unsupported format %q (want png, jpeg or webp)", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case WebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Extension returns the file extension of the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case WebP:
		return ".webp"
	default:
		return ".png"
	}
}

// Lossy reports whether quality applies to the format.
func (f Format) Lossy() bool {
	return f == JPEG || f == WebP
}

// Encode writes img to w. quality applies to lossy formats and must be in
// 1..100; zero selects DefaultQuality. PNG ignores quality.
func Encode(w io.Writer, img image.Image, f Format, quality int) (err error) {
	if quality == 0 {
		quality = DefaultQuality
	}
	if f.Lossy() && (quality < 1 || quality > 100) {
		return errs.New(errs.ErrCodeInvalidOutputSpec, "quality must be between 1 and 100, got %d", quality)
	}

	cw := &countingWriter{w: w}
	start := time.Now()
	defer func() {
		observability.Pipeline().OnEncodeComplete(context.Background(), string(f), cw.n, time.Since(start), err)
	}()

	switch f {
	case PNG:
		err = imaging.Encode(cw, img, imaging.PNG)
	case JPEG:
		err = imaging.Encode(cw, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case WebP:
		err = webp.Encode(cw, img, &webp.Options{Quality: float32(quality)})
	default:
		return errs.New(errs.ErrCodeUnsupportedFormat, "unsupported format %q", f)
	}
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode %s", f)
	}
	return nil
}

// EncodeBytes encodes img into memory.
func EncodeBytes(img image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
