package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/matryer/is"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

func openMemory(t *testing.T) *Badger {
	t.Helper()
	is := is.New(t)
	s, err := OpenBadger("")
	is.NoErr(err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerPutGet(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openMemory(t)

	body := "not really a png"
	is.NoErr(s.Put(ctx, "sessions/a/images/1", strings.NewReader(body), int64(len(body)), "image/png"))

	rc, info, err := s.Get(ctx, "sessions/a/images/1")
	is.NoErr(err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	is.NoErr(err)
	is.Equal(string(got), body)
	is.Equal(info.ContentType, "image/png")
	is.Equal(info.Size, int64(len(body)))
	is.True(!info.ModTime.IsZero())
}

func TestBadgerPutUnknownSize(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openMemory(t)

	is.NoErr(s.Put(ctx, "k", strings.NewReader("abcdef"), -1, "application/octet-stream"))
	_, info, err := s.Get(ctx, "k")
	is.NoErr(err)
	is.Equal(info.Size, int64(6))
}

func TestBadgerGetMissing(t *testing.T) {
	is := is.New(t)
	s := openMemory(t)

	_, _, err := s.Get(context.Background(), "nope")
	is.True(errors.Is(err, ErrNotFound))
}

func TestBadgerDelete(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openMemory(t)

	is.NoErr(s.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain"))
	is.NoErr(s.Delete(ctx, "k"))
	_, _, err := s.Get(ctx, "k")
	is.True(errors.Is(err, ErrNotFound))

	is.NoErr(s.Delete(ctx, "never-existed"))
}

func TestBadgerDeletePrefix(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openMemory(t)

	for _, key := range []string{
		ImageKey("s1", "a"),
		ImageKey("s1", "b"),
		ImageKey("s2", "a"),
	} {
		is.NoErr(s.Put(ctx, key, strings.NewReader("x"), 1, "image/png"))
	}

	is.NoErr(s.DeletePrefix(ctx, SessionPrefix("s1")))

	_, _, err := s.Get(ctx, ImageKey("s1", "a"))
	is.True(errors.Is(err, ErrNotFound))
	_, _, err = s.Get(ctx, ImageKey("s1", "b"))
	is.True(errors.Is(err, ErrNotFound))
	_, _, err = s.Get(ctx, ImageKey("s2", "a"))
	is.NoErr(err)
}

func TestBadgerCancelledContext(t *testing.T) {
	is := is.New(t)
	s := openMemory(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain")
	is.True(errors.Is(err, context.Canceled))
}

func TestBadgerRejectsUnsafeKeys(t *testing.T) {
	is := is.New(t)
	s := openMemory(t)
	ctx := context.Background()

	for _, key := range []string{"", "/abs", "sessions/../x", `a\b`} {
		err := s.Put(ctx, key, strings.NewReader("x"), 1, "text/plain")
		is.True(errs.Is(err, errs.ErrCodeInvalidPath)) // unsafe key rejected
	}
}

func TestKeys(t *testing.T) {
	is := is.New(t)
	is.Equal(SessionPrefix("abc"), "sessions/abc/")
	is.Equal(ImageKey("abc", "img"), "sessions/abc/images/img")
	is.Equal(ExportKey("abc", "collage.png"), "sessions/abc/exports/collage.png")
}
