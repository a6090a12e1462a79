package images

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

func TestSet(t *testing.T) {
	a := New("a.png", 10, "image/png")
	b := New("b.jpg", 20, "image/jpeg")

	s := Set{}.Add(a).Add(b)
	if got := s.IDs(); !slices.Equal(got, []string{a.ID, b.ID}) {
		t.Errorf("IDs() = %v", got)
	}
	if s.Size() != 30 {
		t.Errorf("Size() = %d, want 30", s.Size())
	}

	renamed := a
	renamed.Name = "renamed.png"
	s2 := s.Add(renamed)
	if len(s2) != 2 || s2[0].Name != "renamed.png" {
		t.Errorf("Add with existing id should replace in place: %+v", s2)
	}
	if s[0].Name != "a.png" {
		t.Error("Add modified the receiver")
	}

	s3, ok := s.Remove(a.ID)
	if !ok || len(s3) != 1 || s3.Has(a.ID) {
		t.Errorf("Remove() = %+v, %v", s3, ok)
	}
	if !s.Has(a.ID) {
		t.Error("Remove modified the receiver")
	}
	if _, ok := s.Remove("missing"); ok {
		t.Error("Remove of a missing id should report false")
	}

	if got, ok := s.Get(b.ID); !ok || got.Name != "b.jpg" {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
	if len(s.Clear()) != 0 {
		t.Error("Clear() should be empty")
	}
}

func TestNameIDIsStable(t *testing.T) {
	if NameID("cat.jpg") != NameID("cat.jpg") {
		t.Error("NameID should be deterministic")
	}
	if NameID("cat.jpg") == NameID("dog.jpg") {
		t.Error("different names should give different ids")
	}
	if err := errs.ValidateSessionID(NameID("cat.jpg")); err != nil {
		t.Errorf("NameID should be a canonical uuid: %v", err)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSniffContentType(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want string
		ok   bool
	}{
		{"PNG", pngBytes(t), "image/png", true},
		{"JPEG", []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF"), "image/jpeg", true},
		{"GIF", []byte("GIF89a"), "image/gif", true},
		{"WebP", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp", true},
		{"Text", []byte("hello world"), "", false},
		{"Empty", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SniffContentType(tt.head)
			if !tt.ok {
				if !errs.Is(err, errs.ErrCodeInvalidImage) {
					t.Errorf("err = %v, want INVALID_IMAGE", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("SniffContentType() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	data := pngBytes(t)
	for _, name := range []string{"b.png", "a.png", "fake.jpg", "notes.txt"} {
		content := data
		if name == "fake.jpg" || name == "notes.txt" {
			content = []byte("not an image")
		}
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	set, src, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 2 {
		t.Fatalf("images = %d, want 2: %+v", len(set), set)
	}
	if set[0].Name != "a.png" || set[1].Name != "b.png" {
		t.Errorf("order = %s, %s; want a.png, b.png", set[0].Name, set[1].Name)
	}
	if set[0].ID != NameID("a.png") || set[0].ContentType != "image/png" {
		t.Errorf("image = %+v", set[0])
	}

	rc, err := src.Open(context.Background(), set[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, data) {
		t.Error("source returned wrong bytes")
	}

	if _, err := src.Open(context.Background(), "nope"); !errs.Is(err, errs.ErrCodeImageNotFound) {
		t.Errorf("err = %v, want IMAGE_NOT_FOUND", err)
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, _, err := LoadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing dir")
	}
}
