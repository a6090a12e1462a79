package images

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/gridcollage/pkg/collage/compose"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// LoadDir collects the images in dir, in file name order, and returns them
// with a Source that opens them by id. Files whose content is not a
// supported image are skipped. Subdirectories are not searched.
func LoadDir(dir string) (Set, compose.Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read image dir: %w", err)
	}

	set := Set{}
	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		img, err := describeFile(path)
		if err != nil {
			continue
		}
		set = set.Add(img)
		files[img.ID] = img.Name
	}
	return set, compose.DirSource{Dir: dir, Files: files}, nil
}

func describeFile(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Image{}, err
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Image{}, err
	}
	ct, err := SniffContentType(head[:n])
	if err != nil {
		return Image{}, err
	}

	name := filepath.Base(path)
	return Image{
		ID:          NameID(name),
		Name:        name,
		Size:        info.Size(),
		ContentType: ct,
		CreatedAt:   info.ModTime().UTC(),
	}, nil
}
