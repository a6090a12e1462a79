package grid

import (
	"math/rand/v2"
	"slices"
	"time"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// Assign sets or clears (imageID == "") the image of one cell. Only the cell
// is checked; whether imageID names a known image is up to the caller.
func Assign(l Layout, cellID, imageID string) (Layout, error) {
	i := l.index(cellID)
	if i < 0 {
		return l, errs.New(errs.ErrCodeCellNotFound, "cell %q not found", cellID)
	}
	out := l.Clone()
	out.Cells[i].ImageID = imageID
	return out, nil
}

// PruneStale clears every image reference that is not in available.
func PruneStale(l Layout, available []string) Layout {
	ok := toSet(available)
	out := l.Clone()
	for i, c := range out.Cells {
		if c.HasImage() && !ok[c.ImageID] {
			out.Cells[i].ImageID = ""
		}
	}
	return out
}

// AutoFill drops stale references and then places the images not yet used
// by the layout into its empty cells, in cell order, drawing them in random
// order. Cells that already hold a valid image are never touched. Images left
// over once every cell is filled stay unplaced.
//
// rng drives the draw order; nil uses a time-seeded generator.
func AutoFill(l Layout, imageIDs []string, rng *rand.Rand) Layout {
	out := PruneStale(l, imageIDs)

	referenced := toSet(out.ImageIDs())
	var pool []string
	seen := make(map[string]bool, len(imageIDs))
	for _, id := range imageIDs {
		if id == "" || referenced[id] || seen[id] {
			continue
		}
		seen[id] = true
		pool = append(pool, id)
	}
	pool = Shuffle(pool, rng)

	for i := range out.Cells {
		if len(pool) == 0 {
			break
		}
		if !out.Cells[i].HasImage() {
			out.Cells[i].ImageID = pool[0]
			pool = pool[1:]
		}
	}
	return out
}

// Shuffle returns a Fisher-Yates permutation of ids. The input is not modified.
func Shuffle(ids []string, rng *rand.Rand) []string {
	if rng == nil {
		rng = NewRand(uint64(time.Now().UnixNano()))
	}
	out := slices.Clone(ids)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// NewRand returns a deterministic generator for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
