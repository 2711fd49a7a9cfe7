package source

import (
	"fmt"

	"github.com/ironsheep/mask-regions/internal/geometry"
)

// RLE is an uncompressed COCO run-length encoding.
//
// Counts alternate background and foreground runs, starting with background,
// over the pixels in column-major order (down each column, then across).
type RLE struct {
	// Size is [height, width].
	Size   []int `json:"size"`
	Counts []int `json:"counts"`
}

// Decode expands the encoding into a row-major mask.
func (r RLE) Decode() (*geometry.Mask, error) {
	if len(r.Size) != 2 {
		return nil, fmt.Errorf("rle size must be [height, width], got %v", r.Size)
	}
	height, width := r.Size[0], r.Size[1]
	if height < 0 || width < 0 {
		return nil, fmt.Errorf("rle size %v is negative", r.Size)
	}

	total := width * height
	m := geometry.NewMask(width, height)

	pos := 0
	for i, n := range r.Counts {
		if n < 0 {
			return nil, fmt.Errorf("rle count %d is negative", i)
		}
		if pos+n > total {
			return nil, fmt.Errorf("rle counts cover more than %d pixels", total)
		}
		if i%2 == 1 {
			for k := pos; k < pos+n; k++ {
				x, y := k/height, k%height
				m.Pix[y*width+x] = true
			}
		}
		pos += n
	}
	if pos != total {
		return nil, fmt.Errorf("rle counts cover %d of %d pixels", pos, total)
	}
	return m, nil
}

// EncodeRLE produces the uncompressed column-major encoding of m.
func EncodeRLE(m *geometry.Mask) RLE {
	counts := make([]int, 0)
	current := false
	run := 0

	for x := 0; x < m.Width; x++ {
		for y := 0; y < m.Height; y++ {
			v := m.At(x, y)
			if v != current {
				counts = append(counts, run)
				current = v
				run = 0
			}
			run++
		}
	}
	counts = append(counts, run)

	return RLE{Size: []int{m.Height, m.Width}, Counts: counts}
}
