package source

import (
	"context"
	"fmt"
	"image"
	"math/rand"

	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/geometry"
	"github.com/ironsheep/mask-regions/internal/regions"
)

// Mock generates rectangular, UI-like masks from a seeded random stream.
// Every call to Generate restarts the stream, so the same image size always
// yields the same masks.
type Mock struct {
	cfg config.MockConfig
}

// NewMock creates a mock source.
func NewMock(cfg config.MockConfig) *Mock {
	if cfg.MaxMasks < cfg.MinMasks {
		cfg.MaxMasks = cfg.MinMasks
	}
	return &Mock{cfg: cfg}
}

func (m *Mock) Name() string {
	return config.SourceMock
}

func (m *Mock) Fingerprint() string {
	return fmt.Sprintf("mock:seed=%d:masks=%d-%d", m.cfg.Seed, m.cfg.MinMasks, m.cfg.MaxMasks)
}

// Generate returns between MinMasks and MaxMasks filled rectangles. Each
// carries a box and area matching its grid, and scores in the ranges a real
// generator tends to report (stability 0.85..0.99, IoU 0.80..0.95).
func (m *Mock) Generate(ctx context.Context, in Input) ([]regions.RawMask, error) {
	if in.Image == nil {
		return nil, fmt.Errorf("mock source: no image")
	}
	b := in.Image.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return []regions.RawMask{}, nil
	}

	rng := rand.New(rand.NewSource(m.cfg.Seed))
	count := between(rng, m.cfg.MinMasks, m.cfg.MaxMasks+1)

	masks := make([]regions.RawMask, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		x := between(rng, 0, width-50)
		y := between(rng, 0, height-30)
		w := between(rng, 30, min(width-x, 120))
		h := between(rng, 20, min(height-y, 80))
		w = clamp(w, 1, width-x)
		h = clamp(h, 1, height-y)

		grid := geometry.NewMask(width, height)
		grid.Fill(image.Rect(x, y, x+w, y+h))

		masks = append(masks, regions.RawMask{
			Segmentation:   grid,
			BBox:           []float64{float64(x), float64(y), float64(w), float64(h)},
			Area:           float64Ptr(float64(w * h)),
			StabilityScore: float64Ptr(uniform(rng, 0.85, 0.99)),
			PredictedIOU:   float64Ptr(uniform(rng, 0.80, 0.95)),
		})
	}
	return masks, nil
}

// between returns a value in [lo, hi), or lo when the range is empty.
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
