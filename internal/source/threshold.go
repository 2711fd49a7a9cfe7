package source

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/geometry"
	"github.com/ironsheep/mask-regions/internal/regions"
)

// Threshold segments an image by luminance. Pixels at or above the level
// are foreground (below it when Invert is set); each 8-connected foreground
// region of at least MinRegionArea pixels becomes one mask.
//
// Masks are emitted in raster order of their first pixel. The source
// supplies no box, area or scores, so stability and IoU serialize as 0.
type Threshold struct {
	cfg config.ThresholdConfig
}

// NewThreshold creates a threshold source.
func NewThreshold(cfg config.ThresholdConfig) *Threshold {
	return &Threshold{cfg: cfg}
}

func (t *Threshold) Name() string {
	return config.SourceThreshold
}

func (t *Threshold) Fingerprint() string {
	return fmt.Sprintf("threshold:level=%d:blur=%g:invert=%t:min=%d",
		t.cfg.Level, t.cfg.BlurRadius, t.cfg.Invert, t.cfg.MinRegionArea)
}

func (t *Threshold) Generate(ctx context.Context, in Input) ([]regions.RawMask, error) {
	if in.Image == nil {
		return nil, fmt.Errorf("threshold source: no image")
	}

	binary := t.binarize(in.Image)
	fg := geometry.FromImage(binary, 128)

	comps, labels := geometry.Components(fg)
	masks := make([]regions.RawMask, 0, len(comps))

	for i, c := range comps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Pixels < t.cfg.MinRegionArea {
			continue
		}

		label := int32(i + 1)
		grid := geometry.NewMask(fg.Width, fg.Height)
		for j, l := range labels {
			if l == label {
				grid.Pix[j] = true
			}
		}
		masks = append(masks, regions.RawMask{Segmentation: grid})
	}
	return masks, nil
}

// binarize returns a grayscale image that is 255 on foreground and 0
// elsewhere.
func (t *Threshold) binarize(img image.Image) *image.Gray {
	src := img
	if t.cfg.BlurRadius > 0 {
		src = blur.Gaussian(src, t.cfg.BlurRadius)
	}
	if t.cfg.Invert {
		src = effect.Invert(src)
	}

	level := t.cfg.Level
	if t.cfg.Invert {
		// Inverting maps luminance l to 255-l, so "l < level" becomes
		// "255-l > 255-level", i.e. at least 256-level.
		level = 256 - level
	}
	if level > 255 {
		// Nothing is darker than 0.
		return image.NewGray(img.Bounds())
	}
	return segment.Threshold(src, uint8(level))
}
