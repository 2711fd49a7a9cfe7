// Package regions turns raw masks from a mask source into canonical,
// serializable region records.
//
// A Processor validates each RawMask, extracts its geometry (in parallel
// when configured), drops masks with no foreground and assigns contiguous
// ids in source order. The Normalizer holds the per-mask coercion rules.
package regions

import (
	"math"

	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/geometry"
)

// RawMask is one mask as produced by a mask source.
// Optional fields are nil when the source did not supply them.
type RawMask struct {
	// Segmentation is the boolean grid. It must match the image size.
	Segmentation *geometry.Mask

	// BBox is the source's own [x, y, w, h] box, if any.
	BBox []float64

	// Area is the source's own pixel count, if any.
	Area *float64

	StabilityScore *float64
	PredictedIOU   *float64
}

// NormalizedMask is the canonical record for one region.
type NormalizedMask struct {
	// ID is the zero-based position among emitted masks.
	ID int `json:"id"`

	BBox geometry.Box `json:"bbox"`

	// Area is the number of foreground pixels.
	Area int `json:"area"`

	// Segmentation holds one polygon per connected component. Never nil.
	Segmentation []geometry.Polygon `json:"segmentation"`

	StabilityScore float64 `json:"stability_score"`
	PredictedIOU   float64 `json:"predicted_iou"`
}

// Policy selects where bbox and area come from.
type Policy string

const (
	// PolicyGrid always derives bbox and area from the pixel grid.
	PolicyGrid Policy = "grid"

	// PolicyUpstream prefers the source's own bbox and area when present.
	PolicyUpstream Policy = "upstream"
)

// Normalizer converts a RawMask plus its geometry into a NormalizedMask.
type Normalizer struct {
	policy Policy
	log    *zap.Logger
}

// NewNormalizer creates a normalizer. An empty policy means PolicyGrid and a
// nil logger discards output.
func NewNormalizer(policy Policy, log *zap.Logger) *Normalizer {
	if policy == "" {
		policy = PolicyGrid
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{policy: policy, log: log}
}

// Fingerprint summarizes the settings that change Normalize's output.
func (n *Normalizer) Fingerprint() string {
	return "policy=" + string(n.policy)
}

// Normalize builds the record for raw with emission index id.
// ok is false when the grid has no foreground; such a mask consumes no id.
func (n *Normalizer) Normalize(raw RawMask, g geometry.Geometry, id int) (mask NormalizedMask, ok bool) {
	if g.Empty() {
		return NormalizedMask{}, false
	}

	box, area := g.Box, g.Area
	upBox, hasBox := upstreamBox(raw.BBox)
	upArea, hasArea := upstreamArea(raw.Area)

	if hasBox && upBox != g.Box {
		n.log.Debug("source bbox differs from grid",
			zap.Int("id", id),
			zap.Any("source_bbox", upBox),
			zap.Any("grid_bbox", g.Box))
	}
	if hasArea && upArea != g.Area {
		n.log.Debug("source area differs from grid",
			zap.Int("id", id),
			zap.Int("source_area", upArea),
			zap.Int("grid_area", g.Area))
	}

	if n.policy == PolicyUpstream {
		if hasBox {
			box = upBox
		}
		if hasArea {
			area = upArea
		}
	}

	contours := g.Contours
	if contours == nil {
		contours = []geometry.Polygon{}
	}

	return NormalizedMask{
		ID:             id,
		BBox:           box,
		Area:           area,
		Segmentation:   contours,
		StabilityScore: score(raw.StabilityScore),
		PredictedIOU:   score(raw.PredictedIOU),
	}, true
}

// truncate converts a numeric value to int by dropping the fraction.
// Non-finite values become 0.
func truncate(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Trunc(v))
}

// upstreamBox reports false for a missing box or one without positive
// width and height, so the grid box is used instead.
func upstreamBox(b []float64) (geometry.Box, bool) {
	if len(b) != 4 {
		return geometry.Box{}, false
	}
	box := geometry.Box{
		X:      truncate(b[0]),
		Y:      truncate(b[1]),
		Width:  truncate(b[2]),
		Height: truncate(b[3]),
	}
	if box.Width <= 0 || box.Height <= 0 {
		return geometry.Box{}, false
	}
	return box, true
}

func upstreamArea(a *float64) (int, bool) {
	if a == nil {
		return 0, false
	}
	v := truncate(*a)
	if v < 0 {
		v = 0
	}
	return v, true
}

// score returns the value of s, or 0 when it is absent or not finite.
func score(s *float64) float64 {
	if s == nil || math.IsNaN(*s) || math.IsInf(*s, 0) {
		return 0
	}
	return *s
}
