package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/mask-regions/internal/geometry"
	"github.com/ironsheep/mask-regions/internal/regions"
)

// OverlayOptions controls region overlay rendering.
type OverlayOptions struct {
	// ShowLabels draws each mask id at its bounding box corner.
	ShowLabels bool

	// LabelBackground is a hex color ("#RRGGBB" or "#RRGGBBAA") behind labels.
	// Invalid or empty values fall back to semi-transparent black.
	LabelBackground string
}

// OverlayResult contains the image with region outlines drawn on it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Regions     int    `json:"regions"`
}

// RegionColor returns the outline color used for mask id.
// Hues step by the golden angle so neighbouring ids stay distinguishable.
func RegionColor(id int) color.NRGBA {
	hue := math.Mod(float64(id)*137.508, 360)
	c := colorful.Hcl(hue, 0.5, 0.6).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// DrawRegions returns a copy of img with every mask's polygons outlined and,
// if requested, its id drawn at the top-left of its bounding box.
func DrawRegions(img image.Image, masks []regions.NormalizedMask, opts OverlayOptions) *image.NRGBA {
	out := imaging.Clone(img)
	offset := out.Bounds().Min

	for _, m := range masks {
		c := RegionColor(m.ID)
		for _, poly := range m.Segmentation {
			drawPolygon(out, poly, offset, c)
		}
	}

	if opts.ShowLabels {
		bg, err := parseHexColor(opts.LabelBackground)
		if err != nil {
			bg = color.RGBA{0, 0, 0, 180}
		}
		for _, m := range masks {
			drawLabel(out, m.BBox.X+offset.X, m.BBox.Y+offset.Y, strconv.Itoa(m.ID), RegionColor(m.ID), bg)
		}
	}

	return out
}

// RenderOverlay draws the regions and encodes the result as base64 PNG.
func RenderOverlay(img image.Image, masks []regions.NormalizedMask, opts OverlayOptions) (*OverlayResult, error) {
	out := DrawRegions(img, masks, opts)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := out.Bounds()
	return &OverlayResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Regions:     len(masks),
	}, nil
}

// SaveOverlay draws the regions and writes the image to path. The format is
// picked from the file extension.
func SaveOverlay(path string, img image.Image, masks []regions.NormalizedMask, opts OverlayOptions) error {
	if err := imaging.Save(DrawRegions(img, masks, opts), path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

// drawPolygon strokes the closed outline of poly.
func drawPolygon(img *image.NRGBA, poly geometry.Polygon, offset image.Point, c color.NRGBA) {
	n := poly.Len()
	for i := 0; i < n; i++ {
		a := poly.Point(i)
		b := poly.Point((i + 1) % n)
		drawLine(img, a.X+offset.X, a.Y+offset.Y, b.X+offset.X, b.Y+offset.Y, c)
	}
}

// drawLine draws a one-pixel line using Bresenham's algorithm.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for {
		img.SetNRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws text with basicfont on a filled box whose top-left corner
// is (x, y).
func drawLabel(img *image.NRGBA, x, y int, text string, fg color.Color, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 2
	height := face.Height + 2

	bounds := img.Bounds()
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			px, py := x+dx, y+dy
			if image.Pt(px, py).In(bounds) {
				img.Set(px, py, blend(img.NRGBAAt(px, py), bg))
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x + 1), Y: fixed.I(y + 1 + face.Ascent)},
	}
	d.DrawString(text)
}

// blend composites src (non-premultiplied alpha) over dst.
func blend(dst color.NRGBA, src color.RGBA) color.NRGBA {
	a := float64(src.A) / 255
	mix := func(d, s uint8) uint8 {
		return uint8(float64(s)*a + float64(d)*(1-a) + 0.5)
	}
	return color.NRGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}
