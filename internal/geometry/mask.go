package geometry

import (
	"fmt"
	"image"
	"image/color"
)

// Mask is a fixed-size boolean grid marking the foreground pixels of one
// segmented region.
type Mask struct {
	// Width is the number of columns.
	Width int

	// Height is the number of rows.
	Height int

	// Pix holds Width*Height cells in row-major order.
	Pix []bool
}

// NewMask allocates an all-background mask of the given size.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At reports whether the cell at (x, y) is foreground.
// Coordinates outside the grid are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks the cell at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Fill marks every cell inside r (clipped to the grid) as foreground.
func (m *Mask) Fill(r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = true
		}
	}
}

// Rect returns the grid extent as an image rectangle anchored at the origin.
func (m *Mask) Rect() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Validate checks that the backing slice matches the declared size.
func (m *Mask) Validate() error {
	if m.Width < 0 || m.Height < 0 {
		return fmt.Errorf("negative mask size %dx%d", m.Width, m.Height)
	}
	if len(m.Pix) != m.Width*m.Height {
		return fmt.Errorf("mask holds %d cells, want %d for %dx%d", len(m.Pix), m.Width*m.Height, m.Width, m.Height)
	}
	return nil
}

// FromImage builds a mask from any image, marking pixels whose luminance is
// at least level as foreground. The mask is anchored at the image's Min point.
//
// Luminance uses the same conversion as color.GrayModel, so an *image.Gray
// produced by a thresholding step maps 255 to foreground and 0 to background.
func FromImage(img image.Image, level uint8) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Pix[y*m.Width+x] = gray.GrayAt(x+b.Min.X, y+b.Min.Y).Y >= level
			}
		}
		return m
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := color.GrayModel.Convert(img.At(x+b.Min.X, y+b.Min.Y)).(color.Gray)
			m.Pix[y*m.Width+x] = g.Y >= level
		}
	}
	return m
}
