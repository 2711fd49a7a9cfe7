package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/mask-regions/internal/geometry"
)

func TestCropRegion(t *testing.T) {
	img := createInMemoryImage(100, 80, color.White)
	for y := 10; y < 30; y++ {
		for x := 10; x < 50; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	result, err := CropRegion(img, geometry.Box{X: 10, Y: 10, Width: 40, Height: 20}, 1.0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}

	if result.Width != 40 || result.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 40x20", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	cropped, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}

	r, g, b, _ := cropped.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("crop origin color: got (%d,%d,%d), want red", r>>8, g>>8, b>>8)
	}
}

func TestCropRegion_WithScale(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	result, err := CropRegion(img, geometry.Box{X: 0, Y: 0, Width: 50, Height: 50}, 2.0)
	if err != nil {
		t.Fatalf("CropRegion with scale failed: %v", err)
	}
	if result.Width != 100 || result.Height != 100 {
		t.Errorf("scaled dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}

	result, err = CropRegion(img, geometry.Box{X: 0, Y: 0, Width: 1, Height: 1}, 0.1)
	if err != nil {
		t.Fatalf("CropRegion with tiny scale failed: %v", err)
	}
	if result.Width != 1 || result.Height != 1 {
		t.Errorf("tiny crop should clamp to 1x1, got %dx%d", result.Width, result.Height)
	}
}

func TestCropRegion_Invalid(t *testing.T) {
	img := createInMemoryImage(100, 100, color.White)

	tests := []struct {
		name string
		box  geometry.Box
	}{
		{"zero width", geometry.Box{X: 0, Y: 0, Width: 0, Height: 10}},
		{"negative x", geometry.Box{X: -1, Y: 0, Width: 10, Height: 10}},
		{"past right edge", geometry.Box{X: 95, Y: 0, Width: 10, Height: 10}},
		{"past bottom edge", geometry.Box{X: 0, Y: 95, Width: 10, Height: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRegion(img, tt.box, 1.0); err == nil {
				t.Error("CropRegion should fail")
			}
		})
	}
}
