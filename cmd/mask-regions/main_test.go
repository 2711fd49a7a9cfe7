package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/mask-regions/internal/result"
)

func writePNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(t.TempDir(), "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestRun_Segment(t *testing.T) {
	t.Setenv("MASK_REGIONS_LOG_LEVEL", "error")
	img := writePNG(t, 200, 100)
	dir := t.TempDir()
	out := filepath.Join(dir, "result.json")
	overlay := filepath.Join(dir, "overlay.png")

	code := run([]string{"-source", "mock", "-workers", "2", "-output", out, "-overlay", overlay, img})
	if code != exitOK {
		t.Fatalf("exit code: got %d, want %d", code, exitOK)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("result not written: %v", err)
	}
	defer f.Close()
	res, err := result.Read(f)
	if err != nil {
		t.Fatalf("failed to read result: %v", err)
	}
	if !res.Success || res.ImagePath != img || res.TotalMasks < 3 {
		t.Errorf("result: got success=%v path=%s masks=%d", res.Success, res.ImagePath, res.TotalMasks)
	}
	if _, err := os.Stat(overlay); err != nil {
		t.Errorf("overlay not written: %v", err)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("MASK_REGIONS_LOG_LEVEL", "error")
	img := writePNG(t, 40, 40)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"--version"}, exitOK},
		{"help", []string{"help"}, exitOK},
		{"no image", []string{"-source", "mock"}, exitUsage},
		{"two images", []string{"-source", "mock", img, img}, exitUsage},
		{"unknown flag", []string{"-frobnicate", img}, exitUsage},
		{"unknown source", []string{"-source", "oracle", img}, exitUsage},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), img}, exitUsage},
		{"missing image", []string{"-source", "mock", filepath.Join(t.TempDir(), "gone.png")}, exitFailure},
		{"threshold", []string{"-source", "threshold", "-output", filepath.Join(t.TempDir(), "r.json"), img}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("exit code: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRun_OverlayFailureKeepsSuccess(t *testing.T) {
	t.Setenv("MASK_REGIONS_LOG_LEVEL", "error")
	img := writePNG(t, 120, 80)
	out := filepath.Join(t.TempDir(), "result.json")
	overlay := filepath.Join(t.TempDir(), "missing-dir", "overlay.png")

	if code := run([]string{"-source", "mock", "-output", out, "-overlay", overlay, img}); code != exitOK {
		t.Fatalf("exit code: got %d, want %d", code, exitOK)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("result not written: %v", err)
	}
	if _, err := os.Stat(overlay); err == nil {
		t.Error("overlay should not exist")
	}
}

func TestWriteResult_Errors(t *testing.T) {
	res := &result.Result{Success: true, ImagePath: "a.png"}

	if err := writeResult(filepath.Join(t.TempDir(), "missing-dir", "r.json"), res); err == nil {
		t.Error("writing into a missing directory should fail")
	}

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	if err := writeResult("/dev/full", res); err == nil {
		t.Error("writing to a full device should fail")
	}
}
