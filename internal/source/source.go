// Package source provides the mask producers the pipeline can run.
//
// A Source turns one decoded image into an ordered list of raw masks. The
// pipeline treats it as a black box: it never looks inside a source beyond
// the Source and Checker interfaces, so tests can inject their own.
//
// Three implementations are available:
//   - mock: seeded synthetic rectangles, reproducible for a given seed
//   - threshold: luminance threshold split into connected components
//   - sam: an external segmentation helper process
package source

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/regions"
)

// Input is what a source receives for one run.
type Input struct {
	// Path is the image file the run was started with.
	Path string

	// Image is the decoded image. Sources must not modify it.
	Image image.Image

	// Checkpoint overrides the model artifact location, if non-empty.
	Checkpoint string
}

// Source produces raw masks for one image.
type Source interface {
	// Name identifies the source in logs and results.
	Name() string

	// Fingerprint summarizes the settings that influence Generate's output.
	// Two sources with the same fingerprint yield the same masks for the
	// same image.
	Fingerprint() string

	// Generate returns the masks for in, in the order they should be
	// emitted. Grids must match the image size.
	Generate(ctx context.Context, in Input) ([]regions.RawMask, error)
}

// Checker is implemented by sources with external requirements that can be
// verified before any work is done.
type Checker interface {
	Check() error
}

// New builds the source selected by cfg.Name.
func New(cfg config.SourceConfig, log *zap.Logger) (Source, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Name {
	case config.SourceMock:
		return NewMock(cfg.Mock), nil
	case config.SourceThreshold:
		return NewThreshold(cfg.Threshold), nil
	case config.SourceSAM:
		return NewSAM(cfg.SAM, log), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Name)
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
