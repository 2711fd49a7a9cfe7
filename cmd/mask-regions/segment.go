package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/imaging"
	"github.com/ironsheep/mask-regions/internal/pipeline"
	"github.com/ironsheep/mask-regions/internal/result"
)

// segment runs one image through the pipeline. Success results go to
// stdout (or -output), failures to stderr.
func segment(args []string) int {
	fs := flag.NewFlagSet("mask-regions", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	checkpoint := fs.String("checkpoint", "", "SAM checkpoint (skips the search paths)")
	output := fs.String("output", "", "write the result to this file instead of stdout")
	overlay := fs.String("overlay", "", "also save a PNG with the regions drawn on the image")
	if err := fs.Parse(args); err != nil {
		return usageError(fs, err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mask-regions [options] <image>")
		return exitUsage
	}
	imagePath := fs.Arg(0)

	e, err := setup(common)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mask-regions: %v\n", err)
		return exitUsage
	}
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	images := imaging.NewImageCache()
	p, err := pipeline.NewFactory(e.cfg, images, e.cache, e.log).Get("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mask-regions: %v\n", err)
		return exitUsage
	}

	res := p.Run(ctx, pipeline.Request{ImagePath: imagePath, Checkpoint: *checkpoint})
	if !res.Success {
		result.Write(os.Stderr, res)
		return exitFailure
	}

	// The overlay is an extra. Failing to save it never changes the exit
	// status, which follows the result alone.
	if *overlay != "" {
		if err := saveOverlay(images, imagePath, *overlay, res); err != nil {
			e.log.Warn("failed to save overlay", zap.String("overlay", *overlay), zap.Error(err))
		} else {
			e.log.Info("overlay saved", zap.String("overlay", *overlay), zap.Int("regions", res.TotalMasks))
		}
	}

	if err := writeResult(*output, res); err != nil {
		e.log.Error("failed to write result", zap.String("output", *output), zap.Error(err))
		return exitFailure
	}
	return exitOK
}

func saveOverlay(images *imaging.ImageCache, imagePath, path string, res *result.Result) error {
	img, err := images.Load(imagePath)
	if err != nil {
		return err
	}
	return imaging.SaveOverlay(path, img, res.Masks, imaging.OverlayOptions{ShowLabels: true})
}

func writeResult(path string, res *result.Result) (err error) {
	if path == "" {
		return result.Write(os.Stdout, res)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return result.Write(f, res)
}
