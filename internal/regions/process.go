package regions

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/fault"
	"github.com/ironsheep/mask-regions/internal/geometry"
)

// Processor runs geometry extraction and normalization over a batch of raw
// masks.
type Processor struct {
	normalizer *Normalizer
	workers    int
	log        *zap.Logger
}

// NewProcessor creates a processor. workers <= 0 uses one worker per CPU.
func NewProcessor(n *Normalizer, workers int, log *zap.Logger) *Processor {
	if n == nil {
		n = NewNormalizer(PolicyGrid, log)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{normalizer: n, workers: workers, log: log}
}

// Fingerprint summarizes the settings that change Process's output. Worker
// count is not part of it since order and content never depend on it.
func (p *Processor) Fingerprint() string {
	return p.normalizer.Fingerprint()
}

// Workers returns the size of the extraction pool.
func (p *Processor) Workers() int {
	return p.workers
}

// Process validates every raw mask against the image size, extracts the
// geometry of each and returns the normalized masks in source order.
//
// Masks with no foreground are skipped and consume no id, so the returned
// ids are always 0..len-1. Any malformed mask fails the whole batch with a
// fault.MaskExtractionFailure; no partial result is returned.
//
// Extraction is spread over the worker pool. Results are collected by
// source index, so the output order never depends on completion order.
func (p *Processor) Process(raws []RawMask, width, height int) ([]NormalizedMask, error) {
	for i, raw := range raws {
		if err := validate(raw, width, height); err != nil {
			return nil, &fault.Error{
				Kind: fault.MaskExtractionFailure,
				Op:   fmt.Sprintf("raw mask %d", i),
				Err:  err,
			}
		}
	}

	geoms, err := p.extractAll(raws)
	if err != nil {
		return nil, err
	}

	masks := make([]NormalizedMask, 0, len(raws))
	skipped := 0
	for i, g := range geoms {
		m, ok := p.normalizer.Normalize(raws[i], g, len(masks))
		if !ok {
			skipped++
			p.log.Debug("skipping mask with no foreground", zap.Int("index", i))
			continue
		}
		masks = append(masks, m)
	}

	p.log.Debug("masks processed",
		zap.Int("raw", len(raws)),
		zap.Int("emitted", len(masks)),
		zap.Int("skipped", skipped),
		zap.Int("workers", p.workers))

	return masks, nil
}

func validate(raw RawMask, width, height int) error {
	if raw.Segmentation == nil {
		return fmt.Errorf("missing segmentation grid")
	}
	if err := raw.Segmentation.Validate(); err != nil {
		return err
	}
	if raw.Segmentation.Width != width || raw.Segmentation.Height != height {
		return fmt.Errorf("grid is %dx%d, image is %dx%d",
			raw.Segmentation.Width, raw.Segmentation.Height, width, height)
	}
	return nil
}

// extractAll computes the geometry of every mask on the worker pool.
// The first failure by source index wins so the reported error is stable.
func (p *Processor) extractAll(raws []RawMask) ([]geometry.Geometry, error) {
	geoms := make([]geometry.Geometry, len(raws))
	errs := make([]error, len(raws))

	workers := p.workers
	if workers > len(raws) {
		workers = len(raws)
	}

	if workers <= 1 {
		for i := range raws {
			geoms[i], errs[i] = extractOne(i, raws[i].Segmentation)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					geoms[i], errs[i] = extractOne(i, raws[i].Segmentation)
				}
			}()
		}

		for i := range raws {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return geoms, nil
}

// extractOne runs geometry.Extract, turning a panic into an error.
func extractOne(index int, m *geometry.Mask) (g geometry.Geometry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &fault.Error{
				Kind: fault.MaskExtractionFailure,
				Op:   fmt.Sprintf("extract mask %d", index),
				Err:  fmt.Errorf("%v", r),
			}
		}
	}()
	return geometry.Extract(m), nil
}
