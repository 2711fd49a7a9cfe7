// Package pipeline runs one image through a mask source and the geometry
// post-processing, producing exactly one Result per run.
//
// A run moves through
//
//	START -> LOADING_IMAGE -> RUNNING_SOURCE -> EXTRACTING -> ASSEMBLING -> DONE
//
// and any state may move to FAILED. A cached result for the same image
// bytes, source fingerprint and geometry policy goes from LOADING_IMAGE
// straight to ASSEMBLING. Every failure, including a panic anywhere in the run, ends as
// a failure-shaped Result; Run never returns a partial success.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/cache"
	"github.com/ironsheep/mask-regions/internal/fault"
	"github.com/ironsheep/mask-regions/internal/imaging"
	"github.com/ironsheep/mask-regions/internal/regions"
	"github.com/ironsheep/mask-regions/internal/result"
	"github.com/ironsheep/mask-regions/internal/source"
)

// Loader decodes the image at a path. *imaging.ImageCache satisfies it.
type Loader interface {
	Load(path string) (image.Image, error)
}

// LoaderFunc adapts a plain function to Loader. LoaderFunc(imaging.Open)
// decodes on every run without keeping images around.
type LoaderFunc func(path string) (image.Image, error)

func (f LoaderFunc) Load(path string) (image.Image, error) {
	return f(path)
}

// Cache stores finished results. Get returns nil, nil on a miss.
// *cache.RedisCache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (*result.Result, error)
	Set(ctx context.Context, key string, r *result.Result) error
}

// Options configures a Pipeline. Only Source is required.
type Options struct {
	Source source.Source

	// Loader defaults to a fresh imaging.ImageCache.
	Loader Loader

	// Processor defaults to grid geometry with one worker per CPU.
	Processor *regions.Processor

	// Cache is optional.
	Cache Cache

	Log *zap.Logger

	// OnTransition, if set, is called synchronously on every state change.
	OnTransition func(runID string, from, to State)
}

// Pipeline runs segmentation requests. It is safe for concurrent use when
// its Source, Loader and Cache are.
type Pipeline struct {
	src          source.Source
	loader       Loader
	processor    *regions.Processor
	cache        Cache
	log          *zap.Logger
	onTransition func(runID string, from, to State)
}

// Request is one run's input.
type Request struct {
	ImagePath string

	// DisplayPath, when set, is reported as the result's image_path instead
	// of ImagePath, including in cached entries. Servers use it to hide the
	// temporary file an upload was read from.
	DisplayPath string

	// Checkpoint overrides the model artifact location for this run.
	Checkpoint string
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, errors.New("pipeline: no mask source")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	loader := opts.Loader
	if loader == nil {
		loader = imaging.NewImageCache()
	}
	proc := opts.Processor
	if proc == nil {
		proc = regions.NewProcessor(nil, 0, log)
	}

	return &Pipeline{
		src:          opts.Source,
		loader:       loader,
		processor:    proc,
		cache:        opts.Cache,
		log:          log,
		onTransition: opts.OnTransition,
	}, nil
}

// Source returns the mask source the pipeline runs.
func (p *Pipeline) Source() source.Source {
	return p.src
}

// run carries the per-run state.
type run struct {
	p     *Pipeline
	id    string
	state State
	log   *zap.Logger
}

func (r *run) transition(to State) {
	from := r.state
	if !CanTransition(from, to) {
		r.log.Warn("unexpected state transition",
			zap.Stringer("from", from), zap.Stringer("to", to))
	}
	r.state = to
	r.log.Debug("state", zap.Stringer("from", from), zap.Stringer("to", to))
	if r.p.onTransition != nil {
		r.p.onTransition(r.id, from, to)
	}
}

// Run processes one request. The returned result is never nil.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *result.Result) {
	r := &run{
		p:     p,
		id:    uuid.NewString(),
		state: StateStart,
	}
	r.log = p.log.With(
		zap.String("run_id", r.id),
		zap.String("image", req.ImagePath),
		zap.String("source", p.src.Name()))

	defer func() {
		if rec := recover(); rec != nil {
			res = r.fail(&fault.Error{
				Kind: fault.Unknown,
				Op:   "internal error",
				Err:  fmt.Errorf("%v", rec),
			})
		}
	}()

	res, err := r.execute(ctx, req)
	if err != nil {
		return r.fail(err)
	}
	return res
}

func (r *run) execute(ctx context.Context, req Request) (*result.Result, error) {
	p := r.p

	if c, ok := p.src.(source.Checker); ok {
		if err := c.Check(); err != nil {
			return nil, err
		}
	}

	r.transition(StateLoadingImage)
	img, err := p.loader.Load(req.ImagePath)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	dims := result.Dimensions{Width: b.Dx(), Height: b.Dy()}

	key := r.cacheKey(req)
	if key != "" {
		if hit := r.lookup(ctx, key); hit != nil {
			r.log.Info("cache hit", zap.Int("masks", hit.TotalMasks))
			r.transition(StateAssembling)
			res := hit.WithImagePath(req.reportedPath())
			r.transition(StateDone)
			return res, nil
		}
	}

	r.transition(StateRunningSource)
	raws, err := p.src.Generate(ctx, source.Input{
		Path:       req.ImagePath,
		Image:      img,
		Checkpoint: req.Checkpoint,
	})
	if err != nil {
		return nil, classifySource(p.src.Name(), err)
	}
	r.log.Debug("source finished", zap.Int("raw_masks", len(raws)))

	r.transition(StateExtracting)
	masks, err := p.processor.Process(raws, dims.Width, dims.Height)
	if err != nil {
		return nil, err
	}

	r.transition(StateAssembling)
	res := result.Assemble(req.reportedPath(), dims, masks)
	if key != "" {
		if err := p.cache.Set(ctx, key, res); err != nil {
			r.log.Warn("failed to cache result", zap.Error(err))
		}
	}

	r.transition(StateDone)
	r.log.Info("run complete",
		zap.Int("width", dims.Width),
		zap.Int("height", dims.Height),
		zap.Int("raw_masks", len(raws)),
		zap.Int("total_masks", res.TotalMasks))
	return res, nil
}

func (r *run) fail(err error) *result.Result {
	r.transition(StateFailed)
	r.log.Error("run failed",
		zap.Stringer("kind", fault.KindOf(err)),
		zap.Error(err))
	return result.Failure(err)
}

// cacheKey returns "" when caching is off or the image cannot be hashed.
func (r *run) cacheKey(req Request) string {
	if r.p.cache == nil {
		return ""
	}
	sum, err := cache.FileMD5(req.ImagePath)
	if err != nil {
		r.log.Warn("failed to hash image, skipping cache", zap.Error(err))
		return ""
	}
	return r.p.CacheKey(sum, req.Checkpoint)
}

// CacheKey is the key a run of p stores its result under for an image with
// the given MD5 digest. It covers everything that changes the result: the
// source settings, the checkpoint override and the geometry policy.
func (p *Pipeline) CacheKey(md5, checkpoint string) string {
	fp := p.src.Fingerprint()
	if checkpoint != "" {
		fp += ":ckpt=" + checkpoint
	}
	return cache.Key(md5, fp+":"+p.processor.Fingerprint())
}

func (req Request) reportedPath() string {
	if req.DisplayPath != "" {
		return req.DisplayPath
	}
	return req.ImagePath
}

// lookup treats cache errors as misses.
func (r *run) lookup(ctx context.Context, key string) *result.Result {
	hit, err := r.p.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("cache lookup failed", zap.Error(err))
		return nil
	}
	if hit == nil || !hit.Success {
		return nil
	}
	return hit
}

// classifySource keeps a source's own classification and files everything
// else under fault.SourceFailure.
func classifySource(name string, err error) error {
	if fault.KindOf(err) != fault.Unknown {
		return err
	}
	return &fault.Error{
		Kind: fault.SourceFailure,
		Op:   "mask source " + name,
		Err:  err,
	}
}
