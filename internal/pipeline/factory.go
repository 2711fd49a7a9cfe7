package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/imaging"
	"github.com/ironsheep/mask-regions/internal/regions"
	"github.com/ironsheep/mask-regions/internal/source"
)

// Factory hands out one Pipeline per source name. All of them share the
// same image loader, processor and cache, so long-running servers decode
// each image once no matter which source a request asks for.
type Factory struct {
	cfg       *config.Config
	loader    Loader
	cache     Cache
	processor *regions.Processor
	log       *zap.Logger

	mu    sync.Mutex
	pipes map[string]*Pipeline
}

// NewFactory creates a factory. A nil loader means a fresh
// imaging.ImageCache; c may be nil to disable result caching.
func NewFactory(cfg *config.Config, loader Loader, c Cache, log *zap.Logger) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	if loader == nil {
		loader = imaging.NewImageCache()
	}
	normalizer := regions.NewNormalizer(regions.Policy(cfg.Pipeline.GeometryPolicy), log)

	return &Factory{
		cfg:       cfg,
		loader:    loader,
		cache:     c,
		processor: regions.NewProcessor(normalizer, cfg.Pipeline.Workers, log),
		log:       log,
		pipes:     make(map[string]*Pipeline),
	}
}

// DefaultSource is the configured source name.
func (f *Factory) DefaultSource() string {
	return f.cfg.Source.Name
}

// Get returns the pipeline for the named source. An empty name selects the
// configured default.
func (f *Factory) Get(name string) (*Pipeline, error) {
	if name == "" {
		name = f.cfg.Source.Name
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.pipes[name]; ok {
		return p, nil
	}

	srcCfg := f.cfg.Source
	srcCfg.Name = name
	src, err := source.New(srcCfg, f.log.Named(name))
	if err != nil {
		return nil, err
	}

	p, err := New(Options{
		Source:    src,
		Loader:    f.loader,
		Processor: f.processor,
		Cache:     f.cache,
		Log:       f.log,
	})
	if err != nil {
		return nil, err
	}
	f.pipes[name] = p
	return p, nil
}
