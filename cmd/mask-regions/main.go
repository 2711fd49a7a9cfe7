package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/cache"
	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/logging"
	"github.com/ironsheep/mask-regions/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("mask-regions %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return exitOK
		case "--help", "-h", "help":
			printHelp()
			return exitOK
		case "serve-mcp":
			return serveMCP(args[1:])
		case "serve-http":
			return serveHTTP(args[1:])
		}
	}
	return segment(args)
}

func printHelp() {
	fmt.Println("mask-regions - compute bounding boxes, areas and polygons for image masks")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mask-regions [options] <image>   Segment one image and print the result")
	fmt.Println("  mask-regions serve-mcp [options] Serve MCP tools over stdin/stdout")
	fmt.Println("  mask-regions serve-http [options] Serve the HTTP API")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config FILE      YAML configuration file")
	fmt.Println("  -source NAME      Mask source: sam, mock or threshold")
	fmt.Println("  -checkpoint FILE  SAM checkpoint (skips the search paths)")
	fmt.Println("  -output FILE      Write the result to FILE instead of stdout")
	fmt.Println("  -overlay FILE     Also save a PNG with the regions drawn on the image")
	fmt.Println("  -workers N        Extraction workers (0 = one per CPU)")
	fmt.Println("  --version, -v     Print version information")
	fmt.Println("  --help, -h        Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  MASK_REGIONS_LOG_LEVEL=debug   Enable debug logging")
	fmt.Println("  MASK_REGIONS_<SECTION>_<KEY>   Override any configuration key,")
	fmt.Println("                                 e.g. MASK_REGIONS_CACHE_ENABLED=true")
}

// commonFlags are accepted by every mode.
type commonFlags struct {
	config  string
	source  string
	workers int
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML configuration file")
	fs.StringVar(&c.source, "source", "", "mask source: sam, mock or threshold")
	fs.IntVar(&c.workers, "workers", -1, "extraction workers (0 = one per CPU)")
}

// env holds what every mode builds before serving requests.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	cache pipeline.Cache
	close func()
}

// setup loads configuration, applies flag overrides, builds the logger and
// connects the result cache when enabled. An unreachable cache is logged
// and disabled.
func setup(flags commonFlags) (*env, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	if flags.source != "" {
		cfg.Source.Name = flags.source
	}
	if flags.workers >= 0 {
		cfg.Pipeline.Workers = flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Mode)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log, close: func() { logging.Sync(log) }}
	if !cfg.Cache.Enabled {
		return e, nil
	}

	rc := cache.NewRedisCache(cfg.Cache, log.Named("cache"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis connection failed, cache disabled", zap.String("addr", cfg.Cache.Addr), zap.Error(err))
		rc.Close()
		return e, nil
	}
	log.Info("redis connected successfully", zap.String("addr", cfg.Cache.Addr))

	// Assigned only here so a disabled cache stays an untyped nil.
	e.cache = rc
	e.close = func() {
		rc.Close()
		logging.Sync(log)
	}
	return e, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func usageError(fs *flag.FlagSet, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", fs.Name(), err)
	return exitUsage
}
