package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/cache"
	"github.com/ironsheep/mask-regions/internal/httpapi"
	"github.com/ironsheep/mask-regions/internal/imaging"
	"github.com/ironsheep/mask-regions/internal/pipeline"
	"github.com/ironsheep/mask-regions/internal/server"
)

const shutdownTimeout = 10 * time.Second

// serveMCP serves the MCP tools on stdin/stdout.
func serveMCP(args []string) int {
	fs := flag.NewFlagSet("serve-mcp", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return usageError(fs, err)
	}

	e, err := setup(common)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve-mcp: %v\n", err)
		return exitUsage
	}
	defer e.close()

	e.log.Debug("starting MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("source", e.cfg.Source.Name))

	ctx, cancel := signalContext()
	defer cancel()

	// Tools segment the same image repeatedly, so keep results in process
	// when Redis is off.
	results := e.cache
	if results == nil {
		results = cache.NewMemory(0)
	}

	images := imaging.NewImageCache()
	srv := server.New(server.Options{
		Cache:   images,
		Factory: pipeline.NewFactory(e.cfg, images, results, e.log),
		Log:     e.log.Named("mcp"),
		Version: Version,
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		e.log.Error("server error", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

// serveHTTP serves the HTTP API until SIGINT or SIGTERM.
func serveHTTP(args []string) int {
	fs := flag.NewFlagSet("serve-http", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", "", "listen address (default from config, :8080)")
	if err := fs.Parse(args); err != nil {
		return usageError(fs, err)
	}

	e, err := setup(common)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve-http: %v\n", err)
		return exitUsage
	}
	defer e.close()

	if *addr != "" {
		e.cfg.HTTP.Addr = *addr
	}
	if e.cfg.HTTP.UploadDir != "" {
		if err := os.MkdirAll(e.cfg.HTTP.UploadDir, 0755); err != nil {
			e.log.Error("failed to create upload directory", zap.Error(err))
			return exitFailure
		}
	}

	e.log.Info("starting mask-regions server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("source", e.cfg.Source.Name))

	gin.SetMode(e.cfg.HTTP.Mode)

	// Uploads get unique names, so decoded images are not kept.
	factory := pipeline.NewFactory(e.cfg, pipeline.LoaderFunc(imaging.Open), e.cache, e.log)
	router := httpapi.NewRouter(httpapi.Options{
		Config:  e.cfg.HTTP,
		Factory: factory,
		Cache:   e.cache,
		Log:     e.log.Named("http"),
		Build:   httpapi.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
	})

	httpSrv := &http.Server{
		Addr:    e.cfg.HTTP.Addr,
		Handler: router,
	}

	errc := make(chan error, 1)
	go func() {
		e.log.Info("server starting", zap.String("addr", e.cfg.HTTP.Addr))
		errc <- httpSrv.ListenAndServe()
	}()

	ctx, cancel := signalContext()
	defer cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("failed to start server", zap.Error(err))
			return exitFailure
		}
		return exitOK
	case <-ctx.Done():
	}

	e.log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		e.log.Error("shutdown failed", zap.Error(err))
		return exitFailure
	}
	return exitOK
}
