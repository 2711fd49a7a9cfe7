// Package httpapi serves the segmentation pipeline over HTTP.
//
// Routes:
//
//	POST /api/v1/segment       multipart "image" (+ optional "source") -> Result
//	GET  /api/v1/result/:md5   cached Result for an image digest
//	GET  /health
//	GET  /version
//
// Every Result body uses the same success or failure shape as the CLI.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/pipeline"
)

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Options configures the router.
type Options struct {
	Config  config.HTTPConfig
	Factory *pipeline.Factory

	// Cache backs GET /api/v1/result/:md5. It should be the cache the
	// factory's pipelines write to. Nil disables the route's lookups.
	Cache pipeline.Cache

	Log   *zap.Logger
	Build BuildInfo
}

// NewRouter builds the gin engine. Call gin.SetMode before it to change the
// mode.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		cfg:     opts.Config,
		factory: opts.Factory,
		cache:   opts.Cache,
		log:     log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(log))
	if opts.Config.MaxUploadSize > 0 {
		r.MaxMultipartMemory = opts.Config.MaxUploadSize
	}

	build := opts.Build
	if build.Version == "" {
		build.Version = "dev"
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": build.Version,
			"source":  opts.Factory.DefaultSource(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, build)
	})

	api := r.Group("/api/v1")
	{
		api.POST("/segment", h.Segment)
		api.GET("/result/:md5", h.GetByMD5)
	}

	return r
}
