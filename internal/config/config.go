// Package config loads mask-regions settings from an optional YAML file,
// environment variables and built-in defaults.
//
// Environment variables use the MASK_REGIONS_ prefix with dots replaced by
// underscores, e.g. MASK_REGIONS_SOURCE_NAME=mock or
// MASK_REGIONS_LOG_LEVEL=debug.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "MASK_REGIONS"

// Source names accepted in source.name.
const (
	SourceSAM       = "sam"
	SourceMock      = "mock"
	SourceThreshold = "threshold"
)

// Config is the complete mask-regions configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Source   SourceConfig   `mapstructure:"source"`
	Cache    CacheConfig    `mapstructure:"cache"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Mode is development (console) or production (JSON).
	Mode string `mapstructure:"mode"`
}

// PipelineConfig configures geometry extraction.
type PipelineConfig struct {
	// Workers sizes the extraction pool; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
	// GeometryPolicy is grid or upstream.
	GeometryPolicy string `mapstructure:"geometry_policy"`
}

// SourceConfig selects the mask source and holds the settings of each one.
type SourceConfig struct {
	// Name is sam, mock or threshold.
	Name      string          `mapstructure:"name"`
	Mock      MockConfig      `mapstructure:"mock"`
	Threshold ThresholdConfig `mapstructure:"threshold"`
	SAM       SAMConfig       `mapstructure:"sam"`
}

// MockConfig configures the seeded synthetic source.
type MockConfig struct {
	Seed     int64 `mapstructure:"seed"`
	MinMasks int   `mapstructure:"min_masks"`
	MaxMasks int   `mapstructure:"max_masks"`
}

// ThresholdConfig configures the luminance threshold source.
type ThresholdConfig struct {
	Level         int     `mapstructure:"level"`
	BlurRadius    float64 `mapstructure:"blur_radius"`
	Invert        bool    `mapstructure:"invert"`
	MinRegionArea int     `mapstructure:"min_region_area"`
}

// SAMConfig configures the external SAM helper process.
type SAMConfig struct {
	// Runtime is the interpreter or executable that runs the helper.
	Runtime string `mapstructure:"runtime"`
	// Script is the helper passed as the runtime's first argument. May be empty
	// when Runtime is itself the helper.
	Script string `mapstructure:"script"`
	// Checkpoint is tried before SearchPaths.
	Checkpoint  string          `mapstructure:"checkpoint"`
	SearchPaths []string        `mapstructure:"search_paths"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	Generator   GeneratorConfig `mapstructure:"generator"`
}

// GeneratorConfig holds the automatic mask generator parameters passed to the
// helper.
type GeneratorConfig struct {
	ModelType                  string  `mapstructure:"model_type"`
	PointsPerSide              int     `mapstructure:"points_per_side"`
	PredIOUThresh              float64 `mapstructure:"pred_iou_thresh"`
	StabilityScoreThresh       float64 `mapstructure:"stability_score_thresh"`
	CropNLayers                int     `mapstructure:"crop_n_layers"`
	CropNPointsDownscaleFactor int     `mapstructure:"crop_n_points_downscale_factor"`
	MinMaskRegionArea          int     `mapstructure:"min_mask_region_area"`
}

// CacheConfig configures the Redis result cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// HTTPConfig configures the HTTP API server.
type HTTPConfig struct {
	Addr          string   `mapstructure:"addr"`
	Mode          string   `mapstructure:"mode"`
	MaxUploadSize int64    `mapstructure:"max_upload_size"`
	UploadDir     string   `mapstructure:"upload_dir"`
	AllowedTypes  []string `mapstructure:"allowed_types"`
}

// DefaultSearchPaths lists where the SAM checkpoint is looked for, in order,
// after any explicit checkpoint.
var DefaultSearchPaths = []string{
	"models/sam_vit_h_4b8939.pth",
	"sam_vit_h_4b8939.pth",
	"checkpoints/sam_vit_h_4b8939.pth",
	"/models/sam_vit_h_4b8939.pth",
}

// Load reads configuration. An empty path skips the file and uses defaults
// plus environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.mode", "production")

	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("pipeline.geometry_policy", "grid")

	v.SetDefault("source.name", SourceSAM)

	v.SetDefault("source.mock.seed", 1)
	v.SetDefault("source.mock.min_masks", 3)
	v.SetDefault("source.mock.max_masks", 5)

	v.SetDefault("source.threshold.level", 128)
	v.SetDefault("source.threshold.blur_radius", 0.0)
	v.SetDefault("source.threshold.invert", false)
	v.SetDefault("source.threshold.min_region_area", 100)

	v.SetDefault("source.sam.runtime", "python3")
	v.SetDefault("source.sam.script", "scripts/sam_masks.py")
	v.SetDefault("source.sam.checkpoint", "")
	v.SetDefault("source.sam.search_paths", DefaultSearchPaths)
	v.SetDefault("source.sam.timeout", 10*time.Minute)
	v.SetDefault("source.sam.generator.model_type", "vit_h")
	v.SetDefault("source.sam.generator.points_per_side", 32)
	v.SetDefault("source.sam.generator.pred_iou_thresh", 0.88)
	v.SetDefault("source.sam.generator.stability_score_thresh", 0.95)
	v.SetDefault("source.sam.generator.crop_n_layers", 1)
	v.SetDefault("source.sam.generator.crop_n_points_downscale_factor", 2)
	v.SetDefault("source.sam.generator.min_mask_region_area", 100)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.prefix", "regions:")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.max_upload_size", 10*1024*1024)
	v.SetDefault("http.upload_dir", "")
	v.SetDefault("http.allowed_types", []string{"image/jpeg", "image/png", "image/jpg", "image/gif", "image/webp", "image/bmp", "image/tiff"})
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Source.Name {
	case SourceSAM, SourceMock, SourceThreshold:
	default:
		return fmt.Errorf("unknown source %q (use sam, mock or threshold)", c.Source.Name)
	}
	switch c.Pipeline.GeometryPolicy {
	case "grid", "upstream":
	default:
		return fmt.Errorf("unknown geometry policy %q (use grid or upstream)", c.Pipeline.GeometryPolicy)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be >= 0, got %d", c.Pipeline.Workers)
	}
	if c.Source.Threshold.Level < 0 || c.Source.Threshold.Level > 255 {
		return fmt.Errorf("source.threshold.level must be in [0,255], got %d", c.Source.Threshold.Level)
	}
	if c.Source.Mock.MinMasks < 0 || c.Source.Mock.MaxMasks < c.Source.Mock.MinMasks {
		return fmt.Errorf("source.mock mask range [%d,%d] is invalid", c.Source.Mock.MinMasks, c.Source.Mock.MaxMasks)
	}
	if c.Source.Name == SourceSAM && c.Source.SAM.Runtime == "" {
		return fmt.Errorf("source.sam.runtime must be set")
	}
	return nil
}
