package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.Name != SourceSAM {
		t.Errorf("source: got %q, want %q", cfg.Source.Name, SourceSAM)
	}
	if cfg.Pipeline.GeometryPolicy != "grid" {
		t.Errorf("geometry policy: got %q, want grid", cfg.Pipeline.GeometryPolicy)
	}

	g := cfg.Source.SAM.Generator
	if g.ModelType != "vit_h" || g.PointsPerSide != 32 || g.PredIOUThresh != 0.88 ||
		g.StabilityScoreThresh != 0.95 || g.CropNLayers != 1 ||
		g.CropNPointsDownscaleFactor != 2 || g.MinMaskRegionArea != 100 {
		t.Errorf("generator defaults: got %+v", g)
	}

	if len(cfg.Source.SAM.SearchPaths) != len(DefaultSearchPaths) {
		t.Fatalf("search paths: got %v", cfg.Source.SAM.SearchPaths)
	}
	for i, p := range DefaultSearchPaths {
		if cfg.Source.SAM.SearchPaths[i] != p {
			t.Errorf("search path %d: got %s, want %s", i, cfg.Source.SAM.SearchPaths[i], p)
		}
	}

	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("cache ttl: got %v, want 24h", cfg.Cache.TTL)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
log:
  level: debug
pipeline:
  workers: 3
source:
  name: threshold
  threshold:
    level: 200
    invert: true
cache:
  enabled: true
  ttl: 1h
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q, want debug", cfg.Log.Level)
	}
	if cfg.Pipeline.Workers != 3 {
		t.Errorf("workers: got %d, want 3", cfg.Pipeline.Workers)
	}
	if cfg.Source.Name != SourceThreshold || cfg.Source.Threshold.Level != 200 || !cfg.Source.Threshold.Invert {
		t.Errorf("threshold source: got %+v", cfg.Source)
	}
	// Unset keys keep their defaults.
	if cfg.Source.Threshold.MinRegionArea != 100 {
		t.Errorf("min region area: got %d, want 100", cfg.Source.Threshold.MinRegionArea)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache: got %+v", cfg.Cache)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MASK_REGIONS_SOURCE_NAME", "mock")
	t.Setenv("MASK_REGIONS_SOURCE_MOCK_SEED", "99")
	t.Setenv("MASK_REGIONS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Source.Name != SourceMock {
		t.Errorf("source: got %q, want mock", cfg.Source.Name)
	}
	if cfg.Source.Mock.Seed != 99 {
		t.Errorf("seed: got %d, want 99", cfg.Source.Mock.Seed)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level: got %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Source.Name = "oracle" }},
		{"unknown policy", func(c *Config) { c.Pipeline.GeometryPolicy = "mixed" }},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -1 }},
		{"threshold level", func(c *Config) { c.Source.Threshold.Level = 300 }},
		{"mock range", func(c *Config) { c.Source.Mock.MinMasks, c.Source.Mock.MaxMasks = 5, 3 }},
		{"empty runtime", func(c *Config) { c.Source.SAM.Runtime = "" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}
