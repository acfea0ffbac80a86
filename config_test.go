// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package pulseframe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulseframe/pulseframe/render"
	"github.com/pulseframe/pulseframe/stream"
)

func TestValidateRejectsInvalidFields(t *testing.T) {
	base := DefaultConfig(320, 240)

	tests := []struct {
		field  string
		mutate func(*Config)
	}{
		{"width", func(c *Config) { c.Width = 0 }},
		{"height", func(c *Config) { c.Height = -1 }},
		{"merge", func(c *Config) { c.Merge = "inplace" }},
		{"tile", func(c *Config) { c.Tile = "tiles" }},
		{"variant", func(c *Config) { c.Variant = "parallel" }},
		{"signature", func(c *Config) { c.Signature = "name" }},
		{"plan_refresh", func(c *Config) { c.PlanRefresh = "never" }},
		{"plan_refresh_ms", func(c *Config) { c.PlanRefreshMs = -5 }},
		{"plan_refresh_ms", func(c *Config) { c.PlanRefresh = "time_boxed" }},
		{"timing", func(c *Config) { c.Timing = "avg" }},
		{"timing_alpha", func(c *Config) { c.TimingAlpha = 1.5 }},
		{"pacing", func(c *Config) { c.Pacing = "vsync" }},
		{"fps", func(c *Config) { c.FPS = -60 }},
		{"utilization", func(c *Config) { c.Utilization = 2 }},
		{"workers", func(c *Config) { c.Workers = -1 }},
		{"frame_error", func(c *Config) { c.FrameError = "retry" }},
		{"filter", func(c *Config) { c.Filter = "lanczos" }},
		{"stream.strategy", func(c *Config) { c.Stream.Strategy = "broadcast" }},
		{"stream.buffer", func(c *Config) { c.Stream.Strategy = "replay_buffer" }},
		{"stream.grace_ms", func(c *Config) { c.Stream.GraceMs = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("invalid config accepted")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error %v is not a ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("error names field %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := DefaultConfig(320, 240)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	yaml := strings.Join([]string{
		"width: 640",
		"height: 480",
		"merge: batched",
		"tile: loop",
		"variant: binary",
		"pacing: adaptive",
		"utilization: 0.8",
		"stream:",
		"  strategy: replay_buffer",
		"  buffer: 8",
		"  grace_ms: 250",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.mergeStrategy() != render.MergeBatched {
		t.Error("merge not mapped to batched")
	}
	if cfg.tileStrategy() != render.TileLoop {
		t.Error("tile not mapped to loop")
	}
	if cfg.defaultVariant() != render.VariantBinary {
		t.Error("variant not mapped to binary")
	}

	s := cfg.StreamSettings()
	if s.Strategy != stream.ReplayBuffer || s.Buffer != 8 {
		t.Errorf("stream settings = %+v", s)
	}
	if s.Grace.Milliseconds() != 250 {
		t.Errorf("grace = %v", s.Grace)
	}
}

func TestLoadConfigFailures(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("width: 0\nheight: 10\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Error("invalid config file accepted")
	}
}
