// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package pulseframe

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pulseframe/pulseframe/render"
	"github.com/pulseframe/pulseframe/stream"
	"github.com/pulseframe/pulseframe/surface"
)

// ConfigError reports one invalid configuration field. Validation is
// fail-fast: a present-but-invalid value is never silently defaulted.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pulseframe: config %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Config is the serializable engine configuration. Zero values select
// the documented defaults; every non-zero value is validated.
type Config struct {
	// Width and Height are the composed frame dimensions.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Merge selects the serial composition strategy: "in_place" or
	// "batched". Empty means in_place.
	Merge string `yaml:"merge"`

	// Tile selects the inner blit: "blits" (draw fast path) or "loop"
	// (direct pixel loop). Empty means blits.
	Tile string `yaml:"tile"`

	// Variant is the default plan variant: "auto", "iterative" or
	// "binary". Empty means auto.
	Variant string `yaml:"variant"`

	// Signature selects plan cache keying: "identity" (per renderer
	// instance) or "type" (per renderer type). Empty means identity.
	Signature string `yaml:"signature"`

	// PlanRefresh selects cache invalidation: "on_change" (signature or
	// timing version change) or "time_boxed" (additionally expires after
	// PlanRefreshMs). Empty means on_change.
	PlanRefresh   string `yaml:"plan_refresh"`
	PlanRefreshMs int    `yaml:"plan_refresh_ms"`

	// Timing selects the tracker average: "ema" or "cumulative". Empty
	// means ema. TimingAlpha is the EMA smoothing factor in (0, 1];
	// zero means 0.2.
	Timing      string  `yaml:"timing"`
	TimingAlpha float64 `yaml:"timing_alpha"`

	// Pacing selects frame pacing: "off" or "adaptive". FPS zero means
	// 60; Utilization is the adaptive headroom fraction in (0, 1],
	// zero means 1.0.
	Pacing      string  `yaml:"pacing"`
	FPS         float64 `yaml:"fps"`
	Utilization float64 `yaml:"utilization"`

	// Workers sizes the worker pool for parallel collection and
	// reduction. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// FrameError selects the loop's reaction to a failed frame: "drop"
	// (log, skip, continue) or "halt" (stop the loop, return the
	// error). Empty means drop.
	FrameError string `yaml:"frame_error"`

	// Filter selects the scaling filter for size-normalizing and
	// mirrored blits: "nearest", "bilinear" or "catmull_rom". Empty
	// means bilinear.
	Filter string `yaml:"filter"`

	// Stream holds defaults for bus event streams opened by the
	// application.
	Stream StreamConfig `yaml:"stream"`
}

// StreamConfig carries the default share settings for event streams.
type StreamConfig struct {
	// Strategy: "share", "replay_latest" or "replay_buffer". Empty
	// means replay_latest.
	Strategy string `yaml:"strategy"`

	// Buffer is the replay depth for replay_buffer (>= 1).
	Buffer int `yaml:"buffer"`

	// AutoConnectAfter starts the source only at the Nth subscriber.
	// Zero connects on the first subscribe.
	AutoConnectAfter int `yaml:"auto_connect_after"`

	// GraceMs keeps the source alive that long after the last
	// unsubscribe, absorbing resubscribe churn.
	GraceMs int `yaml:"grace_ms"`
}

// DefaultConfig returns the configuration the engine runs with when
// nothing is specified beyond frame dimensions.
func DefaultConfig(width, height int) Config {
	return Config{Width: width, Height: height}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided intentionally
	if err != nil {
		return cfg, fmt.Errorf("pulseframe: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("pulseframe: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// enumField validates an enum-ish string field against its allowed
// values, tolerating empty (the default).
func enumField(field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ConfigError{Field: field, Value: value,
		Reason: fmt.Sprintf("must be one of %v", allowed)}
}

// Validate checks every field and reports the first violation with the
// field named.
func (c *Config) Validate() error {
	if c.Width <= 0 {
		return &ConfigError{Field: "width", Value: c.Width, Reason: "must be positive"}
	}
	if c.Height <= 0 {
		return &ConfigError{Field: "height", Value: c.Height, Reason: "must be positive"}
	}
	if err := enumField("merge", c.Merge, "in_place", "batched"); err != nil {
		return err
	}
	if err := enumField("tile", c.Tile, "blits", "loop"); err != nil {
		return err
	}
	if err := enumField("variant", c.Variant, "auto", "iterative", "binary"); err != nil {
		return err
	}
	if err := enumField("signature", c.Signature, "identity", "type"); err != nil {
		return err
	}
	if err := enumField("plan_refresh", c.PlanRefresh, "on_change", "time_boxed"); err != nil {
		return err
	}
	if c.PlanRefreshMs < 0 {
		return &ConfigError{Field: "plan_refresh_ms", Value: c.PlanRefreshMs, Reason: "must be >= 0"}
	}
	if c.PlanRefresh == "time_boxed" && c.PlanRefreshMs == 0 {
		return &ConfigError{Field: "plan_refresh_ms", Value: c.PlanRefreshMs,
			Reason: "time_boxed refresh needs a positive interval"}
	}
	if err := enumField("timing", c.Timing, "ema", "cumulative"); err != nil {
		return err
	}
	if c.TimingAlpha < 0 || c.TimingAlpha > 1 {
		return &ConfigError{Field: "timing_alpha", Value: c.TimingAlpha, Reason: "must be in (0, 1]"}
	}
	if err := enumField("pacing", c.Pacing, "off", "adaptive"); err != nil {
		return err
	}
	if c.FPS < 0 {
		return &ConfigError{Field: "fps", Value: c.FPS, Reason: "must be >= 0"}
	}
	if c.Utilization < 0 || c.Utilization > 1 {
		return &ConfigError{Field: "utilization", Value: c.Utilization, Reason: "must be in (0, 1]"}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Value: c.Workers, Reason: "must be >= 0"}
	}
	if err := enumField("frame_error", c.FrameError, "drop", "halt"); err != nil {
		return err
	}
	if err := enumField("filter", c.Filter, "nearest", "bilinear", "catmull_rom"); err != nil {
		return err
	}
	return c.Stream.validate()
}

func (s *StreamConfig) validate() error {
	if err := enumField("stream.strategy", s.Strategy, "share", "replay_latest", "replay_buffer"); err != nil {
		return err
	}
	if s.Strategy == "replay_buffer" && s.Buffer < 1 {
		return &ConfigError{Field: "stream.buffer", Value: s.Buffer, Reason: "must be >= 1 for replay_buffer"}
	}
	if s.AutoConnectAfter < 0 {
		return &ConfigError{Field: "stream.auto_connect_after", Value: s.AutoConnectAfter, Reason: "must be >= 0"}
	}
	if s.GraceMs < 0 {
		return &ConfigError{Field: "stream.grace_ms", Value: s.GraceMs, Reason: "must be >= 0"}
	}
	return nil
}

// The accessors below assume a validated config and map empty values to
// their documented defaults.

func (c *Config) mergeStrategy() render.MergeStrategy {
	if c.Merge == "batched" {
		return render.MergeBatched
	}
	return render.MergeInPlace
}

func (c *Config) tileStrategy() render.TileStrategy {
	if c.Tile == "loop" {
		return render.TileLoop
	}
	return render.TileBlits
}

func (c *Config) defaultVariant() render.Variant {
	switch c.Variant {
	case "iterative":
		return render.VariantIterative
	case "binary":
		return render.VariantBinary
	default:
		return render.VariantAuto
	}
}

func (c *Config) signatureStrategy() render.SignatureStrategy {
	if c.Signature == "type" {
		return render.SignatureType
	}
	return render.SignatureIdentity
}

func (c *Config) refreshPolicy() (render.RefreshPolicy, time.Duration) {
	if c.PlanRefresh == "time_boxed" {
		return render.RefreshTimeBoxed, time.Duration(c.PlanRefreshMs) * time.Millisecond
	}
	return render.RefreshOnChange, 0
}

func (c *Config) timingStrategy() (render.TimingStrategy, float64) {
	alpha := c.TimingAlpha
	if alpha == 0 {
		alpha = 0.2
	}
	if c.Timing == "cumulative" {
		return render.TimingCumulative, alpha
	}
	return render.TimingEMA, alpha
}

func (c *Config) pacerConfig() render.PacerConfig {
	strategy := render.PacingOff
	if c.Pacing == "adaptive" {
		strategy = render.PacingAdaptive
	}
	return render.PacerConfig{
		Strategy:    strategy,
		FPS:         c.FPS,
		Utilization: c.Utilization,
	}
}

func (c *Config) scaleFilter() surface.Filter {
	switch c.Filter {
	case "nearest":
		return surface.FilterNearest
	case "catmull_rom":
		return surface.FilterCatmullRom
	default:
		return surface.FilterBilinear
	}
}

func (c *Config) frameErrorPolicy() FrameErrorPolicy {
	if c.FrameError == "halt" {
		return HaltOnFrameError
	}
	return DropFailedFrames
}

// StreamSettings converts the stream defaults into stream.Settings.
func (c *Config) StreamSettings() stream.Settings {
	s := stream.Settings{
		AutoConnectAfter: c.Stream.AutoConnectAfter,
		Grace:            time.Duration(c.Stream.GraceMs) * time.Millisecond,
	}
	switch c.Stream.Strategy {
	case "share":
		s.Strategy = stream.Share
	case "replay_buffer":
		s.Strategy = stream.ReplayBuffer
		s.Buffer = c.Stream.Buffer
	default:
		s.Strategy = stream.ReplayLatest
	}
	return s
}
