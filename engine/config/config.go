// Package config loads engine configuration from TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// AAMethod selects the anti-aliasing technique. Exactly one is active at a time.
type AAMethod string

const (
	AANone AAMethod = "none"
	AATAA  AAMethod = "taa"
	AAFXAA AAMethod = "fxaa"
)

// MaxBloomDownscale caps the bloom mip chain length.
const MaxBloomDownscale = 8

// MaxAmbientSamples caps the SSAO/SSDO kernel size.
const MaxAmbientSamples = 64

// Config is the root configuration document.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shaders  ShaderConfig   `toml:"shaders"`
	Log      LogConfig      `toml:"log"`
}

// WindowConfig describes the native window.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

// LogConfig controls the engine logger installed by binaries.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// ShaderConfig controls where program sources come from.
type ShaderConfig struct {
	// Directory, when set, overrides embedded WGSL sources with <name>.wgsl files found there.
	Directory string `toml:"directory"`
	// HotReload watches Directory and recompiles changed programs between frames.
	HotReload bool `toml:"hot_reload"`
}

// RendererConfig holds every renderer tunable. The renderer copies it at construction and
// exposes getters/setters for each field.
type RendererConfig struct {
	Backend          string   `toml:"backend"`
	RenderScale      float32  `toml:"render_scale"`
	AA               AAMethod `toml:"aa"`
	HistorySize      int      `toml:"history_size"`
	JitterLength     int      `toml:"jitter_length"`
	TAAFeedback      float32  `toml:"taa_feedback"`
	Gamma            float32  `toml:"gamma"`
	AmbientIntensity float32  `toml:"ambient_intensity"`
	DebugTarget      string   `toml:"debug_target"`
	ShadowMapSize    int      `toml:"shadow_map_size"`
	Cascades         int      `toml:"directional_cascades"`
	WorkerCount      int      `toml:"worker_count"`

	Bloom BloomConfig `toml:"bloom"`
	SSAO  SSAOConfig  `toml:"ssao"`
	SSDO  SSDOConfig  `toml:"ssdo"`
	FXAA  FXAAConfig  `toml:"fxaa"`
}

// BloomConfig tunes the bloom mip chain.
type BloomConfig struct {
	Enabled        bool    `toml:"enabled"`
	DownscaleCount int     `toml:"downscale_count"`
	Strength       float32 `toml:"strength"`
	Intensity      float32 `toml:"intensity"`
	MixStrength    float32 `toml:"mix_strength"`
}

// SSAOConfig tunes screen-space ambient occlusion.
type SSAOConfig struct {
	Enabled bool    `toml:"enabled"`
	Radius  float32 `toml:"radius"`
	Bias    float32 `toml:"bias"`
	Samples int     `toml:"samples"`
	Seed    uint64  `toml:"seed"`
}

// SSDOConfig tunes screen-space directional occlusion.
type SSDOConfig struct {
	Enabled  bool    `toml:"enabled"`
	Radius   float32 `toml:"radius"`
	Samples  int     `toml:"samples"`
	Strength float32 `toml:"strength"`
}

// FXAAConfig holds the FXAA edge detection thresholds.
type FXAAConfig struct {
	ContrastThreshold float32 `toml:"contrast_threshold"`
	RelativeThreshold float32 `toml:"relative_threshold"`
	SubpixelBlending  float32 `toml:"subpixel_blending"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: WindowConfig{Title: "EdEngine", Width: 1280, Height: 720, VSync: true},
		Renderer: RendererConfig{
			Backend:          "wgpu",
			RenderScale:      1,
			AA:               AATAA,
			HistorySize:      2,
			JitterLength:     16,
			TAAFeedback:      0.9,
			Gamma:            2.2,
			AmbientIntensity: 0.05,
			DebugTarget:      "Viewport",
			ShadowMapSize:    1024,
			Cascades:         4,
			Bloom: BloomConfig{
				Enabled:        true,
				DownscaleCount: 4,
				Strength:       0.04,
				Intensity:      1,
				MixStrength:    0.5,
			},
			SSAO: SSAOConfig{Enabled: true, Radius: 0.5, Bias: 0.025, Samples: 16, Seed: 0x5eed},
			SSDO: SSDOConfig{Enabled: false, Radius: 0.5, Samples: 16, Strength: 1},
			FXAA: FXAAConfig{ContrastThreshold: 0.0312, RelativeThreshold: 0.063, SubpixelBlending: 0.75},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a TOML file and overlays it onto Default. Unknown keys are rejected.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - Config: the merged and validated configuration
//   - error: read, decode or validation failure
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML bytes over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as TOML.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Validate rejects unknown enumerations and clamps numeric settings into their supported ranges.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	return c.Renderer.Validate()
}

// Validate rejects unknown enumerations and clamps numeric settings into their supported ranges.
func (r *RendererConfig) Validate() error {
	switch r.Backend {
	case "software", "wgpu":
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, r.Backend)
	}
	if !r.AA.Valid() {
		return fmt.Errorf("%w: unknown aa method %q", ErrInvalid, r.AA)
	}
	if r.Gamma <= 0 {
		return fmt.Errorf("%w: gamma must be positive, got %v", ErrInvalid, r.Gamma)
	}

	r.RenderScale = clamp(r.RenderScale, 0.25, 2)
	r.HistorySize = max(r.HistorySize, 2)
	r.JitterLength = min(max(r.JitterLength, 1), 16)
	r.TAAFeedback = clamp(r.TAAFeedback, 0, 0.99)
	r.ShadowMapSize = max(r.ShadowMapSize, 16)
	r.Cascades = min(max(r.Cascades, 1), 4)
	r.WorkerCount = max(r.WorkerCount, 0)

	r.Bloom.DownscaleCount = min(max(r.Bloom.DownscaleCount, 1), MaxBloomDownscale)
	r.Bloom.MixStrength = clamp(r.Bloom.MixStrength, 0, 1)
	r.Bloom.Strength = clamp(r.Bloom.Strength, 0, 1)
	r.SSAO.Samples = min(max(r.SSAO.Samples, 1), MaxAmbientSamples)
	r.SSDO.Samples = min(max(r.SSDO.Samples, 1), MaxAmbientSamples)
	r.FXAA.SubpixelBlending = clamp(r.FXAA.SubpixelBlending, 0, 1)
	return nil
}

// Valid reports whether m is a known anti-aliasing method.
func (m AAMethod) Valid() bool {
	switch m {
	case AANone, AATAA, AAFXAA:
		return true
	}
	return false
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
