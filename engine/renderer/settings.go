package renderer

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
)

// Tunables exposes every renderer setting to an editor. Setters only store the value;
// tasks read it the next time they run. Values are clamped into the ranges
// config.RendererConfig.Validate enforces.
type Tunables interface {
	AAMethod() config.AAMethod
	// SetAAMethod selects the anti-aliasing method. Unknown methods are ignored.
	SetAAMethod(m config.AAMethod)

	Gamma() float32
	SetGamma(gamma float32)
	AmbientIntensity() float32
	SetAmbientIntensity(v float32)
	TAAFeedback() float32
	SetTAAFeedback(v float32)

	BloomEnabled() bool
	SetBloomEnabled(enabled bool)
	BloomStrength() float32
	SetBloomStrength(v float32)
	BloomIntensity() float32
	SetBloomIntensity(v float32)
	BloomMixStrength() float32
	SetBloomMixStrength(v float32)
	BloomDownscaleCount() int
	// SetBloomDownscaleCount sets the mip chain length, clamped to [1, config.MaxBloomDownscale].
	SetBloomDownscaleCount(n int)

	SSAOEnabled() bool
	SetSSAOEnabled(enabled bool)
	SSAORadius() float32
	SetSSAORadius(v float32)
	SSAOSamples() int
	// SetSSAOSamples sets the kernel samples read per pixel, clamped to [1, config.MaxAmbientSamples].
	SetSSAOSamples(n int)

	SSDOEnabled() bool
	SetSSDOEnabled(enabled bool)
	SSDORadius() float32
	SetSSDORadius(v float32)
	SSDOSamples() int
	SetSSDOSamples(n int)
	SSDOStrength() float32
	SetSSDOStrength(v float32)

	FXAAThresholds() config.FXAAConfig
	SetFXAAThresholds(c config.FXAAConfig)

	// DebugTarget returns the target shown instead of Viewport, if any.
	DebugTarget() (target.RenderTarget, bool)
	// SetDebugTarget shows t in the viewport. Viewport clears the override.
	SetDebugTarget(t target.RenderTarget)
}

func (r *renderer) AAMethod() config.AAMethod { return r.settings.AA }

func (r *renderer) SetAAMethod(m config.AAMethod) {
	if !m.Valid() {
		logger.Logger().Warn("ignoring unknown aa method", "aa", string(m))
		return
	}
	r.settings.AA = m
}

func (r *renderer) Gamma() float32 { return r.settings.Gamma }

func (r *renderer) SetGamma(gamma float32) {
	if gamma > 0 {
		r.settings.Gamma = gamma
	}
}

func (r *renderer) AmbientIntensity() float32 { return r.settings.AmbientIntensity }
func (r *renderer) SetAmbientIntensity(v float32) {
	r.settings.AmbientIntensity = max(v, 0)
}

func (r *renderer) TAAFeedback() float32 { return r.settings.TAAFeedback }
func (r *renderer) SetTAAFeedback(v float32) {
	r.settings.TAAFeedback = common.Clamp(v, 0, 0.99)
}

func (r *renderer) BloomEnabled() bool            { return r.settings.Bloom.Enabled }
func (r *renderer) SetBloomEnabled(enabled bool)  { r.settings.Bloom.Enabled = enabled }
func (r *renderer) BloomStrength() float32        { return r.settings.Bloom.Strength }
func (r *renderer) SetBloomStrength(v float32)    { r.settings.Bloom.Strength = common.Saturate(v) }
func (r *renderer) BloomIntensity() float32       { return r.settings.Bloom.Intensity }
func (r *renderer) SetBloomIntensity(v float32)   { r.settings.Bloom.Intensity = max(v, 0) }
func (r *renderer) BloomMixStrength() float32     { return r.settings.Bloom.MixStrength }
func (r *renderer) SetBloomMixStrength(v float32) { r.settings.Bloom.MixStrength = common.Saturate(v) }
func (r *renderer) BloomDownscaleCount() int      { return r.settings.Bloom.DownscaleCount }

func (r *renderer) SetBloomDownscaleCount(n int) {
	r.settings.Bloom.DownscaleCount = min(max(n, 1), config.MaxBloomDownscale)
}

func (r *renderer) SSAOEnabled() bool           { return r.settings.SSAO.Enabled }
func (r *renderer) SetSSAOEnabled(enabled bool) { r.settings.SSAO.Enabled = enabled }
func (r *renderer) SSAORadius() float32         { return r.settings.SSAO.Radius }
func (r *renderer) SetSSAORadius(v float32)     { r.settings.SSAO.Radius = max(v, 0) }
func (r *renderer) SSAOSamples() int            { return r.settings.SSAO.Samples }

func (r *renderer) SetSSAOSamples(n int) {
	r.settings.SSAO.Samples = min(max(n, 1), config.MaxAmbientSamples)
}

func (r *renderer) SSDOEnabled() bool           { return r.settings.SSDO.Enabled }
func (r *renderer) SetSSDOEnabled(enabled bool) { r.settings.SSDO.Enabled = enabled }
func (r *renderer) SSDORadius() float32         { return r.settings.SSDO.Radius }
func (r *renderer) SetSSDORadius(v float32)     { r.settings.SSDO.Radius = max(v, 0) }
func (r *renderer) SSDOSamples() int            { return r.settings.SSDO.Samples }
func (r *renderer) SSDOStrength() float32       { return r.settings.SSDO.Strength }
func (r *renderer) SetSSDOStrength(v float32)   { r.settings.SSDO.Strength = max(v, 0) }

func (r *renderer) SetSSDOSamples(n int) {
	r.settings.SSDO.Samples = min(max(n, 1), config.MaxAmbientSamples)
}

func (r *renderer) FXAAThresholds() config.FXAAConfig { return r.settings.FXAA }

func (r *renderer) SetFXAAThresholds(c config.FXAAConfig) {
	c.SubpixelBlending = common.Saturate(c.SubpixelBlending)
	r.settings.FXAA = c
}

func (r *renderer) DebugTarget() (target.RenderTarget, bool) {
	if r.settings.DebugTarget == "" {
		return 0, false
	}
	t, err := target.Parse(r.settings.DebugTarget)
	if err != nil || t == target.Viewport {
		return 0, false
	}
	return t, true
}

func (r *renderer) SetDebugTarget(t target.RenderTarget) {
	r.settings.DebugTarget = t.String()
}
