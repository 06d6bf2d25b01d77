// Package target names the render targets the renderer exposes. A target's name is also
// the name its texture is declared under in the render graph.
package target

import "fmt"

// RenderTarget identifies a logical render target.
type RenderTarget int

const (
	GAlbedo RenderTarget = iota
	GPosition
	GNormal
	GMaterial
	GVelocity
	GDepth
	Light
	AmbientOcclusion
	DiffuseOcclusion
	Combination
	AntiAliasing
	Bloom
	Viewport
	count
)

var names = [count]string{
	GAlbedo:          "GAlbedo",
	GPosition:        "GPosition",
	GNormal:          "GNormal",
	GMaterial:        "GMaterial",
	GVelocity:        "GVelocity",
	GDepth:           "GDepth",
	Light:            "Light",
	AmbientOcclusion: "AmbientOcclusion",
	DiffuseOcclusion: "DiffuseOcclusion",
	Combination:      "Combination",
	AntiAliasing:     "AntiAliasing",
	Bloom:            "Bloom",
	Viewport:         "Viewport",
}

// String returns the stable name of t. Panics for values outside the enum.
func (t RenderTarget) String() string {
	if t < 0 || t >= count {
		panic(fmt.Sprintf("target: unknown render target %d", int(t)))
	}
	return names[t]
}

// All lists every target in declaration order.
func All() []RenderTarget {
	out := make([]RenderTarget, count)
	for i := range out {
		out[i] = RenderTarget(i)
	}
	return out
}

// Parse maps a stable name back to its target.
func Parse(name string) (RenderTarget, error) {
	for i, n := range names {
		if n == name {
			return RenderTarget(i), nil
		}
	}
	return 0, fmt.Errorf("target: unknown render target %q", name)
}
