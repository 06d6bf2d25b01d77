// Package light derives the per-light data render tasks submit from light components:
// shadow projections, directional cascade splits and light volume transforms.
package light

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
)

// Type identifies the kind of light source.
type Type int

const (
	// TypeDirectional has no position, only a direction, and no distance attenuation.
	TypeDirectional Type = iota
	// TypePoint emits in every direction from a position up to a range.
	TypePoint
	// TypeSpot emits in a cone around its direction up to a range.
	TypeSpot
)

// View is the world-space state of one light for the current frame.
type View struct {
	Type      Type
	Position  common.Vec3
	Direction common.Vec3
	Color     common.Vec3
	Intensity float32
	// Range is the radius of point lights and the reach of spot lights.
	Range float32
	// InnerCutoff and OuterCutoff are spot cone half angles in radians.
	InnerCutoff    float32
	OuterCutoff    float32
	CastsShadows   bool
	Bias           float32
	ShadowDistance float32
}

// FromComponent builds the view of a light component.
//
// Parameters:
//   - c: any component
//
// Returns:
//   - View: the light state in world space
//   - bool: false when c is not a light
func FromComponent(c *component.Component) (View, bool) {
	switch c.Kind() {
	case component.KindPointLight:
		l, _ := c.AsPointLight()
		return View{
			Type:         TypePoint,
			Position:     c.WorldPosition(),
			Color:        l.Color,
			Intensity:    l.Intensity,
			Range:        l.Radius,
			CastsShadows: l.ShadowCasting,
			Bias:         common.Coalesce(l.ShadowBias, DefaultShadowBias),
		}, true
	case component.KindSpotLight:
		l, _ := c.AsSpotLight()
		return View{
			Type:         TypeSpot,
			Position:     c.WorldPosition(),
			Direction:    c.Forward(),
			Color:        l.Color,
			Intensity:    l.Intensity,
			Range:        l.Range,
			InnerCutoff:  min(l.InnerCutoff, l.OuterCutoff),
			OuterCutoff:  l.OuterCutoff,
			CastsShadows: l.ShadowCasting,
			Bias:         common.Coalesce(l.ShadowBias, DefaultShadowBias),
		}, true
	case component.KindDirectionalLight:
		l, _ := c.AsDirectionalLight()
		return View{
			Type:           TypeDirectional,
			Direction:      c.Forward(),
			Color:          l.Color,
			Intensity:      l.Intensity,
			CastsShadows:   l.ShadowCasting,
			Bias:           common.Coalesce(l.ShadowBias, DefaultShadowBias),
			ShadowDistance: l.ShadowDistance,
		}, true
	}
	return View{}, false
}

// Visible reports whether the light contributes anything.
func (v View) Visible() bool {
	if v.Intensity <= 0 {
		return false
	}
	return v.Type == TypeDirectional || v.Range > 0
}

// RendersShadow reports whether a shadow map is rendered for the light this frame.
func (v View) RendersShadow() bool { return v.CastsShadows && v.Visible() }

// Shadowed is RendersShadow as the integer flag the lighting programs read.
func (v View) Shadowed() int32 {
	if v.RendersShadow() {
		return 1
	}
	return 0
}
