package graph

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
)

// ShaderParameter is a uniform binding that knows its name and how to push its current
// value.
type ShaderParameter interface {
	Name() string
	Push(ctx *rendering.Context)
}

type binding struct {
	name string
	push func(ctx *rendering.Context, name string)
}

func (b binding) Name() string                { return b.name }
func (b binding) Push(ctx *rendering.Context) { b.push(ctx, b.name) }

// ShaderParameters is an ordered list of bindings. The order carries no meaning; the
// uniform name addresses the value.
type ShaderParameters struct {
	prefix   string
	bindings *[]ShaderParameter
}

// NewShaderParameters returns an empty list.
func NewShaderParameters() *ShaderParameters {
	return &ShaderParameters{bindings: new([]ShaderParameter)}
}

// Sub returns a view that adds bindings named "prefix.field" to the same list, for
// struct-typed uniforms such as lights.
func (s *ShaderParameters) Sub(prefix string) *ShaderParameters {
	return &ShaderParameters{prefix: s.qualify(prefix), bindings: s.bindings}
}

func (s *ShaderParameters) qualify(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "." + name
}

func (s *ShaderParameters) add(name string, push func(ctx *rendering.Context, name string)) *ShaderParameters {
	*s.bindings = append(*s.bindings, binding{name: s.qualify(name), push: push})
	return s
}

// Bindings returns every binding in registration order.
func (s *ShaderParameters) Bindings() []ShaderParameter {
	return append([]ShaderParameter(nil), *s.bindings...)
}

// Len is the number of bindings.
func (s *ShaderParameters) Len() int { return len(*s.bindings) }

// Push uploads every binding's current value.
func (s *ShaderParameters) Push(ctx *rendering.Context) {
	for _, b := range *s.bindings {
		b.Push(ctx)
	}
}

func (s *ShaderParameters) Float(name string, v *float32) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetFloat(n, *v) })
}

func (s *ShaderParameters) Int(name string, v *int32) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetInt(n, *v) })
}

func (s *ShaderParameters) Bool(name string, v *bool) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetBool(n, *v) })
}

func (s *ShaderParameters) Vec2(name string, v *common.Vec2) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetVec2(n, *v) })
}

func (s *ShaderParameters) Vec3(name string, v *common.Vec3) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetVec3(n, *v) })
}

func (s *ShaderParameters) Vec4(name string, v *common.Vec4) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetVec4(n, *v) })
}

func (s *ShaderParameters) Mat4(name string, v *common.Mat4) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetMat4(n, *v) })
}

// Vec4Array binds a fixed-size array uniform such as a sample kernel.
func (s *ShaderParameters) Vec4Array(name string, v *[]common.Vec4) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetVec4Array(n, *v) })
}

// Texture binds a sampled texture. A nil texture is skipped.
func (s *ShaderParameters) Texture(name string, v *resource.Texture) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) {
		if *v != nil {
			ctx.SetTexture(n, *v)
		}
	})
}

// Image binds a storage texture for compute passes.
func (s *ShaderParameters) Image(name string, v *resource.Texture) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) {
		if *v != nil {
			ctx.SetImage(n, *v)
		}
	})
}

// Func binds a value computed at push time.
func (s *ShaderParameters) Func(name string, fn func() any) *ShaderParameters {
	return s.add(name, func(ctx *rendering.Context, n string) { ctx.SetUniform(n, fn()) })
}
