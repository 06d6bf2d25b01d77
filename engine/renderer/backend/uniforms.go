package backend

import "github.com/KlishchD/EdEngine-sub000/common"

// Uniforms holds named uniform values. Keys are the names the program's uniform struct
// declares, with nested members written "light.position". Values are float32, int32,
// common.Vec2/Vec3/Vec4, common.Mat4, []common.Vec4 or []common.Mat4.
type Uniforms map[string]any

// Clone returns a shallow copy that later Set calls on u do not affect.
func (u Uniforms) Clone() Uniforms {
	out := make(Uniforms, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

func (u Uniforms) Float(name string) float32 {
	switch v := u[name].(type) {
	case float32:
		return v
	case int32:
		return float32(v)
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func (u Uniforms) Int(name string) int32 {
	switch v := u[name].(type) {
	case int32:
		return v
	case float32:
		return int32(v)
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func (u Uniforms) Vec2(name string) common.Vec2 {
	v, _ := u[name].(common.Vec2)
	return v
}

func (u Uniforms) Vec3(name string) common.Vec3 {
	v, _ := u[name].(common.Vec3)
	return v
}

func (u Uniforms) Vec4(name string) common.Vec4 {
	v, _ := u[name].(common.Vec4)
	return v
}

// Mat4 returns the named matrix, or identity when unset.
func (u Uniforms) Mat4(name string) common.Mat4 {
	if v, ok := u[name].(common.Mat4); ok {
		return v
	}
	return common.Identity()
}

func (u Uniforms) Vec4Array(name string) []common.Vec4 {
	v, _ := u[name].([]common.Vec4)
	return v
}

func (u Uniforms) Mat4Array(name string) []common.Mat4 {
	v, _ := u[name].([]common.Mat4)
	return v
}
