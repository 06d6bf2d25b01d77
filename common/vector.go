package common

import "github.com/chewxy/math32"

// Vec2 is a two component float32 vector.
type Vec2 [2]float32

// Vec3 is a three component float32 vector.
type Vec3 [3]float32

// Vec4 is a four component float32 vector. Colors are stored as RGBA Vec4 values.
type Vec4 [4]float32

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{v[0] + o[0], v[1] + o[1]} }
func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{v[0] - o[0], v[1] - o[1]} }
func (v Vec2) Scale(s float32) Vec2    { return Vec2{v[0] * s, v[1] * s} }
func (v Vec2) Mul(o Vec2) Vec2         { return Vec2{v[0] * o[0], v[1] * o[1]} }
func (v Vec2) Length() float32         { return math32.Sqrt(v[0]*v[0] + v[1]*v[1]) }
func (v Vec2) Div(o Vec2) Vec2         { return Vec2{v[0] / o[0], v[1] / o[1]} }
func (v Vec2) Dot(o Vec2) float32      { return v[0]*o[0] + v[1]*o[1] }
func (v Vec3) Add(o Vec3) Vec3         { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3         { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Scale(s float32) Vec3    { return Vec3{v[0] * s, v[1] * s, v[2] * s} }
func (v Vec3) Mul(o Vec3) Vec3         { return Vec3{v[0] * o[0], v[1] * o[1], v[2] * o[2]} }
func (v Vec3) Dot(o Vec3) float32      { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }
func (v Vec3) Length() float32         { return math32.Sqrt(v.Dot(v)) }
func (v Vec3) Negate() Vec3            { return Vec3{-v[0], -v[1], -v[2]} }
func (v Vec3) Vec4(w float32) Vec4     { return Vec4{v[0], v[1], v[2], w} }
func (v Vec4) Add(o Vec4) Vec4         { return Vec4{v[0] + o[0], v[1] + o[1], v[2] + o[2], v[3] + o[3]} }
func (v Vec4) Sub(o Vec4) Vec4         { return Vec4{v[0] - o[0], v[1] - o[1], v[2] - o[2], v[3] - o[3]} }
func (v Vec4) Scale(s float32) Vec4    { return Vec4{v[0] * s, v[1] * s, v[2] * s, v[3] * s} }
func (v Vec4) Mul(o Vec4) Vec4         { return Vec4{v[0] * o[0], v[1] * o[1], v[2] * o[2], v[3] * o[3]} }
func (v Vec4) Dot(o Vec4) float32      { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] + v[3]*o[3] }
func (v Vec4) XYZ() Vec3               { return Vec3{v[0], v[1], v[2]} }
func (v Vec4) XY() Vec2                { return Vec2{v[0], v[1]} }
func (v Vec3) Distance(o Vec3) float32 { return v.Sub(o).Length() }

// Cross returns the cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Normalize returns v scaled to unit length. A zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Lerp linearly interpolates between a and b by t.
func (v Vec4) Lerp(o Vec4, t float32) Vec4 {
	return Vec4{
		v[0] + (o[0]-v[0])*t,
		v[1] + (o[1]-v[1])*t,
		v[2] + (o[2]-v[2])*t,
		v[3] + (o[3]-v[3])*t,
	}
}

// Lerp linearly interpolates between a and b by t.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{v[0] + (o[0]-v[0])*t, v[1] + (o[1]-v[1])*t, v[2] + (o[2]-v[2])*t}
}

// Min returns the component-wise minimum.
func (v Vec4) Min(o Vec4) Vec4 {
	return Vec4{math32.Min(v[0], o[0]), math32.Min(v[1], o[1]), math32.Min(v[2], o[2]), math32.Min(v[3], o[3])}
}

// Max returns the component-wise maximum.
func (v Vec4) Max(o Vec4) Vec4 {
	return Vec4{math32.Max(v[0], o[0]), math32.Max(v[1], o[1]), math32.Max(v[2], o[2]), math32.Max(v[3], o[3])}
}

// Clamp clamps every component of v into [lo, hi].
func (v Vec4) Clamp(lo, hi Vec4) Vec4 { return v.Max(lo).Min(hi) }

// Luma returns the Rec. 709 luminance of the RGB part.
func (v Vec4) Luma() float32 { return v[0]*0.2126 + v[1]*0.7152 + v[2]*0.0722 }

// Clamp clamps x into [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Saturate clamps x into [0, 1].
func Saturate(x float32) float32 { return Clamp(x, 0, 1) }

// Mix is the GLSL/WGSL mix function for scalars.
func Mix(a, b, t float32) float32 { return a + (b-a)*t }

// SmoothStep is the Hermite smoothstep between edge0 and edge1.
func SmoothStep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Saturate((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 { return deg * math32.Pi / 180 }
