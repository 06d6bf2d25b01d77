package common

import "github.com/chewxy/math32"

// Mat4 is a 4x4 float32 matrix stored in column-major order (WebGPU/WGSL convention).
// Element (row r, column c) lives at index c*4 + r.
type Mat4 [16]float32

// Identity returns the 4x4 identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ { // column of o
		for j := 0; j < 4; j++ { // row of m
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += m[k*4+j] * o[i*4+k]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2] + m[12]*v[3],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2] + m[13]*v[3],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2] + m[14]*v[3],
		m[3]*v[0] + m[7]*v[1] + m[11]*v[2] + m[15]*v[3],
	}
}

// TransformPoint transforms p as a position (w = 1) and performs the perspective divide.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	r := m.MulVec4(p.Vec4(1))
	if r[3] != 0 && r[3] != 1 {
		return Vec3{r[0] / r[3], r[1] / r[3], r[2] / r[3]}
	}
	return r.XYZ()
}

// TransformDirection transforms d as a direction (w = 0).
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return m.MulVec4(d.Vec4(0)).XYZ()
}

// Translation returns the translation column of m.
func (m Mat4) Translation() Vec3 { return Vec3{m[12], m[13], m[14]} }

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}

// Translate builds a translation matrix.
func Translate(t Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// ScaleMatrix builds a non-uniform scale matrix.
func ScaleMatrix(s Vec3) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = s[0], s[1], s[2]
	return m
}

// ModelMatrix constructs a model matrix from position, Euler rotation and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll).
//
// Parameters:
//   - pos: translation in world space
//   - rot: rotation angles in radians around each axis
//   - scale: scale factors along each axis
//
// Returns:
//   - Mat4: the composed model matrix
func ModelMatrix(pos, rot, scale Vec3) Mat4 {
	cx, sx := math32.Cos(rot[0]), math32.Sin(rot[0])
	cy, sy := math32.Cos(rot[1]), math32.Sin(rot[1])
	cz, sz := math32.Cos(rot[2]), math32.Sin(rot[2])

	var out Mat4
	out[0] = (cy*cz + sy*sx*sz) * scale[0]
	out[1] = (cx * sz) * scale[0]
	out[2] = (-sy*cz + cy*sx*sz) * scale[0]

	out[4] = (cy*-sz + sy*sx*cz) * scale[1]
	out[5] = (cx * cz) * scale[1]
	out[6] = (sy*sz + cy*sx*cz) * scale[1]

	out[8] = (sy * cx) * scale[2]
	out[9] = (-sx) * scale[2]
	out[10] = (cy * cx) * scale[2]

	out[12], out[13], out[14], out[15] = pos[0], pos[1], pos[2], 1
	return out
}

// Perspective creates a right-handed perspective projection with WebGPU clip depth [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	var out Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1
	out[14] = (near * far) / (near - far)
	return out
}

// Orthographic creates a right-handed orthographic projection with clip depth [0, 1].
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	out := Identity()
	out[0] = 2 / (right - left)
	out[5] = 2 / (top - bottom)
	out[10] = 1 / (near - far)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = near / (near - far)
	return out
}

// LookAt creates a view matrix looking from eye towards center.
//
// Parameters:
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector, typically (0, 1, 0)
//
// Returns:
//   - Mat4: world to view transform
func LookAt(eye, center, up Vec3) Mat4 {
	z := eye.Sub(center).Normalize()
	if z == (Vec3{}) {
		z = Vec3{0, 0, 1}
	}
	x := up.Cross(z).Normalize()
	if x == (Vec3{}) {
		// up parallel to the view direction
		x = Vec3{1, 0, 0}.Cross(z).Normalize()
		if x == (Vec3{}) {
			x = Vec3{0, 0, 1}.Cross(z).Normalize()
		}
	}
	y := z.Cross(x)

	var out Mat4
	out[0], out[4], out[8], out[12] = x[0], x[1], x[2], -x.Dot(eye)
	out[1], out[5], out[9], out[13] = y[0], y[1], y[2], -y.Dot(eye)
	out[2], out[6], out[10], out[14] = z[0], z[1], z[2], -z.Dot(eye)
	out[15] = 1
	return out
}

// Invert computes the inverse of m using the Laplace expansion (cofactor) method.
//
// Returns:
//   - Mat4: the inverse, or m unchanged when singular
//   - bool: false if m is singular
func (m Mat4) Invert() (Mat4, bool) {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return m, false
	}
	inv := 1 / det

	var out Mat4
	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * inv
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * inv
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * inv
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * inv

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * inv
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * inv
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * inv
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * inv

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * inv
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * inv
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * inv
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * inv

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * inv
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * inv
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * inv
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * inv
	return out, true
}

// Inverse is Invert without the singularity flag.
func (m Mat4) Inverse() Mat4 {
	out, _ := m.Invert()
	return out
}

// CubeFaceView returns the view matrix for cube map face (0..5 = +X, -X, +Y, -Y, +Z, -Z)
// seen from position. The up vectors follow the WebGPU/D3D cube map convention.
func CubeFaceView(position Vec3, face int) Mat4 {
	dirs := [6]Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	ups := [6]Vec3{{0, -1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}, {0, -1, 0}, {0, -1, 0}}
	return LookAt(position, position.Add(dirs[face]), ups[face])
}

// CubeFaceProjection returns the 90 degree projection used with CubeFaceView. The Y axis is
// flipped so that texel rows of the rendered face match cube map sampling, which also
// reverses triangle winding: render cube faces with culling disabled.
func CubeFaceProjection(near, far float32) Mat4 {
	return ScaleMatrix(Vec3{1, -1, 1}).Mul(Perspective(math32.Pi/2, 1, near, far))
}
