package common

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// SignedDistance returns the signed distance from p to the plane.
func (p Plane) SignedDistance(pt Vec3) float32 {
	return p.Normal.Dot(pt) + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a view-projection matrix using the
// Gribb/Hartmann method, adjusted for a [0, 1] clip depth range.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj Mat4) Frustum {
	row := func(r int) Vec4 {
		return Vec4{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var f Frustum
	set := func(i int, v Vec4) {
		n := v.XYZ()
		l := n.Length()
		if l > 0 {
			n = n.Scale(1 / l)
			v[3] /= l
		}
		f.Planes[i] = Plane{Normal: n, Distance: v[3]}
	}
	set(FrustumLeft, r3.Add(r0))
	set(FrustumRight, r3.Sub(r0))
	set(FrustumBottom, r3.Add(r1))
	set(FrustumTop, r3.Sub(r1))
	// z_ndc >= 0
	set(FrustumNear, r2)
	set(FrustumFar, r3.Sub(r2))
	return f
}

// IntersectsSphere reports whether a sphere is at least partially inside the frustum.
func (f Frustum) IntersectsSphere(center Vec3, radius float32) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// FrustumCorners returns the eight world-space corners of the frustum described by the
// inverse of viewProj, restricted to the clip depth slice [zNear, zFar] in NDC.
func FrustumCorners(invViewProj Mat4, zNear, zFar float32) [8]Vec3 {
	var out [8]Vec3
	i := 0
	for _, z := range [2]float32{zNear, zFar} {
		for _, y := range [2]float32{-1, 1} {
			for _, x := range [2]float32{-1, 1} {
				out[i] = invViewProj.TransformPoint(Vec3{x, y, z})
				i++
			}
		}
	}
	return out
}
