package asset

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/chewxy/math32"
)

// Built-in asset ids.
const (
	CubeMesh          = "builtin:cube"
	SphereMesh        = "builtin:sphere"
	PlaneMesh         = "builtin:plane"
	ConeMesh          = "builtin:cone"
	WhiteTexture      = "builtin:white"
	BlackTexture      = "builtin:black"
	DefaultMaterialID = "builtin:default"
)

// Tessellation of the built-in sphere and cone.
const (
	SphereSegments = 24
	SphereRings    = 16
	ConeSegments   = 24
)

// Cube returns a unit cube centered on the origin with one quad per face.
func Cube() MeshData {
	var m MeshData
	h := float32(0.5)
	faces := [6][3]common.Vec3{
		// normal, u, v with u x v = normal
		{{1, 0, 0}, {0, 0, -h}, {0, h, 0}},
		{{-1, 0, 0}, {0, 0, h}, {0, h, 0}},
		{{0, 1, 0}, {h, 0, 0}, {0, 0, -h}},
		{{0, -1, 0}, {h, 0, 0}, {0, 0, h}},
		{{0, 0, 1}, {h, 0, 0}, {0, h, 0}},
		{{0, 0, -1}, {-h, 0, 0}, {0, h, 0}},
	}
	for _, f := range faces {
		m.quad(f[0].Scale(h), f[0], f[1], f[2])
	}
	return m
}

// Plane returns a unit square in the XZ plane facing +Y.
func Plane() MeshData {
	var m MeshData
	m.quad(common.Vec3{}, common.Vec3{0, 1, 0}, common.Vec3{0.5, 0, 0}, common.Vec3{0, 0, -0.5})
	return m
}

// quad appends the quad center±u±v. Triangles wind counter-clockwise seen from normal.
func (m *MeshData) quad(center, normal, u, v common.Vec3) {
	base := uint32(len(m.Vertices))
	corners := [4]struct {
		su, sv float32
		uv     common.Vec2
	}{
		{-1, -1, common.Vec2{0, 1}},
		{1, -1, common.Vec2{1, 1}},
		{1, 1, common.Vec2{1, 0}},
		{-1, 1, common.Vec2{0, 0}},
	}
	for _, c := range corners {
		m.Vertices = append(m.Vertices, common.Vertex{
			Position: center.Add(u.Scale(c.su)).Add(v.Scale(c.sv)),
			Normal:   normal,
			UV:       c.uv,
		})
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// Sphere returns a UV sphere of radius 1.
func Sphere(segments, rings int) MeshData {
	var m MeshData
	for i := 0; i <= rings; i++ {
		theta := math32.Pi * float32(i) / float32(rings)
		st, ct := math32.Sincos(theta)
		for j := 0; j <= segments; j++ {
			phi := 2 * math32.Pi * float32(j) / float32(segments)
			sp, cp := math32.Sincos(phi)
			p := common.Vec3{st * cp, ct, st * sp}
			m.Vertices = append(m.Vertices, common.Vertex{
				Position: p,
				Normal:   p,
				UV:       common.Vec2{float32(j) / float32(segments), float32(i) / float32(rings)},
			})
		}
	}
	stride := uint32(segments + 1)
	for i := range uint32(rings) {
		for j := range uint32(segments) {
			a := i*stride + j
			b := a + stride
			m.Indices = append(m.Indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return m
}

// Cone returns a cone with its apex at the origin opening along -Z to a base of radius 1
// at z = -1.
func Cone(segments int) MeshData {
	var m MeshData
	apex := uint32(0)
	m.Vertices = append(m.Vertices, common.Vertex{Normal: common.Vec3{0, 0, 1}, UV: common.Vec2{0.5, 0}})
	for j := 0; j <= segments; j++ {
		phi := 2 * math32.Pi * float32(j) / float32(segments)
		s, c := math32.Sincos(phi)
		m.Vertices = append(m.Vertices, common.Vertex{
			Position: common.Vec3{c, s, -1},
			Normal:   common.Vec3{c, s, 1}.Normalize(),
			UV:       common.Vec2{float32(j) / float32(segments), 1},
		})
	}
	center := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, common.Vertex{Position: common.Vec3{0, 0, -1}, Normal: common.Vec3{0, 0, -1}, UV: common.Vec2{0.5, 0.5}})
	for j := range uint32(segments) {
		m.Indices = append(m.Indices, apex, 1+j, 2+j)
		m.Indices = append(m.Indices, center, 2+j, 1+j)
	}
	return m
}

// builtinMesh returns the geometry of a built-in mesh id.
func builtinMesh(id string) (MeshData, bool) {
	switch id {
	case CubeMesh:
		return Cube(), true
	case SphereMesh:
		return Sphere(SphereSegments, SphereRings), true
	case PlaneMesh:
		return Plane(), true
	case ConeMesh:
		return Cone(ConeSegments), true
	}
	return MeshData{}, false
}

// generateNormals replaces vertex normals with area-weighted averages of the adjacent face
// normals.
func generateNormals(vertices []common.Vertex, indices []uint32) {
	accum := make([]common.Vec3, len(vertices))
	n := uint32(len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		p0 := vertices[i0].Position
		face := vertices[i1].Position.Sub(p0).Cross(vertices[i2].Position.Sub(p0))
		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx] = accum[idx].Add(face)
		}
	}
	for i := range vertices {
		if accum[i].Length() < 1e-6 {
			vertices[i].Normal = common.Vec3{0, 1, 0}
			continue
		}
		vertices[i].Normal = accum[i].Normalize()
	}
}
