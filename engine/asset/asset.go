// Package asset loads and caches the GPU-backed meshes, textures and materials scene
// components refer to. Assets are reference counted: every Load returns the cached asset
// with one more reference, and the GPU resources are freed when the last one is released.
package asset

import (
	"errors"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/chewxy/math32"
)

// ErrNotFound is returned when an id names neither a built-in asset nor a readable file.
var ErrNotFound = errors.New("asset: not found")

// Kind is the type of an asset.
type Kind int

const (
	KindMesh Kind = iota
	KindTexture
	KindMaterial
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindTexture:
		return "texture"
	case KindMaterial:
		return "material"
	}
	return "unknown"
}

// Asset is implemented by every cached asset.
type Asset interface {
	ID() string
	Kind() Kind
	// References is the number of outstanding loads.
	References() int

	base() *header
}

type header struct {
	id   string
	refs int
}

func (h *header) ID() string      { return h.id }
func (h *header) References() int { return h.refs }
func (h *header) base() *header   { return h }

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min common.Vec3
	Max common.Vec3
}

// Center is the midpoint of the box.
func (b Bounds) Center() common.Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// Radius is the radius of the sphere around Center enclosing the box.
func (b Bounds) Radius() float32 { return b.Max.Sub(b.Min).Length() * 0.5 }

// BoundsOf computes the bounds of a vertex list.
func BoundsOf(vertices []common.Vertex) Bounds {
	if len(vertices) == 0 {
		return Bounds{}
	}
	lo := common.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	hi := lo.Negate()
	for _, v := range vertices {
		for i := range 3 {
			lo[i] = min(lo[i], v.Position[i])
			hi[i] = max(hi[i], v.Position[i])
		}
	}
	return Bounds{Min: lo, Max: hi}
}

// MeshData is the CPU form of a mesh. It is only held until upload.
type MeshData struct {
	Vertices []common.Vertex
	Indices  []uint32
}

// Mesh is uploaded indexed geometry.
type Mesh struct {
	header
	Vertices *resource.VertexBuffer
	Indices  *resource.IndexBuffer
	Bounds   Bounds
}

func (m *Mesh) Kind() Kind { return KindMesh }

func (m *Mesh) release() {
	if m.Vertices != nil {
		m.Vertices.Release()
	}
	if m.Indices != nil {
		m.Indices.Release()
	}
}

// Texture is an imported 2D texture.
type Texture struct {
	header
	Texture resource.Texture
}

func (t *Texture) Kind() Kind { return KindTexture }

func (t *Texture) release() {
	if t.Texture != nil {
		t.Texture.Release()
	}
}

// Material holds the surface parameters written to the G-buffer.
type Material struct {
	header
	BaseColor common.Vec4
	Roughness float32
	Metallic  float32
	// Emission scales the albedo added to the light buffer.
	Emission float32
	// AlbedoMap multiplies BaseColor. Nil samples as white.
	AlbedoMap *Texture
}

func (m *Material) Kind() Kind { return KindMaterial }

// DefaultMaterial returns the parameters of the built-in default material.
func DefaultMaterial() MaterialDescriptor {
	return MaterialDescriptor{
		BaseColor: ColorValue{0.8, 0.8, 0.8, 1},
		Roughness: 0.5,
	}
}
