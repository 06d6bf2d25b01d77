// Package component defines the scene components the renderer consumes. A Component is a
// tagged union over a closed set of kinds; the renderer switches on Kind instead of testing
// types, and each kind's payload is reached through its As* accessor.
package component

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
)

// Kind discriminates the payload of a Component.
type Kind int

const (
	KindStaticMesh Kind = iota
	KindPointLight
	KindSpotLight
	KindDirectionalLight
	KindCamera
)

func (k Kind) String() string {
	switch k {
	case KindStaticMesh:
		return "StaticMesh"
	case KindPointLight:
		return "PointLight"
	case KindSpotLight:
		return "SpotLight"
	case KindDirectionalLight:
		return "DirectionalLight"
	case KindCamera:
		return "Camera"
	}
	panic(fmt.Sprintf("component: unknown kind %d", int(k)))
}

// IsLight reports whether k is one of the light kinds.
func (k Kind) IsLight() bool {
	return k == KindPointLight || k == KindSpotLight || k == KindDirectionalLight
}

// Transform is a local position, rotation in radians and scale.
type Transform struct {
	Position common.Vec3
	Rotation common.Vec3
	Scale    common.Vec3
}

// IdentityTransform is the transform with unit scale at the origin.
func IdentityTransform() Transform {
	return Transform{Scale: common.Vec3{1, 1, 1}}
}

// Matrix returns the local model matrix.
func (t Transform) Matrix() common.Mat4 {
	return common.ModelMatrix(t.Position, t.Rotation, t.Scale)
}

// StaticMesh draws a mesh with a material into the G-buffer.
type StaticMesh struct {
	Mesh     *asset.Mesh
	Material *asset.Material
}

// PointLight emits in every direction up to Radius.
type PointLight struct {
	Color         common.Vec3
	Intensity     float32
	Radius        float32
	ShadowCasting bool
	ShadowBias    float32
}

// SpotLight emits along the component's forward axis. Cutoffs are half angles in radians.
type SpotLight struct {
	Color         common.Vec3
	Intensity     float32
	Range         float32
	InnerCutoff   float32
	OuterCutoff   float32
	ShadowCasting bool
	ShadowBias    float32
}

// DirectionalLight shines along the component's forward axis everywhere in the scene.
type DirectionalLight struct {
	Color         common.Vec3
	Intensity     float32
	ShadowCasting bool
	ShadowBias    float32
	// ShadowDistance limits the view depth covered by shadow cascades. Zero uses the
	// camera far plane.
	ShadowDistance float32
}

// Camera marks a viewpoint. Fov is vertical, in radians.
type Camera struct {
	Fov  float32
	Near float32
	Far  float32
}

// Component is one element of a scene.
type Component struct {
	Name      string
	Transform Transform

	kind  Kind
	owner *Component

	previous    common.Mat4
	hasPrevious bool

	mesh        *StaticMesh
	point       *PointLight
	spot        *SpotLight
	directional *DirectionalLight
	camera      *Camera
}

func newComponent(name string, kind Kind) *Component {
	return &Component{Name: name, kind: kind, Transform: IdentityTransform()}
}

// NewStaticMesh creates a mesh component.
func NewStaticMesh(name string, m StaticMesh) *Component {
	c := newComponent(name, KindStaticMesh)
	c.mesh = &m
	return c
}

// NewPointLight creates a point light component.
func NewPointLight(name string, l PointLight) *Component {
	c := newComponent(name, KindPointLight)
	c.point = &l
	return c
}

// NewSpotLight creates a spot light component.
func NewSpotLight(name string, l SpotLight) *Component {
	c := newComponent(name, KindSpotLight)
	c.spot = &l
	return c
}

// NewDirectionalLight creates a directional light component.
func NewDirectionalLight(name string, l DirectionalLight) *Component {
	c := newComponent(name, KindDirectionalLight)
	c.directional = &l
	return c
}

// NewCamera creates a camera component.
func NewCamera(name string, cam Camera) *Component {
	c := newComponent(name, KindCamera)
	c.camera = &cam
	return c
}

func (c *Component) Kind() Kind { return c.kind }

// AsStaticMesh returns the mesh payload; ok is false for other kinds.
func (c *Component) AsStaticMesh() (*StaticMesh, bool) { return c.mesh, c.kind == KindStaticMesh }

func (c *Component) AsPointLight() (*PointLight, bool) { return c.point, c.kind == KindPointLight }

func (c *Component) AsSpotLight() (*SpotLight, bool) { return c.spot, c.kind == KindSpotLight }

func (c *Component) AsDirectionalLight() (*DirectionalLight, bool) {
	return c.directional, c.kind == KindDirectionalLight
}

func (c *Component) AsCamera() (*Camera, bool) { return c.camera, c.kind == KindCamera }

// Owner returns the component this one is attached to, or nil.
func (c *Component) Owner() *Component { return c.owner }

// SetOwner attaches c to owner so that its world transform composes owner's. Panics when
// the attachment would form a cycle.
func (c *Component) SetOwner(owner *Component) {
	for o := owner; o != nil; o = o.owner {
		if o == c {
			panic(fmt.Sprintf("component: attaching %q to %q forms a cycle", c.Name, owner.Name))
		}
	}
	c.owner = owner
}

// WorldTransform composes the transforms of c and every owner up the chain.
func (c *Component) WorldTransform() common.Mat4 {
	m := c.Transform.Matrix()
	for o := c.owner; o != nil; o = o.owner {
		m = o.Transform.Matrix().Mul(m)
	}
	return m
}

// PreviousWorldTransform returns the world transform recorded by the last
// SnapshotTransform, or the current one when none was recorded.
func (c *Component) PreviousWorldTransform() common.Mat4 {
	if !c.hasPrevious {
		return c.WorldTransform()
	}
	return c.previous
}

// SnapshotTransform records the current world transform as the previous frame's.
func (c *Component) SnapshotTransform() {
	c.previous = c.WorldTransform()
	c.hasPrevious = true
}

// WorldPosition is the translation of the world transform.
func (c *Component) WorldPosition() common.Vec3 {
	return c.WorldTransform().Translation()
}

// Forward is the world-space direction of the local -Z axis.
func (c *Component) Forward() common.Vec3 {
	return c.WorldTransform().TransformDirection(common.Vec3{0, 0, -1}).Normalize()
}
