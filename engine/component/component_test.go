package component

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3(t *testing.T, want, got common.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d", i)
	}
}

func TestKindAccessors(t *testing.T) {
	light := NewPointLight("lamp", PointLight{Intensity: 5, Radius: 10})
	assert.Equal(t, KindPointLight, light.Kind())
	assert.True(t, light.Kind().IsLight())
	assert.Equal(t, "PointLight", light.Kind().String())

	p, ok := light.AsPointLight()
	require.True(t, ok)
	assert.Equal(t, float32(5), p.Intensity)

	_, ok = light.AsStaticMesh()
	assert.False(t, ok)
	_, ok = light.AsSpotLight()
	assert.False(t, ok)

	mesh := NewStaticMesh("box", StaticMesh{})
	assert.False(t, mesh.Kind().IsLight())
	_, ok = mesh.AsStaticMesh()
	assert.True(t, ok)

	assert.Panics(t, func() { _ = Kind(42).String() })
}

func TestWorldTransformComposesOwners(t *testing.T) {
	root := NewCamera("rig", Camera{Fov: 1, Near: 0.1, Far: 100})
	root.Transform.Position = common.Vec3{1, 0, 0}
	root.Transform.Scale = common.Vec3{2, 2, 2}

	child := NewPointLight("lamp", PointLight{})
	child.Transform.Position = common.Vec3{0, 1, 0}
	child.SetOwner(root)

	assert.Same(t, root, child.Owner())
	assertVec3(t, common.Vec3{1, 2, 0}, child.WorldPosition())
}

func TestSetOwnerRejectsCycles(t *testing.T) {
	a := NewStaticMesh("a", StaticMesh{})
	b := NewStaticMesh("b", StaticMesh{})
	b.SetOwner(a)

	assert.Panics(t, func() { a.SetOwner(b) })
	assert.Panics(t, func() { a.SetOwner(a) })
	assert.Nil(t, a.Owner())
}

func TestSnapshotTransform(t *testing.T) {
	c := NewStaticMesh("box", StaticMesh{})
	assert.Equal(t, c.WorldTransform(), c.PreviousWorldTransform(), "without a snapshot the previous transform is the current one")

	c.SnapshotTransform()
	c.Transform.Position = common.Vec3{0, 0, -3}

	assertVec3(t, common.Vec3{}, c.PreviousWorldTransform().Translation())
	assertVec3(t, common.Vec3{0, 0, -3}, c.WorldTransform().Translation())
}

func TestForward(t *testing.T) {
	c := NewDirectionalLight("sun", DirectionalLight{Intensity: 1})
	assertVec3(t, common.Vec3{0, 0, -1}, c.Forward())

	c.Transform.Rotation = common.Vec3{-math32.Pi / 2, 0, 0}
	assertVec3(t, common.Vec3{0, -1, 0}, c.Forward())

	c.Transform.Rotation = common.Vec3{0, math32.Pi / 2, 0}
	assertVec3(t, common.Vec3{-1, 0, 0}, c.Forward())
}
