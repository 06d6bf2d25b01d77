package light

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromComponent(t *testing.T) {
	lamp := component.NewPointLight("lamp", component.PointLight{Color: common.Vec3{1, 1, 1}, Intensity: 5, Radius: 8, ShadowCasting: true})
	lamp.Transform.Position = common.Vec3{0, 2, 0}

	v, ok := FromComponent(lamp)
	require.True(t, ok)
	assert.Equal(t, TypePoint, v.Type)
	assert.Equal(t, common.Vec3{0, 2, 0}, v.Position)
	assert.Equal(t, DefaultShadowBias, v.Bias)
	assert.True(t, v.RendersShadow())
	assert.Equal(t, int32(1), v.Shadowed())

	p, _ := lamp.AsPointLight()
	p.Intensity = 0
	v, _ = FromComponent(lamp)
	assert.False(t, v.Visible())
	assert.False(t, v.RendersShadow(), "lights without intensity render no shadow")

	_, ok = FromComponent(component.NewStaticMesh("box", component.StaticMesh{}))
	assert.False(t, ok)
}

func TestSpotCutoffsAreOrdered(t *testing.T) {
	spot := component.NewSpotLight("spot", component.SpotLight{Intensity: 1, Range: 5, InnerCutoff: 0.8, OuterCutoff: 0.5})
	v, ok := FromComponent(spot)
	require.True(t, ok)
	assert.Equal(t, float32(0.5), v.InnerCutoff)
	assert.Equal(t, common.Vec3{0, 0, -1}, v.Direction)
}

func TestPointShadowSize(t *testing.T) {
	assert.Equal(t, 1024, PointShadowSize(1024, common.Size{Width: 1920, Height: 1080}))
	assert.Equal(t, 128, PointShadowSize(1024, common.Size{Width: 100, Height: 64}))
	assert.Equal(t, 64, PointShadowSize(1024, common.Size{Width: 64, Height: 64}))
}

func TestPointFaceMatricesLookAlongAxes(t *testing.T) {
	pos := common.Vec3{1, 2, 3}
	faces := PointFaceMatrices(pos, 10)
	dirs := [6]common.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for face, dir := range dirs {
		clip := faces[face].MulVec4(pos.Add(dir.Scale(5)).Vec4(1))
		require.Greater(t, clip[3], float32(0))
		assert.InDelta(t, 0, clip[0]/clip[3], 1e-4, "face %d", face)
		assert.InDelta(t, 0, clip[1]/clip[3], 1e-4, "face %d", face)
		assert.InDelta(t, common.CubeDepth(5, ShadowNear, 10), clip[2]/clip[3], 1e-4, "face %d", face)
	}
}

func TestCascadeSplits(t *testing.T) {
	splits := CascadeSplits(0.1, 100, 4, DefaultSplitLambda)
	require.Len(t, splits, 4)
	for i := 1; i < len(splits); i++ {
		assert.Greater(t, splits[i], splits[i-1])
	}
	assert.Equal(t, float32(100), splits[3])

	uniform := CascadeSplits(0, 100, 4, 0)
	assert.InDelta(t, 25, uniform[0], 1e-4)
	assert.InDelta(t, 50, uniform[1], 1e-4)

	zeroNear := CascadeSplits(0, 100, 4, DefaultSplitLambda)
	for i, split := range zeroNear {
		assert.False(t, math32.IsNaN(split), "split %d", i)
	}
	assert.Equal(t, uniform, zeroNear)
}

func TestCascadeMatricesEnclosePointsInSlice(t *testing.T) {
	cam := CascadeCamera{InverseView: common.Identity(), Fov: math32.Pi / 3, Aspect: 1.5, Near: 0.1}
	dir := common.Vec3{0.3, -1, 0.2}.Normalize()
	splits := CascadeSplits(cam.Near, 50, 3, DefaultSplitLambda)
	matrices := CascadeMatrices(cam, dir, splits, 1024)
	require.Len(t, matrices, 3)

	previous := cam.Near
	for i, split := range splits {
		mid := (previous + split) / 2
		p := matrices[i].MulVec4(common.Vec3{0, 0, -mid}.Vec4(1))
		assert.True(t, p[0] >= -1 && p[0] <= 1 && p[1] >= -1 && p[1] <= 1, "cascade %d x/y %v", i, p)
		assert.True(t, p[2] >= 0 && p[2] <= 1, "cascade %d depth %v", i, p[2])
		previous = split
	}
}

func TestVolumes(t *testing.T) {
	point := View{Type: TypePoint, Position: common.Vec3{0, 0, -5}, Range: 2, Intensity: 1}
	edge := PointVolume(point).TransformPoint(common.Vec3{1, 0, 0})
	assert.Greater(t, edge.Distance(point.Position), float32(2))

	spot := View{Type: TypeSpot, Position: common.Vec3{1, 1, 1}, Direction: common.Vec3{0, -1, 0}, Range: 4, OuterCutoff: math32.Pi / 4, Intensity: 1}
	tip := SpotVolume(spot).TransformPoint(common.Vec3{0, 0, -1})
	assert.InDelta(t, 1, tip[0], 1e-4)
	assert.InDelta(t, -3, tip[1], 1e-4)
	assert.InDelta(t, 1, tip[2], 1e-4)
	apex := SpotVolume(spot).TransformPoint(common.Vec3{})
	assert.InDelta(t, 0, apex.Distance(spot.Position), 1e-4)
}

func TestInsideVolume(t *testing.T) {
	point := View{Type: TypePoint, Position: common.Vec3{0, 0, 0}, Range: 3}
	assert.True(t, InsideVolume(point, common.Vec3{0, 0, 2}, 0.1))
	assert.False(t, InsideVolume(point, common.Vec3{0, 0, 10}, 0.1))

	spot := View{Type: TypeSpot, Direction: common.Vec3{0, 0, -1}, Range: 10, OuterCutoff: math32.Pi / 6}
	assert.True(t, InsideVolume(spot, common.Vec3{0, 0, -5}, 0.1))
	assert.False(t, InsideVolume(spot, common.Vec3{5, 0, -5}, 0.1))
	assert.False(t, InsideVolume(spot, common.Vec3{0, 0, 5}, 0.1))

	cull, depth := VolumeState(true)
	assert.Equal(t, backend.CullFront, cull)
	assert.False(t, depth.Test)
	cull, depth = VolumeState(false)
	assert.Equal(t, backend.CullBack, cull)
	assert.Equal(t, backend.DepthState{Test: true, Compare: backend.CompareLessEqual}, depth)
}
