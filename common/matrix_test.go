package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3InDelta(t *testing.T, want, got Vec3, delta float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], float64(delta), "component %d", i)
	}
}

func TestMat4InvertRoundTrip(t *testing.T) {
	m := ModelMatrix(Vec3{1, 2, 3}, Vec3{0.3, -0.7, 1.1}, Vec3{2, 1, 0.5})
	inv, ok := m.Invert()
	require.True(t, ok)

	id := m.Mul(inv)
	for i, v := range Identity() {
		assert.InDelta(t, v, id[i], 1e-4)
	}
}

func TestMat4InvertSingular(t *testing.T) {
	var zero Mat4
	_, ok := zero.Invert()
	assert.False(t, ok)
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(Radians(60), 1.5, 0.1, 100)

	near := p.MulVec4(Vec4{0, 0, -0.1, 1})
	far := p.MulVec4(Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0, near[2]/near[3], 1e-5)
	assert.InDelta(t, 1, far[2]/far[3], 1e-5)
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := Vec3{3, 4, 5}
	v := LookAt(eye, Vec3{}, Vec3{0, 1, 0})
	assertVec3InDelta(t, Vec3{}, v.TransformPoint(eye), 1e-5)

	// the target lies on the -Z axis in view space
	target := v.TransformPoint(Vec3{})
	assert.InDelta(t, 0, target[0], 1e-5)
	assert.InDelta(t, 0, target[1], 1e-5)
	assert.Less(t, target[2], float32(0))
}

func TestCubeFaceViewLooksDownAxis(t *testing.T) {
	dirs := []Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	pos := Vec3{1, 1, 1}
	for face, d := range dirs {
		v := CubeFaceView(pos, face)
		p := v.TransformPoint(pos.Add(d))
		assertVec3InDelta(t, Vec3{0, 0, -1}, p, 1e-5)
	}
}

func TestFrustumSphere(t *testing.T) {
	vp := Perspective(Radians(90), 1, 0.1, 50).Mul(LookAt(Vec3{0, 0, 5}, Vec3{}, Vec3{0, 1, 0}))
	f := ExtractFrustum(vp)

	assert.True(t, f.IntersectsSphere(Vec3{}, 1))
	assert.False(t, f.IntersectsSphere(Vec3{0, 0, 10}, 1), "behind the camera")
	assert.False(t, f.IntersectsSphere(Vec3{0, 0, -60}, 1), "past the far plane")
	assert.True(t, f.IntersectsSphere(Vec3{0, 0, 6}, 1.5), "overlapping the camera")
}

func TestSizeScaled(t *testing.T) {
	s := Size{Width: 64, Height: 33}
	assert.Equal(t, Size{Width: 32, Height: 17}, s.Scaled(0.5))
	assert.Equal(t, Size{Width: 1, Height: 1}, Size{Width: 1, Height: 1}.Scaled(0.1))
	assert.Equal(t, 64, NextPow2(33))
	assert.Equal(t, 1, NextPow2(0))
}

func TestSmoothStep(t *testing.T) {
	assert.Equal(t, float32(0), SmoothStep(0, 1, -1))
	assert.Equal(t, float32(1), SmoothStep(0, 1, 2))
	assert.InDelta(t, 0.5, SmoothStep(0, 1, 0.5), 1e-6)
	assert.InDelta(t, math32.Sqrt(2), Vec3{1, 1, 0}.Length(), 1e-6)
}

func TestCubeFaceProjectionMatchesSampling(t *testing.T) {
	center := Vec3{1, 2, 3}
	proj := CubeFaceProjection(0.1, 50)
	dirs := []Vec3{{1, 0.2, -0.3}, {-1, 0.4, 0.1}, {0.3, 1, 0.2}, {-0.2, -1, 0.5}, {0.1, -0.4, 1}, {0.6, 0.3, -1}}

	for i, d := range dirs {
		face, uv, major := CubeFaceUV(d)
		require.Equal(t, i, face)

		clip := proj.MulVec4(CubeFaceView(center, face).MulVec4(center.Add(d.Scale(3)).Vec4(1)))
		ndc := Vec3{clip[0] / clip[3], clip[1] / clip[3], clip[2] / clip[3]}
		assert.InDelta(t, uv[0], (ndc[0]+1)*0.5, 1e-4, "face %d u", i)
		assert.InDelta(t, uv[1], (1-ndc[1])*0.5, 1e-4, "face %d v", i)
		assert.InDelta(t, CubeDepth(major*3, 0.1, 50), ndc[2], 1e-4, "face %d depth", i)
	}
}
