package camera

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/stretchr/testify/assert"
)

func TestCameraMatricesFollowPose(t *testing.T) {
	c := NewCamera(WithPose(common.Vec3{0, 0, 5}, common.Vec3{}), WithAspect(2))

	origin := c.ViewProjectionMatrix().MulVec4(common.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, origin[0]/origin[3], 1e-5)
	assert.InDelta(t, 0, origin[1]/origin[3], 1e-5)

	eye := c.InverseViewMatrix().TransformPoint(common.Vec3{})
	assert.InDelta(t, 5, eye[2], 1e-4)
	assert.InDelta(t, -1, c.Forward()[2], 1e-6)
}

func TestCameraSettersRecompute(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()
	c.SetFov(common.Radians(90))
	assert.NotEqual(t, before, c.ProjectionMatrix())
	assert.Equal(t, c.ProjectionMatrix().Mul(c.ViewMatrix()), c.ViewProjectionMatrix())
}

func TestOrbitControllerDrivesCamera(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(10), WithElevation(0), WithTarget(common.Vec3{1, 0, 0}))
	c := NewCamera(WithController(ctrl))

	assert.InDelta(t, 10, c.Position().Distance(common.Vec3{1, 0, 0}), 1e-4)

	ctrl.Zoom(4)
	ctrl.Orbit(0.5, 10)
	c.Update()

	assert.InDelta(t, 6, ctrl.Radius(), 1e-5)
	assert.Less(t, ctrl.Elevation(), float32(1.6), "elevation is clamped")
	assert.Equal(t, ctrl.Position(), c.Position())
}

func TestOrbitControllerPanKeepsOffset(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(3))
	offset := ctrl.Position().Sub(ctrl.Target())
	ctrl.Pan(1, 2)
	after := ctrl.Position().Sub(ctrl.Target())
	for i := range offset {
		assert.InDelta(t, offset[i], after[i], 1e-5)
	}
	assert.NotEqual(t, common.Vec3{}, ctrl.Target())
}

func TestOrbitControllerForKeepsPose(t *testing.T) {
	c := NewCamera(WithPose(common.Vec3{3, 2, -4}, common.Vec3{1, 0, 0}))
	ctrl := NewOrbitControllerFor(c)

	pos := ctrl.Position()
	assert.InDelta(t, 3, pos[0], 1e-4)
	assert.InDelta(t, 2, pos[1], 1e-4)
	assert.InDelta(t, -4, pos[2], 1e-4)
	assert.Equal(t, common.Vec3{1, 0, 0}, ctrl.Target())
}
