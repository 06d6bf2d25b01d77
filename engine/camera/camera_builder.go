package camera

import "github.com/KlishchD/EdEngine-sub000/common"

type CameraBuilderOption func(*cameraImpl)

// WithPose sets the initial eye position and look-at target.
//
// Parameters:
//   - position: world-space eye position
//   - target: world-space look-at point
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera pose
func WithPose(position, target common.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position, c.target = position, target
	}
}

// WithUp sets the camera's up vector.
func WithUp(up common.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithFov sets the camera's vertical field of view in radians.
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithController attaches a controller to the camera.
// After all options are applied, the camera takes its pose from the controller.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl Controller) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
