// Package camera provides the perspective camera used to render a scene, plus an orbit
// controller that moves it around a pivot.
package camera

import (
	"sync"

	"github.com/KlishchD/EdEngine-sub000/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	position common.Vec3
	target   common.Vec3
	up       common.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	view           common.Mat4
	projection     common.Mat4
	viewProjection common.Mat4
	inverseView    common.Mat4

	controller Controller
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and caches view/projection matrices, recomputing
// them whenever a setting changes or Update pulls a new pose from the attached Controller.
type Camera interface {
	// Position returns the world-space eye position.
	Position() common.Vec3

	// Target returns the world-space look-at point.
	Target() common.Vec3

	// Forward returns the normalized view direction.
	Forward() common.Vec3

	Up() common.Vec3
	Fov() float32
	Aspect() float32
	Near() float32
	Far() float32

	// ViewMatrix returns the world to view transform.
	ViewMatrix() common.Mat4

	// ProjectionMatrix returns the unjittered projection.
	ProjectionMatrix() common.Mat4

	// ViewProjectionMatrix returns ProjectionMatrix * ViewMatrix.
	ViewProjectionMatrix() common.Mat4

	// InverseViewMatrix returns the view to world transform.
	InverseViewMatrix() common.Mat4

	// SetPose places the camera at position looking at target.
	//
	// Parameters:
	//   - position: world-space eye position
	//   - target: world-space look-at point
	SetPose(position, target common.Vec3)

	SetUp(up common.Vec3)
	SetFov(fov float32)
	SetAspect(aspect float32)
	SetNear(near float32)
	SetFar(far float32)

	// Controller returns the attached Controller, or nil.
	Controller() Controller

	// SetController attaches a Controller. Update copies its pose every frame.
	SetController(ctrl Controller)

	// Update pulls the pose from the attached controller, if any, and recomputes matrices.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings, placed at (0, 0, 5)
// looking at the origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: common.Vec3{0, 0, 5},
		up:       common.Vec3{0, 1, 0},
		fov:      common.Radians(45),
		aspect:   1,
		near:     0.1,
		far:      100,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.position, c.target = c.controller.Position(), c.controller.Target()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Forward() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.Sub(c.position).Normalize()
}

func (c *cameraImpl) Up() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ViewProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjection
}

func (c *cameraImpl) InverseViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseView
}

func (c *cameraImpl) SetPose(position, target common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position, c.target = position, target
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.position, c.target = c.controller.Position(), c.controller.Target()
	c.updateMatrices()
}

// updateMatrices recalculates the cached matrices. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.view = common.LookAt(c.position, c.target, c.up)
	c.projection = common.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjection = c.projection.Mul(c.view)
	c.inverseView = c.view.Inverse()
}
