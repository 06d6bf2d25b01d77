package camera

import (
	"sync"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/chewxy/math32"
)

// Controller owns the camera pose. The Camera reads Position/Target from it on Update.
// The implementation orbits a pivot using spherical coordinates (radius, azimuth,
// elevation) and pans the pivot along the camera's local axes.
type Controller interface {
	// Position returns the camera's world-space position.
	Position() common.Vec3

	// Target returns the look-at/pivot point.
	Target() common.Vec3

	// SetTarget moves the pivot and recomputes the position from the spherical coordinates.
	SetTarget(target common.Vec3)

	// Orbit rotates around the pivot by the given azimuth/elevation deltas (radians, scaled by
	// the orbit speed). Elevation is clamped to the configured range.
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves towards the pivot by delta * zoom speed. The radius is clamped.
	Zoom(delta float32)

	// Pan translates both pivot and position along the camera's right and up axes.
	Pan(right, up float32)

	Radius() float32
	Azimuth() float32
	Elevation() float32
}

type orbitController struct {
	mu *sync.Mutex

	position common.Vec3
	target   common.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32
}

var _ Controller = &orbitController{}

// NewOrbitController creates an orbit controller with editor-friendly defaults.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewOrbitController(options ...ControllerOption) Controller {
	cc := &orbitController{
		mu:           &sync.Mutex{},
		radius:       5,
		elevation:    math32.Pi / 6,
		minRadius:    0.5,
		maxRadius:    500,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		orbitSpeed:   1,
		zoomSpeed:    1,
		panSpeed:     1,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the position from spherical coordinates. Caller must hold the mutex.
func (cc *orbitController) updatePosition() {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)
	cc.position = cc.target.Add(common.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

func (cc *orbitController) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *orbitController) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(target common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *orbitController) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth * cc.orbitSpeed
	cc.elevation = common.Clamp(cc.elevation+dElevation*cc.orbitSpeed, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *orbitController) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	backward := cc.position.Sub(cc.target).Normalize()
	r := common.Vec3{0, 1, 0}.Cross(backward).Normalize()
	u := backward.Cross(r)
	offset := r.Scale(right * cc.panSpeed).Add(u.Scale(up * cc.panSpeed))
	cc.target = cc.target.Add(offset)
	cc.position = cc.position.Add(offset)
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

// NewOrbitControllerFor creates an orbit controller that starts at the current pose of cam,
// pivoting around its target.
//
// Parameters:
//   - cam: the camera whose pose seeds the spherical coordinates
//   - options: functional options applied after the pose is derived
//
// Returns:
//   - Controller: the newly created controller
func NewOrbitControllerFor(cam Camera, options ...ControllerOption) Controller {
	offset := cam.Position().Sub(cam.Target())
	radius := offset.Length()
	seeded := []ControllerOption{WithTarget(cam.Target())}
	if radius > 1e-5 {
		seeded = append(seeded,
			WithRadius(radius),
			WithAzimuth(math32.Atan2(offset[0], offset[2])),
			WithElevation(math32.Asin(common.Clamp(offset[1]/radius, -1, 1))))
	}
	return NewOrbitController(append(seeded, options...)...)
}
