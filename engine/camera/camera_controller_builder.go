package camera

import "github.com/KlishchD/EdEngine-sub000/common"

// ControllerOption is a functional option for configuring an orbit Controller.
type ControllerOption func(*orbitController)

// WithRadius sets the initial orbit radius (distance from target).
func WithRadius(radius float32) ControllerOption {
	return func(cc *orbitController) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - ControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) ControllerOption {
	return func(cc *orbitController) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
func WithElevation(elevation float32) ControllerOption {
	return func(cc *orbitController) {
		cc.elevation = elevation
	}
}

// WithTarget sets the look-at/pivot point.
func WithTarget(target common.Vec3) ControllerOption {
	return func(cc *orbitController) {
		cc.target = target
	}
}

// WithRadiusLimits sets the zoom bounds.
func WithRadiusLimits(minRadius, maxRadius float32) ControllerOption {
	return func(cc *orbitController) {
		cc.minRadius, cc.maxRadius = minRadius, maxRadius
	}
}

// WithSpeeds sets the orbit, zoom and pan multipliers.
func WithSpeeds(orbit, zoom, pan float32) ControllerOption {
	return func(cc *orbitController) {
		cc.orbitSpeed, cc.zoomSpeed, cc.panSpeed = orbit, zoom, pan
	}
}
