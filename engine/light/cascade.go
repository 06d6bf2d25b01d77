package light

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/chewxy/math32"
)

// DefaultSplitLambda blends logarithmic (1) and uniform (0) cascade splits.
const DefaultSplitLambda float32 = 0.75

// CascadeCamera is the part of the camera cascades are fitted to.
type CascadeCamera struct {
	InverseView common.Mat4
	Fov         float32
	Aspect      float32
	Near        float32
}

// CascadeSplits returns the far view distance of each cascade using the practical split
// scheme. The logarithmic term needs a positive near plane; without one the splits are
// uniform.
//
// Parameters:
//   - near: camera near plane
//   - far: distance covered by the last cascade
//   - count: number of cascades
//   - lambda: weight of the logarithmic split
//
// Returns:
//   - []float32: count increasing distances, the last equal to far
func CascadeSplits(near, far float32, count int, lambda float32) []float32 {
	splits := make([]float32, count)
	for i := range splits {
		p := float32(i+1) / float32(count)
		uniform := near + (far-near)*p
		splits[i] = uniform
		if lambda > 0 && near > 0 {
			logarithmic := near * math32.Pow(far/near, p)
			splits[i] = lambda*logarithmic + (1-lambda)*uniform
		}
	}
	if count > 0 {
		splits[count-1] = far
	}
	return splits
}

// CascadeMatrices fits an orthographic light projection around each camera frustum slice.
// Each slice is enclosed in a sphere so the projection does not change size as the
// camera rotates, and the center is snapped to shadow map texels to keep edges stable.
//
// Parameters:
//   - cam: the viewing camera
//   - direction: normalized direction the light travels
//   - splits: cascade far distances from CascadeSplits
//   - resolution: shadow map edge in texels
//
// Returns:
//   - []common.Mat4: one view-projection per split
func CascadeMatrices(cam CascadeCamera, direction common.Vec3, splits []float32, resolution int) []common.Mat4 {
	out := make([]common.Mat4, len(splits))
	tanY := math32.Tan(cam.Fov / 2)
	tanX := tanY * cam.Aspect
	up := stableUp(direction)
	orient := common.LookAt(common.Vec3{}, direction, up)
	unorient := orient.Inverse()

	previous := cam.Near
	for i, split := range splits {
		var center common.Vec3
		var corners [8]common.Vec3
		n := 0
		for _, d := range [2]float32{previous, split} {
			for _, y := range [2]float32{-1, 1} {
				for _, x := range [2]float32{-1, 1} {
					corners[n] = cam.InverseView.TransformPoint(common.Vec3{x * d * tanX, y * d * tanY, -d})
					center = center.Add(corners[n])
					n++
				}
			}
		}
		center = center.Scale(1.0 / 8)
		var radius float32
		for _, c := range corners {
			radius = max(radius, c.Distance(center))
		}
		radius = math32.Ceil(radius*16) / 16

		texel := 2 * radius / float32(max(resolution, 1))
		local := orient.TransformPoint(center)
		local[0] = math32.Floor(local[0]/texel) * texel
		local[1] = math32.Floor(local[1]/texel) * texel
		center = unorient.TransformPoint(local)

		// The eye sits behind the slice so casters between it and the light are kept.
		eye := center.Sub(direction.Scale(3 * radius))
		view := common.LookAt(eye, center, up)
		out[i] = common.Orthographic(-radius, radius, -radius, radius, 0, 4*radius).Mul(view)
		previous = split
	}
	return out
}
