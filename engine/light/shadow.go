package light

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/chewxy/math32"
)

// DefaultShadowBias is the depth bias used when a light does not set one.
const DefaultShadowBias float32 = 0.005

// ShadowNear is the near plane of point and spot shadow projections.
const ShadowNear float32 = 0.05

// PointShadowSize returns the edge of the point light cube map for a render size: the
// next power of two of the larger render edge, capped at maxEdge.
func PointShadowSize(maxEdge int, render common.Size) int {
	return max(min(maxEdge, common.NextPow2(max(render.Width, render.Height))), 1)
}

// PointFaceMatrices returns the view-projection of every cube face seen from position.
func PointFaceMatrices(position common.Vec3, far float32) [6]common.Mat4 {
	proj := common.CubeFaceProjection(ShadowNear, far)
	var out [6]common.Mat4
	for face := range out {
		out[face] = proj.Mul(common.CubeFaceView(position, face))
	}
	return out
}

// SpotViewProjection returns the perspective shadow projection of a spot light, covering
// the full outer cone.
func SpotViewProjection(v View) common.Mat4 {
	fov := min(2*v.OuterCutoff, math32.Pi*0.95)
	view := common.LookAt(v.Position, v.Position.Add(v.Direction), stableUp(v.Direction))
	return common.Perspective(max(fov, 0.01), 1, ShadowNear, max(v.Range, ShadowNear*2)).Mul(view)
}

// stableUp returns an up vector that is not parallel to dir.
func stableUp(dir common.Vec3) common.Vec3 {
	if math32.Abs(dir[1]) > 0.99 {
		return common.Vec3{1, 0, 0}
	}
	return common.Vec3{0, 1, 0}
}
