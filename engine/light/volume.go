package light

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
)

// maxSpotCutoff keeps cone volumes finite.
const maxSpotCutoff = 89 * math32.Pi / 180

// sphereInflation scales the tessellated unit sphere so that its faces, not only its
// vertices, enclose the unit sphere.
var sphereInflation = 1 / (math32.Cos(math32.Pi/asset.SphereSegments) * math32.Cos(math32.Pi/(2*asset.SphereRings)))

// PointVolume returns the model matrix placing the built-in sphere around a point light.
func PointVolume(v View) common.Mat4 {
	r := v.Range * sphereInflation
	return common.Translate(v.Position).Mul(common.ScaleMatrix(common.Vec3{r, r, r}))
}

// SpotVolume returns the model matrix placing the built-in cone over a spot light: apex at
// the light, opening along its direction to the light's range.
func SpotVolume(v View) common.Mat4 {
	outer := min(v.OuterCutoff, maxSpotCutoff)
	r := v.Range * math32.Tan(outer) / math32.Cos(math32.Pi/asset.ConeSegments)
	orient := common.LookAt(v.Position, v.Position.Add(v.Direction), stableUp(v.Direction)).Inverse()
	return orient.Mul(common.ScaleMatrix(common.Vec3{r, r, v.Range}))
}

// InsideVolume reports whether a camera at eye with the given near plane distance could
// clip the light's volume. A margin of twice the near distance covers the near plane
// corners.
func InsideVolume(v View, eye common.Vec3, near float32) bool {
	margin := 2 * near
	switch v.Type {
	case TypePoint:
		return eye.Distance(v.Position) <= v.Range*sphereInflation+margin
	case TypeSpot:
		local := eye.Sub(v.Position)
		along := local.Dot(v.Direction)
		if along < -margin || along > v.Range+margin {
			return false
		}
		radial := local.Sub(v.Direction.Scale(along)).Length()
		return radial <= max(along, 0)*math32.Tan(min(v.OuterCutoff, maxSpotCutoff))+margin
	}
	return true
}

// VolumeState returns the culling and depth state for drawing a light volume. From
// outside, front faces are depth tested against the scene; from inside, only back faces
// are drawn and depth is ignored so the near plane cannot clip the volume away.
func VolumeState(inside bool) (backend.CullMode, backend.DepthState) {
	if inside {
		return backend.CullFront, backend.DepthState{}
	}
	return backend.CullBack, backend.DepthState{Test: true, Compare: backend.CompareLessEqual}
}

// BoundingSphere returns a sphere enclosing the light's volume for frustum tests.
func BoundingSphere(v View) (common.Vec3, float32) {
	if v.Type == TypeSpot {
		half := v.Range * 0.5
		tip := v.Range * math32.Tan(min(v.OuterCutoff, maxSpotCutoff))
		return v.Position.Add(v.Direction.Scale(half)), math32.Sqrt(half*half + tip*tip)
	}
	return v.Position, v.Range * sphereInflation
}
