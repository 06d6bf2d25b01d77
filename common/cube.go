package common

import "github.com/chewxy/math32"

// CubeFaceUV selects the cube face a direction points at and the texel coordinate on that
// face, using the WebGPU face table. major is the absolute value of the major axis.
func CubeFaceUV(dir Vec3) (face int, uv Vec2, major float32) {
	ax, ay, az := math32.Abs(dir[0]), math32.Abs(dir[1]), math32.Abs(dir[2])
	var sc, tc float32
	switch {
	case ax >= ay && ax >= az:
		major = ax
		if dir[0] >= 0 {
			face, sc, tc = 0, -dir[2], -dir[1]
		} else {
			face, sc, tc = 1, dir[2], -dir[1]
		}
	case ay >= az:
		major = ay
		if dir[1] >= 0 {
			face, sc, tc = 2, dir[0], dir[2]
		} else {
			face, sc, tc = 3, dir[0], -dir[2]
		}
	default:
		major = az
		if dir[2] >= 0 {
			face, sc, tc = 4, dir[0], -dir[1]
		} else {
			face, sc, tc = 5, -dir[0], -dir[1]
		}
	}
	if major == 0 {
		return 0, Vec2{0.5, 0.5}, 0
	}
	return face, Vec2{(sc/major + 1) * 0.5, (tc/major + 1) * 0.5}, major
}

// CubeDepth is the depth CubeFaceProjection writes for a point whose major-axis distance
// from the cube center is major.
func CubeDepth(major, near, far float32) float32 {
	if major <= 0 {
		return 0
	}
	return far * (major - near) / ((far - near) * major)
}
