// Package common contains plain value types shared across the engine: vector and matrix math,
// sizes, frustum helpers and image staging data.
package common

import "fmt"

// Size is an integer pixel extent.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Scaled returns s multiplied by factor, never smaller than 1x1.
func (s Size) Scaled(factor float32) Size {
	w := int(float32(s.Width)*factor + 0.5)
	h := int(float32(s.Height)*factor + 0.5)
	return Size{Width: max(w, 1), Height: max(h, 1)}
}

// Vec2 returns the size as a float vector.
func (s Size) Vec2() Vec2 { return Vec2{float32(s.Width), float32(s.Height)} }

// Aspect returns width / height.
func (s Size) Aspect() float32 {
	if s.Height == 0 {
		return 1
	}
	return float32(s.Width) / float32(s.Height)
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is RGBA8 pixel data, 4 bytes per pixel, row-major with row 0 at the top.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// Vertex is the single vertex layout every mesh uses: 32 bytes, position at
// location 0, normal at 1 and uv at 2.
type Vertex struct {
	Position Vec3
	Normal   Vec3
	UV       Vec2
}

// VertexStride is the size of Vertex in bytes.
const VertexStride = 32
