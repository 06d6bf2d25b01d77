package software

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
)

// texture stores every format as float32 RGBA, one slice per layer, row 0 at the top.
type texture struct {
	desc     backend.TextureDescriptor
	layers   [][]common.Vec4
	released bool
}

func newTexture(desc backend.TextureDescriptor) *texture {
	t := &texture{desc: desc, layers: make([][]common.Vec4, desc.LayerCount())}
	for i := range t.layers {
		t.layers[i] = make([]common.Vec4, desc.Width*desc.Height)
		if desc.Format.Channels() < 4 {
			for j := range t.layers[i] {
				t.layers[i][j][3] = 1
			}
		}
	}
	return t
}

func (t *texture) Descriptor() backend.TextureDescriptor { return t.desc }

func (t *texture) size() common.Size {
	return common.Size{Width: t.desc.Width, Height: t.desc.Height}
}

// encode converts a value to what the texture format can hold.
func (t *texture) encode(v common.Vec4) common.Vec4 {
	f := t.desc.Format
	if f.IsNormalized() {
		for i := range v {
			v[i] = common.Saturate(v[i])
		}
		return v
	}
	switch f.Channels() {
	case 1:
		return common.Vec4{v[0], 0, 0, 1}
	case 2:
		return common.Vec4{v[0], v[1], 0, 1}
	}
	return v
}

func (t *texture) texel(layer, x, y int) common.Vec4 {
	return t.layers[layer][y*t.desc.Width+x]
}

func (t *texture) store(layer, x, y int, v common.Vec4) {
	t.layers[layer][y*t.desc.Width+x] = t.encode(v)
}

func (t *texture) checkLayer(layer int) error {
	if t.released {
		return fmt.Errorf("texture %q: %w", t.desc.Label, backend.ErrReleased)
	}
	if layer < 0 || layer >= len(t.layers) {
		return fmt.Errorf("texture %q: layer %d out of range [0, %d)", t.desc.Label, layer, len(t.layers))
	}
	return nil
}

// sampler implements backend.Sampler over a texture using its filter and wrap modes.
type sampler struct {
	t *texture
}

var _ backend.Sampler = sampler{}

func (s sampler) Size() common.Size { return s.t.size() }
func (s sampler) Layers() int       { return len(s.t.layers) }

func (s sampler) Sample(uv common.Vec2) common.Vec4 { return s.SampleLayer(uv, 0) }

func (s sampler) SampleLayer(uv common.Vec2, layer int) common.Vec4 {
	layer = clampInt(layer, 0, len(s.t.layers)-1)
	w, h := s.t.desc.Width, s.t.desc.Height
	if s.t.desc.Filter == backend.FilterNearest {
		x := s.wrap(int(math32.Floor(uv[0]*float32(w))), w)
		y := s.wrap(int(math32.Floor(uv[1]*float32(h))), h)
		return s.t.texel(layer, x, y)
	}

	fx := uv[0]*float32(w) - 0.5
	fy := uv[1]*float32(h) - 0.5
	x0f, y0f := math32.Floor(fx), math32.Floor(fy)
	tx, ty := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	xa, xb := s.wrap(x0, w), s.wrap(x0+1, w)
	ya, yb := s.wrap(y0, h), s.wrap(y0+1, h)
	top := s.t.texel(layer, xa, ya).Lerp(s.t.texel(layer, xb, ya), tx)
	bottom := s.t.texel(layer, xa, yb).Lerp(s.t.texel(layer, xb, yb), tx)
	return top.Lerp(bottom, ty)
}

func (s sampler) SampleCube(dir common.Vec3) common.Vec4 {
	face, uv, _ := common.CubeFaceUV(dir)
	return s.SampleLayer(uv, face)
}

func (s sampler) Load(x, y, layer int) common.Vec4 {
	if x < 0 || y < 0 || x >= s.t.desc.Width || y >= s.t.desc.Height || layer < 0 || layer >= len(s.t.layers) {
		return common.Vec4{}
	}
	return s.t.texel(layer, x, y)
}

func (s sampler) CompareLayer(uv common.Vec2, layer int, ref float32) float32 {
	w, h := s.t.desc.Width, s.t.desc.Height
	x := clampInt(int(math32.Floor(uv[0]*float32(w))), 0, w-1)
	y := clampInt(int(math32.Floor(uv[1]*float32(h))), 0, h-1)
	layer = clampInt(layer, 0, len(s.t.layers)-1)
	if ref <= s.t.texel(layer, x, y)[0] {
		return 1
	}
	return 0
}

func (s sampler) CompareCube(dir common.Vec3, ref float32) float32 {
	face, uv, _ := common.CubeFaceUV(dir)
	return s.CompareLayer(uv, face, ref)
}

func (s sampler) wrap(i, n int) int {
	if s.t.desc.Wrap == backend.WrapRepeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	return clampInt(i, 0, n-1)
}

// image implements backend.Image over layer 0 of a storage texture.
type image struct {
	t *texture
}

var _ backend.Image = image{}

func (i image) Size() common.Size { return i.t.size() }

func (i image) Load(x, y int) common.Vec4 {
	if x < 0 || y < 0 || x >= i.t.desc.Width || y >= i.t.desc.Height {
		return common.Vec4{}
	}
	return i.t.texel(0, x, y)
}

func (i image) Store(x, y int, v common.Vec4) {
	if x < 0 || y < 0 || x >= i.t.desc.Width || y >= i.t.desc.Height {
		return
	}
	i.t.store(0, x, y, v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
