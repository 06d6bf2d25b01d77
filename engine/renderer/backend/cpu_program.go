package backend

import "github.com/KlishchD/EdEngine-sub000/common"

// MaxVaryings is the number of float32 values a vertex kernel may pass to fragments.
const MaxVaryings = 16

// Varyings are interpolated vertex outputs.
type Varyings [MaxVaryings]float32

// SetVec3 stores v at offset i.
func (v *Varyings) SetVec3(i int, x common.Vec3) { copy(v[i:i+3], x[:]) }

// SetVec2 stores v at offset i.
func (v *Varyings) SetVec2(i int, x common.Vec2) { copy(v[i:i+2], x[:]) }

// SetVec4 stores v at offset i.
func (v *Varyings) SetVec4(i int, x common.Vec4) { copy(v[i:i+4], x[:]) }

func (v *Varyings) Vec3(i int) common.Vec3 { return common.Vec3{v[i], v[i+1], v[i+2]} }
func (v *Varyings) Vec2(i int) common.Vec2 { return common.Vec2{v[i], v[i+1]} }
func (v *Varyings) Vec4(i int) common.Vec4 { return common.Vec4{v[i], v[i+1], v[i+2], v[i+3]} }

// Fragment is the input of a fragment kernel.
type Fragment struct {
	// Coord is the pixel center in x, y, the depth in z and 1/w in w.
	Coord common.Vec4
	// UV is Coord.xy divided by the target size.
	UV       common.Vec2
	Front    bool
	Varyings Varyings
}

// FragmentOutput receives one color per color attachment.
type FragmentOutput struct {
	Colors [8]common.Vec4
}

// Sampler reads a bound texture. Coordinates follow WebGPU: uv (0, 0) is the top-left
// texel and cube directions use the WebGPU face orientation.
type Sampler interface {
	Size() common.Size
	Layers() int
	Sample(uv common.Vec2) common.Vec4
	SampleLayer(uv common.Vec2, layer int) common.Vec4
	SampleCube(dir common.Vec3) common.Vec4
	Load(x, y, layer int) common.Vec4
	// CompareLayer returns 1 where ref <= the stored depth, else 0.
	CompareLayer(uv common.Vec2, layer int, ref float32) float32
	// CompareCube is CompareLayer for a cube map direction.
	CompareCube(dir common.Vec3, ref float32) float32
}

// Image is a storage texture bound to a compute kernel.
type Image interface {
	Size() common.Size
	Load(x, y int) common.Vec4
	Store(x, y int, v common.Vec4)
}

// Bindings is what a CPU program sees of a draw or dispatch.
type Bindings struct {
	Uniforms Uniforms
	Samplers map[string]Sampler
	Images   map[string]Image
	// Target is the size of the render target, or of the first image for dispatches.
	Target common.Size
}

// Sampler returns the sampler bound to name, or a sampler that reads zero everywhere.
func (b *Bindings) Sampler(name string) Sampler {
	if s, ok := b.Samplers[name]; ok {
		return s
	}
	return zeroSampler{}
}

// Image returns the image bound to name, or nil.
func (b *Bindings) Image(name string) Image {
	return b.Images[name]
}

// CPUProgram is the CPU rendition of a program. Bind runs once per draw and turns bindings
// into the state value passed to every kernel invocation, so kernels do not look anything
// up by name in their inner loops. Kernels must be safe for concurrent use.
type CPUProgram struct {
	Bind func(b *Bindings) any

	// Vertex transforms vertex index (and v when a vertex buffer is bound) to clip space.
	Vertex func(state any, index int, v common.Vertex, out *Varyings) common.Vec4

	// Fragment shades one covered pixel. Returning false discards it.
	Fragment func(state any, in *Fragment, out *FragmentOutput) bool

	// Compute runs one invocation at a global invocation id.
	Compute func(state any, x, y, z int)

	WorkgroupSize [3]int
}

// IsCompute reports whether the program is a compute kernel.
func (p *CPUProgram) IsCompute() bool { return p.Compute != nil }

type zeroSampler struct{}

func (zeroSampler) Size() common.Size                              { return common.Size{Width: 1, Height: 1} }
func (zeroSampler) Layers() int                                    { return 1 }
func (zeroSampler) Sample(common.Vec2) common.Vec4                 { return common.Vec4{} }
func (zeroSampler) SampleLayer(common.Vec2, int) common.Vec4       { return common.Vec4{} }
func (zeroSampler) SampleCube(common.Vec3) common.Vec4             { return common.Vec4{} }
func (zeroSampler) Load(int, int, int) common.Vec4                 { return common.Vec4{} }
func (zeroSampler) CompareLayer(common.Vec2, int, float32) float32 { return 1 }
func (zeroSampler) CompareCube(common.Vec3, float32) float32       { return 1 }
