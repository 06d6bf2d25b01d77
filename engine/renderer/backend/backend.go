// Package backend defines the device abstraction the renderer draws through. A Device owns
// textures, buffers and programs and executes render passes and compute dispatches; the
// software implementation runs programs' CPU kernels and the webgpu implementation runs
// their WGSL through cogentcore/webgpu.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/shader"
)

var (
	// ErrUnsupported is returned for operations a device cannot perform.
	ErrUnsupported = errors.New("backend: unsupported operation")
	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("backend: resource released")
	// ErrNoPass is returned when a draw is issued outside a render pass.
	ErrNoPass = errors.New("backend: no active render pass")
)

// Type identifies a device implementation.
type Type int

const (
	// TypeSoftware rasterizes and dispatches on the CPU.
	TypeSoftware Type = iota
	// TypeWGPU uses WebGPU through cogentcore/webgpu.
	TypeWGPU
)

func (t Type) String() string {
	switch t {
	case TypeSoftware:
		return "software"
	case TypeWGPU:
		return "wgpu"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps a configuration name to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "software", "cpu":
		return TypeSoftware, nil
	case "wgpu", "webgpu":
		return TypeWGPU, nil
	}
	return 0, fmt.Errorf("backend: unknown type %q", name)
}

// Limits are the device capabilities the renderer sizes its tables by.
type Limits struct {
	MaxTextureSlots     int
	MaxColorAttachments int
}

// BufferUsage says how a buffer is bound.
type BufferUsage int

const (
	BufferVertex BufferUsage = iota
	BufferIndex
)

// Texture is an opaque device texture.
type Texture interface {
	Descriptor() TextureDescriptor
}

// Buffer is an opaque device vertex or index buffer.
type Buffer interface {
	Usage() BufferUsage
	// Len is the number of vertices or indices held.
	Len() int
}

// Program is a compiled shader program.
type Program interface {
	Name() string
	Shader() shader.Shader
}

// ProgramSource is everything a device may need to build a program: the parsed WGSL and the
// equivalent CPU kernels. Each device uses the half it can execute.
type ProgramSource struct {
	Name   string
	Shader shader.Shader
	CPU    *CPUProgram
}

// Attachment selects one layer of a texture as a render target.
type Attachment struct {
	Texture Texture
	Layer   int
}

// RenderPassDescriptor describes the targets and load operations of a render pass.
type RenderPassDescriptor struct {
	Label           string
	Colors          []Attachment
	Depth           *Attachment
	ClearColor      bool
	ClearColorValue common.Vec4
	ClearDepth      bool
	ClearDepthValue float32
}

// TextureBinding binds a texture to the shader variable of the same name.
type TextureBinding struct {
	Name    string
	Texture Texture
}

// DrawCall is a single draw within a render pass. A nil Vertices buffer draws the
// fullscreen triangle (three vertices, no vertex buffer).
type DrawCall struct {
	Program  Program
	Vertices Buffer
	Indices  Buffer
	Uniforms Uniforms
	Textures []TextureBinding
	State    PipelineState
}

// DispatchCall is a compute dispatch of Groups workgroups.
type DispatchCall struct {
	Program  Program
	Groups   [3]int
	Uniforms Uniforms
	Textures []TextureBinding
	Images   []TextureBinding
}

// Device is a rendering backend.
type Device interface {
	// Type reports the implementation.
	Type() Type

	// Limits reports the device capabilities.
	Limits() Limits

	// CreateTexture allocates a texture. Contents start zeroed.
	//
	// Parameters:
	//   - desc: format, dimension, size and sampling of the texture
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the descriptor is invalid or allocation fails
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture replaces one layer of a texture. pixels is row-major with row 0 at the
	// top and holds Width*Height values; formats with fewer channels ignore the extras.
	WriteTexture(t Texture, layer int, pixels []common.Vec4) error

	// ReadTexture reads one layer back in the same layout WriteTexture takes.
	ReadTexture(t Texture, layer int) ([]common.Vec4, error)

	// ReleaseTexture frees a texture. Releasing twice is a no-op.
	ReleaseTexture(t Texture)

	// CreateBuffer allocates a vertex buffer of common.Vertex or an index buffer of uint32.
	CreateBuffer(usage BufferUsage, data []byte) (Buffer, error)

	// WriteBuffer replaces a buffer's contents.
	WriteBuffer(b Buffer, data []byte) error

	// ReleaseBuffer frees a buffer.
	ReleaseBuffer(b Buffer)

	// CreateProgram builds a program from its source.
	CreateProgram(src ProgramSource) (Program, error)

	// ReleaseProgram frees a program.
	ReleaseProgram(p Program)

	// BeginFrame starts recording a frame.
	BeginFrame() error

	// BeginRenderPass binds targets and applies the load operations.
	BeginRenderPass(desc RenderPassDescriptor) error

	// Draw records a draw into the active render pass.
	Draw(call DrawCall) error

	// EndRenderPass finishes the active render pass.
	EndRenderPass()

	// Dispatch runs a compute program outside of any render pass.
	Dispatch(call DispatchCall) error

	// EndFrame submits the recorded work.
	EndFrame() error

	// Present shows a texture on the device's surface, if it has one.
	Present(t Texture) error

	// Resize reconfigures the presentation surface.
	Resize(size common.Size)

	// Release frees every device resource.
	Release()
}
