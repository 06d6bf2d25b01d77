package shader

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// ResourceKind classifies a @group/@binding declaration.
type ResourceKind int

const (
	ResourceUniformBuffer ResourceKind = iota
	ResourceStorageBuffer
	ResourceTexture
	ResourceDepthTexture
	ResourceSampler
	ResourceComparisonSampler
	ResourceStorageTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUniformBuffer:
		return "uniform"
	case ResourceStorageBuffer:
		return "storage"
	case ResourceTexture:
		return "texture"
	case ResourceDepthTexture:
		return "depth_texture"
	case ResourceSampler:
		return "sampler"
	case ResourceComparisonSampler:
		return "comparison_sampler"
	case ResourceStorageTexture:
		return "storage_texture"
	}
	return "unknown"
}

// Binding is one reflected resource declaration such as
// `@group(1) @binding(0) var albedo: texture_2d<f32>;`.
type Binding struct {
	Group   int
	Binding int
	Name    string
	Type    string
	Kind    ResourceKind

	// ReadWrite is set for storage buffers declared read_write.
	ReadWrite bool
	// ViewDimension is "2d", "2d_array", "cube", ... for textures.
	ViewDimension string
	// SampleType is the texel scalar type ("f32", "i32", "u32") or "depth".
	SampleType string
	// TexelFormat and Access describe storage textures.
	TexelFormat string
	Access      string
	// Size is the minimum binding size of buffers, 0 when unknown.
	Size uint64
	// Stages is the set of stages that declare the binding.
	Stages StageMask
}

// UniformField is the location of one named value inside a uniform buffer. Nested struct
// members are addressed with dotted names ("light.position") and array elements share one
// field with Count > 0 and Stride set.
type UniformField struct {
	Offset uint64
	Size   uint64
	Type   string
	Count  int
	Stride uint64
}

// UniformLayout describes the struct bound as the program's uniform buffer.
type UniformLayout struct {
	Group   int
	Binding int
	Struct  string
	Size    uint64
	Fields  map[string]UniformField
}
