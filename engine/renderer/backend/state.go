package backend

// BlendFactor is a source or destination blend weight.
type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendSrcColor
	BlendDstColor
)

// BlendState configures additive-style color blending. Blending always uses the add operation.
type BlendState struct {
	Enabled bool
	Src     BlendFactor
	Dst     BlendFactor
}

// CompareFunc is a depth or shadow comparison.
type CompareFunc int

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareEqual
	CompareNotEqual
	CompareAlways
	CompareNever
)

// Test evaluates the comparison of a incoming value against a stored one.
func (c CompareFunc) Test(incoming, stored float32) bool {
	switch c {
	case CompareLess:
		return incoming < stored
	case CompareLessEqual:
		return incoming <= stored
	case CompareGreater:
		return incoming > stored
	case CompareGreaterEqual:
		return incoming >= stored
	case CompareEqual:
		return incoming == stored
	case CompareNotEqual:
		return incoming != stored
	case CompareAlways:
		return true
	}
	return false
}

// DepthState configures the depth test.
type DepthState struct {
	Test    bool
	Compare CompareFunc
	Write   bool
}

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// PipelineState is the fixed-function state of a draw.
type PipelineState struct {
	Blend     BlendState
	Depth     DepthState
	Cull      CullMode
	DepthBias float32
}
