package asset

// ManagerBuilderOption is a functional option for configuring a Manager via NewManager.
type ManagerBuilderOption func(*manager)

// WithRoot is an option builder that sets the directory relative asset ids resolve against.
//
// Parameters:
//   - dir: the asset root directory
//
// Returns:
//   - ManagerBuilderOption: a function that applies the root option to a manager
func WithRoot(dir string) ManagerBuilderOption {
	return func(m *manager) {
		m.root = dir
	}
}

// WithMaxTextureSize is an option builder that limits the edge length of imported textures.
// Larger images are scaled down on load; zero disables the limit.
//
// Parameters:
//   - edge: the maximum width or height in pixels
//
// Returns:
//   - ManagerBuilderOption: a function that applies the size option to a manager
func WithMaxTextureSize(edge int) ManagerBuilderOption {
	return func(m *manager) {
		m.maxTexture = edge
	}
}
