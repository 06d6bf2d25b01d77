// Package programs holds the renderer's built-in programs. Every program has a WGSL source,
// embedded and optionally overridden from a directory on disk, and CPU kernels with the same
// semantics for the software backend.
package programs

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/shader"
)

// Program names.
const (
	GBuffer          = "gbuffer"
	Emission         = "emission"
	PointLight       = "point_light"
	SpotLight        = "spot_light"
	DirectionalLight = "directional_light"
	ShadowDepth      = "shadow_depth"
	SSAO             = "ssao"
	SSDO             = "ssdo"
	Blur             = "blur"
	Combination      = "combination"
	TAA              = "taa"
	FXAA             = "fxaa"
	BloomDownsample  = "bloom_downsample"
	BloomUpsample    = "bloom_upsample"
	Resolution       = "resolution"
)

// ErrUnknownProgram is returned for names the library has no kernels for.
var ErrUnknownProgram = errors.New("programs: unknown program")

//go:embed wgsl
var embedded embed.FS

var kernels = map[string]*backend.CPUProgram{
	GBuffer:          gbufferProgram,
	Emission:         emissionProgram,
	PointLight:       pointLightProgram,
	SpotLight:        spotLightProgram,
	DirectionalLight: directionalLightProgram,
	ShadowDepth:      shadowDepthProgram,
	SSAO:             ssaoProgram,
	SSDO:             ssdoProgram,
	Blur:             blurProgram,
	Combination:      combinationProgram,
	TAA:              taaProgram,
	FXAA:             fxaaProgram,
	BloomDownsample:  bloomDownsampleProgram,
	BloomUpsample:    bloomUpsampleProgram,
	Resolution:       resolutionProgram,
}

// Library resolves program names to sources. It implements rendering.ProgramProvider.
type Library struct {
	mu  sync.RWMutex
	dir string
}

// Option configures a Library.
type Option func(*Library)

// WithDirectory makes the library prefer <dir>/<name>.wgsl and <dir>/include/<name>.wgsl
// over the embedded sources.
func WithDirectory(dir string) Option {
	return func(l *Library) {
		l.dir = dir
	}
}

// NewLibrary creates a library over the embedded sources.
func NewLibrary(opts ...Option) *Library {
	l := &Library{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Directory returns the override directory, "" when none is set.
func (l *Library) Directory() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dir
}

// SetDirectory changes the override directory.
func (l *Library) SetDirectory(dir string) {
	l.mu.Lock()
	l.dir = dir
	l.mu.Unlock()
}

// Names lists every program in sorted order.
func Names() []string {
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Program loads, preprocesses and reflects the named program.
//
// Parameters:
//   - name: one of the program name constants
//
// Returns:
//   - backend.ProgramSource: the parsed WGSL together with the CPU kernels
//   - error: ErrUnknownProgram, or an error reading or parsing the source
func (l *Library) Program(name string) (backend.ProgramSource, error) {
	cpu, ok := kernels[name]
	if !ok {
		return backend.ProgramSource{}, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
	}
	src, err := l.read(name + ".wgsl")
	if err != nil {
		return backend.ProgramSource{}, err
	}
	sh, err := shader.NewShader(name, src, shader.WithIncludes(l.include))
	if err != nil {
		return backend.ProgramSource{}, err
	}
	return backend.ProgramSource{Name: name, Shader: sh, CPU: cpu}, nil
}

// Affected maps a changed file below the override directory to the programs that use it:
// the program itself for a program source, every program including it for an include.
func (l *Library) Affected(file string) []string {
	base := strings.TrimSuffix(filepath.Base(file), ".wgsl")
	if filepath.Ext(file) != ".wgsl" {
		return nil
	}
	if filepath.Base(filepath.Dir(file)) != "include" {
		if _, ok := kernels[base]; ok {
			return []string{base}
		}
		return nil
	}
	var out []string
	for _, name := range Names() {
		src, err := l.Program(name)
		if err != nil {
			continue
		}
		if slices.Contains(src.Shader.Included(), base) {
			out = append(out, name)
		}
	}
	return out
}

func (l *Library) include(name string) (string, bool) {
	src, err := l.read(path.Join("include", name+".wgsl"))
	if err != nil {
		return "", false
	}
	return src, true
}

func (l *Library) read(rel string) (string, error) {
	if dir := l.Directory(); dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("programs: %w", err)
		}
		logger.Logger().Debug("program source not overridden", "file", rel, "dir", dir)
	}
	data, err := embedded.ReadFile(path.Join("wgsl", rel))
	if err != nil {
		return "", fmt.Errorf("programs: %s: %w", rel, err)
	}
	return string(data), nil
}
