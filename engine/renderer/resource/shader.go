package resource

import (
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
)

// Shader is a named program. A shader whose source failed to compile stays usable as a
// handle: it reports !Valid and draws with it are skipped.
type Shader struct {
	dev     backend.Device
	name    string
	program backend.Program
	source  backend.ProgramSource
	err     error
	warned  bool
}

// NewShader compiles src. Compile errors are logged, not returned.
func NewShader(dev backend.Device, src backend.ProgramSource) *Shader {
	s := &Shader{dev: dev, name: src.Name}
	s.compile(src)
	return s
}

func (s *Shader) compile(src backend.ProgramSource) {
	p, err := s.dev.CreateProgram(src)
	if err != nil {
		logger.Logger().Error("shader compile failed", "shader", s.name, "err", err)
		s.err = err
		return
	}
	s.program, s.source, s.err = p, src, nil
	s.warned = false
}

// Reload recompiles from a new source. On failure the previous program is kept, so a
// shader that never compiled stays invalid.
//
// Parameters:
//   - src: the replacement source
//
// Returns:
//   - error: the compile error, if any
func (s *Shader) Reload(src backend.ProgramSource) error {
	old := s.program
	p, err := s.dev.CreateProgram(src)
	if err != nil {
		logger.Logger().Error("shader reload failed", "shader", s.name, "err", err)
		if old == nil {
			s.err = err
		}
		return err
	}
	s.program, s.source, s.err = p, src, nil
	s.warned = false
	if old != nil {
		s.dev.ReleaseProgram(old)
	}
	logger.Logger().Info("shader reloaded", "shader", s.name)
	return nil
}

func (s *Shader) Name() string { return s.name }

// Program returns the compiled program, nil when compilation failed.
func (s *Shader) Program() backend.Program { return s.program }

// Valid reports whether the shader has a program to draw with.
func (s *Shader) Valid() bool { return s != nil && s.program != nil }

// Err returns the last compile error.
func (s *Shader) Err() error { return s.err }

// Source returns the source of the current program.
func (s *Shader) Source() backend.ProgramSource { return s.source }

// WarnInvalid logs, once until the next successful compile, that a draw was skipped.
func (s *Shader) WarnInvalid() {
	if s.warned {
		return
	}
	s.warned = true
	logger.Logger().Warn("skipping draws with invalid shader", "shader", s.name, "err", s.err)
}

func (s *Shader) Release() {
	if s.program != nil {
		s.dev.ReleaseProgram(s.program)
		s.program = nil
	}
}
