// Package engine drives the frame loop: it polls the window, advances game logic at a fixed
// tick rate and renders the active scene through the renderer it was given.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/profiler"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer"
	"github.com/KlishchD/EdEngine-sub000/engine/scene"
	"github.com/KlishchD/EdEngine-sub000/engine/window"
)

var (
	// ErrNoRenderer is returned by Run and Step when the engine was built without a renderer.
	ErrNoRenderer = errors.New("engine: no renderer")
	// ErrNoActiveScene is returned by Step when no registered scene is active.
	ErrNoActiveScene = errors.New("engine: no active scene")
)

// engine implements the Engine interface.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	mu     sync.RWMutex
	scenes map[int]scene.Scene

	renderFrameLimit time.Duration
	frameBudget      uint64
	frames           uint64
	lastRender       time.Time
	err              error
	controls         bool
}

// Engine is the main entry point for the engine. It owns no GPU state itself: the window and
// renderer are built by the caller and handed in with options.
type Engine interface {
	// Window returns the window, nil for a headless engine.
	Window() window.Window

	Renderer() renderer.Renderer

	// EnableProfiler logs frame timings at debug level.
	EnableProfiler()

	// DisableProfiler stops frame timing output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second. Values <= 0 mean 60.
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, on the tick goroutine.
	// Use it for game logic; it must not touch the renderer.
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame, on the render
	// thread.
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit caps the render loop in frames per second. 0 uncaps it.
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key. The active scene with the lowest
	// key is the one rendered.
	AddScene(key int, s scene.Scene)

	RemoveScene(key int)

	// Scene returns the scene registered at key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// ActiveScene returns the scene the next frame renders, or nil.
	ActiveScene() scene.Scene

	// Step renders one frame of the active scene.
	//
	// Parameters:
	//   - dt: seconds since the previous frame
	//
	// Returns:
	//   - error: ErrNoRenderer, ErrNoActiveScene or a renderer failure
	Step(dt float32) error

	// Frames returns the number of frames rendered.
	Frames() uint64

	// Run renders until the window closes, Quit is called, the frame budget is spent or a
	// frame fails. Without a window frames are rendered back to back on the calling
	// goroutine.
	//
	// Returns:
	//   - error: the error that stopped rendering, nil on a normal shutdown
	Run() error

	// Quit signals the engine to stop. Safe to call multiple times and from any goroutine.
	Quit()
}

// NewEngine creates a new Engine with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window != nil {
		e.bindWindow()
	}
	return e
}

func (e *engine) Window() window.Window       { return e.window }
func (e *engine) Renderer() renderer.Renderer { return e.renderer }
func (e *engine) Frames() uint64              { return e.frames }

func (e *engine) Run() error {
	if e.renderer == nil {
		return ErrNoRenderer
	}
	e.running.Store(true)
	e.lastRender = time.Now()
	e.handle()

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			if !e.renderFrame() {
				_ = e.window.Close()
			}
		})
		e.window.ProcessMessages()
	} else {
		for e.renderFrame() {
		}
	}

	e.signalQuit()
	e.wg.Wait()
	e.running.Store(false)
	logger.Logger().Info("engine stopped", "frames", e.frames)
	return e.err
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel exactly once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) quitting() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

// handle launches the tick goroutine.
func (e *engine) handle() {
	e.wg.Add(1)
	go e.handleEngine()
}

// handleEngine runs the fixed-rate tick loop and applies tick rate changes sent through
// tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case rate := <-e.tickRateChannel:
			ticker.Reset(rate)
		}
	}
}

// renderFrame renders one frame and reports whether the loop should continue. A panic in
// the renderer stops the engine instead of crashing the process.
func (e *engine) renderFrame() (more bool) {
	if e.quitting() {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			e.err = fmt.Errorf("engine: render panic: %v", r)
			logger.Logger().Error("render loop recovered from panic", "panic", r)
			e.signalQuit()
			more = false
		}
	}()

	start := time.Now()
	dt := float32(start.Sub(e.lastRender).Seconds())
	e.lastRender = start

	if err := e.Step(dt); err != nil {
		e.err = err
		e.signalQuit()
		return false
	}
	if e.frameBudget > 0 && e.frames >= e.frameBudget {
		e.signalQuit()
		return false
	}
	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return true
}

func (e *engine) Step(dt float32) error {
	if e.renderer == nil {
		return ErrNoRenderer
	}
	s := e.ActiveScene()
	if s == nil {
		return ErrNoActiveScene
	}
	cam := s.Camera()
	cam.Update()

	var err error
	e.profiler.Measure("Frame", func() { err = e.renderer.Update(dt, s, cam) })
	if err != nil {
		return fmt.Errorf("failed to render scene %q: %w", s.Name(), err)
	}
	e.frames++

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return nil
}

func (e *engine) EnableProfiler()  { e.profilingEnabled = true }
func (e *engine) DisableProfiler() { e.profilingEnabled = false }

// SetTickRate takes effect immediately when the engine is running.
func (e *engine) SetTickRate(fps float64) {
	rate := tickInterval(fps)
	if !e.running.Load() {
		e.engineTickRate = rate
		return
	}
	// Replace a pending update that the tick loop has not consumed yet.
	select {
	case e.tickRateChannel <- rate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- rate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32))   { e.tickCallback = callback }
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) { e.renderCallback = callback }

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameInterval(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) ActiveScene() scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			return s
		}
	}
	return nil
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
