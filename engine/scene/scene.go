// Package scene holds the ordered component collection the renderer draws each frame,
// together with the camera it is viewed from.
package scene

import (
	"slices"
	"sync"

	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
)

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name       string
	active     bool
	camera     camera.Camera
	components []*component.Component
}

// Scene is an ordered collection of components. Order is insertion order and is the order
// render tasks see components in, so frames are reproducible for a fixed scene.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently rendered.
	Active() bool

	// SetActive sets whether this scene is rendered.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Add appends components to the scene. Adding a component that is already present
	// is a no-op.
	//
	// Parameters:
	//   - components: the components to add, in order
	Add(components ...*component.Component)

	// Remove removes c from the scene. Components owned by c stay in the scene with
	// their owner cleared.
	//
	// Returns:
	//   - bool: false when c was not in the scene
	Remove(c *component.Component) bool

	// Get returns the first component named name, or nil.
	Get(name string) *component.Component

	// Count returns the number of components.
	Count() int

	// GetAllComponents returns a snapshot of every component in scene order.
	GetAllComponents() []*component.Component

	// SnapshotTransforms records every component's world transform as its previous one.
	// The renderer calls it once a frame has been drawn so the next frame can derive
	// motion vectors.
	SnapshotTransforms()

	// Clear removes every component.
	Clear()
}

var _ Scene = &scene{}

// NewScene creates a new Scene with the provided options.
// Defaults to an active, empty scene with a default camera.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:     &sync.RWMutex{},
		active: true,
	}
	for _, option := range options {
		option(s)
	}
	if s.camera == nil {
		s.camera = camera.NewCamera()
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) Add(components ...*component.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(components...)
}

func (s *scene) add(components ...*component.Component) {
	for _, c := range components {
		if c == nil || slices.Contains(s.components, c) {
			continue
		}
		s.components = append(s.components, c)
	}
}

func (s *scene) Remove(c *component.Component) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.components, c)
	if i < 0 {
		return false
	}
	s.components = slices.Delete(s.components, i, i+1)
	for _, other := range s.components {
		if other.Owner() == c {
			other.SetOwner(nil)
		}
	}
	logger.Logger().Debug("component removed", "scene", s.name, "component", c.Name)
	return true
}

func (s *scene) Get(name string) *component.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.components)
}

func (s *scene) GetAllComponents() []*component.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.components)
}

func (s *scene) SnapshotTransforms() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.components {
		c.SnapshotTransform()
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = nil
}
