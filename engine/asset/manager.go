package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
)

// Manager loads assets on first request and serves them from its cache afterwards.
//
// Ids are either built-in names (see CubeMesh, WhiteTexture, DefaultMaterialID, ...) or paths
// relative to the manager root. Meshes load from .gltf and .glb files, textures from png,
// jpeg, bmp, tiff and webp images, and materials from .yaml files or the first material of a
// glTF file.
type Manager interface {
	// LoadMesh returns the mesh with the given id, adding a reference.
	//
	// Parameters:
	//   - id: a built-in mesh id or a glTF path
	//
	// Returns:
	//   - *Mesh: the cached mesh
	//   - error: ErrNotFound when the file does not exist, or the decode/upload error
	LoadMesh(id string) (*Mesh, error)

	// LoadTexture returns the texture with the given id, adding a reference.
	LoadTexture(id string) (*Texture, error)

	// LoadMaterial returns the material with the given id, adding a reference. The
	// material's albedo map is loaded with it.
	LoadMaterial(id string) (*Material, error)

	// AddMesh uploads generated geometry under id. Adding an id that is already cached
	// returns the cached mesh with an extra reference.
	AddMesh(id string, data MeshData) (*Mesh, error)

	// AddMaterial creates a material from a descriptor under id.
	AddMaterial(id string, desc MaterialDescriptor) (*Material, error)

	// Release drops one reference. The asset is freed and evicted when none remain.
	Release(a Asset)

	// Loaded reports the number of cached assets of a kind.
	Loaded(kind Kind) int

	// Root is the directory relative ids resolve against.
	Root() string

	// ReleaseAll frees every cached asset regardless of references.
	ReleaseAll()
}

type manager struct {
	ctx        *rendering.Context
	root       string
	maxTexture int

	mu        sync.Mutex
	meshes    map[string]*Mesh
	textures  map[string]*Texture
	materials map[string]*Material
}

var _ Manager = &manager{}

// NewManager creates a manager uploading through ctx.
//
// Parameters:
//   - ctx: the rendering context GPU resources are created with
//   - options: ManagerBuilderOption values
//
// Returns:
//   - Manager: the asset manager
func NewManager(ctx *rendering.Context, options ...ManagerBuilderOption) Manager {
	m := &manager{
		ctx:        ctx,
		maxTexture: DefaultMaxTextureSize,
		meshes:     make(map[string]*Mesh),
		textures:   make(map[string]*Texture),
		materials:  make(map[string]*Material),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *manager) Root() string { return m.root }

func (m *manager) path(id string) string {
	if filepath.IsAbs(id) || m.root == "" {
		return id
	}
	return filepath.Join(m.root, id)
}

func (m *manager) LoadMesh(id string) (*Mesh, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mesh, ok := m.meshes[id]; ok {
		mesh.refs++
		return mesh, nil
	}

	data, ok := builtinMesh(id)
	if !ok {
		switch ext := strings.ToLower(filepath.Ext(id)); ext {
		case ".gltf", ".glb":
			f, err := readGLTF(m.path(id))
			if err != nil {
				return nil, err
			}
			if data, err = f.Mesh(); err != nil {
				return nil, fmt.Errorf("asset: mesh %s: %w", id, err)
			}
		default:
			if strings.HasPrefix(id, "builtin:") {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return nil, fmt.Errorf("asset: mesh %s: unsupported extension %q", id, ext)
		}
	}
	return m.uploadMesh(id, data)
}

func (m *manager) AddMesh(id string, data MeshData) (*Mesh, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mesh, ok := m.meshes[id]; ok {
		mesh.refs++
		return mesh, nil
	}
	return m.uploadMesh(id, data)
}

func (m *manager) uploadMesh(id string, data MeshData) (*Mesh, error) {
	if len(data.Vertices) == 0 {
		return nil, fmt.Errorf("asset: mesh %s has no vertices", id)
	}
	vb, err := m.ctx.CreateVertexBuffer(data.Vertices)
	if err != nil {
		return nil, fmt.Errorf("asset: mesh %s: %w", id, err)
	}
	var ib *resource.IndexBuffer
	if len(data.Indices) > 0 {
		if ib, err = m.ctx.CreateIndexBuffer(data.Indices); err != nil {
			vb.Release()
			return nil, fmt.Errorf("asset: mesh %s: %w", id, err)
		}
	}
	mesh := &Mesh{header: header{id: id, refs: 1}, Vertices: vb, Indices: ib, Bounds: BoundsOf(data.Vertices)}
	m.meshes[id] = mesh
	logger.Logger().Debug("mesh loaded", "id", id, "vertices", len(data.Vertices), "indices", len(data.Indices))
	return mesh, nil
}

func (m *manager) LoadTexture(id string) (*Texture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadTexture(id)
}

func (m *manager) loadTexture(id string) (*Texture, error) {
	if tex, ok := m.textures[id]; ok {
		tex.refs++
		return tex, nil
	}

	var img Image
	switch id {
	case WhiteTexture:
		img = Image{Size: common.Size{Width: 1, Height: 1}, Pixels: []common.Vec4{{1, 1, 1, 1}}}
	case BlackTexture:
		img = Image{Size: common.Size{Width: 1, Height: 1}, Pixels: []common.Vec4{{0, 0, 0, 1}}}
	default:
		if strings.HasPrefix(id, "builtin:") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var err error
		if img, err = ReadImage(m.path(id), m.maxTexture); err != nil {
			return nil, err
		}
	}

	t, err := resource.ImportTexture(m.ctx.Device(), id, backend.FormatRGBA8Srgb, img.Size, img.Pixels, resource.ImportParameters{
		Filter: backend.FilterLinear,
		Wrap:   backend.WrapRepeat,
	})
	if err != nil {
		return nil, fmt.Errorf("asset: texture %s: %w", id, err)
	}
	tex := &Texture{header: header{id: id, refs: 1}, Texture: t}
	m.textures[id] = tex
	logger.Logger().Debug("texture loaded", "id", id, "size", img.Size.String())
	return tex, nil
}

func (m *manager) LoadMaterial(id string) (*Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mat, ok := m.materials[id]; ok {
		mat.refs++
		return mat, nil
	}

	var desc MaterialDescriptor
	switch ext := strings.ToLower(filepath.Ext(id)); {
	case id == DefaultMaterialID:
		desc = DefaultMaterial()
	case strings.HasPrefix(id, "builtin:"):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case ext == ".yaml" || ext == ".yml":
		var err error
		if desc, err = ReadMaterialDescriptor(m.path(id)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return nil, fmt.Errorf("asset: material %s: %w", id, err)
		}
		// Texture ids inside a material file are relative to the file.
		if desc.AlbedoMap != "" && !strings.HasPrefix(desc.AlbedoMap, "builtin:") && !filepath.IsAbs(desc.AlbedoMap) {
			desc.AlbedoMap = filepath.Join(filepath.Dir(id), desc.AlbedoMap)
		}
	case ext == ".gltf" || ext == ".glb":
		f, err := readGLTF(m.path(id))
		if err != nil {
			return nil, err
		}
		desc = f.Material()
	default:
		return nil, fmt.Errorf("asset: material %s: unsupported extension %q", id, ext)
	}
	return m.createMaterial(id, desc)
}

func (m *manager) AddMaterial(id string, desc MaterialDescriptor) (*Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mat, ok := m.materials[id]; ok {
		mat.refs++
		return mat, nil
	}
	return m.createMaterial(id, desc)
}

func (m *manager) createMaterial(id string, desc MaterialDescriptor) (*Material, error) {
	mat := &Material{
		header:    header{id: id, refs: 1},
		BaseColor: common.Vec4(desc.BaseColor),
		Roughness: desc.Roughness,
		Metallic:  desc.Metallic,
		Emission:  desc.Emission,
	}
	if desc.AlbedoMap != "" {
		tex, err := m.loadTexture(desc.AlbedoMap)
		if err != nil {
			return nil, fmt.Errorf("asset: material %s: %w", id, err)
		}
		mat.AlbedoMap = tex
	}
	m.materials[id] = mat
	return mat, nil
}

func (m *manager) Release(a Asset) {
	if a == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(a)
}

func (m *manager) release(a Asset) {
	h := a.base()
	if h.refs <= 0 {
		return
	}
	h.refs--
	if h.refs > 0 {
		return
	}
	switch x := a.(type) {
	case *Mesh:
		x.release()
		delete(m.meshes, x.id)
	case *Texture:
		x.release()
		delete(m.textures, x.id)
	case *Material:
		if x.AlbedoMap != nil {
			m.release(x.AlbedoMap)
		}
		delete(m.materials, x.id)
	}
}

func (m *manager) Loaded(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case KindMesh:
		return len(m.meshes)
	case KindTexture:
		return len(m.textures)
	case KindMaterial:
		return len(m.materials)
	}
	return 0
}

func (m *manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mesh := range m.meshes {
		mesh.release()
		mesh.refs = 0
	}
	for _, tex := range m.textures {
		tex.release()
		tex.refs = 0
	}
	for _, mat := range m.materials {
		mat.refs = 0
	}
	clear(m.meshes)
	clear(m.textures)
	clear(m.materials)
}
