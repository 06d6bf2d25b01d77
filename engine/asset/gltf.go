package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KlishchD/EdEngine-sub000/common"
)

var (
	errGLTFVersion    = errors.New("asset: glTF version must be 2.x")
	errGLBMagic       = errors.New("asset: bad GLB magic")
	errGLBVersion     = errors.New("asset: GLB version must be 2")
	errGLBMissingJSON = errors.New("asset: GLB has no JSON chunk")
	errBufferSize     = errors.New("asset: glTF buffer shorter than its byteLength")
)

const (
	glbMagic     = 0x46546C67
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942

	gltfModeTriangles = 4

	gltfUnsignedByte  = 5121
	gltfUnsignedShort = 5123
	gltfUnsignedInt   = 5125
	gltfFloat         = 5126
)

type gltfDocument struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	Scene       *int             `json:"scene,omitempty"`
	Scenes      []gltfScene      `json:"scenes,omitempty"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
	Materials   []gltfMaterial   `json:"materials,omitempty"`
}

type gltfScene struct {
	Nodes []int `json:"nodes,omitempty"`
}

type gltfNode struct {
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

type gltfAccessor struct {
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
	Sparse        *struct {
		Count int `json:"count"`
	} `json:"sparse,omitempty"`
}

type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
	data       []byte
}

type gltfMaterial struct {
	Name string `json:"name,omitempty"`
	PBR  *struct {
		BaseColorFactor *[4]float32 `json:"baseColorFactor,omitempty"`
		MetallicFactor  *float32    `json:"metallicFactor,omitempty"`
		RoughnessFactor *float32    `json:"roughnessFactor,omitempty"`
	} `json:"pbrMetallicRoughness,omitempty"`
	EmissiveFactor *[3]float32 `json:"emissiveFactor,omitempty"`
}

// gltfFile is a parsed glTF or GLB file with its buffers loaded.
type gltfFile struct {
	doc     gltfDocument
	baseDir string
}

// readGLTF parses a .gltf (JSON with external or data URI buffers) or .glb file.
func readGLTF(path string) (*gltfFile, error) {
	data, err := os.ReadFile(path)
	if        err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic)
	f, err := parseGLTF(bytes.NewReader(data), isGLB, filepath.Dir(path))
	if     err != nil {
		return nil, fmt.Errorf("asset: %s: %w", path, err)
	}
	return f, nil
}

func parseGLTF(r io.Reader, isGLB bool, baseDir string) (*gltfFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f := &gltfFile{baseDir: baseDir}
	jsonData, bin := data, []byte(nil)
	if isGLB {
		if jsonData, bin, err = splitGLB(data); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(jsonData, &f.doc); err != nil {
		return nil, fmt.Errorf("glTF JSON: %w", err)
	}
	if !strings.HasPrefix(f.doc.Asset.Version, "2.") {
		return nil, errGLTFVersion
	}
	for i := range f.doc.Buffers {
		if err := f.loadBuffer(i, bin); err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
	}
	return f, nil
}

func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	r := bytes.NewReader(data)
	var header struct{ Magic, Version, Length uint32 }
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, nil, errGLBMagic
	}
	if header.Version != glbVersion {
		return nil, nil, errGLBVersion
	}
	for {
		var chunk struct{ Length, Type uint32 }
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("GLB chunk header: %w", err)
		}
		body := make([]byte, chunk.Length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, nil, fmt.Errorf("GLB chunk: %w", err)
		}
		switch chunk.Type {
		case glbChunkJSON:
			jsonChunk = body
		case glbChunkBIN:
			binChunk = body
		}
	}
	if jsonChunk == nil {
		return nil, nil, errGLBMissingJSON
	}
	return jsonChunk, binChunk, nil
}

func (f *gltfFile) loadBuffer(i int, bin []byte) error {
	buf := &f.doc.Buffers[i]
	switch {
	case buf.URI == "" && i == 0 && bin != nil:
		buf.data = bin
	case buf.URI == "":
		return errors.New("no URI and no GLB binary chunk")
	case strings.HasPrefix(buf.URI, "data:"):
		comma := strings.IndexByte(buf.URI, ',')
		if comma < 0 || !strings.Contains(buf.URI[:comma], "base64") {
			return fmt.Errorf("unsupported data URI")
		}
		data, err := base64.StdEncoding.DecodeString(buf.URI[comma+1:])
		if err != nil {
			return fmt.Errorf("data URI: %w", err)
		}
		buf.data = data
	default:
		data, err := os.ReadFile(filepath.Join(f.baseDir, buf.URI))
		if err != nil {
			return err
		}
		buf.data = data
	}
	if len(buf.data) < buf.ByteLength {
		return errBufferSize
	}
	return nil
}

// accessor returns the tightly packed bytes of an accessor along with its element count.
func (f *gltfFile) accessor(index int, wantType string, components ...int) ([]byte, *gltfAccessor, error) {
	if index < 0 || index >= len(f.doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d out of range", index)
	}
	acc := &f.doc.Accessors[index]
	if acc.Type != wantType {
		return nil, nil, fmt.Errorf("accessor %d is %s, want %s", index, acc.Type, wantType)
	}
	known := false
	for _, c := range components {
		known = known || acc.ComponentType == c
	}
	if !known {
		return nil, nil, fmt.Errorf("accessor %d has unsupported component type %d", index, acc.ComponentType)
	}
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d is sparse", index)
	}
	if acc.BufferView == nil || *acc.BufferView >= len(f.doc.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d has no buffer view", index)
	}

	view := &f.doc.BufferViews[*acc.BufferView]
	buf := f.doc.Buffers[view.Buffer].data
	elem := componentSize(acc.ComponentType) * typeComponents(acc.Type)
	stride := elem
	if view.ByteStride != nil && *view.ByteStride > 0 {
		stride = *view.ByteStride
	}
	start := view.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && start+(acc.Count-1)*stride+elem > len(buf) {
		return nil, nil, fmt.Errorf("accessor %d exceeds its buffer", index)
	}
	out := make([]byte, acc.Count*elem)
	for i := range acc.Count {
		copy(out[i*elem:(i+1)*elem], buf[start+i*stride:])
	}
	return out, acc, nil
}

func (f *gltfFile) vec3s(index int) ([]common.Vec3, error) {
	data, _, err := f.accessor(index, "VEC3", gltfFloat)
	if err != nil {
		return nil, err
	}
	return common.BytesToSlice[common.Vec3](data), nil
}

func (f *gltfFile) vec2s(index int) ([]common.Vec2, error) {
	data, _, err := f.accessor(index, "VEC2", gltfFloat)
	if err != nil {
		return nil, err
	}
	return common.BytesToSlice[common.Vec2](data), nil
}

func (f *gltfFile) indices(index int) ([]uint32, error) {
	data, acc, err := f.accessor(index, "SCALAR", gltfUnsignedByte, gltfUnsignedShort, gltfUnsignedInt)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, acc.Count)
	for i := range out {
		switch acc.ComponentType {
		case gltfUnsignedByte:
			out[i] = uint32(data[i])
		case gltfUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		default:
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	}
	return out, nil
}

func componentSize(t int) int {
	switch t {
	case 5120, gltfUnsignedByte:
		return 1
	case 5122, gltfUnsignedShort:
		return 2
	}
	return 4
}

func typeComponents(t string) int {
	switch t {
	case "SCALAR":
		return 1
	case "VEC2":
		return 2
	case "VEC3":
		return 3
	case "VEC4", "MAT2":
		return 4
	case "MAT3":
		return 9
	case "MAT4":
		return 16
	}
	return 0
}

// Mesh flattens every triangle primitive reachable from the default scene into one mesh in
// the file's root space. Files without scenes contribute every mesh untransformed.
func (f *gltfFile) Mesh() (MeshData, error) {
	var out MeshData
	add := func(meshIndex int, world common.Mat4) error {
		if meshIndex < 0 || meshIndex >= len(f.doc.Meshes) {
			return fmt.Errorf("mesh %d out of range", meshIndex)
		}
		for p := range f.doc.Meshes[meshIndex].Primitives {
			if err := f.appendPrimitive(&out, &f.doc.Meshes[meshIndex].Primitives[p], world); err != nil {
				return fmt.Errorf("mesh %d primitive %d: %w", meshIndex, p, err)
			}
		}
		return nil
	}

	roots := f.rootNodes()
	if roots == nil {
		for i := range f.doc.Meshes {
			if err := add(i, common.Identity()); err != nil {
				return MeshData{}, err
			}
		}
	}
	var visit func(node int, parent common.Mat4, depth int) error
	visit = func(node int, parent common.Mat4, depth int) error {
		if node < 0 || node >= len(f.doc.Nodes) || depth > len(f.doc.Nodes) {
			return fmt.Errorf("node %d out of range or cyclic", node)
		}
		n := &f.doc.Nodes[node]
		world := parent.Mul(n.local())
		if n.Mesh != nil {
			if err := add(*n.Mesh, world); err != nil {
				return err
			}
		}
		for _, c := range n.Children {
			if err := visit(c, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := visit(r, common.Identity(), 0); err != nil {
			return MeshData{}, err
		}
	}
	if len(out.Vertices) == 0 {
		return MeshData{}, errors.New("no triangle geometry")
	}
	return out, nil
}

func (f *gltfFile) rootNodes() []int {
	if len(f.doc.Scenes) == 0 {
		return nil
	}
	scene := 0
	if f.doc.Scene != nil && *f.doc.Scene < len(f.doc.Scenes) {
		scene = *f.doc.Scene
	}
	return f.doc.Scenes[scene].Nodes
}

func (f *gltfFile) appendPrimitive(out *MeshData, prim *gltfPrimitive, world common.Mat4) error {
	if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
		return fmt.Errorf("primitive mode %d is not triangles", *prim.Mode)
	}
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return errors.New("primitive has no POSITION")
	}
	positions, err := f.vec3s(posIndex)
	if err != nil {
		return err
	}
	vertices := make([]common.Vertex, len(positions))
	for i, p := range positions {
		vertices[i].Position = p
	}

	hasNormals := false
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := f.vec3s(idx)
		if err != nil {
			return err
		}
		for i := range min(len(normals), len(vertices)) {
			vertices[i].Normal = normals[i]
		}
		hasNormals = true
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := f.vec2s(idx)
		if err != nil {
			return err
		}
		for i := range min(len(uvs), len(vertices)) {
			vertices[i].UV = uvs[i]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = f.indices(*prim.Indices); err != nil {
			return err
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if !hasNormals {
		generateNormals(vertices, indices)
	}

	normalMatrix := world.Inverse().Transpose()
	for i := range vertices {
		vertices[i].Position = world.TransformPoint(vertices[i].Position)
		vertices[i].Normal = normalMatrix.TransformDirection(vertices[i].Normal).Normalize()
	}
	base := uint32(len(out.Vertices))
	out.Vertices = append(out.Vertices, vertices...)
	for _, i := range indices {
		out.Indices = append(out.Indices, base+i)
	}
	return nil
}

// local composes the node's matrix, or its translation, rotation and scale.
func (n *gltfNode) local() common.Mat4 {
	if n.Matrix != nil {
		return common.Mat4(*n.Matrix)
	}
	m := common.Identity()
	if n.Translation != nil {
		m = common.Translate(common.Vec3(*n.Translation))
	}
	if n.Rotation != nil {
		m = m.Mul(quaternionMatrix(*n.Rotation))
	}
	if n.Scale != nil {
		m = m.Mul(common.ScaleMatrix(common.Vec3(*n.Scale)))
	}
	return m
}

// quaternionMatrix converts a unit quaternion (x, y, z, w) to a rotation matrix.
func quaternionMatrix(q [4]float32) common.Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return common.Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// Material returns the factors of the first material used by the file's meshes.
func (f *gltfFile) Material() MaterialDescriptor {
	desc := DefaultMaterial()
	index := -1
	for _, m := range f.doc.Meshes {
		for _, p := range m.Primitives {
			if p.Material != nil && index < 0 {
				index = *p.Material
			}
		}
	}
	if index < 0 || index >= len(f.doc.Materials) {
		return desc
	}
	mat := f.doc.Materials[index]
	// glTF defaults differ from ours.
	desc.BaseColor = ColorValue{1, 1, 1, 1}
	desc.Roughness, desc.Metallic = 1, 1
	if mat.PBR != nil {
		if mat.PBR.BaseColorFactor != nil {
			desc.BaseColor = ColorValue(*mat.PBR.BaseColorFactor)
		}
		if mat.PBR.MetallicFactor != nil {
			desc.Metallic = *mat.PBR.MetallicFactor
		}
		if mat.PBR.RoughnessFactor != nil {
			desc.Roughness = *mat.PBR.RoughnessFactor
		}
	}
	if e := mat.EmissiveFactor; e != nil {
		desc.Emission = max(e[0], e[1], e[2])
	}
	return desc
}
