package asset

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/software"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, options ...ManagerBuilderOption) Manager {
	t.Helper()
	ctx := rendering.NewContext(software.New(software.WithWorkerCount(1)), nil)
	return NewManager(ctx, options...)
}

func TestPrimitivesWindOutward(t *testing.T) {
	for name, data := range map[string]MeshData{
		"cube":   Cube(),
		"sphere": Sphere(8, 6),
		"plane":  Plane(),
		"cone":   Cone(8),
	} {
		t.Run(name, func(t *testing.T) {
			require.Zero(t, len(data.Indices)%3)
			center := BoundsOf(data.Vertices).Center()
			if name == "plane" {
				center = common.Vec3{0, -1, 0}
			}
			for i := 0; i < len(data.Indices); i += 3 {
				p0 := data.Vertices[data.Indices[i]].Position
				p1 := data.Vertices[data.Indices[i+1]].Position
				p2 := data.Vertices[data.Indices[i+2]].Position
				face := p1.Sub(p0).Cross(p2.Sub(p0))
				if face.Length() < 1e-6 {
					continue
				}
				mid := p0.Add(p1).Add(p2).Scale(1.0 / 3)
				assert.Greater(t, face.Dot(mid.Sub(center)), float32(0), "triangle %d faces inward", i/3)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	b := BoundsOf(Cube().Vertices)
	assert.Equal(t, common.Vec3{-0.5, -0.5, -0.5}, b.Min)
	assert.Equal(t, common.Vec3{0.5, 0.5, 0.5}, b.Max)
	assert.InDelta(t, 0.866, b.Radius(), 1e-3)
}

func TestManagerCachesAndCountsReferences(t *testing.T) {
	m := newTestManager(t)

	a, err := m.LoadMesh(CubeMesh)
	require.NoError(t, err)
	b, err := m.LoadMesh(CubeMesh)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 2, a.References())
	assert.Equal(t, 24, a.Vertices.Count())
	assert.Equal(t, 36, a.Indices.Count())

	m.Release(a)
	assert.Equal(t, 1, m.Loaded(KindMesh))
	m.Release(b)
	assert.Equal(t, 0, m.Loaded(KindMesh))
	assert.Nil(t, a.Vertices.Handle())

	c, err := m.LoadMesh(CubeMesh)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestManagerUnknownIDs(t *testing.T) {
	m := newTestManager(t, WithRoot(t.TempDir()))

	_, err := m.LoadMesh("builtin:teapot")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.LoadMesh("missing.glb")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.LoadTexture("missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.LoadMaterial("missing.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.LoadMesh("mesh.obj")
	assert.Error(t, err)
}

func assertColor(t *testing.T, want, got common.Vec4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d", i)
	}
}

func TestParseColor(t *testing.T) {
	white, err := ParseColor("#ffffff")
	require.NoError(t, err)
	assertColor(t, common.Vec4{1, 1, 1, 1}, white)

	red, err := ParseColor("Red")
	require.NoError(t, err)
	assertColor(t, common.Vec4{1, 0, 0, 1}, red)

	half, err := ParseColor("#80808080")
	require.NoError(t, err)
	assert.InDelta(t, 0.2158, half[0], 1e-3)
	assert.InDelta(t, 0.502, half[3], 1e-3)

	_, err = ParseColor("#12345")
	assert.Error(t, err)
	_, err = ParseColor("not-a-color")
	assert.Error(t, err)
}

func TestMaterialFileWithAlbedoMap(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := range 2 {
		for x := range 4 {
			img.Set(x, y, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "materials"), 0o755))
	require.NoError(t, imgio.Save(filepath.Join(dir, "materials", "red.png"), img, imgio.PNGEncoder()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "materials", "brick.yaml"), []byte(`
base_color: tomato
roughness: 1.5
metallic: 0.25
emission: 2
albedo_map: red.png
`), 0o644))

	m := newTestManager(t, WithRoot(dir))
	mat, err := m.LoadMaterial("materials/brick.yaml")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, mat.BaseColor[0], 1e-6)
	assert.Equal(t, float32(1), mat.Roughness, "roughness is clamped")
	assert.Equal(t, float32(0.25), mat.Metallic)
	assert.Equal(t, float32(2), mat.Emission)
	require.NotNil(t, mat.AlbedoMap)
	assert.Equal(t, common.Size{Width: 4, Height: 2}, mat.AlbedoMap.Texture.Size())
	assert.Equal(t, 1, m.Loaded(KindTexture))

	m.Release(mat)
	assert.Equal(t, 0, m.Loaded(KindMaterial))
	assert.Equal(t, 0, m.Loaded(KindTexture), "the albedo map is released with its material")
}

func TestMaterialColorList(t *testing.T) {
	desc, err := ParseMaterialDescriptor([]byte("base_color: [0.1, 0.2, 0.3]\n"))
	require.NoError(t, err)
	assert.Equal(t, ColorValue{0.1, 0.2, 0.3, 1}, desc.BaseColor)
	assert.Equal(t, DefaultMaterial().Roughness, desc.Roughness)

	_, err = ParseMaterialDescriptor([]byte("base_color: [1, 2]\n"))
	assert.Error(t, err)
}

func TestReadImageDownscales(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	require.NoError(t, imgio.Save(path, img, imgio.PNGEncoder()))

	decoded, err := ReadImage(path, 16)
	require.NoError(t, err)
	assert.Equal(t, common.Size{Width: 16, Height: 8}, decoded.Size)
	require.Len(t, decoded.Pixels, 16*8)
	assert.InDelta(t, 1.0, decoded.Pixels[0][0], 1e-3)
	assert.InDelta(t, 1.0, decoded.Pixels[0][3], 1e-3)
}

// triangleGLTF writes a glTF file holding one triangle under a translated node.
func triangleGLTF(t *testing.T, dir string) string {
	t.Helper()
	positions := []common.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	indices := []uint16{0, 1, 2, 0}
	data := append(common.SliceToBytes(positions), common.SliceToBytes(indices)...)
	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"mesh": 0, "translation": [0, 0, -2]}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"pbrMetallicRoughness": {"baseColorFactor": [0.5, 0.25, 1, 1], "roughnessFactor": 0.3}, "emissiveFactor": [0, 4, 1]}],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`, len(data), base64.StdEncoding.EncodeToString(data))
	path := filepath.Join(dir, "triangle.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestGLTFMesh(t *testing.T) {
	dir := t.TempDir()
	triangleGLTF(t, dir)

	f, err := readGLTF(filepath.Join(dir, "triangle.gltf"))
	require.NoError(t, err)
	data, err := f.Mesh()
	require.NoError(t, err)

	require.Len(t, data.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, data.Indices)
	assert.Equal(t, common.Vec3{1, 0, -2}, data.Vertices[1].Position)
	assert.InDelta(t, 1.0, data.Vertices[0].Normal[2], 1e-5, "normals are generated when missing")

	mat := f.Material()
	assert.Equal(t, ColorValue{0.5, 0.25, 1, 1}, mat.BaseColor)
	assert.InDelta(t, 0.3, mat.Roughness, 1e-6)
	assert.Equal(t, float32(1), mat.Metallic)
	assert.Equal(t, float32(4), mat.Emission)

	m := newTestManager(t, WithRoot(dir))
	mesh, err := m.LoadMesh("triangle.gltf")
	require.NoError(t, err)
	assert.Equal(t, 3, mesh.Indices.Count())
	material, err := m.LoadMaterial("triangle.gltf")
	require.NoError(t, err)
	assert.Equal(t, float32(4), material.Emission)
}

func TestGLBRejectsBadMagic(t *testing.T) {
	_, _, err := splitGLB(make([]byte, 12))
	assert.ErrorIs(t, err, errGLBMagic)
}
