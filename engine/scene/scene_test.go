package scene

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/software"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssets(t *testing.T) asset.Manager {
	t.Helper()
	ctx := rendering.NewContext(software.New(software.WithWorkerCount(1)), nil)
	m := asset.NewManager(ctx)
	t.Cleanup(m.ReleaseAll)
	return m
}

const demoScene = `
name: demo
camera:
  position: [0, 2, 6]
  target: [0, 0, 0]
  fov: 60
components:
  - name: floor
    type: static_mesh
    mesh: builtin:plane
    transform:
      scale: [10, 1, 10]
  - name: crate
    type: static_mesh
    mesh: builtin:cube
    surface:
      base_color: tomato
      emission: 2
    transform:
      position: [0, 1, 0]
      rotation: [0, 90, 0]
  - name: lamp
    type: point_light
    owner: crate
    color: [1, 0.5, 0.25]
    intensity: 5
    radius: 8
    cast_shadows: true
    transform:
      position: [0, 2, 0]
  - name: sun
    type: directional_light
    intensity: 1
`

func TestParseKeepsOrderAndOwners(t *testing.T) {
	s, err := Parse([]byte(demoScene), newTestAssets(t))
	require.NoError(t, err)

	assert.Equal(t, "demo", s.Name())
	all := s.GetAllComponents()
	require.Len(t, all, 4)
	var names []string
	for _, c := range all {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"floor", "crate", "lamp", "sun"}, names)

	lamp := s.Get("lamp")
	require.NotNil(t, lamp)
	assert.Same(t, s.Get("crate"), lamp.Owner())
	assert.InDelta(t, 3, lamp.WorldPosition()[1], 1e-5, "owner translation composes")

	l, ok := lamp.AsPointLight()
	require.True(t, ok)
	assert.Equal(t, common.Vec3{1, 0.5, 0.25}, l.Color)
	assert.Equal(t, float32(5), l.Intensity)
	assert.True(t, l.ShadowCasting)

	floor, _ := s.Get("floor").AsStaticMesh()
	require.NotNil(t, floor.Material)
	assert.Equal(t, asset.DefaultMaterialID, floor.Material.ID())
	assert.Equal(t, common.Vec3{10, 1, 10}, s.Get("floor").Transform.Scale)

	crate := s.Get("crate")
	assert.InDelta(t, common.Radians(90), crate.Transform.Rotation[1], 1e-6)
	assert.Equal(t, common.Vec3{1, 1, 1}, crate.Transform.Scale)
	m, _ := crate.AsStaticMesh()
	assert.Equal(t, float32(2), m.Material.Emission)
	assert.Equal(t, float32(0.5), m.Material.Roughness, "missing surface keys keep the defaults")

	assert.InDelta(t, common.Radians(60), s.Camera().Fov(), 1e-6)
	assert.Equal(t, common.Vec3{0, 2, 6}, s.Camera().Position())
}

func TestLoadExampleScene(t *testing.T) {
	s, err := Load("../../examples/assets/scene.yaml", newTestAssets(t))
	require.NoError(t, err)

	assert.Equal(t, "showcase", s.Name())
	assert.Len(t, s.GetAllComponents(), 7)

	floor, _ := s.Get("floor").AsStaticMesh()
	assert.Equal(t, float32(0.9), floor.Material.Roughness)
	assert.Equal(t, common.Vec4{0.4, 0.4, 0.42, 1}, floor.Material.BaseColor)

	ball, _ := s.Get("ball").AsStaticMesh()
	assert.Equal(t, float32(1), ball.Material.Metallic)
	assert.Equal(t, float32(0.2), ball.Material.Roughness)

	beacon := s.Get("beacon")
	assert.Same(t, s.Get("crate"), beacon.Owner())
	m, _ := beacon.AsStaticMesh()
	assert.Equal(t, float32(4), m.Material.Emission)
	assert.Equal(t, asset.DefaultMaterial().Roughness, m.Material.Roughness)
}

func TestSurfaceOverlaysDefaults(t *testing.T) {
	rough, emission := float32(3), float32(-1)
	desc := SurfaceDescription{Roughness: &rough, Emission: &emission}.Material()

	def := asset.DefaultMaterial()
	assert.Equal(t, float32(1), desc.Roughness)
	assert.Zero(t, desc.Emission)
	assert.Equal(t, def.BaseColor, desc.BaseColor)
	assert.Equal(t, def.Metallic, desc.Metallic)
}

func TestParseRejectsMalformedScenes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown type", "components:\n  - {name: a, type: hologram}\n"},
		{"unknown owner", "components:\n  - {name: a, type: point_light, owner: ghost}\n"},
		{"duplicate name", "components:\n  - {name: a, type: point_light}\n  - {name: a, type: spot_light}\n"},
		{"unknown key", "components:\n  - {name: a, type: point_light, wattage: 60}\n"},
		{"unknown surface key", "components:\n  - name: a\n    type: static_mesh\n    mesh: builtin:cube\n    surface: {shininess: 3}\n"},
		{"mesh without id", "components:\n  - {name: a, type: static_mesh}\n"},
		{"owner cycle", "components:\n  - {name: a, type: point_light, owner: b}\n  - {name: b, type: point_light, owner: a}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), newTestAssets(t))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestSceneAddRemove(t *testing.T) {
	parent := component.NewPointLight("parent", component.PointLight{Intensity: 1})
	child := component.NewSpotLight("child", component.SpotLight{Intensity: 1})
	child.SetOwner(parent)

	s := NewScene(WithComponents(parent, child))
	s.Add(parent)
	assert.Equal(t, 2, s.Count(), "adding a present component is a no-op")

	snapshot := s.GetAllComponents()
	assert.True(t, s.Remove(parent))
	assert.False(t, s.Remove(parent))
	assert.Nil(t, child.Owner())
	assert.Len(t, snapshot, 2, "snapshots do not follow later edits")
	assert.Equal(t, []*component.Component{child}, s.GetAllComponents())

	s.Clear()
	assert.Zero(t, s.Count())
}

func TestSnapshotTransformsRecordsPrevious(t *testing.T) {
	c := component.NewPointLight("lamp", component.PointLight{})
	s := NewScene(WithComponents(c))

	s.SnapshotTransforms()
	before := c.WorldTransform()
	c.Transform.Position = common.Vec3{1, 2, 3}

	assert.Equal(t, before, c.PreviousWorldTransform())
	assert.NotEqual(t, c.WorldTransform(), c.PreviousWorldTransform())
}
