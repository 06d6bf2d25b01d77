package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"gopkg.in/yaml.v3"
)

// ErrMalformed is wrapped by every scene description error that is not an I/O or asset
// failure.
var ErrMalformed = errors.New("malformed scene")

// Component type names used in scene files.
const (
	TypeStaticMesh       = "static_mesh"
	TypePointLight       = "point_light"
	TypeSpotLight        = "spot_light"
	TypeDirectionalLight = "directional_light"
	TypeCamera           = "camera"
)

// Description is the YAML form of a scene. Angles are in degrees.
type Description struct {
	Name       string                 `yaml:"name"`
	Camera     *CameraDescription     `yaml:"camera"`
	Components []ComponentDescription `yaml:"components"`
}

// CameraDescription places the scene camera.
type CameraDescription struct {
	Position common.Vec3 `yaml:"position"`
	Target   common.Vec3 `yaml:"target"`
	Fov      float32     `yaml:"fov"`
	Near     float32     `yaml:"near"`
	Far      float32     `yaml:"far"`
}

// TransformDescription is a local transform. A missing scale is unit scale.
type TransformDescription struct {
	Position common.Vec3  `yaml:"position"`
	Rotation common.Vec3  `yaml:"rotation"`
	Scale    *common.Vec3 `yaml:"scale"`
}

// SurfaceDescription is an inline material. Unset keys are nil.
type SurfaceDescription struct {
	BaseColor *asset.ColorValue `yaml:"base_color"`
	Roughness *float32          `yaml:"roughness"`
	Metallic  *float32          `yaml:"metallic"`
	Emission  *float32          `yaml:"emission"`
	AlbedoMap string            `yaml:"albedo_map"`
}

// Material overlays the set keys on the default material.
func (d SurfaceDescription) Material() asset.MaterialDescriptor {
	desc := asset.DefaultMaterial()
	if d.BaseColor != nil {
		desc.BaseColor = *d.BaseColor
	}
	if d.Roughness != nil {
		desc.Roughness = common.Saturate(*d.Roughness)
	}
	if d.Metallic != nil {
		desc.Metallic = common.Saturate(*d.Metallic)
	}
	if d.Emission != nil {
		desc.Emission = max(*d.Emission, 0)
	}
	if d.AlbedoMap != "" {
		desc.AlbedoMap = d.AlbedoMap
	}
	return desc
}

// ComponentDescription describes one component. Only the keys of its type are read.
type ComponentDescription struct {
	Name      string               `yaml:"name"`
	Type      string               `yaml:"type"`
	Owner     string               `yaml:"owner"`
	Transform TransformDescription `yaml:"transform"`

	Mesh     string `yaml:"mesh"`
	Material string `yaml:"material"`

	// Surface is an inline material. Missing keys keep the default material's values.
	Surface *SurfaceDescription `yaml:"surface"`

	Color          *asset.ColorValue `yaml:"color"`
	Intensity      float32           `yaml:"intensity"`
	Radius         float32           `yaml:"radius"`
	Range          float32           `yaml:"range"`
	InnerCutoff    float32           `yaml:"inner_cutoff"`
	OuterCutoff    float32           `yaml:"outer_cutoff"`
	CastShadows    bool              `yaml:"cast_shadows"`
	ShadowBias     float32           `yaml:"shadow_bias"`
	ShadowDistance float32           `yaml:"shadow_distance"`

	Fov  float32 `yaml:"fov"`
	Near float32 `yaml:"near"`
	Far  float32 `yaml:"far"`
}

// Load reads a YAML scene file and builds the scene, loading its assets through assets.
//
// Parameters:
//   - path: the scene file
//   - assets: the manager meshes and materials are loaded from
//
// Returns:
//   - Scene: the loaded scene
//   - error: read, decode or asset failure
func Load(path string, assets asset.Manager) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene %s: %w", path, err)
	}
	s, err := Parse(data, assets)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a scene from YAML bytes. Unknown keys are rejected.
func Parse(data []byte, assets asset.Manager) (Scene, error) {
	var desc Description
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return Build(desc, assets)
}

// Build creates the components of desc in order and attaches owners by name.
func Build(desc Description, assets asset.Manager) (Scene, error) {
	s := NewScene(WithName(desc.Name))
	if desc.Camera != nil {
		s.SetCamera(newCamera(*desc.Camera))
	}

	byName := make(map[string]*component.Component, len(desc.Components))
	built := make([]*component.Component, 0, len(desc.Components))
	for i, cd := range desc.Components {
		c, err := buildComponent(cd, assets)
		if err != nil {
			return nil, fmt.Errorf("component %d (%s): %w", i, cd.Name, err)
		}
		if cd.Name != "" {
			if _, dup := byName[cd.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate component name %q", ErrMalformed, cd.Name)
			}
			byName[cd.Name] = c
		}
		built = append(built, c)
	}

	for i, cd := range desc.Components {
		if cd.Owner == "" {
			continue
		}
		owner, ok := byName[cd.Owner]
		if !ok {
			return nil, fmt.Errorf("%w: component %q has unknown owner %q", ErrMalformed, cd.Name, cd.Owner)
		}
		if err := attach(built[i], owner); err != nil {
			return nil, err
		}
	}

	s.Add(built...)
	return s, nil
}

func attach(c, owner *component.Component) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()
	c.SetOwner(owner)
	return nil
}

func newCamera(d CameraDescription) camera.Camera {
	opts := []camera.CameraBuilderOption{camera.WithPose(d.Position, d.Target)}
	if d.Fov > 0 {
		opts = append(opts, camera.WithFov(common.Radians(d.Fov)))
	}
	if d.Near > 0 {
		opts = append(opts, camera.WithNear(d.Near))
	}
	if d.Far > 0 {
		opts = append(opts, camera.WithFar(d.Far))
	}
	return camera.NewCamera(opts...)
}

func buildComponent(d ComponentDescription, assets asset.Manager) (*component.Component, error) {
	var c *component.Component
	switch d.Type {
	case TypeStaticMesh:
		m, err := staticMesh(d, assets)
		if err != nil {
			return nil, err
		}
		c = component.NewStaticMesh(d.Name, m)
	case TypePointLight:
		c = component.NewPointLight(d.Name, component.PointLight{
			Color:         color(d.Color),
			Intensity:     d.Intensity,
			Radius:        d.Radius,
			ShadowCasting: d.CastShadows,
			ShadowBias:    d.ShadowBias,
		})
	case TypeSpotLight:
		c = component.NewSpotLight(d.Name, component.SpotLight{
			Color:         color(d.Color),
			Intensity:     d.Intensity,
			Range:         d.Range,
			InnerCutoff:   common.Radians(d.InnerCutoff),
			OuterCutoff:   common.Radians(d.OuterCutoff),
			ShadowCasting: d.CastShadows,
			ShadowBias:    d.ShadowBias,
		})
	case TypeDirectionalLight:
		c = component.NewDirectionalLight(d.Name, component.DirectionalLight{
			Color:          color(d.Color),
			Intensity:      d.Intensity,
			ShadowCasting:  d.CastShadows,
			ShadowBias:     d.ShadowBias,
			ShadowDistance: d.ShadowDistance,
		})
	case TypeCamera:
		c = component.NewCamera(d.Name, component.Camera{Fov: common.Radians(d.Fov), Near: d.Near, Far: d.Far})
	default:
		return nil, fmt.Errorf("%w: unknown component type %q", ErrMalformed, d.Type)
	}

	c.Transform = component.Transform{
		Position: d.Transform.Position,
		Rotation: common.Vec3{
			common.Radians(d.Transform.Rotation[0]),
			common.Radians(d.Transform.Rotation[1]),
			common.Radians(d.Transform.Rotation[2]),
		},
		Scale: common.Vec3{1, 1, 1},
	}
	if d.Transform.Scale != nil {
		c.Transform.Scale = *d.Transform.Scale
	}
	return c, nil
}

func staticMesh(d ComponentDescription, assets asset.Manager) (component.StaticMesh, error) {
	if d.Mesh == "" {
		return component.StaticMesh{}, fmt.Errorf("%w: static mesh without a mesh id", ErrMalformed)
	}
	mesh, err := assets.LoadMesh(d.Mesh)
	if err != nil {
		return component.StaticMesh{}, err
	}

	var material *asset.Material
	switch {
	case d.Surface != nil:
		material, err = assets.AddMaterial(d.Name+"#surface", d.Surface.Material())
	case d.Material != "":
		material, err = assets.LoadMaterial(d.Material)
	default:
		material, err = assets.LoadMaterial(asset.DefaultMaterialID)
	}
	if err != nil {
		assets.Release(mesh)
		return component.StaticMesh{}, err
	}
	return component.StaticMesh{Mesh: mesh, Material: material}, nil
}

func color(c *asset.ColorValue) common.Vec3 {
	if c == nil {
		return common.Vec3{1, 1, 1}
	}
	return common.Vec4(*c).XYZ()
}
