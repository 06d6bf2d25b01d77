package asset

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/KlishchD/EdEngine-sub000/common"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// ColorValue is a linear RGBA color that decodes from YAML as a list of three or four
// numbers, a "#rrggbb" / "#rrggbbaa" hex string, or an SVG color name such as "tomato".
// Hex and named colors are sRGB encoded and converted to linear.
type ColorValue common.Vec4

func (c *ColorValue) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var parts []float32
		if err := value.Decode(&parts); err != nil {
			return err
		}
		if len(parts) != 3 && len(parts) != 4 {
			return fmt.Errorf("asset: color needs 3 or 4 components, got %d", len(parts))
		}
		*c = ColorValue{parts[0], parts[1], parts[2], 1}
		if len(parts) == 4 {
			c[3] = parts[3]
		}
		return nil
	case yaml.ScalarNode:
		v, err := ParseColor(value.Value)
		if err != nil {
			return err
		}
		*c = ColorValue(v)
		return nil
	}
	return fmt.Errorf("asset: line %d: cannot decode color", value.Line)
}

// ParseColor parses a hex or named color into linear RGBA.
func ParseColor(s string) (common.Vec4, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 && len(hex) != 8 {
			return common.Vec4{}, fmt.Errorf("asset: malformed hex color %q", s)
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return common.Vec4{}, fmt.Errorf("asset: malformed hex color %q: %w", s, err)
		}
		if len(hex) == 6 {
			n = n<<8 | 0xff
		}
		return common.Vec4{
			srgbToLinear(uint8(n >> 24)),
			srgbToLinear(uint8(n >> 16)),
			srgbToLinear(uint8(n >> 8)),
			float32(uint8(n)) / 255,
		}, nil
	}
	named, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return common.Vec4{}, fmt.Errorf("asset: unknown color %q", s)
	}
	return common.Vec4{srgbToLinear(named.R), srgbToLinear(named.G), srgbToLinear(named.B), float32(named.A) / 255}, nil
}

// MaterialDescriptor is the YAML form of a material.
type MaterialDescriptor struct {
	BaseColor ColorValue `yaml:"base_color"`
	Roughness float32    `yaml:"roughness"`
	Metallic  float32    `yaml:"metallic"`
	Emission  float32    `yaml:"emission"`
	// AlbedoMap is a texture id, resolved against the manager root.
	AlbedoMap string `yaml:"albedo_map"`
}

// ReadMaterialDescriptor decodes a material file. Missing keys keep the defaults.
func ReadMaterialDescriptor(path string) (MaterialDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MaterialDescriptor{}, err
	}
	return ParseMaterialDescriptor(data)
}

// ParseMaterialDescriptor decodes material YAML. Missing keys keep the defaults.
func ParseMaterialDescriptor(data []byte) (MaterialDescriptor, error) {
	desc := DefaultMaterial()
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return MaterialDescriptor{}, fmt.Errorf("asset: material: %w", err)
	}
	desc.Roughness = common.Saturate(desc.Roughness)
	desc.Metallic = common.Saturate(desc.Metallic)
	desc.Emission = max(desc.Emission, 0)
	return desc, nil
}
