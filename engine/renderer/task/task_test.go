package task

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmbientKernelIsSeededHemisphere(t *testing.T) {
	a := AmbientKernel(7, 32)
	b := AmbientKernel(7, 32)
	require.Len(t, a, 32)
	assert.Equal(t, a, b, "the same seed yields the same kernel")
	assert.NotEqual(t, a, AmbientKernel(8, 32))

	for i, k := range a {
		assert.GreaterOrEqual(t, k[2], float32(0), "sample %d points into the hemisphere", i)
		assert.LessOrEqual(t, k.XYZ().Length(), float32(1)+1e-5, "sample %d", i)
	}
}

func TestAmbientNoiseLiesInPlane(t *testing.T) {
	noise := AmbientNoise(3)
	require.Len(t, noise, NoiseSize*NoiseSize)
	for _, n := range noise {
		assert.Zero(t, n[2])
		assert.InDelta(t, 0, n[0], 1)
		assert.InDelta(t, 0, n[1], 1)
	}
}

func TestSampleCountIsClamped(t *testing.T) {
	assert.Equal(t, int32(1), sampleCount(0))
	assert.Equal(t, int32(16), sampleCount(16))
	assert.Equal(t, int32(config.MaxAmbientSamples), sampleCount(1000))
}

func TestBloomLevelSizes(t *testing.T) {
	render := common.Size{Width: 64, Height: 32}
	assert.Equal(t, common.Size{Width: 32, Height: 16}, bloomLevelSize(0)(render))
	assert.Equal(t, common.Size{Width: 8, Height: 4}, bloomLevelSize(2)(render))
	assert.Equal(t, common.Size{Width: 1, Height: 1}, bloomLevelSize(7)(render), "levels never collapse below one pixel")
}

func TestGroupCountCoversEveryPixel(t *testing.T) {
	assert.Equal(t, 1, groupCount(1))
	assert.Equal(t, 1, groupCount(8))
	assert.Equal(t, 2, groupCount(9))
}

func TestWorldBoundsFollowScale(t *testing.T) {
	bounds := asset.Bounds{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}
	model := common.ModelMatrix(common.Vec3{0, 2, 0}, common.Vec3{}, common.Vec3{3, 1, 1})
	center, radius := worldBounds(model, bounds)
	assert.InDelta(t, 2, center[1], 1e-5)
	assert.InDelta(t, 3*bounds.Radius(), radius, 1e-3)
}

func TestPipelineOrder(t *testing.T) {
	var names []string
	for _, task := range Pipeline() {
		names = append(names, task.Name())
	}
	assert.Equal(t, []string{
		"GBuffer", "Emission", "PointLight", "SpotLight", "DirectionalLight",
		"Ambient", "Combination", "AntiAliasing", "Bloom", "Resolution",
	}, names)
}
