package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[window]
width = 40
height = 30

[renderer]
backend = "software"
aa = "fxaa"
shadow_map_size = 16
worker_count = 2

[log]
level = "debug"
`

const testScene = `
name: cli
camera:
  position: [0, 1, 6]
  target: [0, 0, 0]
components:
  - name: crate
    type: static_mesh
    mesh: builtin:cube
  - name: lamp
    type: point_light
    intensity: 5
    radius: 6
    cast_shadows: true
    transform:
      position: [1.5, 1.5, 1.5]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunHeadlessDumpsViewport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "edengine.toml", testConfig)
	sc := writeFile(t, dir, "scene.yaml", testScene)
	out := filepath.Join(dir, "frame.png")

	var log bytes.Buffer
	require.NoError(t, run([]string{"-config", cfg, "-scene", sc, "-headless", "-frames", "2", "-dump", out}, &log))

	img, err := imgio.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
	assert.Contains(t, log.String(), "engine stopped")
	assert.Contains(t, log.String(), "frames=2")
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags(nil, &stderr)
	assert.Error(t, err, "a scene is required")

	_, err = parseFlags([]string{"-scene", "s.yaml", "-target", "Nope"}, &stderr)
	assert.Error(t, err)

	opts, err := parseFlags([]string{"-scene", "s.yaml", "-headless", "-target", "GNormal"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), opts.frames, "headless runs render one frame by default")
	assert.Equal(t, target.GNormal, opts.dumpTarget)
}

func TestNewDeviceRejectsUnknownBackend(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	cfg.Renderer.Backend = "vulkan"
	_, err = newDevice(cfg, nil)
	assert.Error(t, err)
}
