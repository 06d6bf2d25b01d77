package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AATAA, cfg.Renderer.AA)
	assert.Equal(t, 4, cfg.Renderer.Bloom.DownscaleCount)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[renderer]
backend = "software"
aa = "fxaa"

[renderer.bloom]
downscale_count = 20

[renderer.ssao]
enabled = false
`))
	require.NoError(t, err)

	assert.Equal(t, "software", cfg.Renderer.Backend)
	assert.Equal(t, AAFXAA, cfg.Renderer.AA)
	assert.Equal(t, MaxBloomDownscale, cfg.Renderer.Bloom.DownscaleCount, "clamped to the cap")
	assert.False(t, cfg.Renderer.SSAO.Enabled)
	assert.Equal(t, float32(2.2), cfg.Renderer.Gamma, "untouched keys keep defaults")
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "[renderer]\nfancy = true\n"},
		{"unknown aa", "[renderer]\naa = \"msaa\"\n"},
		{"unknown backend", "[renderer]\nbackend = \"opengl\"\n"},
		{"bad gamma", "[renderer]\ngamma = 0.0\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("[renderer]\naa = \"msaa\"\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestHistorySizeNeverBelowTwo(t *testing.T) {
	cfg, err := Parse([]byte("[renderer]\nhistory_size = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Renderer.HistorySize)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	cfg := Default()
	cfg.Renderer.AA = AANone
	cfg.Window.Title = "test"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
