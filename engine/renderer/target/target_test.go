package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, tgt := range All() {
		name := tgt.String()
		require.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true

		parsed, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, tgt, parsed)
	}
	_, err := Parse("Nope")
	assert.Error(t, err)
	assert.Panics(t, func() { _ = RenderTarget(99).String() })
}
