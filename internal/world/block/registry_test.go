package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryLoads(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	air := r.Get(AirBlockID)
	assert.Equal(t, "air", air.Name)
	assert.False(t, air.Opaque)

	stone := r.ByName("stone")
	assert.True(t, stone.Opaque)
	assert.True(t, stone.Solid)
	assert.Equal(t, stone, r.Get(stone.ID))

	torch := r.ByName("torch")
	assert.True(t, torch.IsLightSource())
	assert.Equal(t, uint8(14), r.Emission(torch.ID))
	assert.False(t, r.IsOpaque(torch.ID))
}

func TestByNameUnknownPanics(t *testing.T) {
	r := MustDefaultRegistry()
	assert.Panics(t, func() { r.ByName("unobtainium") })
}

func TestLookup(t *testing.T) {
	r := MustDefaultRegistry()

	def, ok := r.Lookup("glass")
	require.True(t, ok)
	assert.Equal(t, r.ID("glass"), def.ID)

	_, ok = r.Lookup("unobtainium")
	assert.False(t, ok)
}

func TestNewRegistryValidation(t *testing.T) {
	cases := map[string][]Definition{
		"пустой":        nil,
		"дыра в id":     {{ID: 0, Name: "air"}, {ID: 2, Name: "stone"}},
		"повтор id":     {{ID: 0, Name: "air"}, {ID: 0, Name: "stone"}},
		"повтор имени":  {{ID: 0, Name: "air"}, {ID: 1, Name: "air"}},
		"0 не air":      {{ID: 0, Name: "stone"}},
		"яркость > 15":  {{ID: 0, Name: "air"}, {ID: 1, Name: "sun", Emission: 16}},
		"air твердый":   {{ID: 0, Name: "air", Solid: true}},
		"блок без имени": {{ID: 0, Name: "air"}, {ID: 1}},
	}

	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(defs)
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistryMalformedYAML(t *testing.T) {
	_, err := LoadRegistry([]byte("blocks: [ {id: 0, name: air"))
	assert.Error(t, err)
}

func TestLoadRegistryFileMissing(t *testing.T) {
	_, err := LoadRegistryFile("/nonexistent/blocks.yaml")
	assert.Error(t, err)
}
