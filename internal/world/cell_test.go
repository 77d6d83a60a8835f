package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackIndexRoundTrip(t *testing.T) {
	cases := [][3]int{
		{0, 0, 0},
		{15, 0, 0},
		{0, 15, 0},
		{0, 0, 127},
		{15, 15, 127},
		{3, 9, 64},
	}
	for _, tc := range cases {
		idx := PackIndex(tc[0], tc[1], tc[2])
		x, y, z := idx.Unpack()
		assert.Equal(t, tc, [3]int{x, y, z})
		assert.Equal(t, tc[0], idx.X())
		assert.Equal(t, tc[1], idx.Y())
		assert.Equal(t, tc[2], idx.Z())
	}

	assert.Equal(t, Index(0), PackIndex(0, 0, 0))
	assert.Equal(t, Index(CellCount-1), PackIndex(SizeX-1, SizeY-1, SizeZ-1))
	assert.Equal(t, Index(1<<8), PackIndex(0, 0, 1))
}

func TestInChunk(t *testing.T) {
	assert.True(t, InChunk(0, 0, 0))
	assert.True(t, InChunk(15, 15, 127))
	assert.False(t, InChunk(-1, 0, 0))
	assert.False(t, InChunk(16, 0, 0))
	assert.False(t, InChunk(0, 0, 128))
}

func TestCellLightNibbles(t *testing.T) {
	var c Cell
	c.setLight(14, 15)
	assert.Equal(t, uint8(14), c.Indoor())
	assert.Equal(t, uint8(15), c.Outdoor())

	c.setLight(0, 3)
	assert.Equal(t, uint8(0), c.Indoor())
	assert.Equal(t, uint8(3), c.Outdoor())

	c.setFlag(flagSky, true)
	c.setFlag(flagLightDirty, true)
	assert.True(t, c.IsSky())
	assert.True(t, c.IsLightDirty())
	c.setFlag(flagSky, false)
	assert.False(t, c.IsSky())
	assert.True(t, c.IsLightDirty())
}
