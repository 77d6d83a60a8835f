package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

func TestNewChunkGeometry(t *testing.T) {
	c := NewChunk(vec.Vec2{X: -2, Y: 3}, testRegistry)

	assert.Equal(t, vec.Vec3{X: -32, Y: 48, Z: 0}, c.Origin)
	assert.Equal(t, -32.0, c.Bounds.Min.X())
	assert.Equal(t, 64.0, c.Bounds.Max.Y())
	assert.Equal(t, float64(SizeZ), c.Bounds.Max.Z())
	assert.Equal(t, StateMissing, c.State())
	assert.Equal(t, block.AirBlockID, c.TypeAt(5, 5, 5))
	assert.Equal(t, -1, c.SurfaceZ(0, 0))
}

func TestSetBlockTypePlacing(t *testing.T) {
	c := NewChunk(vec.Vec2{}, testRegistry)
	stone := testRegistry.ID("stone")
	dirt := testRegistry.ID("dirt")
	idx := PackIndex(4, 5, 6)

	// установка в воздух
	assert.True(t, c.SetBlockType(idx, stone, true))
	assert.Equal(t, stone, c.Cell(idx).Type)
	assert.True(t, c.MeshDirty())
	assert.True(t, c.NeedsPersist())

	// установка в занятую ячейку не проходит
	assert.False(t, c.SetBlockType(idx, dirt, true))
	assert.Equal(t, stone, c.Cell(idx).Type)

	// замена проходит всегда
	assert.True(t, c.SetBlockType(idx, dirt, false))
	assert.Equal(t, dirt, c.Cell(idx).Type)

	// тот же тип - без изменений
	c.ClearMeshDirty()
	assert.False(t, c.SetBlockType(idx, dirt, false))
	assert.False(t, c.MeshDirty())

	// раскопка
	assert.True(t, c.SetBlockType(idx, block.AirBlockID, false))
	assert.Equal(t, block.AirBlockID, c.Cell(idx).Type)
}

func TestSetBlockTypeRejectsUnknownType(t *testing.T) {
	c := NewChunk(vec.Vec2{}, testRegistry)
	assert.False(t, c.SetBlockType(0, block.BlockID(testRegistry.Len()), false))
	assert.False(t, c.NeedsPersist())
}

func TestSkyFlags(t *testing.T) {
	c := NewChunk(vec.Vec2{}, testRegistry)
	solidBelow(testRegistry.ID("stone"), 10)(c)
	c.SetSkyLight()

	assert.True(t, c.Cell(PackIndex(3, 3, 127)).IsSky())
	assert.True(t, c.Cell(PackIndex(3, 3, 11)).IsSky())
	// верхний непрозрачный блок сам под небом, ниже - нет
	assert.True(t, c.Cell(PackIndex(3, 3, 10)).IsSky())
	assert.False(t, c.Cell(PackIndex(3, 3, 9)).IsSky())

	// навес лишает неба ячейки под собой
	require.True(t, c.SetBlockType(PackIndex(3, 3, 20), testRegistry.ID("stone"), true))
	assert.True(t, c.Cell(PackIndex(3, 3, 21)).IsSky())
	assert.False(t, c.Cell(PackIndex(3, 3, 19)).IsSky())
	assert.False(t, c.Cell(PackIndex(3, 3, 11)).IsSky())
	assert.True(t, c.Cell(PackIndex(4, 3, 19)).IsSky())

	// прозрачный блок небо не закрывает
	require.True(t, c.SetBlockType(PackIndex(5, 5, 30), testRegistry.ID("glass"), true))
	assert.True(t, c.Cell(PackIndex(5, 5, 29)).IsSky())

	// убираем навес - небо возвращается
	require.True(t, c.SetBlockType(PackIndex(3, 3, 20), block.AirBlockID, false))
	assert.True(t, c.Cell(PackIndex(3, 3, 15)).IsSky())
}

func TestSurfaceAndCounts(t *testing.T) {
	c := NewChunk(vec.Vec2{}, testRegistry)
	stone := testRegistry.ID("stone")
	solidBelow(stone, 3)(c)

	assert.Equal(t, 3, c.SurfaceZ(7, 7))
	counts := c.TypeCounts()
	assert.Equal(t, SizeX*SizeY*4, counts[stone])
	assert.Equal(t, CellCount-SizeX*SizeY*4, counts[block.AirBlockID])
}

func TestStampTargetClipsTemplate(t *testing.T) {
	c := NewChunk(vec.Vec2{}, testRegistry)
	templates := block.DefaultTemplates(testRegistry)

	// дерево у края чанка: часть листвы отсекается
	placed := templates.Get(block.TemplateOak).Stamp(stampTarget{c: c}, vec.Vec3{X: 0, Y: 0, Z: 10})
	assert.Positive(t, placed)
	assert.Less(t, placed, len(templates.Get(block.TemplateOak).Cells))
	assert.Equal(t, testRegistry.ID("oak_log"), c.TypeAt(0, 0, 10))
}

func TestNeighborWithoutHost(t *testing.T) {
	c := NewChunk(vec.Vec2{}, testRegistry)
	c.link(North)
	assert.True(t, c.IsLinked(North))
	assert.Nil(t, c.Neighbor(North))
	c.unlink(North)
	assert.False(t, c.IsLinked(North))
}

func TestDirectionOpposite(t *testing.T) {
	assert.Equal(t, South, North.Opposite())
	assert.Equal(t, North, South.Opposite())
	assert.Equal(t, West, East.Opposite())
	assert.Equal(t, East, West.Opposite())
	for _, d := range Directions {
		assert.Equal(t, vec.Vec2{}, d.Offset().Add(d.Opposite().Offset()))
	}
}
