package world

import (
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Cursor - ссылка на ячейку: чанк плюс локальный индекс.
// Нулевой Cursor невалиден.
type Cursor struct {
	Chunk *Chunk
	Index Index
}

// IsValid сообщает, указывает ли курсор на реальный чанк
func (c Cursor) IsValid() bool { return c.Chunk != nil }

// Cell возвращает указатель на ячейку. Курсор должен быть валиден.
func (c Cursor) Cell() *Cell { return &c.Chunk.cells[c.Index] }

// Type возвращает тип блока или воздух для невалидного курсора
func (c Cursor) Type() block.BlockID {
	if c.Chunk == nil {
		return block.AirBlockID
	}
	return c.Chunk.cells[c.Index].Type
}

// WorldPos возвращает мировые координаты ячейки
func (c Cursor) WorldPos() vec.Vec3 {
	x, y, z := c.Index.Unpack()
	return c.Chunk.Origin.Add(vec.Vec3{X: x, Y: y, Z: z})
}

// East возвращает соседнюю ячейку по +x
func (c Cursor) East() Cursor {
	if c.Chunk == nil {
		return Cursor{}
	}
	if c.Index.X() < SizeX-1 {
		return Cursor{Chunk: c.Chunk, Index: c.Index + 1}
	}
	return c.crossTo(East, c.Index&^xMask)
}

// West возвращает соседнюю ячейку по -x
func (c Cursor) West() Cursor {
	if c.Chunk == nil {
		return Cursor{}
	}
	if c.Index.X() > 0 {
		return Cursor{Chunk: c.Chunk, Index: c.Index - 1}
	}
	return c.crossTo(West, c.Index|xMask)
}

// North возвращает соседнюю ячейку по +y
func (c Cursor) North() Cursor {
	if c.Chunk == nil {
		return Cursor{}
	}
	if c.Index.Y() < SizeY-1 {
		return Cursor{Chunk: c.Chunk, Index: c.Index + 1<<yShift}
	}
	return c.crossTo(North, c.Index&^yMask)
}

// South возвращает соседнюю ячейку по -y
func (c Cursor) South() Cursor {
	if c.Chunk == nil {
		return Cursor{}
	}
	if c.Index.Y() > 0 {
		return Cursor{Chunk: c.Chunk, Index: c.Index - 1<<yShift}
	}
	return c.crossTo(South, c.Index|yMask)
}

// Up возвращает ячейку выше; над верхом мира курсор невалиден
func (c Cursor) Up() Cursor {
	if c.Chunk == nil || c.Index.Z() >= SizeZ-1 {
		return Cursor{}
	}
	return Cursor{Chunk: c.Chunk, Index: c.Index + 1<<zShift}
}

// Down возвращает ячейку ниже; под дном мира курсор невалиден
func (c Cursor) Down() Cursor {
	if c.Chunk == nil || c.Index.Z() == 0 {
		return Cursor{}
	}
	return Cursor{Chunk: c.Chunk, Index: c.Index - 1<<zShift}
}

// Neighbors возвращает шесть соседей: east, west, north, south, up, down
func (c Cursor) Neighbors() [6]Cursor {
	return [6]Cursor{c.East(), c.West(), c.North(), c.South(), c.Up(), c.Down()}
}

// Step сдвигает курсор на одну ячейку вдоль оси (0=x, 1=y, 2=z)
func (c Cursor) Step(axis int, positive bool) Cursor {
	switch axis {
	case 0:
		if positive {
			return c.East()
		}
		return c.West()
	case 1:
		if positive {
			return c.North()
		}
		return c.South()
	default:
		if positive {
			return c.Up()
		}
		return c.Down()
	}
}

func (c Cursor) crossTo(d Direction, idx Index) Cursor {
	n := c.Chunk.Neighbor(d)
	if n == nil {
		return Cursor{}
	}
	return Cursor{Chunk: n, Index: idx}
}
