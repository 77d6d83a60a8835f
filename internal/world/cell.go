package world

import "github.com/annel0/voxel-world/internal/world/block"

// Размеры чанка задаются разрядностью координат
const (
	SizeXBits = 4
	SizeYBits = 4
	SizeZBits = 7

	SizeX = 1 << SizeXBits // 16
	SizeY = 1 << SizeYBits // 16
	SizeZ = 1 << SizeZBits // 128

	CellCount = SizeX * SizeY * SizeZ

	yShift = SizeXBits
	zShift = SizeXBits + SizeYBits

	xMask = SizeX - 1
	yMask = (SizeY - 1) << yShift
	zMask = (SizeZ - 1) << zShift
)

// MaxLight - максимальный уровень освещённости на канал
const MaxLight = 15

// Флаги ячейки
const (
	flagSky        uint8 = 1 << 0
	flagLightDirty uint8 = 1 << 1
)

// Index - упакованный локальный индекс ячейки: x | y<<4 | z<<8
type Index uint16

// PackIndex упаковывает локальные координаты в индекс.
// Координаты должны лежать внутри чанка.
func PackIndex(x, y, z int) Index {
	return Index(x | y<<yShift | z<<zShift)
}

// Unpack возвращает локальные координаты индекса
func (i Index) Unpack() (x, y, z int) {
	v := int(i)
	return v & xMask, (v & yMask) >> yShift, (v & zMask) >> zShift
}

// X возвращает локальную координату x
func (i Index) X() int { return int(i) & xMask }

// Y возвращает локальную координату y
func (i Index) Y() int { return (int(i) & yMask) >> yShift }

// Z возвращает локальную координату z
func (i Index) Z() int { return (int(i) & zMask) >> zShift }

// InChunk проверяет, что локальные координаты лежат внутри чанка
func InChunk(x, y, z int) bool {
	return x >= 0 && x < SizeX && y >= 0 && y < SizeY && z >= 0 && z < SizeZ
}

// Cell - одна ячейка чанка.
// Light: младшие 4 бита - внутренний свет, старшие 4 бита - наружный (небесный).
type Cell struct {
	Type  block.BlockID
	Light uint8
	Flags uint8
}

// Indoor возвращает уровень света от источников
func (c Cell) Indoor() uint8 { return c.Light & 0x0F }

// Outdoor возвращает уровень небесного света
func (c Cell) Outdoor() uint8 { return c.Light >> 4 }

// IsSky сообщает, что над ячейкой нет непрозрачных блоков
func (c Cell) IsSky() bool { return c.Flags&flagSky != 0 }

// IsLightDirty сообщает, что ячейка стоит в очереди освещения
func (c Cell) IsLightDirty() bool { return c.Flags&flagLightDirty != 0 }

func (c *Cell) setLight(indoor, outdoor uint8) {
	c.Light = indoor&0x0F | outdoor<<4
}

func (c *Cell) setFlag(flag uint8, on bool) {
	if on {
		c.Flags |= flag
	} else {
		c.Flags &^= flag
	}
}
