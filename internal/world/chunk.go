package world

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Direction - горизонтальное направление к соседнему чанку
type Direction uint8

const (
	North Direction = iota // +y
	South                  // -y
	East                   // +x
	West                   // -x
)

// Directions перечисляет все горизонтальные направления
var Directions = [...]Direction{North, South, East, West}

var directionOffsets = [...]vec.Vec2{
	North: {X: 0, Y: 1},
	South: {X: 0, Y: -1},
	East:  {X: 1, Y: 0},
	West:  {X: -1, Y: 0},
}

var directionNames = [...]string{North: "north", South: "south", East: "east", West: "west"}

// Offset возвращает смещение в координатах чанков
func (d Direction) Offset() vec.Vec2 { return directionOffsets[d] }

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction { return d ^ 1 }

func (d Direction) String() string { return directionNames[d] }

// AABB - выровненный по осям параллелепипед в мировых координатах
type AABB struct {
	Min, Max mgl64.Vec3
}

// Intersects проверяет пересечение двух параллелепипедов
func (b AABB) Intersects(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Contains проверяет, лежит ли точка внутри (верхняя граница не включается)
func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] >= b.Max[i] {
			return false
		}
	}
	return true
}

// chunkHost - владелец чанка: даёт доступ к соседям по координатам и к очереди освещения
type chunkHost interface {
	linkedChunk(coord vec.Vec2) *Chunk
	lightQueue() *Lighting
}

// Chunk - колонна мира размером 16x16x128 ячеек
type Chunk struct {
	Coords vec.Vec2 // координаты чанка
	Origin vec.Vec3 // мировые координаты ячейки (0,0,0)
	Bounds AABB     // мировые границы

	cells    [CellCount]Cell
	registry *block.Registry
	host     chunkHost
	links    uint8 // битовая маска связанных соседей по Direction

	meshDirty    bool
	needsPersist bool

	state stateBox
	epoch atomic.Uint64
}

// NewChunk создаёт пустой (заполненный воздухом) чанк
func NewChunk(coords vec.Vec2, registry *block.Registry) *Chunk {
	origin := vec.Vec3{X: coords.X * SizeX, Y: coords.Y * SizeY, Z: 0}
	lo := mgl64.Vec3{float64(origin.X), float64(origin.Y), 0}
	return &Chunk{
		Coords:   coords,
		Origin:   origin,
		Bounds:   AABB{Min: lo, Max: lo.Add(mgl64.Vec3{SizeX, SizeY, SizeZ})},
		registry: registry,
	}
}

// Registry возвращает реестр блоков чанка
func (c *Chunk) Registry() *block.Registry { return c.registry }

// State возвращает текущую стадию жизненного цикла
func (c *Chunk) State() ChunkState { return c.state.load() }

func (c *Chunk) transition(from, to ChunkState) error {
	return c.state.transition(from, to)
}

// mustTransition используется главным потоком там, где переход гарантирован порядком кадра
func (c *Chunk) mustTransition(from, to ChunkState) {
	if err := c.state.transition(from, to); err != nil {
		panic(err)
	}
}

// Epoch возвращает поколение чанка. Задания, запущенные с другим поколением, устарели.
func (c *Chunk) Epoch() uint64 { return c.epoch.Load() }

func (c *Chunk) bumpEpoch() uint64 { return c.epoch.Add(1) }

// MeshDirty сообщает, что геометрию чанка нужно перестроить
func (c *Chunk) MeshDirty() bool { return c.meshDirty }

// ClearMeshDirty сбрасывает флаг перестроения геометрии
func (c *Chunk) ClearMeshDirty() { c.meshDirty = false }

// NeedsPersist сообщает, что чанк изменялся и должен быть сохранён при выгрузке
func (c *Chunk) NeedsPersist() bool { return c.needsPersist }

// Cell возвращает копию ячейки
func (c *Chunk) Cell(idx Index) Cell { return c.cells[idx] }

// TypeAt возвращает тип блока по локальным координатам; вне чанка - воздух
func (c *Chunk) TypeAt(x, y, z int) block.BlockID {
	if !InChunk(x, y, z) {
		return block.AirBlockID
	}
	return c.cells[PackIndex(x, y, z)].Type
}

// CursorAt возвращает курсор на локальную ячейку; вне чанка - невалидный курсор
func (c *Chunk) CursorAt(x, y, z int) Cursor {
	if !InChunk(x, y, z) {
		return Cursor{}
	}
	return Cursor{Chunk: c, Index: PackIndex(x, y, z)}
}

// SurfaceZ возвращает высоту самого верхнего непустого блока колонны или -1
func (c *Chunk) SurfaceZ(x, y int) int {
	for z := SizeZ - 1; z >= 0; z-- {
		if c.cells[PackIndex(x, y, z)].Type != block.AirBlockID {
			return z
		}
	}
	return -1
}

// TypeCounts возвращает количество ячеек каждого типа
func (c *Chunk) TypeCounts() []int {
	counts := make([]int, c.registry.Len())
	for i := range c.cells {
		counts[c.cells[i].Type]++
	}
	return counts
}

// IsLinked сообщает, связан ли чанк с соседом в направлении d
func (c *Chunk) IsLinked(d Direction) bool { return c.links&(1<<d) != 0 }

// Neighbor возвращает связанного соседа или nil
func (c *Chunk) Neighbor(d Direction) *Chunk {
	if !c.IsLinked(d) || c.host == nil {
		return nil
	}
	return c.host.linkedChunk(c.Coords.Add(d.Offset()))
}

func (c *Chunk) link(d Direction)   { c.links |= 1 << d }
func (c *Chunk) unlink(d Direction) { c.links &^= 1 << d }

// SetSkyLight пересчитывает флаг неба во всех колоннах.
// Ячейка под небом, если над ней нет ни одного непрозрачного блока.
func (c *Chunk) SetSkyLight() {
	for y := 0; y < SizeY; y++ {
		for x := 0; x < SizeX; x++ {
			c.updateColumnSky(x, y, false)
		}
	}
}

// updateColumnSky пересчитывает флаг неба колонны сверху вниз.
// Ячейки со сменившимся флагом при enqueue ставятся в очередь освещения.
func (c *Chunk) updateColumnSky(x, y int, enqueue bool) {
	sky := true
	for z := SizeZ - 1; z >= 0; z-- {
		idx := PackIndex(x, y, z)
		cell := &c.cells[idx]
		if cell.IsSky() != sky {
			cell.setFlag(flagSky, sky)
			if enqueue {
				c.enqueueLight(Cursor{Chunk: c, Index: idx})
			}
		}
		if c.registry.IsOpaque(cell.Type) {
			sky = false
		}
	}
}

// SetBlockType - единственная точка изменения блока в живом чанке.
// При isPlacing блок ставится только в воздух; иначе тип заменяется безусловно.
// Возвращает true, если ячейка изменилась.
func (c *Chunk) SetBlockType(idx Index, t block.BlockID, isPlacing bool) bool {
	if int(idx) >= CellCount || int(t) >= c.registry.Len() {
		return false
	}
	cell := &c.cells[idx]
	if isPlacing && cell.Type != block.AirBlockID {
		return false
	}
	if cell.Type == t {
		return false
	}
	cell.Type = t

	x, y, _ := idx.Unpack()
	c.updateColumnSky(x, y, true)

	cur := Cursor{Chunk: c, Index: idx}
	c.enqueueLight(cur)
	for _, n := range cur.Neighbors() {
		if n.IsValid() {
			n.Chunk.enqueueLight(n)
		}
	}

	c.meshDirty = true
	c.needsPersist = true
	c.markBorderNeighbors(x, y)
	return true
}

// markBorderNeighbors помечает соседние чанки, если ячейка на границе
func (c *Chunk) markBorderNeighbors(x, y int) {
	mark := func(d Direction) {
		if n := c.Neighbor(d); n != nil {
			n.meshDirty = true
		}
	}
	if x == 0 {
		mark(West)
	}
	if x == SizeX-1 {
		mark(East)
	}
	if y == 0 {
		mark(South)
	}
	if y == SizeY-1 {
		mark(North)
	}
}

func (c *Chunk) enqueueLight(cur Cursor) {
	if c.host == nil {
		return
	}
	c.host.lightQueue().Enqueue(cur)
}

// stampTarget открывает шаблонам прямую запись типов при генерации
type stampTarget struct{ c *Chunk }

func (s stampTarget) InBounds(x, y, z int) bool { return InChunk(x, y, z) }

func (s stampTarget) TypeAt(x, y, z int) block.BlockID { return s.c.TypeAt(x, y, z) }

func (s stampTarget) SetTypeAt(x, y, z int, id block.BlockID) {
	s.c.cells[PackIndex(x, y, z)].Type = id
}
