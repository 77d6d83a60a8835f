package world

import (
	"math"
	"math/rand"

	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Константы рельефа
const (
	SeaLevel      = 48 // уровень моря
	minTerrainZ   = 4
	maxTerrainZ   = SizeZ - 16
	dirtDepth     = 4
	beachMargin   = 2
	coldThreshold = 0.25
)

// Вероятности руд на одну ячейку камня и максимальная высота появления
var oreTiers = [...]struct {
	name   string
	chance float64
	maxZ   int
}{
	{"diamond_ore", 0.0008, 16},
	{"gold_ore", 0.002, 32},
	{"iron_ore", 0.006, 64},
	{"coal_ore", 0.012, SizeZ},
}

// Соли для независимых случайных потоков генератора
const (
	saltOres  uint64 = 0x4f524553
	saltCaves uint64 = 0x43415645
	saltTrees uint64 = 0x54524545
)

// columnInfo - параметры колонны, зависящие только от сида и мировых координат
type columnInfo struct {
	height      int
	humidity    float64
	temperature float64
}

func (c columnInfo) isDesert() bool { return c.temperature > 0.65 && c.humidity < 0.35 }
func (c columnInfo) isCold() bool   { return c.temperature < coldThreshold }
func (c columnInfo) isBeach() bool {
	return c.height <= SeaLevel+beachMargin && c.height >= SeaLevel-beachMargin-2
}

// Generator - детерминированный генератор чанков.
// Результат зависит только от сида и координат чанка, поэтому генератор
// можно вызывать из нескольких воркеров одновременно.
type Generator struct {
	seed      uint32
	registry  *block.Registry
	templates *block.TemplateSet

	base        *util.PerlinField
	hilliness   *util.PerlinField
	oceanness   *util.PerlinField
	humidity    *util.PerlinField
	temperature *util.PerlinField
	forest      *util.PerlinField
	worms       *util.SimplexField

	ids struct {
		stone, dirt, grass, sand, water, ice, snow, bedrock, cactus block.BlockID
		ores                                                        [len(oreTiers)]block.BlockID
	}
}

// NewGenerator создаёт генератор. Реестр должен содержать все блоки рельефа.
func NewGenerator(seed uint32, registry *block.Registry, templates *block.TemplateSet) *Generator {
	s := int64(seed)
	g := &Generator{
		seed:        seed,
		registry:    registry,
		templates:   templates,
		base:        util.NewPerlinField(s, 96),
		hilliness:   util.NewPerlinField(s+1, 256),
		oceanness:   util.NewPerlinField(s+2, 512),
		humidity:    util.NewPerlinField(s+3, 384),
		temperature: util.NewPerlinField(s+4, 448),
		forest:      util.NewPerlinField(s+5, 128),
		worms:       util.NewSimplexField(s+6, 24),
	}
	g.ids.stone = registry.ID("stone")
	g.ids.dirt = registry.ID("dirt")
	g.ids.grass = registry.ID("grass")
	g.ids.sand = registry.ID("sand")
	g.ids.water = registry.ID("water")
	g.ids.ice = registry.ID("ice")
	g.ids.snow = registry.ID("snow")
	g.ids.bedrock = registry.ID("bedrock")
	g.ids.cactus = registry.ID("cactus")
	for i, tier := range oreTiers {
		g.ids.ores[i] = registry.ID(tier.name)
	}
	return g
}

// Seed возвращает сид мира
func (g *Generator) Seed() uint32 { return g.seed }

// column вычисляет высоту и климат колонны по мировым координатам
func (g *Generator) column(wx, wy int) columnInfo {
	fx, fy := float64(wx), float64(wy)

	base := g.base.Raw(fx, fy) * 1.6
	hills := g.hilliness.At(fx, fy)
	ocean := g.oceanness.At(fx, fy)

	h := float64(SeaLevel+6) + base*(6+hills*40)
	if ocean > 0.6 {
		h -= (ocean - 0.6) / 0.4 * 36
	}
	height := int(math.Round(h))
	if height < minTerrainZ {
		height = minTerrainZ
	}
	if height > maxTerrainZ {
		height = maxTerrainZ
	}

	return columnInfo{
		height:      height,
		humidity:    g.humidity.At(fx, fy),
		temperature: g.temperature.At(fx, fy),
	}
}

// HeightAt возвращает высоту рельефа до вырезания пещер
func (g *Generator) HeightAt(wx, wy int) int {
	return g.column(wx, wy).height
}

// Generate заполняет чанк: рельеф, руды, пещеры, деревья.
// Освещение и флаги неба не трогает.
func (g *Generator) Generate(c *Chunk) {
	g.fillTerrain(c)
	g.carveCaves(c)
	g.plantTrees(c)
}

// fillTerrain заполняет колонны чанка по высоте и климату, затем расставляет руды
func (g *Generator) fillTerrain(c *Chunk) {
	for y := 0; y < SizeY; y++ {
		for x := 0; x < SizeX; x++ {
			col := g.column(c.Origin.X+x, c.Origin.Y+y)
			for z := 0; z < SizeZ; z++ {
				c.cells[PackIndex(x, y, z)].Type = g.terrainType(col, z)
			}
		}
	}

	rng := rand.New(rand.NewSource(chunkSeed(g.seed, saltOres, c.Coords)))
	for i := range c.cells {
		if c.cells[i].Type != g.ids.stone {
			continue
		}
		z := Index(i).Z()
		for t, tier := range oreTiers {
			if rng.Float64() < tier.chance && z < tier.maxZ {
				c.cells[i].Type = g.ids.ores[t]
				break
			}
		}
	}
}

func (g *Generator) terrainType(col columnInfo, z int) block.BlockID {
	h := col.height
	sandy := col.isBeach() || col.isDesert()
	switch {
	case z == 0:
		return g.ids.bedrock
	case z < h-dirtDepth:
		return g.ids.stone
	case z < h:
		if sandy {
			return g.ids.sand
		}
		return g.ids.dirt
	case z == h:
		switch {
		case sandy || h < SeaLevel:
			return g.ids.sand
		case col.isCold():
			return g.ids.snow
		default:
			return g.ids.grass
		}
	case z < SeaLevel:
		return g.ids.water
	case z == SeaLevel:
		if col.isCold() {
			return g.ids.ice
		}
		return g.ids.water
	}
	return block.AirBlockID
}

// chunkSeed - сид локального генератора случайных чисел чанка
func chunkSeed(seed uint32, salt uint64, coords vec.Vec2) int64 {
	return int64(util.Hash2(seed, salt, coords.X, coords.Y) >> 1)
}
