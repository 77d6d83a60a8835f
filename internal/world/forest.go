package world

import (
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Порог появления дерева: чем гуще лес, тем ниже порог
const (
	treeThresholdSparse = 0.97
	treeThresholdDense  = 0.80
)

// treeValue - детерминированный шум колонны для расстановки деревьев
func (g *Generator) treeValue(wx, wy int) float64 {
	return util.Hash01(g.seed, saltTrees, wx, wy)
}

// isTreeSite сообщает, стоит ли в колонне дерево: значение выше порога плотности
// и строго больше, чем у всех восьми соседних колонн
func (g *Generator) isTreeSite(wx, wy int) bool {
	density := g.forest.At(float64(wx), float64(wy))
	threshold := treeThresholdSparse - density*(treeThresholdSparse-treeThresholdDense)
	v := g.treeValue(wx, wy)
	if v <= threshold {
		return false
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if g.treeValue(wx+dx, wy+dy) >= v {
				return false
			}
		}
	}
	return true
}

// species выбирает шаблон по климату колонны
func (g *Generator) species(col columnInfo) string {
	switch {
	case col.isDesert():
		return block.TemplateCactus
	case col.isCold():
		return block.TemplateSpruce
	case col.humidity > 0.6:
		return block.TemplateBirch
	default:
		return block.TemplateOak
	}
}

// plantTrees ставит шаблоны деревьев на поверхность. Части шаблона за
// пределами чанка отбрасываются.
func (g *Generator) plantTrees(c *Chunk) {
	if g.templates == nil {
		return
	}
	target := stampTarget{c: c}
	for y := 0; y < SizeY; y++ {
		for x := 0; x < SizeX; x++ {
			wx, wy := c.Origin.X+x, c.Origin.Y+y
			if !g.isTreeSite(wx, wy) {
				continue
			}
			col := g.column(wx, wy)
			name := g.species(col)

			z := c.SurfaceZ(x, y)
			if z < SeaLevel || z+1 >= SizeZ {
				continue
			}
			ground := c.cells[PackIndex(x, y, z)].Type
			if name == block.TemplateCactus {
				if ground != g.ids.sand {
					continue
				}
			} else if ground != g.ids.grass && ground != g.ids.snow {
				continue
			}
			g.templates.Get(name).Stamp(target, vec.Vec3{X: x, Y: y, Z: z + 1})
		}
	}
}
