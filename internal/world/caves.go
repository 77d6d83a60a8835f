package world

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Параметры червей-пещер
const (
	wormReach       = 4 // радиус в чанках, из которого черви могут дотянуться
	wormMaxPerChunk = 2
	wormMinSteps    = 24
	wormMaxSteps    = 48
	wormMinRadius   = 1.5
	wormMaxRadius   = 3.5
	wormMinZ        = 8
	wormMaxStartZ   = 56
)

// worm - пещера-червь, заданная стартовой точкой в мировых координатах.
// Направление каждого шага - функция мировых координат, поэтому
// путь червя одинаков, из какого бы чанка его ни вычисляли.
type worm struct {
	start  mgl64.Vec3
	steps  int
	radius float64
	phase  float64
}

// wormsFor возвращает червей, начинающихся в чанке coords
func (g *Generator) wormsFor(coords vec.Vec2) []worm {
	rng := rand.New(rand.NewSource(chunkSeed(g.seed, saltCaves, coords)))
	n := rng.Intn(wormMaxPerChunk + 1)
	worms := make([]worm, 0, n)
	for i := 0; i < n; i++ {
		worms = append(worms, worm{
			start: mgl64.Vec3{
				float64(coords.X*SizeX) + rng.Float64()*SizeX,
				float64(coords.Y*SizeY) + rng.Float64()*SizeY,
				float64(wormMinZ + rng.Intn(wormMaxStartZ-wormMinZ)),
			},
			steps:  wormMinSteps + rng.Intn(wormMaxSteps-wormMinSteps+1),
			radius: wormMinRadius + rng.Float64()*(wormMaxRadius-wormMinRadius),
			phase:  rng.Float64() * 64,
		})
	}
	return worms
}

// carveCaves вырезает всех червей, которые могут задеть чанк
func (g *Generator) carveCaves(c *Chunk) {
	for dy := -wormReach; dy <= wormReach; dy++ {
		for dx := -wormReach; dx <= wormReach; dx++ {
			origin := c.Coords.Add(vec.Vec2{X: dx, Y: dy})
			for _, w := range g.wormsFor(origin) {
				g.carveWorm(c, w)
			}
		}
	}
}

func (g *Generator) carveWorm(c *Chunk, w worm) {
	reach := float64(w.steps) + w.radius + 1
	span := AABB{
		Min: w.start.Sub(mgl64.Vec3{reach, reach, reach}),
		Max: w.start.Add(mgl64.Vec3{reach, reach, reach}),
	}
	if !span.Intersects(c.Bounds) {
		return
	}

	pos := w.start
	for i := 0; i < w.steps; i++ {
		yaw := g.worms.At(pos.X(), pos.Y(), pos.Z()+w.phase) * 2 * math.Pi
		pitch := g.worms.At(pos.X()+w.phase, pos.Y()-w.phase, pos.Z()) * 0.5
		dir := mgl64.Vec3{
			math.Cos(pitch) * math.Cos(yaw),
			math.Cos(pitch) * math.Sin(yaw),
			math.Sin(pitch),
		}
		next := pos.Add(dir)
		r := w.radius * (0.6 + 0.4*math.Sin(math.Pi*float64(i+1)/float64(w.steps)))
		g.carveCapsule(c, pos, next, r)
		pos = next
	}
}

// carveCapsule заменяет воздухом твёрдые блоки в капсуле между a и b радиуса r.
// Бедрок, вода и лёд не трогаются.
func (g *Generator) carveCapsule(c *Chunk, a, b mgl64.Vec3, r float64) {
	ext := mgl64.Vec3{r, r, r}
	lo := minVec(a, b).Sub(ext)
	hi := maxVec(a, b).Add(ext)
	if !(AABB{Min: lo, Max: hi}).Intersects(c.Bounds) {
		return
	}

	x0, x1 := clampRange(lo.X()-c.Bounds.Min.X(), hi.X()-c.Bounds.Min.X(), SizeX)
	y0, y1 := clampRange(lo.Y()-c.Bounds.Min.Y(), hi.Y()-c.Bounds.Min.Y(), SizeY)
	z0, z1 := clampRange(lo.Z(), hi.Z(), SizeZ)
	if z0 < 1 {
		z0 = 1
	}

	seg := b.Sub(a)
	segLenSq := seg.Dot(seg)
	r2 := r * r
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				p := mgl64.Vec3{
					c.Bounds.Min.X() + float64(x) + 0.5,
					c.Bounds.Min.Y() + float64(y) + 0.5,
					float64(z) + 0.5,
				}
				if distSqToSegment(p, a, seg, segLenSq) > r2 {
					continue
				}
				cell := &c.cells[PackIndex(x, y, z)]
				if g.carvable(cell.Type) {
					cell.Type = block.AirBlockID
				}
			}
		}
	}
}

func (g *Generator) carvable(id block.BlockID) bool {
	switch id {
	case block.AirBlockID, g.ids.bedrock, g.ids.water, g.ids.ice:
		return false
	}
	return true
}

func distSqToSegment(p, a, seg mgl64.Vec3, segLenSq float64) float64 {
	ap := p.Sub(a)
	t := 0.0
	if segLenSq > 0 {
		t = ap.Dot(seg) / segLenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	d := ap.Sub(seg.Mul(t))
	return d.Dot(d)
}

// clampRange переводит вещественный отрезок в индексы ячеек [0, size)
func clampRange(lo, hi float64, size int) (int, int) {
	a := int(math.Floor(lo))
	b := int(math.Floor(hi))
	if a < 0 {
		a = 0
	}
	if b > size-1 {
		b = size - 1
	}
	return a, b
}

func minVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func maxVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}
