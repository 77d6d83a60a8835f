package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// RayHit - результат трассировки луча
type RayHit struct {
	Hit      bool
	Distance float64    // расстояние вдоль нормализованного направления
	Normal   mgl64.Vec3 // нормаль грани, через которую луч вошёл в блок
	Block    vec.Vec3   // мировые координаты задетого блока
	Cursor   Cursor
}

// castRay проходит по сетке ячеек от start в направлении dir (алгоритм Amanatides-Woo).
// Луч останавливается на первом непрозрачном блоке, на выходе из загруженного мира
// или после maxDist.
func castRay(registry *block.Registry, cur Cursor, start, dir mgl64.Vec3, maxDist float64) RayHit {
	if !cur.IsValid() || maxDist < 0 {
		return RayHit{}
	}
	if dir.Len() == 0 {
		return RayHit{}
	}
	dir = dir.Normalize()

	cell := cur.WorldPos()
	if registry.IsOpaque(cur.Type()) {
		return RayHit{Hit: true, Distance: 0, Normal: dir.Mul(-1), Block: cell, Cursor: cur}
	}

	pos := [3]int{cell.X, cell.Y, cell.Z}
	var (
		step   [3]int
		tMax   [3]float64
		tDelta [3]float64
	)
	for i := 0; i < 3; i++ {
		switch {
		case dir[i] > 0:
			step[i] = 1
			tMax[i] = (float64(pos[i]+1) - start[i]) / dir[i]
			tDelta[i] = 1 / dir[i]
		case dir[i] < 0:
			step[i] = -1
			tMax[i] = (start[i] - float64(pos[i])) / -dir[i]
			tDelta[i] = -1 / dir[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	for {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t := tMax[axis]
		if t > maxDist {
			return RayHit{}
		}

		cur = cur.Step(axis, step[axis] > 0)
		if !cur.IsValid() {
			return RayHit{}
		}
		pos[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		if registry.IsOpaque(cur.Type()) {
			var normal mgl64.Vec3
			normal[axis] = float64(-step[axis])
			return RayHit{
				Hit:      true,
				Distance: t,
				Normal:   normal,
				Block:    vec.Vec3{X: pos[0], Y: pos[1], Z: pos[2]},
				Cursor:   cur,
			}
		}
	}
}
