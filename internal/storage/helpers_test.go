package storage

import "github.com/go-gl/mathgl/mgl64"

func worldViewer(cx, cy int) mgl64.Vec3 {
	return mgl64.Vec3{float64(cx*16) + 8, float64(cy*16) + 8, 100}
}
