package main

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// flightPath - заданная траектория наблюдателя: окружность вокруг центра
// с постоянной скоростью. Нулевой радиус означает неподвижного наблюдателя.
type flightPath struct {
	center   mgl64.Vec3
	radius   float64 // в блоках
	speed    float64 // блоков в секунду
	altitude float64
}

// At возвращает позицию наблюдателя через elapsed от старта
func (f flightPath) At(elapsed time.Duration) mgl64.Vec3 {
	if f.radius <= 0 || f.speed <= 0 {
		return mgl64.Vec3{f.center.X(), f.center.Y(), f.altitude}
	}
	angle := elapsed.Seconds() * f.speed / f.radius
	return mgl64.Vec3{
		f.center.X() + f.radius*math.Cos(angle),
		f.center.Y() + f.radius*math.Sin(angle),
		f.altitude,
	}
}
