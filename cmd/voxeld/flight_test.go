package main

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestFlightPathStationary(t *testing.T) {
	f := flightPath{center: mgl64.Vec3{10, 20, 0}, altitude: 90}
	assert.Equal(t, mgl64.Vec3{10, 20, 90}, f.At(time.Hour))
}

func TestFlightPathCircle(t *testing.T) {
	f := flightPath{radius: 100, speed: 50, altitude: 90}

	start := f.At(0)
	assert.InDelta(t, 100, start.X(), 1e-9)
	assert.InDelta(t, 0, start.Y(), 1e-9)

	// полный круг занимает 2πR/speed секунд
	lapNanos := 2 * math.Pi * 100 / 50 * float64(time.Second)
	lap := time.Duration(lapNanos)
	end := f.At(lap)
	assert.InDelta(t, start.X(), end.X(), 1e-6)
	assert.InDelta(t, start.Y(), end.Y(), 1e-6)

	for _, d := range []time.Duration{time.Second, 7 * time.Second, time.Minute} {
		p := f.At(d)
		assert.InDelta(t, 100, math.Hypot(p.X(), p.Y()), 1e-9)
		assert.Equal(t, 90.0, p.Z())
	}
}
