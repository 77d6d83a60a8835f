package world

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
)

func flatWorld(t *testing.T) *World {
	t.Helper()
	w := newTestWorld(t, testConfig(1), Options{})
	insertChunk(t, w, vec.Vec2{}, solidBelow(testRegistry.ID("stone"), 10))
	insertChunk(t, w, vec.Vec2{X: 1}, solidBelow(testRegistry.ID("stone"), 10))
	w.light.Drain()
	return w
}

func TestRaycastDown(t *testing.T) {
	w := flatWorld(t)

	hit := w.Raycast(mgl64.Vec3{8.5, 8.5, 20.5}, mgl64.Vec3{0, 0, -1}, 50)
	require.True(t, hit.Hit)
	assert.Equal(t, vec.Vec3{X: 8, Y: 8, Z: 10}, hit.Block)
	assert.InDelta(t, 9.5, hit.Distance, 1e-9)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, hit.Normal)
	assert.Equal(t, testRegistry.ID("stone"), hit.Cursor.Type())

	// направление не обязано быть нормализованным
	hit = w.Raycast(mgl64.Vec3{8.5, 8.5, 20.5}, mgl64.Vec3{0, 0, -7}, 50)
	assert.InDelta(t, 9.5, hit.Distance, 1e-9)
}

func TestRaycastMaxDistance(t *testing.T) {
	w := flatWorld(t)
	hit := w.Raycast(mgl64.Vec3{8.5, 8.5, 20.5}, mgl64.Vec3{0, 0, -1}, 5)
	assert.False(t, hit.Hit)
}

func TestRaycastStartsInsideBlock(t *testing.T) {
	w := flatWorld(t)
	hit := w.Raycast(mgl64.Vec3{8.5, 8.5, 5.5}, mgl64.Vec3{1, 0, 0}, 10)
	require.True(t, hit.Hit)
	assert.Equal(t, 0.0, hit.Distance)
	assert.Equal(t, vec.Vec3{X: 8, Y: 8, Z: 5}, hit.Block)
}

func TestRaycastAcrossChunks(t *testing.T) {
	w := flatWorld(t)
	require.True(t, w.SetBlockType(20, 8, 15, testRegistry.ID("stone"), true))

	hit := w.Raycast(mgl64.Vec3{8.5, 8.5, 15.5}, mgl64.Vec3{1, 0, 0}, 100)
	require.True(t, hit.Hit)
	assert.Equal(t, vec.Vec3{X: 20, Y: 8, Z: 15}, hit.Block)
	assert.InDelta(t, 11.5, hit.Distance, 1e-9)
	assert.Equal(t, mgl64.Vec3{-1, 0, 0}, hit.Normal)
}

func TestRaycastLeavesLoadedWorld(t *testing.T) {
	w := flatWorld(t)
	hit := w.Raycast(mgl64.Vec3{8.5, 8.5, 15.5}, mgl64.Vec3{0, 1, 0}, 100)
	assert.False(t, hit.Hit)

	hit = w.Raycast(mgl64.Vec3{8.5, 8.5, 15.5}, mgl64.Vec3{0, 0, 1}, 500)
	assert.False(t, hit.Hit)

	// старт вне активных чанков
	hit = w.Raycast(mgl64.Vec3{100, 100, 15}, mgl64.Vec3{0, 0, -1}, 100)
	assert.False(t, hit.Hit)
}

func TestRaycastDiagonal(t *testing.T) {
	w := flatWorld(t)
	require.True(t, w.SetBlockType(5, 5, 15, testRegistry.ID("stone"), true))

	hit := w.Raycast(mgl64.Vec3{0.5, 0.5, 15.5}, mgl64.Vec3{1, 1, 0}, 20)
	require.True(t, hit.Hit)
	assert.Equal(t, vec.Vec3{X: 5, Y: 5, Z: 15}, hit.Block)
	assert.InDelta(t, 4.5*math.Sqrt2, hit.Distance, 1e-9)
	assert.Equal(t, mgl64.Vec3{0, -1, 0}, hit.Normal)
}

func TestRaycastZeroDirection(t *testing.T) {
	w := flatWorld(t)
	assert.False(t, w.Raycast(mgl64.Vec3{8.5, 8.5, 20.5}, mgl64.Vec3{}, 10).Hit)
}
