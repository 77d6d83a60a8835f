package world

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

var testRegistry = block.MustDefaultRegistry()

var discardLogger = logging.NewWriterLogger("world", io.Discard, logging.ERROR)

func testConfig(radius int) Config {
	return Config{
		Seed:               1337,
		ActivationRadius:   radius,
		DeactivationRadius: radius + 1,
		MaxActiveChunks:    64,
	}
}

func newTestWorld(t *testing.T, cfg Config, opts Options) *World {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger
	}
	if opts.Registry == nil {
		opts.Registry = testRegistry
	}
	w, err := New(cfg, opts)
	require.NoError(t, err)
	return w
}

// insertChunk активирует чанк, минуя фоновые задания
func insertChunk(t testing.TB, w *World, coords vec.Vec2, fill func(c *Chunk)) *Chunk {
	t.Helper()
	c := NewChunk(coords, w.registry)
	c.host = w
	c.mustTransition(StateMissing, StateConstructing)
	c.mustTransition(StateConstructing, StateQueuedGenerate)
	c.mustTransition(StateQueuedGenerate, StateGenerating)
	if fill != nil {
		fill(c)
	}
	c.SetSkyLight()
	c.mustTransition(StateGenerating, StateGenerateOrLoadComplete)
	w.activate(c, JobGenerate)
	return c
}

// solidBelow заполняет блоком id все ячейки с z <= top
func solidBelow(id block.BlockID, top int) func(*Chunk) {
	return func(c *Chunk) {
		for z := 0; z <= top; z++ {
			for y := 0; y < SizeY; y++ {
				for x := 0; x < SizeX; x++ {
					c.cells[PackIndex(x, y, z)].Type = id
				}
			}
		}
	}
}

// carve заменяет воздухом параллелепипед локальных координат (включительно)
func carve(c *Chunk, x0, y0, z0, x1, y1, z1 int) {
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				c.cells[PackIndex(x, y, z)].Type = block.AirBlockID
			}
		}
	}
}
