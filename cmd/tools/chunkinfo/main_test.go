package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

func TestInspectEmptyChunk(t *testing.T) {
	reg := block.MustDefaultRegistry()
	raw, err := world.NewChunk(vec.Vec2{X: 1, Y: 2}, reg).MarshalBinary(42)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, inspect(&out, "0_0.chunk", raw, reg))

	text := out.String()
	assert.Contains(t, text, "сид:     42")
	assert.Contains(t, text, "air")
	assert.Contains(t, text, "100.0%")
}

func TestInspectCorruptBody(t *testing.T) {
	reg := block.MustDefaultRegistry()
	raw, err := world.NewChunk(vec.Vec2{}, reg).MarshalBinary(42)
	require.NoError(t, err)

	var out bytes.Buffer
	err = inspect(&out, "bad.chunk", raw[:len(raw)-4], reg)
	assert.ErrorIs(t, err, world.ErrCorruptBody)
}

func TestInspectBadHeader(t *testing.T) {
	var out bytes.Buffer
	err := inspect(&out, "junk", []byte("not a chunk file"), block.MustDefaultRegistry())
	assert.ErrorIs(t, err, world.ErrBadHeader)
}

func TestScanRuns(t *testing.T) {
	s := scanRuns([]byte{0, 255, 1, 3, 0, 255, 2, 1})
	assert.Equal(t, runStats{runs: 4, longest: 255, full: 2}, s)
}
