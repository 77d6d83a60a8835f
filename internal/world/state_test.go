package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkStateLifecycle(t *testing.T) {
	var b stateBox
	assert.Equal(t, StateMissing, b.load())

	path := []ChunkState{
		StateConstructing,
		StateQueuedGenerate,
		StateGenerating,
		StateGenerateOrLoadComplete,
		StateActive,
		StateQueuedSave,
		StateSaving,
		StateSaveComplete,
		StateDeconstructing,
	}
	from := StateMissing
	for _, to := range path {
		require.NoError(t, b.transition(from, to), "%s -> %s", from, to)
		from = to
	}
	assert.Equal(t, StateDeconstructing, b.load())
}

func TestChunkStateRejectsIllegalTransitions(t *testing.T) {
	var b stateBox
	assert.Error(t, b.transition(StateMissing, StateActive))
	assert.Equal(t, StateMissing, b.load())

	require.NoError(t, b.transition(StateMissing, StateConstructing))
	// текущее состояние уже не Missing
	assert.Error(t, b.transition(StateMissing, StateConstructing))

	assert.False(t, CanTransition(StateSaving, StateActive))
	assert.False(t, CanTransition(StateDeconstructing, StateActive))
	assert.True(t, CanTransition(StateQueuedLoad, StateDeconstructing))
}

func TestChunkStateString(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "generate_or_load_complete", StateGenerateOrLoadComplete.String())
	assert.Equal(t, "ChunkState(99)", ChunkState(99).String())
}
