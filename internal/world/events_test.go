package world

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/eventbus"
)

func TestWorldPublishesEvents(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)

	var (
		mu     sync.Mutex
		events []*eventbus.Envelope
	)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	w := newTestWorld(t, testConfig(0), Options{Store: NewMemoryStore(), Events: bus})
	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	require.True(t, w.SetBlockType(8, 8, 120, testRegistry.ID("glass"), true))
	// повтор ничего не меняет и не публикуется
	require.False(t, w.SetBlockType(8, 8, 120, testRegistry.ID("glass"), true))
	w.Update(viewerAt(50, 0))

	require.NoError(t, bus.Close())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)

	assert.Equal(t, eventbus.EventChunkActivated, events[0].EventType)
	assert.Equal(t, "world", events[0].Source)
	var activated eventbus.ChunkEvent
	require.NoError(t, events[0].Decode(&activated))
	assert.Equal(t, eventbus.ChunkEvent{Origin: JobGenerate}, activated)

	assert.Equal(t, eventbus.EventBlockChanged, events[1].EventType)
	var changed eventbus.BlockEvent
	require.NoError(t, events[1].Decode(&changed))
	assert.Equal(t, eventbus.BlockEvent{X: 8, Y: 8, Z: 120, From: "air", To: "glass", Placing: true}, changed)

	assert.Equal(t, eventbus.EventChunkUnloaded, events[2].EventType)
	var unloaded eventbus.ChunkEvent
	require.NoError(t, events[2].Decode(&unloaded))
	assert.True(t, unloaded.Saved)
}
