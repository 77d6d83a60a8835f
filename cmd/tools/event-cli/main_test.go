package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/eventbus"
)

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"a", "b"}, parseStringList(" a, ,b "))
}

func TestParseSinceTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got, err := parseSinceTime("30m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-30*time.Minute), got)

	got, err = parseSinceTime("2024-04-30T10:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC), got)

	got, err = parseSinceTime("", now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	_, err = parseSinceTime("вчера", now)
	assert.Error(t, err)
}

func TestPrintEvent(t *testing.T) {
	ev, err := eventbus.NewEnvelope("world", eventbus.EventBlockChanged, eventbus.BlockEvent{X: 1, Y: 2, Z: 3, From: "air", To: "torch", Placing: true})
	require.NoError(t, err)

	var out bytes.Buffer
	printEvent(&out, ev)
	assert.Contains(t, out.String(), "[block_changed]")
	assert.Contains(t, out.String(), "Block: (1,2,3) air -> torch placing=true")

	ev, err = eventbus.NewEnvelope("world", eventbus.EventChunkUnloaded, eventbus.ChunkEvent{X: -4, Y: 9, Saved: true})
	require.NoError(t, err)
	out.Reset()
	printEvent(&out, ev)
	assert.Contains(t, out.String(), "Chunk: (-4,9) saved")
}

func TestMatchTypesAndStats(t *testing.T) {
	ev := &eventbus.Envelope{EventType: eventbus.EventChunkActivated}
	assert.True(t, matchTypes(ev, nil))
	assert.True(t, matchTypes(ev, []string{"x", eventbus.EventChunkActivated}))
	assert.False(t, matchTypes(ev, []string{eventbus.EventBlockChanged}))

	var out bytes.Buffer
	printStats(&out, time.Unix(0, 0), map[string]int{"b": 2, "a": 1})
	assert.Contains(t, out.String(), "Всего событий: 3")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("  a: 1")), bytes.Index(out.Bytes(), []byte("  b: 2")))
}
