package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// viewerAt ставит наблюдателя в центр чанка
func viewerAt(cx, cy int) mgl64.Vec3 {
	return mgl64.Vec3{float64(cx*SizeX) + 8, float64(cy*SizeY) + 8, 90}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{ActivationRadius: 3, DeactivationRadius: 2, MaxActiveChunks: 10}, Options{})
	assert.Error(t, err)
	_, err = New(Config{ActivationRadius: 1, DeactivationRadius: 2}, Options{})
	assert.Error(t, err)
	// без полосы гистерезиса чанки на границе выгружались бы и загружались каждый кадр
	_, err = New(Config{ActivationRadius: 2, DeactivationRadius: 2, MaxActiveChunks: 10}, Options{})
	assert.Error(t, err)
}

func TestActivationAroundViewer(t *testing.T) {
	w := newTestWorld(t, testConfig(1), Options{})

	w.Update(viewerAt(0, 0))
	// встроенный пул выполняет задания сразу, результат принимается в следующем кадре
	assert.Equal(t, 5, w.Stats().Queued)
	w.Update(viewerAt(0, 0))

	assert.Equal(t, []vec.Vec2{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}}, w.ActiveCoords())
	assert.Equal(t, 0, w.Stats().Queued)

	origin := w.ChunkAt(vec.Vec2{})
	require.NotNil(t, origin)
	assert.Equal(t, StateActive, origin.State())
	for _, d := range Directions {
		assert.True(t, origin.IsLinked(d), "связь %s", d)
	}
	assert.True(t, origin.MeshDirty())

	// освещение уже посчитано
	assert.Equal(t, 0, w.Lighting().Len())
	cur := w.CursorAt(8, 8, SizeZ-1)
	require.True(t, cur.IsValid())
	assert.Equal(t, uint8(MaxLight), cur.Cell().Outdoor())
}

func TestBackpressureLimitsActiveChunks(t *testing.T) {
	cfg := testConfig(2)
	cfg.MaxActiveChunks = 3
	w := newTestWorld(t, cfg, Options{})

	for i := 0; i < 4; i++ {
		w.Update(viewerAt(0, 0))
		st := w.Stats()
		assert.LessOrEqual(t, st.Active+st.Queued, 3)
	}
	assert.Len(t, w.ActiveCoords(), 3)
	// ближайшие первыми
	assert.NotNil(t, w.ChunkAt(vec.Vec2{}))
}

func TestNoDuplicateSubmissions(t *testing.T) {
	pool := &jobs.DeferredPool{}
	w := newTestWorld(t, testConfig(1), Options{Pool: pool})

	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	assert.Equal(t, 5, pool.Pending())
	assert.True(t, w.IsQueued(vec.Vec2{}))
	assert.Nil(t, w.ChunkAt(vec.Vec2{}))

	pool.RunAll()
	w.Update(viewerAt(0, 0))
	assert.Len(t, w.ActiveCoords(), 5)
	assert.Equal(t, 0, pool.Pending())
}

func TestStaleJobsAreDiscarded(t *testing.T) {
	pool := &jobs.DeferredPool{}
	w := newTestWorld(t, testConfig(1), Options{Pool: pool})

	w.Update(viewerAt(0, 0))
	require.Equal(t, 5, pool.Pending())
	old := w.queued[vec.Vec2{}].chunk

	// наблюдатель ушёл, старые задания устарели
	w.Update(viewerAt(100, 0))
	assert.Equal(t, 10, pool.Pending())
	assert.Equal(t, uint64(1), old.Epoch())

	pool.RunAll()
	// устаревшее задание не выполнило работу
	assert.Equal(t, StateQueuedGenerate, old.State())

	w.Update(viewerAt(100, 0))
	assert.Equal(t, StateDeconstructing, old.State())
	assert.False(t, w.IsQueued(vec.Vec2{}))
	assert.Nil(t, w.ChunkAt(vec.Vec2{}))
	assert.NotNil(t, w.ChunkAt(vec.Vec2{X: 100}))
	assert.Len(t, w.ActiveCoords(), 5)
}

func TestStaleResultAfterGenerationIsDiscarded(t *testing.T) {
	pool := &jobs.DeferredPool{}
	w := newTestWorld(t, testConfig(0), Options{Pool: pool})

	w.Update(viewerAt(0, 0))
	job := w.queued[vec.Vec2{}]
	require.NotNil(t, job)

	// задание выполнено, но до приёма чанк успел устареть
	pool.RunAll()
	require.Equal(t, StateGenerateOrLoadComplete, job.chunk.State())
	job.chunk.bumpEpoch()

	w.Update(viewerAt(0, 0))
	assert.Equal(t, StateDeconstructing, job.chunk.State())
	assert.Nil(t, w.ChunkAt(vec.Vec2{}))
	// координата освободилась и поставлена заново
	assert.True(t, w.IsQueued(vec.Vec2{}))
}

func TestEditedChunkIsSavedAndReloaded(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWorld(t, testConfig(1), Options{Store: store})
	glass := testRegistry.ID("glass")

	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	require.True(t, w.SetBlockType(8, 8, 120, glass, true))
	assert.False(t, w.SetBlockType(8, 8, 120, testRegistry.ID("stone"), true))
	assert.True(t, w.ChunkAt(vec.Vec2{}).NeedsPersist())

	w.Update(viewerAt(50, 0))
	assert.True(t, w.IsSaving(vec.Vec2{}))
	assert.Nil(t, w.ChunkAt(vec.Vec2{}))

	w.Update(viewerAt(50, 0))
	assert.False(t, w.IsSaving(vec.Vec2{}))
	// сохраняется только изменённый чанк
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Exists(w.Seed(), vec.Vec2{}))

	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	id, ok := w.BlockAt(8, 8, 120)
	require.True(t, ok)
	assert.Equal(t, glass, id)
	assert.False(t, w.ChunkAt(vec.Vec2{}).NeedsPersist())
}

func TestCorruptStoredChunkFallsBackToGeneration(t *testing.T) {
	store := NewMemoryStore()
	store.Put(1337, vec.Vec2{}, []byte("VXCK garbage"))
	w := newTestWorld(t, testConfig(0), Options{Store: store})

	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))

	c := w.ChunkAt(vec.Vec2{})
	require.NotNil(t, c)
	ref := NewChunk(vec.Vec2{}, testRegistry)
	w.Generator().Generate(ref)
	assert.Equal(t, ref.TypeCounts(), c.TypeCounts())
}

func TestWorldCoordinates(t *testing.T) {
	w := newTestWorld(t, testConfig(1), Options{})
	insertChunk(t, w, vec.Vec2{X: -1, Y: -1}, solidBelow(testRegistry.ID("stone"), 10))

	id, ok := w.BlockAt(-1, -1, 10)
	require.True(t, ok)
	assert.Equal(t, testRegistry.ID("stone"), id)

	cur := w.CursorAt(-16, -16, 11)
	require.True(t, cur.IsValid())
	assert.Equal(t, PackIndex(0, 0, 11), cur.Index)

	_, ok = w.BlockAt(0, 0, 10)
	assert.False(t, ok)
	assert.False(t, w.CursorAt(-1, -1, -1).IsValid())
	assert.False(t, w.CursorAt(-1, -1, SizeZ).IsValid())
	assert.False(t, w.SetBlockType(5, 5, 5, block.AirBlockID, false))

	assert.Equal(t, vec.Vec2{X: -1, Y: 0}, ChunkCoords(-1, 15))
	assert.Equal(t, vec.Vec2{X: 1, Y: -2}, ChunkCoords(16, -17))
}

func TestDoRunsOnUpdate(t *testing.T) {
	w := newTestWorld(t, testConfig(0), Options{})

	errCh := make(chan error, 1)
	var frame uint64
	go func() {
		errCh <- w.Do(context.Background(), func(w *World) { frame = w.Frame() })
	}()

	deadline := time.After(2 * time.Second)
	for done := false; !done; {
		w.Update(viewerAt(0, 0))
		select {
		case err := <-errCh:
			require.NoError(t, err)
			done = true
		case <-deadline:
			t.Fatal("запрос не выполнен")
		case <-time.After(time.Millisecond):
		}
	}
	assert.Positive(t, frame)
}

func TestDoRespectsContext(t *testing.T) {
	w := newTestWorld(t, testConfig(0), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Do(ctx, func(*World) {}), context.Canceled)
}

func TestDoAfterTimeoutNeverRuns(t *testing.T) {
	w := newTestWorld(t, testConfig(0), Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ran := false
	err := w.Do(ctx, func(*World) { ran = true })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// запрос уже лежит в очереди, но кадр не должен его выполнить
	w.Update(viewerAt(0, 0))
	assert.False(t, ran)
}

func TestShutdownSavesEditedChunks(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWorld(t, testConfig(1), Options{Store: store})
	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	require.True(t, w.SetBlockType(3, 3, 110, testRegistry.ID("planks"), true))
	require.True(t, w.SetBlockType(20, 3, 110, testRegistry.ID("planks"), true))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))

	st := w.Stats()
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, 0, st.Queued)
	assert.Equal(t, 0, st.Saving)
	assert.Equal(t, 2, store.Len())
}

func TestWorldWithPondPool(t *testing.T) {
	pool := jobs.NewPondPool(4)
	defer pool.Stop()
	w := newTestWorld(t, testConfig(1), Options{Pool: pool})

	deadline := time.Now().Add(10 * time.Second)
	for len(w.ActiveCoords()) < 5 && time.Now().Before(deadline) {
		w.Update(viewerAt(0, 0))
		time.Sleep(time.Millisecond)
	}
	assert.Len(t, w.ActiveCoords(), 5)
}

// assertLightQueueActive проверяет, что очередь освещения ссылается только на активные чанки
func assertLightQueueActive(t *testing.T, w *World) {
	t.Helper()
	for _, cur := range w.light.queue[w.light.head:] {
		require.Equal(t, StateActive, cur.Chunk.State(), "ячейка %v чанка %v", cur.Index, cur.Chunk.Coords)
	}
}

// editEveryChunk заменяет стеклом верхнюю ячейку в каждом активном чанке
func editEveryChunk(t *testing.T, w *World) {
	t.Helper()
	glass := testRegistry.ID("glass")
	for _, cc := range w.ActiveCoords() {
		require.True(t, w.SetBlockType(cc.X*SizeX+8, cc.Y*SizeY+8, SizeZ-1, glass, false))
	}
}

func TestUnloadDoesNotQueueLightInSavedChunks(t *testing.T) {
	pool := &jobs.DeferredPool{}
	w := newTestWorld(t, testConfig(1), Options{Pool: pool, Store: NewMemoryStore()})

	w.Update(viewerAt(0, 0))
	pool.RunAll()
	w.Update(viewerAt(0, 0))
	require.Len(t, w.ActiveCoords(), 5)
	editEveryChunk(t, w)

	// (0,0) и (1,0) остаются, их границы с ушедшими соседями пересчитываются
	w.Update(viewerAt(2, 0))
	require.NotNil(t, w.ChunkAt(vec.Vec2{}))
	assert.True(t, w.IsSaving(vec.Vec2{X: -1}))
	assert.True(t, w.IsSaving(vec.Vec2{Y: 1}))
	assert.Positive(t, w.light.Len())
	assertLightQueueActive(t, w)

	// уходят все соседи разом: ни одна ячейка не должна остаться в очереди
	w.Update(viewerAt(20, 0))
	assert.Empty(t, w.ActiveCoords())
	assert.True(t, w.IsSaving(vec.Vec2{}))
	assert.Equal(t, 0, w.light.Len())

	for _, job := range w.saving {
		assert.Equal(t, StateQueuedSave, job.chunk.State())
	}
}

func TestShutdownDrainsLightBeforeSaving(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWorld(t, testConfig(1), Options{Store: store})
	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	editEveryChunk(t, w)
	require.Positive(t, w.light.Len())

	require.NoError(t, w.Shutdown(context.Background()))
	assert.Equal(t, 0, w.light.Len())
	assert.Equal(t, 5, store.Len())
}

// failingPool выполняет задания сразу, но каждое завершается ошибкой
type failingPool struct {
	jobs.InlinePool
}

func (p *failingPool) Submit(kind string, fn func() error) *jobs.Ticket {
	return p.InlinePool.Submit(kind, func() error { return errors.New("диск недоступен") })
}

func jobCount(t *testing.T, reg *prometheus.Registry, kind, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "test_world_jobs_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["kind"] == kind && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestFailedJobIsNotCountedAsDiscarded(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := newTestWorld(t, testConfig(0), Options{Pool: &failingPool{}, Metrics: metrics.NewWorld("test", reg)})

	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(0, 0))
	assert.Nil(t, w.ChunkAt(vec.Vec2{}))

	assert.Equal(t, 1.0, jobCount(t, reg, JobGenerate, "failed"))
	assert.Equal(t, 0.0, jobCount(t, reg, JobGenerate, "discarded"))

	// устаревшее задание учитывается как отброшенное
	pool := &jobs.DeferredPool{}
	reg = prometheus.NewRegistry()
	w = newTestWorld(t, testConfig(0), Options{Pool: pool, Metrics: metrics.NewWorld("test", reg)})
	w.Update(viewerAt(0, 0))
	w.Update(viewerAt(100, 0))
	pool.RunAll()
	w.Update(viewerAt(100, 0))
	assert.Equal(t, 1.0, jobCount(t, reg, JobGenerate, "discarded"))
	assert.Equal(t, 0.0, jobCount(t, reg, JobGenerate, "failed"))
}
