package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Типы фоновых заданий
const (
	JobGenerate = "generate"
	JobLoad     = "load"
	JobSave     = "save"
)

const requestQueueSize = 64

// errStaleJob - задание устарело до начала работы или до публикации результата
var errStaleJob = errors.New("задание устарело")

// Config - параметры мира
type Config struct {
	Seed               uint32
	ActivationRadius   int // радиус загрузки в чанках
	DeactivationRadius int // радиус выгрузки в чанках, больше ActivationRadius
	MaxActiveChunks    int // предел active + queued
}

// Validate проверяет параметры
func (c Config) Validate() error {
	if c.ActivationRadius < 0 {
		return fmt.Errorf("радиус активации не может быть отрицательным: %d", c.ActivationRadius)
	}
	if c.DeactivationRadius <= c.ActivationRadius {
		return fmt.Errorf("радиус деактивации %d должен быть больше радиуса активации %d", c.DeactivationRadius, c.ActivationRadius)
	}
	if c.MaxActiveChunks <= 0 {
		return fmt.Errorf("максимум активных чанков должен быть положительным: %d", c.MaxActiveChunks)
	}
	return nil
}

// Options - зависимости мира. Пустые поля заменяются значениями по умолчанию.
type Options struct {
	Registry  *block.Registry
	Templates *block.TemplateSet
	Pool      jobs.Pool  // по умолчанию задания выполняются сразу
	Store     ChunkStore // nil - без сохранения
	Metrics   *metrics.World
	Events    eventbus.EventBus // nil - события не публикуются
	Logger    *logging.Logger
}

// pendingJob - задание, которое главный поток опрашивает каждый кадр
type pendingJob struct {
	kind   string
	chunk  *Chunk
	epoch  uint64
	ticket *jobs.Ticket
}

// World владеет активными чанками и управляет их жизненным циклом.
// Все методы, кроме Do, вызываются только из главного потока.
type World struct {
	cfg       Config
	registry  *block.Registry
	generator *Generator
	pool      jobs.Pool
	store     ChunkStore
	metrics   *metrics.World
	events    eventbus.EventBus
	log       *logging.Logger

	active map[vec.Vec2]*Chunk
	queued map[vec.Vec2]*pendingJob // генерация и загрузка
	saving map[vec.Vec2]*pendingJob

	light    *Lighting
	requests chan func(*World)

	frame  uint64
	viewer mgl64.Vec3
}

// New создаёт пустой мир
func New(cfg Config, opts Options) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		reg, err := block.DefaultRegistry()
		if err != nil {
			return nil, fmt.Errorf("не удалось загрузить реестр блоков: %w", err)
		}
		opts.Registry = reg
	}
	if opts.Templates == nil {
		opts.Templates = block.DefaultTemplates(opts.Registry)
	}
	if opts.Pool == nil {
		opts.Pool = &jobs.InlinePool{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetWorldLogger()
	}

	w := &World{
		cfg:       cfg,
		registry:  opts.Registry,
		generator: NewGenerator(cfg.Seed, opts.Registry, opts.Templates),
		pool:      opts.Pool,
		store:     opts.Store,
		metrics:   opts.Metrics,
		events:    opts.Events,
		log:       opts.Logger,
		active:    make(map[vec.Vec2]*Chunk),
		queued:    make(map[vec.Vec2]*pendingJob),
		saving:    make(map[vec.Vec2]*pendingJob),
		light:     NewLighting(opts.Registry),
		requests:  make(chan func(*World), requestQueueSize),
	}
	w.log.Info("Мир создан: seed=%d, радиусы %d/%d, максимум чанков %d",
		cfg.Seed, cfg.ActivationRadius, cfg.DeactivationRadius, cfg.MaxActiveChunks)
	return w, nil
}

// chunkHost

func (w *World) linkedChunk(coords vec.Vec2) *Chunk { return w.active[coords] }
func (w *World) lightQueue() *Lighting              { return w.light }

// Config возвращает параметры мира
func (w *World) Config() Config { return w.cfg }

// Seed возвращает сид мира
func (w *World) Seed() uint32 { return w.cfg.Seed }

// Registry возвращает реестр блоков
func (w *World) Registry() *block.Registry { return w.registry }

// Generator возвращает генератор мира
func (w *World) Generator() *Generator { return w.generator }

// Lighting возвращает очередь освещения
func (w *World) Lighting() *Lighting { return w.light }

// Frame возвращает номер последнего кадра
func (w *World) Frame() uint64 { return w.frame }

// Update выполняет один кадр:
// приём готовых генераций и загрузок, приём сохранений, освещение,
// постановка новых чанков, выгрузка дальних.
func (w *World) Update(viewer mgl64.Vec3) {
	start := time.Now()
	w.frame++
	w.viewer = viewer

	w.drainRequests()
	w.pollPopulateJobs()
	w.pollSaveJobs()
	w.metrics.LightUpdates(w.light.Drain())
	w.activateAround()
	w.deactivateFar()

	w.publishMetrics()
	w.metrics.Frame(time.Since(start))
}

// Do выполняет fn в главном потоке во время ближайшего Update.
// Это единственный способ обратиться к миру из других горутин.
// Ошибка означает, что fn не выполнялась и уже не будет выполнена.
func (w *World) Do(ctx context.Context, fn func(*World)) error {
	var claim atomic.Int32 // 0 - ждёт, 1 - взят миром, 2 - отменён вызывающим
	done := make(chan struct{})
	req := func(w *World) {
		if !claim.CompareAndSwap(0, 1) {
			return
		}
		defer close(done)
		fn(w)
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if claim.CompareAndSwap(0, 2) {
			return ctx.Err()
		}
		// мир уже выполняет fn: дожидаемся, чтобы результат был виден вызывающему
		<-done
		return nil
	}
}

func (w *World) drainRequests() {
	for {
		select {
		case req := <-w.requests:
			req(w)
		default:
			return
		}
	}
}

// chunkDistance - расстояние от центра чанка до наблюдателя в единицах чанков
func (w *World) chunkDistance(coords vec.Vec2) float64 {
	dx := float64(coords.X) + 0.5 - w.viewer.X()/SizeX
	dy := float64(coords.Y) + 0.5 - w.viewer.Y()/SizeY
	return math.Hypot(dx, dy)
}

func (w *World) viewerChunk() vec.Vec2 {
	return vec.Vec2{
		X: vec.FloorDiv(int(math.Floor(w.viewer.X())), SizeX),
		Y: vec.FloorDiv(int(math.Floor(w.viewer.Y())), SizeY),
	}
}

// sortByDistance упорядочивает координаты от ближних к дальним, при равенстве - по X, Y
func (w *World) sortByDistance(coords []vec.Vec2) {
	sort.Slice(coords, func(i, j int) bool {
		di, dj := w.chunkDistance(coords[i]), w.chunkDistance(coords[j])
		if di != dj {
			return di < dj
		}
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})
}

// pollPopulateJobs принимает завершённые генерации и загрузки.
// Устаревшие результаты отбрасываются, свежие активируются, пока есть место.
func (w *World) pollPopulateJobs() {
	var ready []vec.Vec2
	for coords, job := range w.queued {
		if job.ticket.Done() {
			ready = append(ready, coords)
		}
	}
	w.sortByDistance(ready)

	for _, coords := range ready {
		job := w.queued[coords]
		c := job.chunk

		if err := job.ticket.Err(); err != nil && !errors.Is(err, errStaleJob) {
			w.log.Error("Задание %s %s для чанка %v завершилось ошибкой: %v", job.kind, job.ticket.ID(), coords, err)
			w.metrics.JobFailed(job.kind)
			delete(w.queued, coords)
			w.destroy(c)
			continue
		}
		if c.Epoch() != job.epoch || c.State() != StateGenerateOrLoadComplete {
			delete(w.queued, coords)
			w.destroy(c)
			w.metrics.JobDiscarded(job.kind)
			w.log.Debug("Отброшен устаревший результат %s для чанка %v", job.kind, coords)
			continue
		}
		if len(w.active) >= w.cfg.MaxActiveChunks {
			continue
		}

		delete(w.queued, coords)
		w.activate(c, job.kind)
		w.metrics.JobCompleted(job.kind, job.ticket.Duration())
	}
}

// pollSaveJobs завершает выгрузку сохранённых чанков
func (w *World) pollSaveJobs() {
	for coords, job := range w.saving {
		if !job.ticket.Done() {
			continue
		}
		delete(w.saving, coords)
		if err := job.ticket.Err(); err != nil {
			w.log.Error("Не удалось сохранить чанк %v: %v", coords, err)
			w.metrics.JobFailed(job.kind)
		} else {
			w.metrics.JobCompleted(job.kind, job.ticket.Duration())
		}
		w.destroy(job.chunk)
	}
}

// activateAround ставит в очередь недостающие чанки в радиусе активации,
// ближние первыми, пока active + queued меньше предела
func (w *World) activateAround() {
	r := w.cfg.ActivationRadius
	center := w.viewerChunk()

	var candidates []vec.Vec2
	for dy := -r - 1; dy <= r+1; dy++ {
		for dx := -r - 1; dx <= r+1; dx++ {
			coords := vec.Vec2{X: center.X + dx, Y: center.Y + dy}
			if w.chunkDistance(coords) > float64(r) {
				continue
			}
			if w.isKnown(coords) {
				continue
			}
			candidates = append(candidates, coords)
		}
	}
	w.sortByDistance(candidates)

	for _, coords := range candidates {
		if len(w.active)+len(w.queued) >= w.cfg.MaxActiveChunks {
			break
		}
		w.submitPopulate(coords)
	}
}

// isKnown сообщает, что координата уже активна, в очереди или сохраняется
func (w *World) isKnown(coords vec.Vec2) bool {
	if _, ok := w.active[coords]; ok {
		return true
	}
	if _, ok := w.queued[coords]; ok {
		return true
	}
	_, ok := w.saving[coords]
	return ok
}

func (w *World) submitPopulate(coords vec.Vec2) {
	c := NewChunk(coords, w.registry)
	c.host = w
	c.mustTransition(StateMissing, StateConstructing)

	kind := JobGenerate
	if w.store != nil && w.store.Exists(w.cfg.Seed, coords) {
		kind = JobLoad
		c.mustTransition(StateConstructing, StateQueuedLoad)
	} else {
		c.mustTransition(StateConstructing, StateQueuedGenerate)
	}

	epoch := c.Epoch()
	ticket := w.pool.Submit(kind, func() error {
		return w.populate(c, kind, epoch)
	})
	w.queued[coords] = &pendingJob{kind: kind, chunk: c, epoch: epoch, ticket: ticket}
	w.metrics.JobSubmitted(kind)
}

// populate выполняется в воркере: загрузка (с откатом на генерацию) или генерация.
// Устаревшее задание пропускает работу и не публикует результат.
func (w *World) populate(c *Chunk, kind string, epoch uint64) error {
	if c.Epoch() != epoch {
		return errStaleJob
	}

	if kind == JobLoad {
		if err := c.transition(StateQueuedLoad, StateLoading); err != nil {
			return err
		}
		if err := w.store.Load(w.cfg.Seed, c); err != nil {
			w.log.Warn("Чанк %v не загружен (%v), генерируем заново", c.Coords, err)
			w.generator.Generate(c)
		}
	} else {
		if err := c.transition(StateQueuedGenerate, StateGenerating); err != nil {
			return err
		}
		w.generator.Generate(c)
	}
	c.SetSkyLight()
	c.meshDirty = true

	if c.Epoch() != epoch {
		return errStaleJob
	}
	from := StateGenerating
	if kind == JobLoad {
		from = StateLoading
	}
	return c.transition(from, StateGenerateOrLoadComplete)
}

// activate делает чанк активным, связывает с соседями и запускает освещение
func (w *World) activate(c *Chunk, origin string) {
	c.mustTransition(StateGenerateOrLoadComplete, StateActive)
	w.active[c.Coords] = c

	for _, d := range Directions {
		n := w.active[c.Coords.Add(d.Offset())]
		if n == nil {
			continue
		}
		c.link(d)
		n.link(d.Opposite())
		n.meshDirty = true
		w.enqueueBorder(n, d.Opposite())
	}
	w.seedLight(c)
	w.log.Trace("Чанк %v активирован", c.Coords)
	w.emit(eventbus.EventChunkActivated, eventbus.ChunkEvent{X: c.Coords.X, Y: c.Coords.Y, Origin: origin})
}

// seedLight ставит в очередь источники, ячейки под небом и границы со связанными соседями
func (w *World) seedLight(c *Chunk) {
	for i := range c.cells {
		cell := &c.cells[i]
		if w.registry.Emission(cell.Type) > 0 {
			w.light.Enqueue(Cursor{Chunk: c, Index: Index(i)})
			continue
		}
		if cell.IsSky() && !w.registry.IsOpaque(cell.Type) {
			w.light.Enqueue(Cursor{Chunk: c, Index: Index(i)})
		}
	}
	for _, d := range Directions {
		if c.IsLinked(d) {
			w.enqueueBorder(c, d)
		}
	}
}

// enqueueBorder ставит в очередь прозрачные ячейки грани чанка, обращённой в сторону d
func (w *World) enqueueBorder(c *Chunk, d Direction) {
	for z := 0; z < SizeZ; z++ {
		for k := 0; k < SizeX; k++ {
			var x, y int
			switch d {
			case North:
				x, y = k, SizeY-1
			case South:
				x, y = k, 0
			case East:
				x, y = SizeX-1, k
			case West:
				x, y = 0, k
			}
			idx := PackIndex(x, y, z)
			if !w.registry.IsOpaque(c.cells[idx].Type) {
				w.light.Enqueue(Cursor{Chunk: c, Index: idx})
			}
		}
	}
}

// deactivateFar выгружает чанки за радиусом деактивации и отменяет дальние задания
func (w *World) deactivateFar() {
	limit := float64(w.cfg.DeactivationRadius)

	var far []vec.Vec2
	for coords := range w.active {
		if w.chunkDistance(coords) > limit {
			far = append(far, coords)
		}
	}
	w.sortByDistance(far)
	w.unload(far)

	for coords, job := range w.queued {
		if w.chunkDistance(coords) > limit && job.chunk.Epoch() == job.epoch {
			job.chunk.bumpEpoch()
			w.log.Debug("Задание %s для чанка %v отменено", job.kind, coords)
		}
	}
}

// unload снимает чанки с активных: изменённые уходят на сохранение, остальные уничтожаются.
// Сначала рвутся все связи набора, и граница пересчитывается только у остающихся соседей:
// в очередь освещения не попадает ни одна ячейка чанка, переданного воркеру.
func (w *World) unload(coords []vec.Vec2) {
	leaving := make(map[vec.Vec2]bool, len(coords))
	for _, cc := range coords {
		leaving[cc] = true
	}
	for _, cc := range coords {
		c := w.active[cc]
		for _, d := range Directions {
			if !c.IsLinked(d) {
				continue
			}
			nc := cc.Add(d.Offset())
			if n := w.active[nc]; n != nil {
				n.unlink(d.Opposite())
				if !leaving[nc] {
					n.meshDirty = true
					w.enqueueBorder(n, d.Opposite())
				}
			}
			c.unlink(d)
		}
	}
	for _, cc := range coords {
		c := w.active[cc]
		delete(w.active, cc)
		w.release(c)
	}
}

// release уничтожает снятый чанк или отправляет его на сохранение
func (w *World) release(c *Chunk) {

	if !c.needsPersist || w.store == nil {
		w.destroy(c)
		w.emit(eventbus.EventChunkUnloaded, eventbus.ChunkEvent{X: c.Coords.X, Y: c.Coords.Y})
		return
	}

	c.mustTransition(StateActive, StateQueuedSave)
	ticket := w.pool.Submit(JobSave, func() error { return w.persist(c) })
	w.saving[c.Coords] = &pendingJob{kind: JobSave, chunk: c, epoch: c.Epoch(), ticket: ticket}
	w.metrics.JobSubmitted(JobSave)
	w.emit(eventbus.EventChunkUnloaded, eventbus.ChunkEvent{X: c.Coords.X, Y: c.Coords.Y, Saved: true})
}

// emit публикует событие мира, не блокируя кадр
func (w *World) emit(eventType string, payload interface{}) {
	if w.events == nil {
		return
	}
	ev, err := eventbus.NewEnvelope("world", eventType, payload)
	if err == nil {
		err = w.events.Publish(context.Background(), ev)
	}
	if err != nil {
		w.log.Warn("Событие %s не опубликовано: %v", eventType, err)
	}
}

// persist выполняется в воркере
func (w *World) persist(c *Chunk) error {
	if err := c.transition(StateQueuedSave, StateSaving); err != nil {
		return err
	}
	err := w.store.Save(w.cfg.Seed, c)
	if terr := c.transition(StateSaving, StateSaveComplete); terr != nil && err == nil {
		err = terr
	}
	return err
}

func (w *World) destroy(c *Chunk) {
	if c.State() == StateDeconstructing {
		return
	}
	if err := c.transition(c.State(), StateDeconstructing); err != nil {
		w.log.Warn("Чанк %v: %v", c.Coords, err)
	}
	c.host = nil
}

// Shutdown выгружает все чанки и ждёт завершения сохранений
func (w *World) Shutdown(ctx context.Context) error {
	w.drainRequests()

	for _, job := range w.queued {
		job.chunk.bumpEpoch()
	}
	// свет дописывается до сохранения: после unload чанки принадлежат воркерам
	w.metrics.LightUpdates(w.light.Drain())
	w.unload(w.ActiveCoords())

	for cc, job := range w.queued {
		if err := job.ticket.Wait(ctx); err != nil && ctx.Err() != nil {
			return fmt.Errorf("остановка мира прервана: %w", ctx.Err())
		}
		delete(w.queued, cc)
		w.destroy(job.chunk)
	}
	for _, job := range w.saving {
		if err := job.ticket.Wait(ctx); err != nil && ctx.Err() != nil {
			return fmt.Errorf("остановка мира прервана: %w", ctx.Err())
		}
	}
	w.pollSaveJobs()
	w.publishMetrics()
	w.log.Info("Мир остановлен после %d кадров", w.frame)
	return nil
}

func (w *World) publishMetrics() {
	w.metrics.SetChunks(len(w.active), len(w.queued), len(w.saving))
	w.metrics.PoolWaiting(w.pool.Stats().Waiting)
}

// ChunkAt возвращает активный чанк или nil
func (w *World) ChunkAt(coords vec.Vec2) *Chunk { return w.active[coords] }

// ActiveCoords возвращает координаты активных чанков в порядке X, Y
func (w *World) ActiveCoords() []vec.Vec2 {
	coords := make([]vec.Vec2, 0, len(w.active))
	for cc := range w.active {
		coords = append(coords, cc)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})
	return coords
}

// IsQueued сообщает, ждёт ли координата генерации или загрузки
func (w *World) IsQueued(coords vec.Vec2) bool {
	_, ok := w.queued[coords]
	return ok
}

// IsSaving сообщает, сохраняется ли чанк координаты
func (w *World) IsSaving(coords vec.Vec2) bool {
	_, ok := w.saving[coords]
	return ok
}

// ChunkCoords переводит мировые координаты блока в координаты чанка
func ChunkCoords(x, y int) vec.Vec2 {
	return vec.Vec2{X: vec.FloorDiv(x, SizeX), Y: vec.FloorDiv(y, SizeY)}
}

// CursorAt возвращает курсор на мировую ячейку; вне активных чанков - невалидный
func (w *World) CursorAt(x, y, z int) Cursor {
	if z < 0 || z >= SizeZ {
		return Cursor{}
	}
	c := w.active[ChunkCoords(x, y)]
	if c == nil {
		return Cursor{}
	}
	return Cursor{Chunk: c, Index: PackIndex(vec.FloorMod(x, SizeX), vec.FloorMod(y, SizeY), z)}
}

// BlockAt возвращает тип блока; ok=false, если чанк не активен
func (w *World) BlockAt(x, y, z int) (block.BlockID, bool) {
	cur := w.CursorAt(x, y, z)
	if !cur.IsValid() {
		return block.AirBlockID, false
	}
	return cur.Type(), true
}

// SetBlockType меняет блок по мировым координатам и публикует block_changed
func (w *World) SetBlockType(x, y, z int, t block.BlockID, isPlacing bool) bool {
	cur := w.CursorAt(x, y, z)
	if !cur.IsValid() {
		return false
	}
	from := cur.Type()
	if !cur.Chunk.SetBlockType(cur.Index, t, isPlacing) {
		return false
	}
	w.emit(eventbus.EventBlockChanged, eventbus.BlockEvent{
		X: x, Y: y, Z: z,
		From:    w.registry.Get(from).Name,
		To:      w.registry.Get(t).Name,
		Placing: isPlacing,
	})
	return true
}

// Raycast ищет первый непрозрачный блок на луче в пределах maxDist
func (w *World) Raycast(start, dir mgl64.Vec3, maxDist float64) RayHit {
	cur := w.CursorAt(
		int(math.Floor(start.X())),
		int(math.Floor(start.Y())),
		int(math.Floor(start.Z())),
	)
	return castRay(w.registry, cur, start, dir, maxDist)
}

// Stats - снимок состояния мира
type Stats struct {
	Frame          uint64     `json:"frame"`
	Seed           uint32     `json:"seed"`
	Active         int        `json:"active"`
	Queued         int        `json:"queued"`
	Saving         int        `json:"saving"`
	LightQueue     int        `json:"light_queue"`
	LightProcessed uint64     `json:"light_processed"`
	Jobs           jobs.Stats `json:"jobs"`
}

// Stats возвращает снимок состояния
func (w *World) Stats() Stats {
	return Stats{
		Frame:          w.frame,
		Seed:           w.cfg.Seed,
		Active:         len(w.active),
		Queued:         len(w.queued),
		Saving:         len(w.saving),
		LightQueue:     w.light.Len(),
		LightProcessed: w.light.Processed(),
		Jobs:           w.pool.Stats(),
	}
}
