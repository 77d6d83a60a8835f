// Package jobs выполняет фоновые задания мира (генерация, загрузка, сохранение чанков)
// и отдаёт главному потоку билеты, которые тот опрашивает без блокировки.
package jobs

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"

	"github.com/annel0/voxel-world/internal/logging"
)

// Ticket - билет задания. Главный поток опрашивает Done каждый кадр.
type Ticket struct {
	id        uuid.UUID
	kind      string
	submitted time.Time
	finished  time.Time
	err       error
	done      chan struct{}
}

func newTicket(kind string) *Ticket {
	return &Ticket{
		id:        uuid.New(),
		kind:      kind,
		submitted: time.Now(),
		done:      make(chan struct{}),
	}
}

func (t *Ticket) finish(err error) {
	t.err = err
	t.finished = time.Now()
	close(t.done)
}

// ID возвращает идентификатор задания
func (t *Ticket) ID() uuid.UUID { return t.id }

// Kind возвращает тип задания
func (t *Ticket) Kind() string { return t.kind }

// Done сообщает без блокировки, завершилось ли задание
func (t *Ticket) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait ждёт завершения задания или отмены контекста
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err возвращает ошибку задания. Имеет смысл только после Done.
func (t *Ticket) Err() error {
	if !t.Done() {
		return nil
	}
	return t.err
}

// Duration возвращает время от постановки до завершения
func (t *Ticket) Duration() time.Duration {
	if !t.Done() {
		return time.Since(t.submitted)
	}
	return t.finished.Sub(t.submitted)
}

// Stats - счётчики пула
type Stats struct {
	Running   int64
	Waiting   uint64
	Submitted uint64
	Completed uint64
}

// Pool - исполнитель фоновых заданий
type Pool interface {
	Submit(kind string, fn func() error) *Ticket
	Stats() Stats
	Stop()
}

// run выполняет задание и превращает панику в ошибку
func run(t *Ticket, fn func() error) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в задании %s %s: %v", t.kind, t.id, r)
			logging.GetJobsLogger().Error("%v", err)
		}
		t.finish(err)
	}()
	err = fn()
}

// PondPool - пул воркеров на pond
type PondPool struct {
	pool pond.Pool
}

// NewPondPool создаёт пул. workers <= 0 означает по числу CPU.
func NewPondPool(workers int) *PondPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &PondPool{pool: pond.NewPool(workers)}
}

func (p *PondPool) Submit(kind string, fn func() error) *Ticket {
	t := newTicket(kind)
	p.pool.Submit(func() { run(t, fn) })
	return t
}

func (p *PondPool) Stats() Stats {
	return Stats{
		Running:   p.pool.RunningWorkers(),
		Waiting:   p.pool.WaitingTasks(),
		Submitted: p.pool.SubmittedTasks(),
		Completed: p.pool.CompletedTasks(),
	}
}

// Stop дожидается уже поставленных заданий и останавливает воркеры
func (p *PondPool) Stop() {
	p.pool.StopAndWait()
}

// InlinePool выполняет задание сразу в вызывающем потоке
type InlinePool struct {
	mu    sync.Mutex
	stats Stats
}

func (p *InlinePool) Submit(kind string, fn func() error) *Ticket {
	t := newTicket(kind)
	run(t, fn)
	p.mu.Lock()
	p.stats.Submitted++
	p.stats.Completed++
	p.mu.Unlock()
	return t
}

func (p *InlinePool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *InlinePool) Stop() {}

// DeferredPool копит задания до явного RunNext/RunAll.
// Позволяет тестам управлять порядком завершения.
type DeferredPool struct {
	mu      sync.Mutex
	pending []deferredJob
	stats   Stats
}

type deferredJob struct {
	ticket *Ticket
	fn     func() error
}

func (p *DeferredPool) Submit(kind string, fn func() error) *Ticket {
	t := newTicket(kind)
	p.mu.Lock()
	p.pending = append(p.pending, deferredJob{ticket: t, fn: fn})
	p.stats.Submitted++
	p.stats.Waiting++
	p.mu.Unlock()
	return t
}

// RunNext выполняет самое старое задание. Возвращает false, если очередь пуста.
func (p *DeferredPool) RunNext() bool {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return false
	}
	job := p.pending[0]
	p.pending = p.pending[1:]
	p.stats.Waiting--
	p.mu.Unlock()

	run(job.ticket, job.fn)

	p.mu.Lock()
	p.stats.Completed++
	p.mu.Unlock()
	return true
}

// RunAll выполняет все накопленные задания и возвращает их число
func (p *DeferredPool) RunAll() int {
	n := 0
	for p.RunNext() {
		n++
	}
	return n
}

// Pending возвращает число невыполненных заданий
func (p *DeferredPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *DeferredPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Stop выполняет оставшиеся задания
func (p *DeferredPool) Stop() { p.RunAll() }
