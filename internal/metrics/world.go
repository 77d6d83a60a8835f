// Package metrics содержит Prometheus-метрики мира.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// World - метрики жизненного цикла чанков, заданий и освещения.
// Все методы допускают nil-получатель, поэтому мир работает и без метрик.
//
// Метрики:
// * world_chunks{stage} - gauge (active, queued, saving)
// * world_jobs_total{kind,result} - counter (submitted, completed, discarded, failed)
// * world_job_duration_seconds{kind} - histogram
// * world_light_updates_total - counter
// * world_frame_duration_seconds - histogram
// * world_pool_waiting_tasks - gauge
type World struct {
	chunks      *prometheus.GaugeVec
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	light       prometheus.Counter
	frame       prometheus.Histogram
	poolWaiting prometheus.Gauge
}

// NewWorld создаёт метрики и регистрирует их в reg. reg == nil - без регистрации.
func NewWorld(namespace string, reg prometheus.Registerer) *World {
	m := &World{
		chunks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_chunks",
			Help:      "Число чанков по стадиям.",
		}, []string{"stage"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "world_jobs_total",
			Help:      "Фоновые задания по типу и результату.",
		}, []string{"kind", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "world_job_duration_seconds",
			Help:      "Время от постановки задания до его завершения.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		light: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "world_light_updates_total",
			Help:      "Обработано ячеек очереди освещения.",
		}),
		frame: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "world_frame_duration_seconds",
			Help:      "Длительность World.Update.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1},
		}),
		poolWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_pool_waiting_tasks",
			Help:      "Задания, ожидающие свободного воркера.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.chunks, m.jobs, m.jobDuration, m.light, m.frame, m.poolWaiting)
	}
	return m
}

// SetChunks обновляет размеры множеств чанков
func (m *World) SetChunks(active, queued, saving int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues("active").Set(float64(active))
	m.chunks.WithLabelValues("queued").Set(float64(queued))
	m.chunks.WithLabelValues("saving").Set(float64(saving))
}

// JobSubmitted учитывает постановку задания
func (m *World) JobSubmitted(kind string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, "submitted").Inc()
}

// JobCompleted учитывает успешно принятый результат
func (m *World) JobCompleted(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, "completed").Inc()
	m.jobDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// JobDiscarded учитывает отброшенный устаревший результат
func (m *World) JobDiscarded(kind string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, "discarded").Inc()
}

// JobFailed учитывает задание, завершившееся ошибкой
func (m *World) JobFailed(kind string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, "failed").Inc()
}

// LightUpdates добавляет число обработанных ячеек освещения
func (m *World) LightUpdates(n int) {
	if m == nil || n == 0 {
		return
	}
	m.light.Add(float64(n))
}

// Frame учитывает длительность кадра
func (m *World) Frame(d time.Duration) {
	if m == nil {
		return
	}
	m.frame.Observe(d.Seconds())
}

// PoolWaiting обновляет длину очереди пула
func (m *World) PoolWaiting(n uint64) {
	if m == nil {
		return
	}
	m.poolWaiting.Set(float64(n))
}
