// metrics.go — Prometheus метрики процедуры инициализации.
// Метрики: oi_bootstrap_step_duration_seconds, oi_bootstrap_step_total,
// oi_bootstrap_indexes_created, oi_bootstrap_last_success_timestamp_seconds.
//
// Процесс живёт секунды, scrape невозможен — метрики отправляются
// в Pushgateway по завершении (если задан OI_PUSHGATEWAY_URL).
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Результаты шага для лейбла result.
const (
	ResultOK      = "ok"
	ResultSkipped = "skipped"
	ResultError   = "error"
)

// Recorder собирает метрики одного запуска в собственном registry.
type Recorder struct {
	registry *prometheus.Registry

	stepDuration   *prometheus.HistogramVec
	stepTotal      *prometheus.CounterVec
	indexesCreated prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// New создаёт Recorder с изолированным registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oi_bootstrap_step_duration_seconds",
				Help:    "Длительность шагов инициализации БД в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		stepTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oi_bootstrap_step_total",
				Help: "Количество выполненных шагов инициализации по результату",
			},
			[]string{"step", "result"},
		),
		indexesCreated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oi_bootstrap_indexes_created",
			Help: "Количество индексов, созданных последним запуском",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oi_bootstrap_last_success_timestamp_seconds",
			Help: "Unix-время последнего успешного запуска",
		}),
	}
	r.registry.MustRegister(r.stepDuration, r.stepTotal, r.indexesCreated, r.lastSuccess)
	return r
}

// Registry возвращает registry (для тестов и Push).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep записывает длительность и результат шага.
func (r *Recorder) ObserveStep(step, result string, d time.Duration) {
	r.stepDuration.WithLabelValues(step).Observe(d.Seconds())
	r.stepTotal.WithLabelValues(step, result).Inc()
}

// SetIndexesCreated записывает число созданных индексов.
func (r *Recorder) SetIndexesCreated(n int) {
	r.indexesCreated.Set(float64(n))
}

// MarkSuccess фиксирует время успешного завершения.
func (r *Recorder) MarkSuccess(t time.Time) {
	r.lastSuccess.Set(float64(t.Unix()))
}

// Push отправляет метрики в Pushgateway, заменяя группу job/database.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job, database string) error {
	err := push.New(gatewayURL, job).
		Gatherer(r.registry).
		Grouping("database", database).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("ошибка отправки метрик в Pushgateway: %w", err)
	}
	return nil
}
