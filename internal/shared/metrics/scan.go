package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan agrupa os contadores do pipeline de varredura.
// São eventos por execução; o estado autoritativo fica nas Tasks.
type Scan struct {
	Enqueued  prometheus.Counter
	Started   prometheus.Counter
	Completed prometheus.Counter
	Failed    prometheus.Counter
	Retried   prometheus.Counter
	Paused    prometheus.Counter
	ErrorsBy  *prometheus.CounterVec
	StageTime *prometheus.HistogramVec
	Matches   *prometheus.CounterVec
}

// NewScan cria e registra as métricas no registerer informado
func NewScan(reg prometheus.Registerer) *Scan {
	m := &Scan{
		Enqueued:  prometheus.NewCounter(prometheus.CounterOpts{Name: "scan_jobs_enqueued_total", Help: "jobs enfileirados"}),
		Started:   prometheus.NewCounter(prometheus.CounterOpts{Name: "scan_jobs_started_total", Help: "jobs que passaram a Running"}),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{Name: "scan_jobs_completed_total", Help: "jobs concluídos"}),
		Failed:    prometheus.NewCounter(prometheus.CounterOpts{Name: "scan_jobs_failed_total", Help: "jobs que esgotaram as tentativas"}),
		Retried:   prometheus.NewCounter(prometheus.CounterOpts{Name: "scan_jobs_retried_total", Help: "jobs reenfileirados após falha"}),
		Paused:    prometheus.NewCounter(prometheus.CounterOpts{Name: "scan_jobs_paused_total", Help: "jobs pausados"}),
		ErrorsBy:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "scan_errors_total", Help: "erros por estágio"}, []string{"stage"}),
		StageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scan_stage_duration_seconds",
			Help:    "duração de cada estágio do pipeline",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "scan_compliance_matches_total", Help: "compliances encontradas por tipo"}, []string{"type"}),
	}
	reg.MustRegister(m.Enqueued, m.Started, m.Completed, m.Failed, m.Retried, m.Paused, m.ErrorsBy, m.StageTime, m.Matches)
	return m
}

// OnError segue o formato de callback por fase
func (m *Scan) OnError(stage string) {
	if m == nil {
		return
	}
	m.ErrorsBy.WithLabelValues(stage).Inc()
}

// Observe registra a duração de um estágio iniciado em start
func (m *Scan) Observe(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageTime.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Inc tolera métricas nil (testes e ferramentas sem /metrics)
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
