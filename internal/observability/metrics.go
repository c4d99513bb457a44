package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
)

const metricsNamespace = "volleyball"

// ImportMetrics exports import counters to Prometheus.
type ImportMetrics struct {
	registry       *prometheus.Registry
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	upsertsTotal   *prometheus.CounterVec
	skippedTotal   *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	failedTotal    *prometheus.CounterVec
	lastSuccessful *prometheus.GaugeVec
}

// NewImportMetrics registers collectors on a private registry so repeated
// construction in tests never collides.
func NewImportMetrics() *ImportMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &ImportMetrics{
		registry: registry,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_runs_total",
				Help:      "Import runs by mode and final status.",
			},
			[]string{"mode", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "import_run_duration_seconds",
				Help:      "Wall time of import runs.",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"mode"},
		),
		upsertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "team_rows_upserted_total",
				Help:      "Team standing rows written, by league and outcome.",
			},
			[]string{"league", "outcome"},
		),
		skippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_files_skipped_total",
				Help:      "Source files skipped during import, by reason.",
			},
			[]string{"mode", "reason"},
		),
		droppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "team_records_dropped_total",
				Help:      "Team entries dropped for missing required fields.",
			},
			[]string{"league"},
		),
		failedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "team_upserts_failed_total",
				Help:      "Team standing rows the store rejected.",
			},
			[]string{"league"},
		),
		lastSuccessful: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "import_last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run per mode.",
			},
			[]string{"mode"},
		),
	}
}

func (m *ImportMetrics) RunFinished(mode importrun.Mode, status importrun.Status, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(string(mode), string(status)).Inc()
	m.runDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	if status == importrun.StatusSucceeded {
		m.lastSuccessful.WithLabelValues(string(mode)).SetToCurrentTime()
	}
}

func (m *ImportMetrics) RecordUpserted(leagueName string, outcome teamstanding.UpsertOutcome) {
	m.upsertsTotal.WithLabelValues(leagueName, outcome.String()).Inc()
}

func (m *ImportMetrics) FileSkipped(mode importrun.Mode, reason string) {
	m.skippedTotal.WithLabelValues(string(mode), strings.ReplaceAll(reason, " ", "_")).Inc()
}

func (m *ImportMetrics) UpsertFailed(leagueName string) {
	m.failedTotal.WithLabelValues(leagueName).Inc()
}

func (m *ImportMetrics) RecordsDropped(leagueName string, n int) {
	if n <= 0 {
		return
	}
	m.droppedTotal.WithLabelValues(leagueName).Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *ImportMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
